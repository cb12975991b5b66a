package main

import (
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"frameclash/internal/api"
	"frameclash/internal/arena"
	"frameclash/internal/combat"
	"frameclash/internal/config"
	"frameclash/internal/loader"
	"frameclash/internal/replay"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("no .env file found, using environment variables only")
	}

	log.Println("================================")
	log.Println(" FRAMECLASH - COMBAT ARENA")
	log.Println("================================")

	// Load centralized configuration (SSOT - Single Source of Truth)
	appConfig := config.Load()
	timingCfg := appConfig.Timing
	serverCfg := appConfig.Server
	dataCfg := appConfig.Data

	log.Printf("timing: %.0f fps, %.2fs buffer window, %.1fs combo reset, chain cap %d",
		timingCfg.TargetFrameRate, timingCfg.BufferWindowSeconds,
		timingCfg.ComboResetSeconds, timingCfg.MaxComboChain)

	// Load and validate the action catalog before anything starts ticking
	catalog, hidden, err := loader.Load(dataCfg.ActionsPath, dataCfg.HiddenCombosPath)
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}
	log.Printf("catalog: %d actions, %d hidden combos (%s)",
		catalog.Len(), len(hidden), dataCfg.ActionsPath)

	host := arena.New(catalog, hidden, timingCfg, appConfig.Limits)

	// Replay journal: every combat event, append-only JSONL
	journal := replay.NewJournal()
	if dataCfg.ReplayPath != "" {
		if err := journal.Start(dataCfg.ReplayPath); err != nil {
			log.Printf("replay journal disabled: %v", err)
		} else {
			log.Printf("replay journal: %s", dataCfg.ReplayPath)
			host.AddSink(func(fighter string, tick uint64, ev combat.Event) {
				journal.Append(fighter, tick, ev)
			})
		}
	}

	// Prometheus combat counters and tick timing
	host.AddSink(api.RecordCombatEvent)
	host.AddTickObserver(api.RecordTick)

	// Debug server (localhost only: pprof, /metrics, /health)
	if serverCfg.DebugPort > 0 && os.Getenv("DISABLE_DEBUG_SERVER") != "true" {
		debugCfg := api.DefaultObservabilityConfig()
		debugCfg.ListenAddr = "127.0.0.1:" + strconv.Itoa(serverCfg.DebugPort)
		if err := api.StartDebugServer(debugCfg); err != nil {
			log.Printf("debug server disabled: %v", err)
		}
	}

	server := api.NewServer(host, appConfig.Limits)

	// WebSocket clients get the live event stream on top of snapshots
	host.AddSink(server.Hub().EventSink())

	host.Start()
	log.Println("arena host loop started")

	go func() {
		addr := ":" + strconv.Itoa(serverCfg.Port)
		log.Printf("api: http://localhost%s/api/state", addr)
		log.Printf("ws:  ws://localhost%s/ws", addr)
		if err := server.Start(addr); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	// Keep the fighter gauge fresh without touching the hot path
	go func() {
		for range time.Tick(time.Second) {
			api.UpdateFighterCount(host.FighterCount())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	log.Println("server ready, press Ctrl+C to stop")
	<-quit

	log.Println("shutting down...")
	host.Stop()
	journal.Stop()
	server.Stop()
	log.Println("goodbye")
}
