// Package replay journals combat events to newline-delimited JSON so a fight
// can be reconstructed or fed back through a simulation after the fact.
package replay

import (
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"frameclash/internal/combat"
)

const (
	JournalBufferSize     = 1024                   // Circular buffer size
	MaxRecordsPerSec      = 10000                  // Global rate limit
	MaxRecordsPerFighter  = 100                    // Per-fighter rate limit per second
	BatchFlushSize        = 64                     // Records per batch write
	BatchFlushInterval    = 100 * time.Millisecond // How often to flush
	FighterLimiterCleanup = 5 * time.Minute        // Cleanup interval for fighter limiters
)

// Record is one journaled combat event with its simulation coordinates.
type Record struct {
	Sequence uint64           `json:"seq"`
	Tick     uint64           `json:"tick"`
	Fighter  string           `json:"fighter"`
	Kind     combat.EventKind `json:"kind"`
	Event    combat.Event     `json:"event"`
	At       time.Time        `json:"at"`
}

// Journal provides bounded, rate-limited event journaling with backpressure.
// Appends never block the simulation loop; under pressure the oldest records
// are dropped and counted instead.
type Journal struct {
	// Circular buffer (single producer, single consumer)
	buffer    [JournalBufferSize]Record
	writeHead uint64 // atomic - producer position
	readHead  uint64 // atomic - consumer position

	// Rate limiting so one noisy fighter cannot flood the journal
	globalLimiter   *rate.Limiter
	fighterLimiters sync.Map // map[string]*fighterLimiterEntry

	// Async writer
	writerWg sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
	running  atomic.Bool

	// File output
	filePath string
	file     *os.File
	fileMu   sync.Mutex

	// Stats
	droppedCount uint64 // atomic
	totalCount   uint64 // atomic
}

// fighterLimiterEntry tracks per-fighter rate limiting
type fighterLimiterEntry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// NewJournal creates a stopped journal. Call Start before appending.
func NewJournal() *Journal {
	return &Journal{
		globalLimiter: rate.NewLimiter(MaxRecordsPerSec, MaxRecordsPerSec/10),
		stopChan:      make(chan struct{}),
	}
}

// Start begins the async writer goroutine. An empty filePath keeps the
// journal in memory only.
func (j *Journal) Start(filePath string) error {
	if j.running.Load() {
		return nil
	}

	j.filePath = filePath

	if filePath != "" {
		file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		j.file = file
	}

	j.running.Store(true)
	j.writerWg.Add(2)
	go j.writerLoop()
	go j.cleanupLoop()

	return nil
}

// Stop flushes pending records and shuts the journal down.
func (j *Journal) Stop() {
	j.stopOnce.Do(func() {
		j.running.Store(false)
		close(j.stopChan)
		j.writerWg.Wait()

		j.fileMu.Lock()
		if j.file != nil {
			j.file.Close()
		}
		j.fileMu.Unlock()
	})
}

// Append journals one combat event. Returns false when the journal is
// stopped or the record was rate limited away.
func (j *Journal) Append(fighter string, tick uint64, ev combat.Event) bool {
	if !j.running.Load() {
		return false
	}

	if !j.globalLimiter.Allow() {
		atomic.AddUint64(&j.droppedCount, 1)
		return false
	}

	if fighter != "" {
		limiter := j.getFighterLimiter(fighter)
		if !limiter.Allow() {
			atomic.AddUint64(&j.droppedCount, 1)
			return false
		}
	}

	head := atomic.AddUint64(&j.writeHead, 1)
	tail := atomic.LoadUint64(&j.readHead)

	// Buffer full: drop the oldest record, the journal is a rolling window
	if head-tail >= JournalBufferSize {
		atomic.AddUint64(&j.readHead, 1)
		atomic.AddUint64(&j.droppedCount, 1)
	}

	idx := head % JournalBufferSize
	j.buffer[idx] = Record{
		Sequence: head,
		Tick:     tick,
		Fighter:  fighter,
		Kind:     ev.Kind(),
		Event:    ev,
		At:       time.Now(),
	}

	atomic.AddUint64(&j.totalCount, 1)
	return true
}

// getFighterLimiter returns/creates a per-fighter rate limiter
func (j *Journal) getFighterLimiter(fighter string) *rate.Limiter {
	if entry, ok := j.fighterLimiters.Load(fighter); ok {
		e := entry.(*fighterLimiterEntry)
		e.lastUsed = time.Now()
		return e.limiter
	}

	entry := &fighterLimiterEntry{
		limiter:  rate.NewLimiter(MaxRecordsPerFighter, MaxRecordsPerFighter/10),
		lastUsed: time.Now(),
	}
	actual, _ := j.fighterLimiters.LoadOrStore(fighter, entry)
	return actual.(*fighterLimiterEntry).limiter
}

// writerLoop batches and writes records to disk asynchronously
func (j *Journal) writerLoop() {
	defer j.writerWg.Done()

	ticker := time.NewTicker(BatchFlushInterval)
	defer ticker.Stop()

	batch := make([]Record, 0, BatchFlushSize)

	for {
		select {
		case <-j.stopChan:
			// Final flush, drain everything still buffered
			for {
				batch = j.collectBatch(batch[:0])
				if len(batch) == 0 {
					return
				}
				j.flushBatch(batch)
			}

		case <-ticker.C:
			batch = j.collectBatch(batch[:0])
			if len(batch) > 0 {
				j.flushBatch(batch)
			}
		}
	}
}

// cleanupLoop removes stale fighter limiters to prevent a memory leak
func (j *Journal) cleanupLoop() {
	defer j.writerWg.Done()

	ticker := time.NewTicker(FighterLimiterCleanup)
	defer ticker.Stop()

	for {
		select {
		case <-j.stopChan:
			return
		case <-ticker.C:
			j.cleanupFighterLimiters()
		}
	}
}

func (j *Journal) cleanupFighterLimiters() {
	cutoff := time.Now().Add(-FighterLimiterCleanup)
	j.fighterLimiters.Range(func(key, value interface{}) bool {
		entry := value.(*fighterLimiterEntry)
		if entry.lastUsed.Before(cutoff) {
			j.fighterLimiters.Delete(key)
		}
		return true
	})
}

// collectBatch reads available records from the circular buffer
func (j *Journal) collectBatch(batch []Record) []Record {
	head := atomic.LoadUint64(&j.writeHead)
	tail := atomic.LoadUint64(&j.readHead)

	for i := tail; i < head && len(batch) < BatchFlushSize; i++ {
		idx := (i + 1) % JournalBufferSize
		batch = append(batch, j.buffer[idx])
	}

	if len(batch) > 0 {
		atomic.AddUint64(&j.readHead, uint64(len(batch)))
	}

	return batch
}

// flushBatch writes records to disk, append-only, newline-delimited JSON
func (j *Journal) flushBatch(batch []Record) {
	j.fileMu.Lock()
	defer j.fileMu.Unlock()

	if j.file == nil {
		return
	}

	for _, rec := range batch {
		data, err := json.Marshal(rec)
		if err != nil {
			continue
		}
		j.file.Write(data)
		j.file.Write([]byte("\n"))
	}
}

// Stats returns counters for monitoring.
func (j *Journal) Stats() map[string]interface{} {
	head := atomic.LoadUint64(&j.writeHead)
	tail := atomic.LoadUint64(&j.readHead)

	return map[string]interface{}{
		"total":   atomic.LoadUint64(&j.totalCount),
		"dropped": atomic.LoadUint64(&j.droppedCount),
		"pending": head - tail,
		"running": j.running.Load(),
	}
}

// DroppedCount returns the number of records dropped under pressure.
func (j *Journal) DroppedCount() uint64 {
	return atomic.LoadUint64(&j.droppedCount)
}

// TotalCount returns the total number of records accepted.
func (j *Journal) TotalCount() uint64 {
	return atomic.LoadUint64(&j.totalCount)
}
