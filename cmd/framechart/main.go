// framechart renders an action catalog's frame data to a PNG: one row per
// action with its startup/active/recovery bars and the cancel window marked
// on top. Useful for eyeballing balance changes without running a fight.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/fogleman/gg"

	"frameclash/internal/combat"
	"frameclash/internal/loader"
)

const (
	rowHeight   = 48
	barHeight   = 22
	labelWidth  = 140
	marginX     = 16
	marginY     = 24
	legendSpace = 40
)

func main() {
	actionsPath := flag.String("actions", "data/actions.yaml", "action catalog to render")
	outPath := flag.String("o", "framechart.png", "output PNG path")
	pxPerFrame := flag.Float64("scale", 8, "horizontal pixels per frame")
	flag.Parse()

	catalog, err := loader.LoadCatalog(*actionsPath)
	if err != nil {
		log.Fatalf("failed to load catalog: %v", err)
	}

	if err := render(catalog, *outPath, *pxPerFrame); err != nil {
		log.Fatalf("failed to render: %v", err)
	}
	log.Printf("wrote %s (%d actions)", *outPath, catalog.Len())
}

func render(catalog *combat.Catalog, outPath string, pxPerFrame float64) error {
	ids := catalog.IDs()

	maxFrames := 0
	for _, id := range ids {
		def, _ := catalog.Get(id)
		if t := def.TotalFrames(); t > maxFrames {
			maxFrames = t
		}
	}

	width := labelWidth + int(float64(maxFrames)*pxPerFrame) + 2*marginX
	height := marginY + len(ids)*rowHeight + legendSpace + marginY

	dc := gg.NewContext(width, height)
	dc.SetRGB(0.08, 0.08, 0.1)
	dc.Clear()

	for i, id := range ids {
		def, _ := catalog.Get(id)
		y := float64(marginY + i*rowHeight)
		drawRow(dc, &def, y, pxPerFrame)
	}

	drawLegend(dc, float64(marginY+len(ids)*rowHeight+12))

	return dc.SavePNG(outPath)
}

func drawRow(dc *gg.Context, def *combat.ActionDef, y, px float64) {
	x := float64(labelWidth)
	barY := y + (rowHeight-barHeight)/2

	name := def.DisplayName
	if name == "" {
		name = string(def.ID)
	}
	dc.SetRGB(0.9, 0.9, 0.9)
	dc.DrawString(fmt.Sprintf("%s (%s)", name, def.Priority), marginX, barY+barHeight-6)

	// Startup, then active, then recovery, left to right
	segments := []struct {
		frames  int
		r, g, b float64
	}{
		{def.StartupFrames, 0.25, 0.5, 0.9},  // blue
		{def.ActiveFrames, 0.9, 0.25, 0.25},  // red
		{def.RecoveryFrames, 0.5, 0.5, 0.55}, // gray
	}
	segX := x
	for _, seg := range segments {
		w := float64(seg.frames) * px
		dc.SetRGB(seg.r, seg.g, seg.b)
		dc.DrawRectangle(segX, barY, w, barHeight)
		dc.Fill()
		segX += w
	}

	// Cancel window outline over the bar
	if def.CancelWindowEnd > def.CancelWindowStart {
		wx := x + float64(def.CancelWindowStart)*px
		ww := float64(def.CancelWindowEnd-def.CancelWindowStart+1) * px
		dc.SetRGB(0.3, 0.95, 0.45)
		dc.SetLineWidth(2)
		dc.DrawRectangle(wx, barY-3, ww, barHeight+6)
		dc.Stroke()
	}

	dc.SetRGB(0.6, 0.6, 0.6)
	dc.DrawString(fmt.Sprintf("%df", def.TotalFrames()), segX+6, barY+barHeight-6)
}

func drawLegend(dc *gg.Context, y float64) {
	entries := []struct {
		label   string
		r, g, b float64
	}{
		{"startup", 0.25, 0.5, 0.9},
		{"active", 0.9, 0.25, 0.25},
		{"recovery", 0.5, 0.5, 0.55},
		{"cancel window", 0.3, 0.95, 0.45},
	}

	x := float64(marginX)
	for _, e := range entries {
		dc.SetRGB(e.r, e.g, e.b)
		dc.DrawRectangle(x, y, 14, 14)
		dc.Fill()
		dc.SetRGB(0.9, 0.9, 0.9)
		dc.DrawString(e.label, x+20, y+12)
		x += float64(len(e.label))*7 + 60
	}
}
