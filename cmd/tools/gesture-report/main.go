// Command gesture-report renders an HTML report of recorded gesture
// attempts: outcome counts per expected label and confidence over time.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/motionkit/internal/db"
)

var (
	dbPath  = flag.String("db", "gestures.db", "path to the SQLite database")
	outPath = flag.String("out", "gesture-report.html", "output HTML file")
	limit   = flag.Int("limit", 500, "number of recent attempts to chart")
)

func main() {
	flag.Parse()

	database, err := db.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer database.Close()

	stats, err := database.LabelStats()
	if err != nil {
		log.Fatalf("failed to load stats: %v", err)
	}
	attempts, err := database.ListAttempts(*limit)
	if err != nil {
		log.Fatalf("failed to load attempts: %v", err)
	}
	if len(attempts) == 0 {
		log.Fatal("no attempts recorded yet")
	}

	page := components.NewPage()
	page.AddCharts(outcomesChart(stats), confidenceChart(attempts))

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("failed to create %s: %v", *outPath, err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		log.Fatalf("failed to render report: %v", err)
	}
	log.Printf("wrote %s (%d attempts, %d labels)", *outPath, len(attempts), len(stats))
}

// outcomesChart builds a stacked bar of outcomes per expected label.
func outcomesChart(stats []db.LabelStats) *charts.Bar {
	x := make([]string, 0, len(stats))
	matched := make([]opts.BarData, 0, len(stats))
	mismatched := make([]opts.BarData, 0, len(stats))
	timedOut := make([]opts.BarData, 0, len(stats))
	for _, s := range stats {
		x = append(x, string(s.Expected))
		matched = append(matched, opts.BarData{Value: s.Matched})
		mismatched = append(mismatched, opts.BarData{Value: s.Mismatched})
		timedOut = append(timedOut, opts.BarData{Value: s.TimedOut})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Gesture Outcomes", Subtitle: "per expected label"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("matched", matched).
		AddSeries("mismatched", mismatched).
		AddSeries("timed out", timedOut,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

// confidenceChart builds a line of resolution confidence over recent
// attempts, oldest first.
func confidenceChart(attempts []db.Attempt) *charts.Line {
	x := make([]string, 0, len(attempts))
	y := make([]opts.LineData, 0, len(attempts))
	for i := len(attempts) - 1; i >= 0; i-- {
		a := attempts[i]
		x = append(x, a.CreatedAt.Format("15:04:05"))
		y = append(y, opts.LineData{Value: a.Confidence})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Resolution Confidence", Subtitle: "recent attempts"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	line.SetXAxis(x).AddSeries("confidence", y)
	return line
}
