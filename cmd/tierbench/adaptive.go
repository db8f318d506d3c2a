package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/delaneyj/tiersignals/cmd/tierbench/templates"
	"github.com/delaneyj/tiersignals/internal/ctxlog"
	"github.com/delaneyj/tiersignals/pkg/eventloop"
	"github.com/delaneyj/tiersignals/pkg/tierprom"
	"github.com/delaneyj/tiersignals/tiered"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
)

func adaptiveCommand() *cli.Command {
	return &cli.Command{
		Name:   "adaptive",
		Usage:  "Overload the microtask tier and watch the tuner move effects to idle",
		Action: adaptive,
	}
}

type migrationLog struct {
	at         []time.Duration
	migrations []tiered.Migration
	start      time.Time
}

func (m *migrationLog) FlushObserved(tiered.FlushStats) {}
func (m *migrationLog) MigrationObserved(mg tiered.Migration) {
	m.at = append(m.at, time.Since(m.start))
	m.migrations = append(m.migrations, mg)
}

type adaptiveResult struct {
	migrations *migrationLog
	registered [tiered.NumTiers]int
	writes     int
}

func adaptive(ctx context.Context, cmd *cli.Command) error {
	ctx, e, err := loadEnv(ctx, cmd)
	if err != nil {
		return err
	}
	sc := e.scenarios.Adaptive
	cfg := e.scenarios.Scheduler
	cfg.Adaptive = true
	logger := ctxlog.FromContext(ctx)

	log.Printf("Adaptive benchmark started, running for %v", sc.Duration)
	defer log.Print("Finished adaptive benchmark")

	reg := prometheus.NewRegistry()
	collector := tierprom.New(tierprom.WithRegistry(reg))

	loop := eventloop.New(eventloop.WithLogger(logger))
	loopCtx, stop := context.WithCancel(ctx)
	defer stop()
	go loop.Run(loopCtx)

	res, err := runAdaptiveScenario(ctx, loop, cfg, sc, collector)
	if err != nil {
		return err
	}

	tbl := table.NewWriter()
	tbl.SetTitle("Adaptive tuning")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"at", "from", "to", "moved", "pass"})
	section := templates.Section{
		Title: "Adaptive tuning",
		Notes: []string{
			fmt.Sprintf("%d microtask effects costing %v each, a write every %v for %v",
				sc.Effects, sc.EffectCost, sc.WriteEvery, sc.Duration),
			fmt.Sprintf("%s writes; final tiers: %s", humanize.Comma(int64(res.writes)), describeTiers(res.registered)),
		},
		Header: []string{"at", "from", "to", "moved", "pass"},
	}
	for i, m := range res.migrations.migrations {
		at := res.migrations.at[i].Round(time.Millisecond)
		tbl.AppendRow(table.Row{at, m.From, m.To, m.Count, m.PassDuration})
		section.Rows = append(section.Rows, []string{
			at.String(), m.From.String(), m.To.String(), humanize.Comma(int64(m.Count)), m.PassDuration.String(),
		})
	}
	tbl.AppendFooter(table.Row{"final", "", "", describeTiers(res.registered), ""})
	tbl.Render()

	metrics, err := summarizeMetrics(reg)
	if err != nil {
		return err
	}
	for _, line := range metrics {
		fmt.Println(line)
	}
	section.Notes = append(section.Notes, metrics...)

	e.addSection(section)
	return e.finish(ctx, cmd)
}

func runAdaptiveScenario(ctx context.Context, loop *eventloop.Loop, cfg tiered.Config, sc adaptiveScenario, collector *tierprom.Collector) (adaptiveResult, error) {
	logger := ctxlog.FromContext(ctx)
	done := make(chan adaptiveResult, 1)
	mlog := &migrationLog{start: time.Now()}

	err := loop.Submit(func() {
		rs := tiered.CreateReactiveSystem(
			tiered.WithHost(loop),
			tiered.WithConfig(cfg),
			tiered.WithObserver(tiered.Observers{collector, mlog}),
			tiered.WithLogger(logger),
		)

		src := tiered.Signal(rs, 0, tiered.WithName("src"))
		heavy := tiered.Computed(rs, func(int) int { return src.Value() * 2 }, tiered.WithName("heavy"))
		for i := range sc.Effects {
			tiered.Effect(rs, func() error {
				heavy.Value()
				spin(sc.EffectCost)
				return nil
			}, tiered.WithTier(tiered.TierMicrotask), tiered.WithName(fmt.Sprintf("heavy#%d", i)))
		}

		writes := 0
		deadline := time.Now().Add(sc.Duration)
		var tick func()
		tick = func() {
			if time.Now().After(deadline) {
				done <- adaptiveResult{migrations: mlog, registered: rs.Stats().Registered, writes: writes}
				return
			}
			src.Update(func(v int) int { return v + 1 })
			writes++
			loop.SetTimeout(sc.WriteEvery, tick)
		}
		tick()
	})
	if err != nil {
		return adaptiveResult{}, err
	}

	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		return adaptiveResult{}, ctx.Err()
	}
}

// spin burns CPU for d, standing in for an expensive effect body.
func spin(d time.Duration) {
	for start := time.Now(); time.Since(start) < d; {
	}
}

func describeTiers(counts [tiered.NumTiers]int) string {
	parts := make([]string, 0, tiered.NumTiers)
	for i, n := range counts {
		if n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", tiered.Tier(i), n))
		}
	}
	return strings.Join(parts, " ")
}

// summarizeMetrics renders the counters and gauges of reg as one line per series.
func summarizeMetrics(reg *prometheus.Registry) ([]string, error) {
	families, err := reg.Gather()
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			name := mf.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}
			switch {
			case m.GetCounter() != nil:
				lines = append(lines, fmt.Sprintf("%s %s", name, humanize.Comma(int64(m.GetCounter().GetValue()))))
			case m.GetGauge() != nil:
				lines = append(lines, fmt.Sprintf("%s %g", name, m.GetGauge().GetValue()))
			case m.GetHistogram() != nil:
				h := m.GetHistogram()
				mean := 0.0
				if h.GetSampleCount() > 0 {
					mean = h.GetSampleSum() / float64(h.GetSampleCount())
				}
				lines = append(lines, fmt.Sprintf("%s count=%d mean=%v", name, h.GetSampleCount(),
					time.Duration(mean*float64(time.Second)).Round(time.Microsecond)))
			}
		}
	}
	sort.Strings(lines)
	return lines, nil
}
