package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/delaneyj/tiersignals/cmd/tierbench/templates"
	"github.com/delaneyj/tiersignals/internal/ctxlog"
	"github.com/delaneyj/tiersignals/tiered"
	"github.com/jamiealquiza/tachymeter"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v3"
)

func propagateCommand() *cli.Command {
	return &cli.Command{
		Name:   "propagate",
		Usage:  "Measure write latency through chains of computeds feeding immediate effects",
		Action: propagate,
	}
}

func propagate(ctx context.Context, cmd *cli.Command) error {
	ctx, e, err := loadEnv(ctx, cmd)
	if err != nil {
		return err
	}
	sc := e.scenarios.Propagate

	start := time.Now()
	log.Printf("Propagate benchmark started")
	defer func() {
		log.Printf("Propagate benchmark finished in %v", time.Since(start))
	}()

	tbl := table.NewWriter()
	tbl.SetTitle("Propagate")
	tbl.SetOutputMirror(os.Stdout)
	tbl.AppendHeader(table.Row{"benchmark", "avg", "min", "p75", "p99", "max"})

	section := templates.Section{
		Title:  "Propagate",
		Header: []string{"benchmark", "avg", "min", "p75", "p99", "max"},
	}

	for _, w := range sc.Widths {
		for _, h := range sc.Heights {
			calc, err := propagateOnce(ctx, e.scenarios.Scheduler, w, h, sc.Iterations)
			if err != nil {
				return err
			}
			name := fmt.Sprintf("propagate: %d * %d", w, h)
			tbl.AppendRows([]table.Row{
				{name, calc.Time.Avg, calc.Time.Min, calc.Time.P75, calc.Time.P99, calc.Time.Max},
			})
			section.Rows = append(section.Rows, []string{
				name,
				calc.Time.Avg.String(),
				calc.Time.Min.String(),
				calc.Time.P75.String(),
				calc.Time.P99.String(),
				calc.Time.Max.String(),
			})
		}
	}

	tbl.Render()
	e.addSection(section)
	return e.finish(ctx, cmd)
}

// propagateOnce builds w chains of h computeds over one source, each chain
// read by an immediate effect, and times iters writes to the source.
func propagateOnce(ctx context.Context, cfg tiered.Config, w, h, iters int) (*tachymeter.Metrics, error) {
	var failure error
	rs := tiered.CreateReactiveSystem(
		tiered.WithConfig(cfg),
		tiered.WithLogger(ctxlog.FromContext(ctx)),
		tiered.WithOnError(func(from tiered.SignalAware, err error) {
			failure = err
		}),
	)

	src := tiered.Signal(rs, 1)
	expected := 0
	for i := 0; i < w; i++ {
		var last interface{ Value() int } = src
		for j := 0; j < h; j++ {
			prev := last
			last = tiered.Computed(rs, func(oldValue int) int {
				return prev.Value() + 1
			})
		}

		tiered.Effect(rs, func() error {
			if v := last.Value(); v != src.Peek()+h {
				return fmt.Errorf("chain %d read %d, want %d", i, v, src.Peek()+h)
			}
			expected++
			return nil
		})
	}

	tach := tachymeter.New(&tachymeter.Config{Size: iters})
	for i := 0; i < iters; i++ {
		start := time.Now()
		src.SetValue(src.Peek() + 1)
		tach.AddTime(time.Since(start))
	}

	if failure != nil {
		return nil, failure
	}
	if want := w * (iters + 1); expected != want {
		return nil, fmt.Errorf("propagate %dx%d: %d effect runs, want %d", w, h, expected, want)
	}
	return tach.Calc(), nil
}
