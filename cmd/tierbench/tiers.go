package main

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"
	"os"
	"time"

	"github.com/delaneyj/tiersignals/cmd/tierbench/templates"
	"github.com/delaneyj/tiersignals/internal/ctxlog"
	"github.com/delaneyj/tiersignals/pkg/eventloop"
	"github.com/delaneyj/tiersignals/tiered"
	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

func tiersCommand() *cli.Command {
	return &cli.Command{
		Name:   "tiers",
		Usage:  "Run the same write load with every effect on one tier, once per tier",
		Action: tiers,
	}
}

type tierResult struct {
	tier    tiered.Tier
	runs    int
	passes  int
	elapsed time.Duration
}

// passCounter is the smallest tiered.Observer: it counts passes.
type passCounter struct {
	passes int
}

func (c *passCounter) FlushObserved(tiered.FlushStats)    { c.passes++ }
func (c *passCounter) MigrationObserved(tiered.Migration) {}

func tiers(ctx context.Context, cmd *cli.Command) error {
	ctx, e, err := loadEnv(ctx, cmd)
	if err != nil {
		return err
	}
	sc := e.scenarios.Tiers
	logger := ctxlog.FromContext(ctx)

	log.Print("Starting tier benchmark, please wait...")
	defer log.Print("Finished tier benchmark")

	loop := eventloop.New(eventloop.WithLogger(logger))
	loopCtx, stop := context.WithCancel(ctx)
	defer stop()
	go loop.Run(loopCtx)

	header := []string{"tier", "signals", "effects", "writes", "runs", "passes", "time", "runs/s"}
	tbl := tablewriter.NewWriter(os.Stdout)
	tbl.SetHeader(header)
	section := templates.Section{
		Title:  "Tiers",
		Notes:  []string{fmt.Sprintf("%d writes in chunks of %d, %v apart", sc.Writes, sc.ChunkSize, sc.ChunkPause)},
		Header: header,
	}

	for _, tier := range sc.Tiers {
		res, err := runTierScenario(ctx, loop, e.scenarios.Scheduler, sc, tier, e.seedFor(tier.String()))
		if err != nil {
			return err
		}
		rate := float64(res.runs) / res.elapsed.Seconds()
		row := []string{
			tier.String(),
			humanize.Comma(int64(sc.Signals)),
			humanize.Comma(int64(sc.Effects)),
			humanize.Comma(int64(sc.Writes)),
			humanize.Comma(int64(res.runs)),
			humanize.Comma(int64(res.passes)),
			res.elapsed.Round(time.Microsecond).String(),
			humanize.Comma(int64(rate)),
		}
		tbl.Append(row)
		section.Rows = append(section.Rows, row)
		logger.Debug("tier scenario done", "tier", tier, "runs", res.runs, "elapsed", res.elapsed)
	}

	tbl.Render()
	e.addSection(section)
	return e.finish(ctx, cmd)
}

// runTierScenario builds the graph on the loop goroutine, writes to random
// signals in chunks with a pause between chunks, and waits until the
// scheduler is quiet.
func runTierScenario(ctx context.Context, loop *eventloop.Loop, cfg tiered.Config, sc tiersScenario, tier tiered.Tier, seed uint64) (tierResult, error) {
	logger := ctxlog.FromContext(ctx)
	done := make(chan tierResult, 1)

	err := loop.Submit(func() {
		counter := &passCounter{}
		rs := tiered.CreateReactiveSystem(
			tiered.WithHost(loop),
			tiered.WithConfig(cfg),
			tiered.WithObserver(counter),
			tiered.WithLogger(logger),
			tiered.WithOwnerCheck(),
		)

		root := tiered.Signal(rs, 0, tiered.WithName("root"))
		signals := make([]*tiered.WriteableSignal[int], sc.Signals)
		computeds := make([]*tiered.ReadonlySignal[int], sc.Signals)
		for i := range signals {
			s := tiered.Signal(rs, i)
			signals[i] = s
			computeds[i] = tiered.Computed(rs, func(int) int {
				return (s.Value() + root.Value()) * 2
			})
		}

		runs := 0
		effects := make([]*tiered.EffectRunner, 0, sc.Effects)
		for i := range sc.Effects {
			c := computeds[i%len(computeds)]
			effects = append(effects, tiered.Effect(rs, func() error {
				c.Value()
				runs++
				return nil
			}, tiered.WithTier(tier)))
		}
		runs = 0

		rng := rand.New(rand.NewPCG(seed, uint64(tier)))
		start := time.Now()
		step := 0

		var writeChunk, settle func()
		writeChunk = func() {
			for end := min(step+sc.ChunkSize, sc.Writes); step < end; step++ {
				signals[rng.IntN(len(signals))].Update(func(v int) int { return v + 1 })
			}
			if step < sc.Writes {
				loop.SetTimeout(sc.ChunkPause, writeChunk)
				return
			}
			settle()
		}
		settle = func() {
			if st := rs.Stats(); st.PassInFlight || st.Batched > 0 {
				loop.SetTimeout(time.Millisecond, settle)
				return
			}
			elapsed := time.Since(start)
			for _, e := range effects {
				e.Dispose()
			}
			done <- tierResult{tier: tier, runs: runs, passes: counter.passes, elapsed: elapsed}
		}
		writeChunk()
	})
	if err != nil {
		return tierResult{}, err
	}

	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		return tierResult{}, ctx.Err()
	}
}
