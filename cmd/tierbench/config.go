package main

import (
	"fmt"
	"time"

	"github.com/delaneyj/tiersignals/tiered"
	"github.com/hashicorp/hcl/v2/hclsimple"
)

// fileConfig is the layout of a scenario file:
//
//	scheduler {
//	  frame_budget = "16ms"
//	  adaptive     = true
//	}
//	tiers {
//	  signals = 1000
//	}
type fileConfig struct {
	Scheduler *schedulerBlock `hcl:"scheduler,block"`
	Propagate *propagateBlock `hcl:"propagate,block"`
	Tiers     *tiersBlock     `hcl:"tiers,block"`
	Adaptive  *adaptiveBlock  `hcl:"adaptive,block"`
}

type schedulerBlock struct {
	FrameBudget   *string `hcl:"frame_budget,optional"`
	FrameFallback *string `hcl:"frame_fallback,optional"`
	IdleTimeout   *string `hcl:"idle_timeout,optional"`
	Adaptive      *bool   `hcl:"adaptive,optional"`
	Cooldown      *string `hcl:"cooldown,optional"`
	SlowPass      *string `hcl:"slow_pass,optional"`
	FastPass      *string `hcl:"fast_pass,optional"`
}

type propagateBlock struct {
	Widths     []int `hcl:"widths,optional"`
	Heights    []int `hcl:"heights,optional"`
	Iterations *int  `hcl:"iterations,optional"`
}

type tiersBlock struct {
	Tiers      []string `hcl:"tiers,optional"`
	Signals    *int     `hcl:"signals,optional"`
	Effects    *int     `hcl:"effects,optional"`
	Writes     *int     `hcl:"writes,optional"`
	ChunkSize  *int     `hcl:"chunk_size,optional"`
	ChunkPause *string  `hcl:"chunk_pause,optional"`
}

type adaptiveBlock struct {
	Effects    *int    `hcl:"effects,optional"`
	EffectCost *string `hcl:"effect_cost,optional"`
	WriteEvery *string `hcl:"write_every,optional"`
	Duration   *string `hcl:"duration,optional"`
}

type propagateScenario struct {
	Widths     []int
	Heights    []int
	Iterations int
}

type tiersScenario struct {
	Tiers      []tiered.Tier
	Signals    int
	Effects    int
	Writes     int
	ChunkSize  int
	ChunkPause time.Duration
}

type adaptiveScenario struct {
	Effects    int
	EffectCost time.Duration
	WriteEvery time.Duration
	Duration   time.Duration
}

// scenarios is a fully resolved scenario file.
type scenarios struct {
	Scheduler tiered.Config
	Propagate propagateScenario
	Tiers     tiersScenario
	Adaptive  adaptiveScenario
}

func defaultScenarios() scenarios {
	return scenarios{
		Scheduler: tiered.DefaultConfig(),
		Propagate: propagateScenario{
			Widths:     []int{1, 10, 100},
			Heights:    []int{1, 10, 100},
			Iterations: 100,
		},
		Tiers: tiersScenario{
			Tiers:      []tiered.Tier{tiered.TierImmediate, tiered.TierMicrotask, tiered.TierFrame, tiered.TierIdle},
			Signals:    1000,
			Effects:    300,
			Writes:     200,
			ChunkSize:  50,
			ChunkPause: 5 * time.Millisecond,
		},
		Adaptive: adaptiveScenario{
			Effects:    300,
			EffectCost: 100 * time.Microsecond,
			WriteEvery: 5 * time.Millisecond,
			Duration:   5 * time.Second,
		},
	}
}

// loadScenarios reads path over the defaults. An empty path yields the defaults.
func loadScenarios(path string) (scenarios, error) {
	sc := defaultScenarios()
	if path == "" {
		return sc, nil
	}

	var fc fileConfig
	if err := hclsimple.DecodeFile(path, nil, &fc); err != nil {
		return sc, fmt.Errorf("failed to decode scenario file %s: %w", path, err)
	}
	if err := fc.apply(&sc); err != nil {
		return sc, fmt.Errorf("invalid scenario file %s: %w", path, err)
	}
	return sc, nil
}

func (fc *fileConfig) apply(sc *scenarios) error {
	if b := fc.Scheduler; b != nil {
		cfg := &sc.Scheduler
		for _, d := range []struct {
			src *string
			dst *time.Duration
		}{
			{b.FrameBudget, &cfg.FrameBudget},
			{b.FrameFallback, &cfg.FrameFallback},
			{b.IdleTimeout, &cfg.IdleTimeout},
			{b.Cooldown, &cfg.Tuner.Cooldown},
			{b.SlowPass, &cfg.Tuner.SlowPass},
			{b.FastPass, &cfg.Tuner.FastPass},
		} {
			if err := parseDuration(d.src, d.dst); err != nil {
				return err
			}
		}
		if b.Adaptive != nil {
			cfg.Adaptive = *b.Adaptive
		}
	}

	if b := fc.Propagate; b != nil {
		if len(b.Widths) > 0 {
			sc.Propagate.Widths = b.Widths
		}
		if len(b.Heights) > 0 {
			sc.Propagate.Heights = b.Heights
		}
		setPositive(b.Iterations, &sc.Propagate.Iterations)
	}

	if b := fc.Tiers; b != nil {
		if len(b.Tiers) > 0 {
			tiers := make([]tiered.Tier, 0, len(b.Tiers))
			for _, name := range b.Tiers {
				t, err := tiered.ParseTier(name)
				if err != nil {
					return err
				}
				tiers = append(tiers, t)
			}
			sc.Tiers.Tiers = tiers
		}
		setPositive(b.Signals, &sc.Tiers.Signals)
		setPositive(b.Effects, &sc.Tiers.Effects)
		setPositive(b.Writes, &sc.Tiers.Writes)
		setPositive(b.ChunkSize, &sc.Tiers.ChunkSize)
		if err := parseDuration(b.ChunkPause, &sc.Tiers.ChunkPause); err != nil {
			return err
		}
	}

	if b := fc.Adaptive; b != nil {
		setPositive(b.Effects, &sc.Adaptive.Effects)
		for _, d := range []struct {
			src *string
			dst *time.Duration
		}{
			{b.EffectCost, &sc.Adaptive.EffectCost},
			{b.WriteEvery, &sc.Adaptive.WriteEvery},
			{b.Duration, &sc.Adaptive.Duration},
		} {
			if err := parseDuration(d.src, d.dst); err != nil {
				return err
			}
		}
	}
	return nil
}

func parseDuration(src *string, dst *time.Duration) error {
	if src == nil {
		return nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return err
	}
	if d < 0 {
		return fmt.Errorf("duration %q must not be negative", *src)
	}
	*dst = d
	return nil
}

func setPositive(src *int, dst *int) {
	if src != nil && *src > 0 {
		*dst = *src
	}
}
