package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/delaneyj/tiersignals/cmd/tierbench/templates"
	"github.com/delaneyj/tiersignals/internal/ctxlog"
	"github.com/urfave/cli/v3"
)

// env is what every subcommand needs from the root flags.
type env struct {
	scenarios scenarios
	seed      string
	report    *templates.ReportData
}

func loadEnv(ctx context.Context, cmd *cli.Command) (context.Context, *env, error) {
	logger, err := ctxlog.New(os.Stderr, cmd.String(logLevelKey))
	if err != nil {
		return ctx, nil, err
	}
	ctx = ctxlog.WithLogger(ctx, logger.With("command", cmd.Name))

	sc, err := loadScenarios(cmd.String(configKey))
	if err != nil {
		return ctx, nil, err
	}

	e := &env{
		scenarios: sc,
		seed:      cmd.String(seedKey),
		report: &templates.ReportData{
			Title:     "tierbench " + cmd.Name,
			Generated: time.Now().Format(time.RFC3339),
		},
	}
	return ctx, e, nil
}

// seedFor derives a stable RNG seed for one scenario from the seed phrase.
func (e *env) seedFor(label string) uint64 {
	return xxhash.Sum64String(e.seed + "/" + label)
}

func (e *env) addSection(s templates.Section) {
	e.report.Sections = append(e.report.Sections, s)
}

// finish writes the markdown report when one was asked for.
func (e *env) finish(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String(reportKey)
	if path == "" {
		return nil
	}
	if err := os.WriteFile(path, []byte(templates.Markdown(e.report)), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	ctxlog.FromContext(ctx).Info("report written", "path", path)
	log.Printf("Report written to %s", path)
	return nil
}
