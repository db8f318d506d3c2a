package tiered_test

import (
	"testing"

	"github.com/delaneyj/tiersignals/tiered"
	"github.com/stretchr/testify/assert"
)

func newSystem(t *testing.T, opts ...tiered.Option) (*tiered.ReactiveSystem, *tiered.ManualHost) {
	t.Helper()
	host := tiered.NewManualHost()
	opts = append([]tiered.Option{
		tiered.WithHost(host),
		tiered.WithOnError(func(from tiered.SignalAware, err error) {
			assert.FailNow(t, err.Error())
		}),
	}, opts...)
	return tiered.CreateReactiveSystem(opts...), host
}

type recorder struct {
	flushes    []tiered.FlushStats
	migrations []tiered.Migration
}

func (r *recorder) FlushObserved(s tiered.FlushStats)    { r.flushes = append(r.flushes, s) }
func (r *recorder) MigrationObserved(m tiered.Migration) { r.migrations = append(r.migrations, m) }
