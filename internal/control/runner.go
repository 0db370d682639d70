package control

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/arcpixel/internal/diagnostics"
)

const DefaultFPS = 30

// Stats is a snapshot of the runner's counters.
type Stats struct {
	Frames   uint64
	Errors   uint64
	LastTick time.Duration
	LastErr  error
}

// Runner paces Control from a ticker. Elapsed time is measured from the
// start of Run, so patterns stay in phase across dropped frames.
type Runner struct {
	Control *Control
	// Async writes through TickAsync. The next tick still waits for the result.
	Async bool
	// OnDiagnostic, if set, receives one record per failed tick.
	OnDiagnostic func(diagnostics.Diagnostic)

	mu    sync.Mutex
	stats Stats
}

func NewRunner(c *Control) *Runner { return &Runner{Control: c} }

func (r *Runner) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Run ticks at fps until ctx is done or the driver reports that the
// simulation closed, both of which return nil. Transport errors are logged
// and the loop keeps going.
func (r *Runner) Run(ctx context.Context, fps int) error {
	if fps <= 0 {
		fps = DefaultFPS
	}
	period := time.Second / time.Duration(fps)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	log.Info().Int("fps", fps).Int("pixels", r.Control.Layout().Len()).Str("chip", r.Control.Driver().Chip().Name).Msg("runner started")
	start := time.Now()
	for {
		select {
		case <-ctx.Done():
			log.Info().Uint64("frames", r.Stats().Frames).Msg("runner stopped")
			return nil
		case <-ticker.C:
		}

		t := time.Now()
		err := r.tick(ctx, t.Sub(start))
		r.record(time.Since(t), err)
		switch {
		case err == nil:
		case errors.Is(err, diagnostics.ErrSimulationClosed):
			log.Info().Msg("simulation closed, stopping runner")
			return nil
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			if ctx.Err() != nil {
				return nil
			}
			log.Warn().Err(err).Msg("frame write abandoned")
		default:
			log.Error().Err(err).Msg("tick failed")
			if r.OnDiagnostic != nil {
				r.OnDiagnostic(diagnostics.FromError(err))
			}
		}
	}
}

func (r *Runner) tick(ctx context.Context, elapsed time.Duration) error {
	if !r.Async {
		return r.Control.Tick(ctx, elapsed)
	}
	return <-r.Control.TickAsync(ctx, elapsed)
}

func (r *Runner) record(d time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.LastTick = d
	if err != nil {
		r.stats.Errors++
		r.stats.LastErr = err
		return
	}
	r.stats.Frames++
}
