// Package scheduler drives the estimation-control loop at a fixed
// period: each tick it runs one Sim step, assembles the wire record the
// external visualizer expects, and hands it to the publish transport.
package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/milosgajdos/ekfsim/kalman/ekf"
	"github.com/milosgajdos/ekfsim/matrix"
	"github.com/milosgajdos/ekfsim/transport"
)

// Period is the fixed scheduler tick interval from spec §4.6.
const Period = 200 * time.Millisecond

// Publisher is the transport collaborator a Scheduler hands records to.
// transport.PubSocket implements this.
type Publisher interface {
	Publish(rec *transport.Record) error
}

// Scheduler drives a *ekf.Sim at a fixed period, formatting and
// publishing one record per tick. It exclusively owns the Sim and the
// publisher handle it was constructed with, per spec §5.
type Scheduler struct {
	sim    *ekf.Sim
	pub    Publisher
	period time.Duration
}

// New creates a Scheduler that calls sim.Step() every period and hands
// the resulting record to pub.
func New(sim *ekf.Sim, pub Publisher, period time.Duration) *Scheduler {
	return &Scheduler{sim: sim, pub: pub, period: period}
}

// Run blocks, ticking at the configured period, until ctx is cancelled.
// A monotonic time.Ticker coalesces skipped ticks: if tick() falls
// behind, the next fire is the next timer edge, never a burst of
// catch-up ticks. A per-tick publish failure is logged and the loop
// continues; the scheduler never propagates per-tick errors upward.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

func (s *Scheduler) tick() {
	result, err := s.sim.Step()
	if err != nil {
		log.Printf("scheduler: step failed: %v", err)
		return
	}

	rec := s.buildRecord(result)

	log.Printf("tick: ideal=%v xhat=%v cov=%v gain=%v",
		transport.PoseOf(result.Ideal), transport.PoseOf(result.XHat),
		matrix.Format(result.Cov), matrix.Format(result.Gain))

	if err := s.pub.Publish(rec); err != nil {
		log.Printf("scheduler: publish failed: %v", err)
	}
}

func (s *Scheduler) buildRecord(result *ekf.Result) *transport.Record {
	a := s.sim.Agent()
	actual := a.HiddenActual()
	observed := a.LastObserved()

	entries := make([]transport.ObservedEntry, len(observed))
	for i, o := range observed {
		entries[i] = transport.ObservedEntry{Landmark: o.Landmark, Distance: o.Distance, Angle: o.Angle}
	}

	return &transport.Record{
		Ideal:      transport.PoseOf(result.Ideal),
		Actual:     transport.PoseOf(actual),
		XHat:       transport.PoseOf(result.XHat),
		Observed:   entries,
		Covariance: transport.FlattenColumnMajor(result.Cov),
		KalmanGain: transport.FlattenColumnMajor(result.Gain),
	}
}
