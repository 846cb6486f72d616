// Command ekfsim drives the EKF/DWA robot simulator: it picks a
// trajectory agent from its single CLI argument, binds the publish
// transport, and runs the scheduler until the process is signalled to
// stop.
package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"

	"gonum.org/v1/gonum/mat"

	"github.com/milosgajdos/ekfsim/agent"
	"github.com/milosgajdos/ekfsim/kalman/ekf"
	"github.com/milosgajdos/ekfsim/noise"
	"github.com/milosgajdos/ekfsim/scheduler"
	"github.com/milosgajdos/ekfsim/sim"
	"github.com/milosgajdos/ekfsim/spatial"
	"github.com/milosgajdos/ekfsim/transport"
)

// pubAddr is the publish socket address from spec §6.
const pubAddr = "tcp://*:5556"

// landmarks are the 8 fixed camera targets from spec §6, excluding the
// origin.
var landmarks = []spatial.Point{
	{X: 1.1, Y: 1.1}, {X: 1.1, Y: -1.1}, {X: -1.1, Y: 1.1}, {X: -1.1, Y: -1.1},
	{X: 1.1, Y: 0}, {X: -1.1, Y: 0}, {X: 0, Y: 1.1}, {X: 0, Y: -1.1},
}

func main() {
	kind, err := parseArgs()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Problem parsing arguments: %v\n", err)
		os.Exit(1)
	}

	if err := run(kind); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// parseArgs is the BadArgs check from spec §6/§7: exactly one
// positional argument naming a known agent.
func parseArgs() (agent.Kind, error) {
	if len(os.Args) != 2 {
		return 0, fmt.Errorf("expected exactly one argument: agent name (circular, square, waypoints)")
	}
	return agent.Parse(os.Args[1])
}

func run(kind agent.Kind) error {
	s, err := newSim(kind)
	if err != nil {
		log.Fatalf("ekfsim: %v", err)
	}

	pub, err := transport.Bind(pubAddr)
	if err != nil {
		return fmt.Errorf("problem binding transport: %w", err)
	}
	defer pub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler.New(s, pub, scheduler.Period).Run(ctx)
	return nil
}

// newSim wires the agent, the EKF's fixed process/measurement noise, and
// the compiled initial condition from spec §3/§6 into one Sim.
func newSim(kind agent.Kind) (*ekf.Sim, error) {
	moveNoise, err := agent.NewMoveNoise()
	if err != nil {
		return nil, fmt.Errorf("move noise: %w", err)
	}
	obsNoise, err := agent.NewObsNoise()
	if err != nil {
		return nil, fmt.Errorf("observation noise: %w", err)
	}

	a, err := agent.New(kind, landmarks, moveNoise, obsNoise)
	if err != nil {
		return nil, fmt.Errorf("agent: %w", err)
	}

	initState := mat.NewVecDense(3, []float64{1.0, 0.0, math.Pi / 2})
	initCov := mat.NewSymDense(3, nil)
	init := sim.NewInitCond(initState, initCov)

	q, err := noise.NewGaussian(make([]float64, 3), mat.NewSymDense(3, []float64{
		0.01, 0, 0,
		0, 0.01, 0,
		0, 0, 0.01,
	}))
	if err != nil {
		return nil, fmt.Errorf("process noise: %w", err)
	}

	r, err := noise.NewGaussian(make([]float64, 2), mat.NewSymDense(2, []float64{
		0.02, 0,
		0, 0.02,
	}))
	if err != nil {
		return nil, fmt.Errorf("measurement noise: %w", err)
	}

	return ekf.NewSim(a, init, q, r)
}
