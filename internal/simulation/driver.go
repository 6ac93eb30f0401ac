package simulation

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/rs/zerolog"

	"github.com/vectormesh/avrs/internal/engine"
	"github.com/vectormesh/avrs/internal/node"
	"github.com/vectormesh/avrs/internal/routing"
	"github.com/vectormesh/avrs/internal/vector"
)

// NetworkSpec parameterizes a random network generation: Count points of
// Dimensions coordinates each, drawn uniformly from [Low, High] using a
// fixed Seed so that "seed=42" scenarios are exactly reproducible.
type NetworkSpec struct {
	Count      int
	Dimensions int
	Seed       int64
	Low        float64
	High       float64
	Roles      []node.Role // cycled round-robin across generated nodes; RoleDefault if empty
	Capacity   float64
	Trust      float64
	Latency    float64
}

// GenerateSpecs deterministically produces Count node specs from spec's
// parameters, with IDs formatted N000, N001, ... matching the scenario
// naming in spec.md §8 ("Start N000").
func GenerateSpecs(spec NetworkSpec) []engine.NodeSpec {
	rng := rand.New(rand.NewSource(spec.Seed))
	lo, hi := spec.Low, spec.High
	if lo == 0 && hi == 0 {
		lo, hi = -1, 1
	}
	capacity := spec.Capacity
	if capacity == 0 {
		capacity = 10
	}
	trust := spec.Trust
	if trust == 0 {
		trust = 0.8
	}
	roles := spec.Roles
	if len(roles) == 0 {
		roles = []node.Role{node.RoleDefault}
	}

	specs := make([]engine.NodeSpec, 0, spec.Count)
	for i := 0; i < spec.Count; i++ {
		components := make([]float64, spec.Dimensions)
		for d := range components {
			components[d] = lo + rng.Float64()*(hi-lo)
		}
		specs = append(specs, engine.NodeSpec{
			ID:       fmt.Sprintf("N%03d", i),
			Position: vector.New(components...),
			Role:     roles[i%len(roles)],
			Capacity: capacity,
			Trust:    trust,
			Latency:  spec.Latency,
		})
	}
	return specs
}

// Driver runs routing requests concurrently against an Engine and collects
// results, modeling the fleet of clients a deployed AVRS cluster serves.
type Driver struct {
	Engine *engine.Engine
	Log    zerolog.Logger
}

// NewDriver wraps an already-built Engine for concurrent exercise.
func NewDriver(e *engine.Engine, log zerolog.Logger) *Driver {
	return &Driver{Engine: e, Log: log}
}

// Job is one routing request to fire from StartID.
type Job struct {
	StartID string
	Request routing.Request
}

// JobResult pairs a Job's position in the input slice with its outcome, so
// callers can correlate concurrent results back to their originating job
// regardless of completion order.
type JobResult struct {
	Index   int
	StartID string
	Result  routing.Result
	Err     error
}

// RunConcurrent fires every job in jobs against d.Engine using a fixed-size
// worker pool, returning results in the same order as the input jobs
// regardless of which goroutine finishes first. A concurrency of <= 0 is
// treated as 1 (sequential).
func (d *Driver) RunConcurrent(ctx context.Context, jobs []Job, concurrency int) []JobResult {
	if concurrency <= 0 {
		concurrency = 1
	}
	if concurrency > len(jobs) {
		concurrency = len(jobs)
	}
	if concurrency == 0 {
		return nil
	}

	results := make([]JobResult, len(jobs))
	indices := make(chan int, len(jobs))
	for i := range jobs {
		indices <- i
	}
	close(indices)

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for w := 0; w < concurrency; w++ {
		go func() {
			defer wg.Done()
			for i := range indices {
				job := jobs[i]
				res, err := d.Engine.Route(ctx, job.StartID, job.Request)
				results[i] = JobResult{Index: i, StartID: job.StartID, Result: res, Err: err}
			}
		}()
	}
	wg.Wait()
	return results
}

// RunSequential is RunConcurrent with concurrency 1, useful where ordering
// of side effects (load increments, trust deltas) must be deterministic
// across an entire run, such as §8 Scenario B's "route once, fail a node,
// route again".
func (d *Driver) RunSequential(ctx context.Context, jobs []Job) []JobResult {
	return d.RunConcurrent(ctx, jobs, 1)
}
