package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// TopologyMode selects how the topology builder connects node positions
// into a graph.
type TopologyMode string

const (
	TopologyKNN      TopologyMode = "knn"
	TopologyDelaunay TopologyMode = "delaunay"
	TopologyHybrid   TopologyMode = "hybrid"
)

// Scoring holds the weighted-scoring function's published contract
// (spec §4.3). Weights are configuration; the formula itself is fixed.
type Scoring struct {
	WeightSemantic float64 `yaml:"weight_semantic"`
	WeightTrust    float64 `yaml:"weight_trust"`
	WeightLoad     float64 `yaml:"weight_load"`
	WeightLatency  float64 `yaml:"weight_latency"`
	MaxLatencyMs   float64 `yaml:"max_latency_ms"`
}

// Termination holds the termination oracle's direction-match threshold.
type Termination struct {
	CosineThreshold float64 `yaml:"cosine_threshold"`
}

// Topology holds the topology builder's construction parameters.
type Topology struct {
	Mode       TopologyMode `yaml:"mode"`
	K          int          `yaml:"k"`
	Dimensions int          `yaml:"dimensions"`
}

// Trust holds the trust controller's bounded deltas and the monitor's and
// scorer's thresholds that key off trust.
type Trust struct {
	DeltaSuccess  float64       `yaml:"delta_success"`
	DeltaFast     float64       `yaml:"delta_fast"`
	DeltaFailure  float64       `yaml:"delta_failure"`
	DeltaError    float64       `yaml:"delta_error"`
	DeltaSlow     float64       `yaml:"delta_slow"`
	FastThreshold time.Duration `yaml:"fast_threshold"`
	SlowThreshold time.Duration `yaml:"slow_threshold"`
	BlockBelow    float64       `yaml:"block_below"`
}

// Monitor holds the health monitor's polling parameters.
type Monitor struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	ProbeTimeout time.Duration `yaml:"probe_timeout"`
	MaxFailures  int           `yaml:"max_failures"`
}

// FaceRouting holds the face-routing fallback's step budget.
type FaceRouting struct {
	StepBudget int `yaml:"step_budget"`
}

// Cache holds the per-node route cache's sizing and rounding precision.
// RoundingDecimals is applied by the selector and executor; MaxEntries is
// not read by any node — every node's cache is bounded by
// node.DefaultMaxCacheEntries regardless of this value.
type Cache struct {
	RoundingDecimals int `yaml:"rounding_decimals"`
	MaxEntries       int `yaml:"max_entries"`
}

// Config is the fully-resolved set of tunables consumed by every routing
// subsystem. Zero value is not meaningful — always obtain one via Default
// or Load.
type Config struct {
	Scoring     Scoring       `yaml:"scoring"`
	Termination Termination   `yaml:"termination"`
	Topology    Topology      `yaml:"topology"`
	Trust       Trust         `yaml:"trust"`
	Monitor     Monitor       `yaml:"monitor"`
	FaceRouting FaceRouting   `yaml:"face_routing"`
	Cache       Cache         `yaml:"cache"`
	MaxHops     int           `yaml:"max_hops"`
	RouteCeiling time.Duration `yaml:"route_ceiling"`
}

// Default returns the published-contract defaults from spec §3/§4/§6.
func Default() Config {
	return Config{
		Scoring: Scoring{
			WeightSemantic: 0.5,
			WeightTrust:    0.2,
			WeightLoad:     0.2,
			WeightLatency:  0.1,
			MaxLatencyMs:   1000,
		},
		Termination: Termination{
			CosineThreshold: 0.95,
		},
		Topology: Topology{
			Mode:       TopologyDelaunay,
			K:          4,
			Dimensions: 4,
		},
		Trust: Trust{
			DeltaSuccess:  0.05,
			DeltaFast:     0.02,
			DeltaFailure:  -0.3,
			DeltaError:    -0.2,
			DeltaSlow:     -0.1,
			FastThreshold: 50 * time.Millisecond,
			SlowThreshold: 500 * time.Millisecond,
			BlockBelow:    0.3,
		},
		Monitor: Monitor{
			PollInterval: 5 * time.Second,
			ProbeTimeout: 2 * time.Second,
			MaxFailures:  3,
		},
		FaceRouting: FaceRouting{
			StepBudget: 40,
		},
		Cache: Cache{
			RoundingDecimals: 4,
			MaxEntries:       64,
		},
		MaxHops:      50,
		RouteCeiling: 5 * time.Second,
	}
}

// Load reads a YAML config file at path and merges it over Default(). A
// missing file is not an error — callers that want an explicit file to
// exist should stat it themselves first — so that `avrsctl` subcommands
// can be run with zero configuration.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// fall through to env overrides over the defaults
		case err != nil:
			return cfg, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnvOverrides layers environment variables over whatever Load has
// produced so far, in the style of the teacher's getenv helper: each
// variable is consulted only if set, and left alone (falling through to
// the YAML value or the built-in default) otherwise. Env vars take the
// highest precedence since they are how an operator overrides a single
// knob without editing or redeploying the YAML file.
func applyEnvOverrides(cfg *Config) error {
	if v, ok := os.LookupEnv("AVRS_MAX_HOPS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: AVRS_MAX_HOPS: %w", err)
		}
		cfg.MaxHops = n
	}
	if v, ok := os.LookupEnv("AVRS_TOPOLOGY_MODE"); ok {
		cfg.Topology.Mode = TopologyMode(v)
	}
	if v, ok := os.LookupEnv("AVRS_TOPOLOGY_K"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: AVRS_TOPOLOGY_K: %w", err)
		}
		cfg.Topology.K = n
	}
	if v, ok := os.LookupEnv("AVRS_TOPOLOGY_DIMENSIONS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: AVRS_TOPOLOGY_DIMENSIONS: %w", err)
		}
		cfg.Topology.Dimensions = n
	}
	if v, ok := os.LookupEnv("AVRS_MONITOR_POLL_INTERVAL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: AVRS_MONITOR_POLL_INTERVAL: %w", err)
		}
		cfg.Monitor.PollInterval = d
	}
	if v, ok := os.LookupEnv("AVRS_MONITOR_MAX_FAILURES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: AVRS_MONITOR_MAX_FAILURES: %w", err)
		}
		cfg.Monitor.MaxFailures = n
	}
	if v, ok := os.LookupEnv("AVRS_ROUTE_CEILING"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: AVRS_ROUTE_CEILING: %w", err)
		}
		cfg.RouteCeiling = d
	}
	return nil
}

// Validate reports an error if cfg contains values the rest of the engine
// cannot operate on (e.g. a non-positive hop cap). Called by avrsctl before
// building a network, and by tests constructing a Config by hand.
func (c Config) Validate() error {
	if c.MaxHops <= 0 {
		return fmt.Errorf("config: max_hops must be positive, got %d", c.MaxHops)
	}
	if c.Topology.Dimensions <= 0 {
		return fmt.Errorf("config: topology.dimensions must be positive, got %d", c.Topology.Dimensions)
	}
	if c.Topology.K <= 0 {
		return fmt.Errorf("config: topology.k must be positive, got %d", c.Topology.K)
	}
	switch c.Topology.Mode {
	case TopologyKNN, TopologyDelaunay, TopologyHybrid:
	default:
		return fmt.Errorf("config: unknown topology mode %q", c.Topology.Mode)
	}
	if c.Monitor.MaxFailures <= 0 {
		return fmt.Errorf("config: monitor.max_failures must be positive, got %d", c.Monitor.MaxFailures)
	}
	if c.FaceRouting.StepBudget <= 0 {
		return fmt.Errorf("config: face_routing.step_budget must be positive, got %d", c.FaceRouting.StepBudget)
	}
	return nil
}
