// Package config provides configuration structures and loading logic for the
// Solace engine.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/solace-ai/solace/pkg/domain"
)

// Config holds the global configuration for the engine.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Logging    LoggingConfig    `yaml:"logging"`
	Chambers   ChamberConfig    `yaml:"chambers"`
	Lattice    LatticeConfig    `yaml:"lattice"`
	Epasa      EpasaConfig      `yaml:"epasa"`
	Governance GovernanceConfig `yaml:"governance"`
}

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Address      string `yaml:"address"`
	AdminAddress string `yaml:"admin_address"`
}

// TelemetryConfig holds configuration for OpenTelemetry.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	Insecure     bool   `yaml:"insecure"`
	Environment  string `yaml:"environment"`
}

// LoggingConfig holds configuration for logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// ChamberConfig holds thresholds for the three chambers.
type ChamberConfig struct {
	// PriorAlpha and PriorBeta seed the weight chamber's Beta prior.
	PriorAlpha float64 `yaml:"prior_alpha"`
	PriorBeta  float64 `yaml:"prior_beta"`
	// SimilarityThreshold is the pattern chamber's clustering threshold.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	// Values are the integrity chamber's core values.
	Values domain.CoreValues `yaml:"values"`
	// ValuesPolicy optionally points at a Rego module file for the value gate.
	ValuesPolicy string `yaml:"values_policy"`
}

// LatticeConfig holds contradiction lattice tuning.
type LatticeConfig struct {
	// BleedThreshold is the tension floor below which nodes are removed
	// after each batch.
	BleedThreshold float64 `yaml:"bleed_threshold"`
	// ResonanceIterations is how many averaging passes run per batch.
	ResonanceIterations int `yaml:"resonance_iterations"`
}

// EpasaConfig holds watchdog thresholds.
type EpasaConfig struct {
	DriftThreshold float64                 `yaml:"drift_threshold"`
	MetricFloor    domain.RecursionMetrics `yaml:"metric_floor"`
	EthicalSeed    string                  `yaml:"ethical_seed"`
	// Breaker controls freezing behaviour on repeated non-compliance.
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds drift breaker thresholds.
type BreakerConfig struct {
	MaxViolations  int `yaml:"max_violations"`
	CooldownSecs   int `yaml:"cooldown_secs"`
	HalfOpenProbes int `yaml:"half_open_probes"`
}

// GovernanceConfig holds quorum and ingest limits.
type GovernanceConfig struct {
	// ApprovalFraction is the per-class fraction of approving ballots a
	// proposal needs (0 selects the default 2/3).
	ApprovalFraction float64 `yaml:"approval_fraction"`
	// ProposalTTLSecs bounds how long a proposal stays open.
	ProposalTTLSecs int `yaml:"proposal_ttl_secs"`
	// ClassSizes declares how many registered voters each class has.
	ClassSizes map[domain.VoterClass]int `yaml:"class_sizes"`
	// IngestRPS and IngestBurst bound per-source batch submission.
	IngestRPS   int `yaml:"ingest_rps"`
	IngestBurst int `yaml:"ingest_burst"`
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:      ":8080",
			AdminAddress: ":19090",
		},
		Logging: LoggingConfig{Level: "info"},
		Chambers: ChamberConfig{
			PriorAlpha:          2.0,
			PriorBeta:           2.0,
			SimilarityThreshold: 0.3,
			Values:              domain.DefaultCoreValues(),
		},
		Lattice: LatticeConfig{
			BleedThreshold:      0.05,
			ResonanceIterations: 1,
		},
		Epasa: EpasaConfig{
			DriftThreshold: 0.15,
			MetricFloor:    domain.RecursionMetrics{CE: 0.5, RDM: 0.5, GoR: 0.5},
			Breaker: BreakerConfig{
				MaxViolations:  3,
				CooldownSecs:   30,
				HalfOpenProbes: 1,
			},
		},
		Governance: GovernanceConfig{
			ApprovalFraction: 2.0 / 3.0,
			ProposalTTLSecs:  3600,
			ClassSizes: map[domain.VoterClass]int{
				domain.ClassHuman:     3,
				domain.ClassSynthetic: 3,
				domain.ClassGuardian:  3,
			},
			IngestRPS:   50,
			IngestBurst: 100,
		},
	}
}

// Load reads configuration from a file and applies environment variable
// overrides. An empty path loads defaults only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		//nolint:gosec // Config file path is controlled by the operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("SOLACE_ADDR"); val != "" {
		cfg.Server.Address = val
	}
	if val := os.Getenv("SOLACE_ADMIN_ADDR"); val != "" {
		cfg.Server.AdminAddress = val
	}
	if val := os.Getenv("SOLACE_OTLP_ENDPOINT"); val != "" {
		cfg.Telemetry.OTLPEndpoint = val
	}
	if val := os.Getenv("SOLACE_OTLP_INSECURE"); val == "true" {
		cfg.Telemetry.Insecure = true
	}
	if val := os.Getenv("SOLACE_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("SOLACE_DRIFT_THRESHOLD"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil && f > 0 {
			cfg.Epasa.DriftThreshold = f
		}
	}
	if val := os.Getenv("SOLACE_MAX_TENSION"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil && f > 0 {
			cfg.Chambers.Values.MaxTension = f
		}
	}
	if val := os.Getenv("SOLACE_MAX_DEBT"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil && f > 0 {
			cfg.Chambers.Values.MaxDebt = f
		}
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.Chambers.SimilarityThreshold < 0 || c.Chambers.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: similarity_threshold must be in [0, 1]", domain.ErrConfigInvalid)
	}
	if c.Chambers.Values.MaxTension <= 0 || c.Chambers.Values.MaxTension > 1 {
		return fmt.Errorf("%w: values.max_tension must be in (0, 1]", domain.ErrConfigInvalid)
	}
	if c.Chambers.Values.MaxDebt <= 0 {
		return fmt.Errorf("%w: values.max_debt must be positive", domain.ErrConfigInvalid)
	}
	if c.Chambers.PriorAlpha <= 0 || c.Chambers.PriorBeta <= 0 {
		return fmt.Errorf("%w: beta prior parameters must be positive", domain.ErrConfigInvalid)
	}
	if c.Lattice.BleedThreshold < 0 {
		return fmt.Errorf("%w: lattice.bleed_threshold must not be negative", domain.ErrConfigInvalid)
	}
	if c.Lattice.ResonanceIterations < 0 {
		return fmt.Errorf("%w: lattice.resonance_iterations must not be negative", domain.ErrConfigInvalid)
	}
	if c.Epasa.DriftThreshold <= 0 {
		return fmt.Errorf("%w: epasa.drift_threshold must be positive", domain.ErrConfigInvalid)
	}
	if c.Governance.ApprovalFraction < 0 || c.Governance.ApprovalFraction > 1 {
		return fmt.Errorf("%w: governance.approval_fraction must be in [0, 1]", domain.ErrConfigInvalid)
	}
	return nil
}
