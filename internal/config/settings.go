// Package config loads and validates the YAML settings bundle the engine
// runs with, following the same load-then-validate idiom this codebase uses
// for its other YAML-driven configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the complete static configuration bundle for one engine run.
type Settings struct {
	Symbols   []string        `yaml:"symbols"`
	Venue     VenueConfig     `yaml:"venue"`
	Risk      RiskConfig      `yaml:"risk"`
	Signals   SignalsConfig   `yaml:"signals"`
	Execution ExecutionConfig `yaml:"execution"`
}

// VenueConfig names the venue and its transport retry/backoff envelope.
type VenueConfig struct {
	Name        string        `yaml:"name"`
	BaseURL     string        `yaml:"base_url"`
	Backoff     BackoffConfig `yaml:"backoff"`
	Circuit     CircuitConfig `yaml:"circuit"`
	RPS         float64       `yaml:"rps"`
	Burst       int           `yaml:"burst"`
	AckTimeout  time.Duration `yaml:"ack_timeout"`
	IOCLatency  time.Duration `yaml:"ioc_latency_cap"`
}

// BackoffConfig is the exponential backoff envelope used by the transport
// wrapper: attempts follow base * 2^n, capped, for up to Attempts tries.
type BackoffConfig struct {
	Base     time.Duration `yaml:"base"`
	Max      time.Duration `yaml:"max"`
	Attempts int           `yaml:"attempts"`
}

// CircuitConfig configures the venue transport circuit breaker.
type CircuitConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	SuccessThreshold int           `yaml:"success_threshold"`
	Timeout          time.Duration `yaml:"timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
}

// RiskConfig carries the HardLimits thresholds and PositionManager bounds.
// MaxSingleLossPct and MaxDailyDrawdownPct are fractions of NAV in (0,1).
type RiskConfig struct {
	MaxPositionUSD      float64 `yaml:"max_position_usd"`
	MaxSingleLossPct    float64 `yaml:"max_single_loss_pct"`
	MaxDailyDrawdownPct float64 `yaml:"max_daily_drawdown_pct"`
	InitialNAV          float64 `yaml:"initial_nav"`
}

// SignalsConfig carries the aggregator/classifier/deduplicator parameters.
type SignalsConfig struct {
	OBIWeight      float64 `yaml:"obi_weight"`
	MicropriceWeight float64 `yaml:"microprice_weight"`
	ImpactWeight   float64 `yaml:"impact_weight"`
	OBILevels      int     `yaml:"obi_levels"`
	ImpactWindow   time.Duration `yaml:"impact_window"`
	MicropriceScale float64 `yaml:"microprice_scale"`

	ClassifierCalibrated bool    `yaml:"classifier_calibrated"`
	Theta1               float64 `yaml:"theta1"`
	Theta2               float64 `yaml:"theta2"`
	CalibrationPHigh     float64 `yaml:"calibration_p_high"`
	CalibrationPMedium   float64 `yaml:"calibration_p_medium"`
	MinCalibrationSamples int    `yaml:"min_calibration_samples"`

	DedupCooldown        time.Duration `yaml:"dedup_cooldown"`
	DedupChangeThreshold float64       `yaml:"dedup_change_threshold"`
	DedupDecayGamma      float64       `yaml:"dedup_decay_gamma"`
	DedupMaxSameDirection int          `yaml:"dedup_max_same_direction"`
}

// ExecutionConfig carries hybrid router timing and TP/SL/max-age settings.
type ExecutionConfig struct {
	HighConfidenceTimeout time.Duration `yaml:"high_confidence_timeout"`
	MediumConfidenceTimeout time.Duration `yaml:"medium_confidence_timeout"`
	MediumFallbackToIOC   bool          `yaml:"medium_fallback_to_ioc"`

	DefaultSize           float64 `yaml:"default_size"`
	TickOffset            float64 `yaml:"tick_offset"`
	MaxSlippageBps        float64 `yaml:"max_slippage_bps"`
	IOCPriceAdjustmentBps float64 `yaml:"ioc_price_adjustment_bps"`
	VolProxyPct           float64 `yaml:"vol_proxy_pct"`

	TakeProfitBps float64       `yaml:"take_profit_bps"`
	StopLossBps   float64       `yaml:"stop_loss_bps"`
	MaxAge        time.Duration `yaml:"max_position_age"`

	MakerFeeRate   float64 `yaml:"maker_fee_rate"`
	TakerFeeRate   float64 `yaml:"taker_fee_rate"`
	MakerRebateRate float64 `yaml:"maker_rebate_rate"`
}

// Default returns a settings bundle with conservative, documented defaults;
// used by `check-config` to validate overrides and as a safety net for any
// field a user's YAML leaves unset.
func Default() Settings {
	return Settings{
		Symbols: []string{"BTC-USD"},
		Venue: VenueConfig{
			Name:       "generic",
			Backoff:    BackoffConfig{Base: 100 * time.Millisecond, Max: 5 * time.Second, Attempts: 5},
			Circuit:    CircuitConfig{FailureThreshold: 5, SuccessThreshold: 2, Timeout: 30 * time.Second, RequestTimeout: 2 * time.Second},
			RPS:        10,
			Burst:      20,
			AckTimeout: 2 * time.Second,
			IOCLatency: 500 * time.Millisecond,
		},
		Risk: RiskConfig{
			MaxPositionUSD:      50000,
			MaxSingleLossPct:    0.005,
			MaxDailyDrawdownPct: 0.02,
			InitialNAV:          100000,
		},
		Signals: SignalsConfig{
			OBIWeight:             1,
			MicropriceWeight:      1,
			ImpactWeight:          1,
			OBILevels:             5,
			ImpactWindow:          30 * time.Second,
			MicropriceScale:       10000,
			ClassifierCalibrated:  false,
			Theta1:                0.5,
			Theta2:                0.2,
			CalibrationPHigh:      0.10,
			CalibrationPMedium:    0.30,
			MinCalibrationSamples: 100,
			DedupCooldown:         5 * time.Second,
			DedupChangeThreshold:  0.1,
			DedupDecayGamma:       0.7,
			DedupMaxSameDirection: 3,
		},
		Execution: ExecutionConfig{
			HighConfidenceTimeout:   5 * time.Second,
			MediumConfidenceTimeout: 3 * time.Second,
			MediumFallbackToIOC:    true,
			DefaultSize:            1.0,
			TickOffset:             0.1,
			MaxSlippageBps:         20,
			IOCPriceAdjustmentBps:  5,
			VolProxyPct:            0.01,
			TakeProfitBps:          50,
			StopLossBps:            30,
			MaxAge:                 10 * time.Minute,
			MakerFeeRate:           0.0002,
			TakerFeeRate:           0.0005,
			MakerRebateRate:        -0.0001,
		},
	}
}

// Load reads a YAML settings bundle from disk, seeding unset fields from
// Default() first so a partial override file is valid.
func Load(path string) (Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := Validate(s); err != nil {
		return Settings{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return s, nil
}

// Validate checks cross-field invariants a YAML file cannot express on its
// own: threshold ordering, positive weights, theta ordering. Used both at
// startup and by the `check-config` CLI subcommand.
func Validate(s Settings) error {
	if len(s.Symbols) == 0 {
		return fmt.Errorf("symbols must list at least one trading pair")
	}
	if s.Venue.Name == "" {
		return fmt.Errorf("venue.name is required")
	}
	if s.Venue.Backoff.Base <= 0 || s.Venue.Backoff.Max < s.Venue.Backoff.Base {
		return fmt.Errorf("venue.backoff: base must be positive and max >= base")
	}
	if s.Venue.Backoff.Attempts <= 0 {
		return fmt.Errorf("venue.backoff.attempts must be positive")
	}
	if s.Risk.MaxPositionUSD <= 0 {
		return fmt.Errorf("risk.max_position_usd must be positive")
	}
	if s.Risk.MaxSingleLossPct <= 0 || s.Risk.MaxSingleLossPct >= 1 {
		return fmt.Errorf("risk.max_single_loss_pct must be in (0,1)")
	}
	if s.Risk.MaxDailyDrawdownPct <= 0 || s.Risk.MaxDailyDrawdownPct >= 1 {
		return fmt.Errorf("risk.max_daily_drawdown_pct must be in (0,1)")
	}
	if s.Risk.InitialNAV <= 0 {
		return fmt.Errorf("risk.initial_nav must be positive")
	}
	if s.Signals.Theta2 >= s.Signals.Theta1 {
		return fmt.Errorf("signals.theta2 must be less than signals.theta1")
	}
	if s.Signals.OBIWeight < 0 || s.Signals.MicropriceWeight < 0 || s.Signals.ImpactWeight < 0 {
		return fmt.Errorf("signals component weights must be non-negative")
	}
	if s.Signals.OBILevels <= 0 {
		return fmt.Errorf("signals.obi_levels must be positive")
	}
	if s.Signals.ClassifierCalibrated && s.Signals.MinCalibrationSamples < 1 {
		return fmt.Errorf("signals.min_calibration_samples must be positive when calibrated classification is enabled")
	}
	if s.Execution.TakeProfitBps <= 0 || s.Execution.StopLossBps <= 0 {
		return fmt.Errorf("execution take_profit_bps and stop_loss_bps must be positive")
	}
	if s.Execution.MaxAge <= 0 {
		return fmt.Errorf("execution.max_position_age must be positive")
	}
	if s.Execution.DefaultSize <= 0 {
		return fmt.Errorf("execution.default_size must be positive")
	}
	if s.Execution.TickOffset <= 0 {
		return fmt.Errorf("execution.tick_offset must be positive")
	}
	if s.Execution.MaxSlippageBps <= 0 {
		return fmt.Errorf("execution.max_slippage_bps must be positive")
	}
	if s.Execution.IOCPriceAdjustmentBps <= 0 {
		return fmt.Errorf("execution.ioc_price_adjustment_bps must be positive")
	}
	if s.Execution.VolProxyPct <= 0 {
		return fmt.Errorf("execution.vol_proxy_pct must be positive")
	}
	return nil
}
