package config

import "strings"

// Config is the full replay-run configuration document.
type Config struct {
	App        AppConfig                 `toml:"app"`
	Paths      PathsConfig               `toml:"paths"`
	Symbols    []string                  `toml:"symbols"`
	Months     []string                  `toml:"months"`
	Engine     EngineConfig              `toml:"engine"`
	Regime     RegimeConfig              `toml:"regime"`
	EventWave  EventWaveConfig           `toml:"eventwave"`
	Trigger    TriggerConfig             `toml:"trigger"`
	Entry      EntryConfig               `toml:"entry"`
	Risk       RiskConfig                `toml:"risk"`
	SymbolsCfg map[string]SymbolOverride `toml:"symbols_cfg"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	LogPath  string `toml:"log_path"`
}

type PathsConfig struct {
	InputsDir  string `toml:"inputs_dir"`
	OutputsDir string `toml:"outputs_dir"`
	CacheDir   string `toml:"cache_dir"`
	ResultsDB  string `toml:"results_db"`
}

type EngineConfig struct {
	Warmup             WarmupConfig `toml:"warmup"`
	MaxParallelSymbols int          `toml:"max_parallel_symbols"`
}

type WarmupConfig struct {
	Min1mBars int `toml:"min_1m_bars"`
}

// RegimeConfig configures the time-series-momentum direction vote.
type RegimeConfig struct {
	TSMom TSMomConfig `toml:"ts_mom"`
}

type TSMomConfig struct {
	Timeframes      []RegimeWindow `toml:"timeframes"`
	RequireMajority int            `toml:"require_majority"`
	NeutralBand     float64        `toml:"neutral_band"`
}

// RegimeWindow is one momentum lookback expressed in 1m closes.
type RegimeWindow struct {
	LookbackCloses int `toml:"lookback_closes"`
}

type EventWaveConfig struct {
	Squeeze SqueezeConfig `toml:"squeeze"`
	Release ReleaseConfig `toml:"release"`
}

type SqueezeConfig struct {
	ATRWindow    int     `toml:"atr_window"`
	PctOfMedian  float64 `toml:"pct_of_median"`
	MedianWindow int     `toml:"median_window"`
}

type ReleaseConfig struct {
	ZScoreWindow    int     `toml:"zscore_window"`
	ZScoreThreshold float64 `toml:"zscore_threshold"`
	GraceBars       int     `toml:"grace_bars"`
}

type TriggerConfig struct {
	Mode            string  `toml:"mode"` // "donchian" | "zscore"
	DonchianWindow  int     `toml:"donchian_window"`
	ZScoreWindow    int     `toml:"zscore_window"`
	ZScoreThreshold float64 `toml:"zscore_threshold"`
}

type EntryConfig struct {
	Direction    string `toml:"direction"` // "long" | "short" | "both"
	CooldownBars int    `toml:"cooldown_bars"`
}

type RiskConfig struct {
	ATR    ATRConfig `toml:"atr"`
	SLMult float64   `toml:"sl_mult"`
	TPMult float64   `toml:"tp_mult"`
	BE     BEConfig  `toml:"be"`
	TSL    TSLConfig `toml:"tsl"`
}

type ATRConfig struct {
	Window int    `toml:"window"`
	Method string `toml:"method"` // "wilder" | "sma"
}

type BEConfig struct {
	Enabled     bool    `toml:"enabled"`
	ThresholdR  float64 `toml:"threshold_r"`
	BufferTicks int     `toml:"buffer_ticks"`
}

type TSLConfig struct {
	Enabled            bool    `toml:"enabled"`
	TSLATRMult         float64 `toml:"tsl_atr_mult"`
	StepATRMult        float64 `toml:"step_atr_mult"`
	FirstStepDelaySecs int     `toml:"first_step_delay_secs"`
	MinStepSecs        int     `toml:"min_step_secs"`
	FloorFromMedMult   float64 `toml:"floor_from_med_mult"`
	QuantizeTickSize   float64 `toml:"quantize_tick_size"`
}

// SymbolOverride carries per-symbol exchange parameters.
type SymbolOverride struct {
	TickSize float64 `toml:"tick_size"`
}

// SymbolConfig is the immutable per-symbol parameter set handed to a run.
// Resolved once before the run starts; nothing mutates it afterwards.
type SymbolConfig struct {
	Symbol    string
	TickSize  float64
	Warmup    int
	Regime    TSMomConfig
	EventWave EventWaveConfig
	Trigger   TriggerConfig
	Entry     EntryConfig
	Risk      RiskConfig
}

// ResolveSymbol flattens global config plus the per-symbol override into the
// immutable SymbolConfig used by the engine.
func (c *Config) ResolveSymbol(symbol string) SymbolConfig {
	tick := c.Risk.TSL.QuantizeTickSize
	if ov, ok := c.SymbolsCfg[strings.ToUpper(symbol)]; ok && ov.TickSize > 0 {
		tick = ov.TickSize
	}
	return SymbolConfig{
		Symbol:    strings.ToUpper(symbol),
		TickSize:  tick,
		Warmup:    c.Engine.Warmup.Min1mBars,
		Regime:    c.Regime.TSMom,
		EventWave: c.EventWave,
		Trigger:   c.Trigger,
		Entry:     c.Entry,
		Risk:      c.Risk,
	}
}

// keySet tracks which config keys were explicitly present in the file, so
// defaults never clobber deliberate zero values.
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault describes the default rule for a single field.
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
