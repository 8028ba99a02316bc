package config

import "strings"

// Default value constants.
const (
	defaultAppEnv         = "dev"
	defaultAppLogLevel    = "info"
	defaultInputsDir      = "inputs"
	defaultOutputsDir     = "outputs"
	defaultCacheDir       = "inputs/_ohlcv_cache"
	defaultResultsDB      = "outputs/runs"
	defaultWarmupBars     = 240
	defaultMaxParallel    = 1
	defaultRegimeMajority = 2
	defaultSqueezeATRWin  = 14
	defaultSqueezePct     = 0.75
	defaultSqueezeMedWin  = 240
	defaultReleaseZWin    = 60
	defaultReleaseZThresh = 2.0
	defaultTriggerMode    = "donchian"
	defaultDonchianWindow = 60
	defaultTriggerZWin    = 60
	defaultTriggerZThresh = 2.0
	defaultEntryDirection = "both"
	defaultCooldownBars   = 5
	defaultATRWindow      = 14
	defaultATRMethod      = "wilder"
	defaultSLMult         = 1.5
	defaultBEThresholdR   = 0.5
	defaultTSLATRMult     = 2.0
	defaultStepATRMult    = 0.5
	defaultFirstStepDelay = 120
	defaultMinStepSecs    = 60
	defaultFloorFromMed   = 1.0
)

// applyDefaults fills every sub-config whose keys were absent from the file.
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Paths.applyDefaults(keys)
	c.Engine.applyDefaults(keys)
	c.Regime.applyDefaults(keys)
	c.EventWave.applyDefaults(keys)
	c.Trigger.applyDefaults(keys)
	c.Entry.applyDefaults(keys)
	c.Risk.applyDefaults(keys)
	if c.SymbolsCfg == nil {
		c.SymbolsCfg = make(map[string]SymbolOverride)
	}
	normalized := make(map[string]SymbolOverride, len(c.SymbolsCfg))
	for sym, ov := range c.SymbolsCfg {
		normalized[strings.ToUpper(strings.TrimSpace(sym))] = ov
	}
	c.SymbolsCfg = normalized
	for i, sym := range c.Symbols {
		c.Symbols[i] = strings.ToUpper(strings.TrimSpace(sym))
	}
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
	)
}

func (p *PathsConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("paths.inputs_dir", &p.InputsDir, defaultInputsDir),
		stringFieldDefault("paths.outputs_dir", &p.OutputsDir, defaultOutputsDir),
		stringFieldDefault("paths.cache_dir", &p.CacheDir, defaultCacheDir),
		stringFieldDefault("paths.results_db", &p.ResultsDB, defaultResultsDB),
	)
}

func (e *EngineConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "engine.warmup.min_1m_bars",
			need:  func() bool { return e.Warmup.Min1mBars <= 0 },
			apply: func() { e.Warmup.Min1mBars = defaultWarmupBars },
		},
		fieldDefault{
			key:   "engine.max_parallel_symbols",
			need:  func() bool { return e.MaxParallelSymbols <= 0 },
			apply: func() { e.MaxParallelSymbols = defaultMaxParallel },
		},
	)
}

func (r *RegimeConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	if len(r.TSMom.Timeframes) == 0 {
		r.TSMom.Timeframes = []RegimeWindow{
			{LookbackCloses: 60},
			{LookbackCloses: 240},
			{LookbackCloses: 1440},
		}
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "regime.ts_mom.require_majority",
			need:  func() bool { return r.TSMom.RequireMajority <= 0 },
			apply: func() { r.TSMom.RequireMajority = defaultRegimeMajority },
		},
	)
	if r.TSMom.NeutralBand < 0 {
		r.TSMom.NeutralBand = 0
	}
}

func (e *EventWaveConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	applyFieldDefaults(keys,
		fieldDefault{
			key:   "eventwave.squeeze.atr_window",
			need:  func() bool { return e.Squeeze.ATRWindow <= 0 },
			apply: func() { e.Squeeze.ATRWindow = defaultSqueezeATRWin },
		},
		fieldDefault{
			key:   "eventwave.squeeze.pct_of_median",
			need:  func() bool { return e.Squeeze.PctOfMedian <= 0 },
			apply: func() { e.Squeeze.PctOfMedian = defaultSqueezePct },
		},
		fieldDefault{
			key:   "eventwave.squeeze.median_window",
			need:  func() bool { return e.Squeeze.MedianWindow <= 0 },
			apply: func() { e.Squeeze.MedianWindow = defaultSqueezeMedWin },
		},
		fieldDefault{
			key:   "eventwave.release.zscore_window",
			need:  func() bool { return e.Release.ZScoreWindow <= 0 },
			apply: func() { e.Release.ZScoreWindow = defaultReleaseZWin },
		},
		fieldDefault{
			key:   "eventwave.release.zscore_threshold",
			need:  func() bool { return e.Release.ZScoreThreshold <= 0 },
			apply: func() { e.Release.ZScoreThreshold = defaultReleaseZThresh },
		},
	)
	if e.Release.GraceBars < 0 {
		e.Release.GraceBars = 0
	}
}

func (t *TriggerConfig) applyDefaults(keys keySet) {
	if t == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("trigger.mode", &t.Mode, defaultTriggerMode),
		fieldDefault{
			key:   "trigger.donchian_window",
			need:  func() bool { return t.DonchianWindow <= 0 },
			apply: func() { t.DonchianWindow = defaultDonchianWindow },
		},
		fieldDefault{
			key:   "trigger.zscore_window",
			need:  func() bool { return t.ZScoreWindow <= 0 },
			apply: func() { t.ZScoreWindow = defaultTriggerZWin },
		},
		fieldDefault{
			key:   "trigger.zscore_threshold",
			need:  func() bool { return t.ZScoreThreshold <= 0 },
			apply: func() { t.ZScoreThreshold = defaultTriggerZThresh },
		},
	)
	t.Mode = strings.ToLower(strings.TrimSpace(t.Mode))
}

func (e *EntryConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("entry.direction", &e.Direction, defaultEntryDirection),
		fieldDefault{
			key:   "entry.cooldown_bars",
			need:  func() bool { return e.CooldownBars <= 0 },
			apply: func() { e.CooldownBars = defaultCooldownBars },
		},
	)
	e.Direction = strings.ToLower(strings.TrimSpace(e.Direction))
}

func (r *RiskConfig) applyDefaults(keys keySet) {
	if r == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("risk.atr.method", &r.ATR.Method, defaultATRMethod),
		fieldDefault{
			key:   "risk.atr.window",
			need:  func() bool { return r.ATR.Window <= 0 },
			apply: func() { r.ATR.Window = defaultATRWindow },
		},
		fieldDefault{
			key:   "risk.sl_mult",
			need:  func() bool { return r.SLMult <= 0 },
			apply: func() { r.SLMult = defaultSLMult },
		},
		boolFieldDefault("risk.be.enabled", &r.BE.Enabled, true),
		fieldDefault{
			key:   "risk.be.threshold_r",
			need:  func() bool { return r.BE.ThresholdR <= 0 },
			apply: func() { r.BE.ThresholdR = defaultBEThresholdR },
		},
		boolFieldDefault("risk.tsl.enabled", &r.TSL.Enabled, true),
		fieldDefault{
			key:   "risk.tsl.tsl_atr_mult",
			need:  func() bool { return r.TSL.TSLATRMult <= 0 },
			apply: func() { r.TSL.TSLATRMult = defaultTSLATRMult },
		},
		fieldDefault{
			key:   "risk.tsl.step_atr_mult",
			need:  func() bool { return r.TSL.StepATRMult <= 0 },
			apply: func() { r.TSL.StepATRMult = defaultStepATRMult },
		},
		fieldDefault{
			key:   "risk.tsl.first_step_delay_secs",
			need:  func() bool { return r.TSL.FirstStepDelaySecs <= 0 },
			apply: func() { r.TSL.FirstStepDelaySecs = defaultFirstStepDelay },
		},
		fieldDefault{
			key:   "risk.tsl.min_step_secs",
			need:  func() bool { return r.TSL.MinStepSecs <= 0 },
			apply: func() { r.TSL.MinStepSecs = defaultMinStepSecs },
		},
		fieldDefault{
			key:   "risk.tsl.floor_from_med_mult",
			need:  func() bool { return r.TSL.FloorFromMedMult <= 0 },
			apply: func() { r.TSL.FloorFromMedMult = defaultFloorFromMed },
		},
	)
	r.ATR.Method = strings.ToLower(strings.TrimSpace(r.ATR.Method))
	if r.TPMult < 0 {
		r.TPMult = 0
	}
	if r.BE.BufferTicks < 0 {
		r.BE.BufferTicks = 0
	}
	if r.TSL.QuantizeTickSize < 0 {
		r.TSL.QuantizeTickSize = 0
	}
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
