package config

import (
	"fmt"
	"strings"
)

// ConfigError marks a parameter problem that is fatal for the run (or for one
// symbol when wrapped with a symbol context by the caller).
type ConfigError struct {
	Key    string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Key, e.Reason)
}

func confErr(key, reason string, args ...any) error {
	return &ConfigError{Key: key, Reason: fmt.Sprintf(reason, args...)}
}

// validate performs basic cross-field validation. Every threshold the engine
// divides by or compares against must be resolved and positive here; nothing
// downstream re-checks.
func validate(c *Config) error {
	if len(c.Symbols) == 0 {
		return confErr("symbols", "requires at least one symbol")
	}
	if len(c.Months) == 0 {
		return confErr("months", "requires at least one YYYY-MM month")
	}
	for _, m := range c.Months {
		if len(m) != 7 || m[4] != '-' {
			return confErr("months", "entry %q is not YYYY-MM", m)
		}
	}
	if err := c.Regime.validate(); err != nil {
		return err
	}
	if err := c.EventWave.validate(); err != nil {
		return err
	}
	if err := c.Trigger.validate(); err != nil {
		return err
	}
	if err := c.Entry.validate(); err != nil {
		return err
	}
	if err := c.Risk.validate(); err != nil {
		return err
	}
	for sym, ov := range c.SymbolsCfg {
		if ov.TickSize < 0 {
			return confErr("symbols_cfg."+sym+".tick_size", "must be >= 0")
		}
	}
	return nil
}

func (r *RegimeConfig) validate() error {
	if len(r.TSMom.Timeframes) == 0 {
		return confErr("regime.ts_mom.timeframes", "requires at least one window")
	}
	for i, tf := range r.TSMom.Timeframes {
		if tf.LookbackCloses <= 0 {
			return confErr("regime.ts_mom.timeframes", "entry %d lookback_closes must be > 0", i)
		}
	}
	if r.TSMom.RequireMajority <= 0 || r.TSMom.RequireMajority > len(r.TSMom.Timeframes) {
		return confErr("regime.ts_mom.require_majority",
			"must be in [1,%d]", len(r.TSMom.Timeframes))
	}
	return nil
}

func (e *EventWaveConfig) validate() error {
	if e.Squeeze.ATRWindow <= 0 {
		return confErr("eventwave.squeeze.atr_window", "must be > 0")
	}
	if e.Squeeze.PctOfMedian <= 0 || e.Squeeze.PctOfMedian >= 1 {
		return confErr("eventwave.squeeze.pct_of_median", "must be in (0,1)")
	}
	if e.Squeeze.MedianWindow <= 0 {
		return confErr("eventwave.squeeze.median_window", "must be > 0")
	}
	if e.Release.ZScoreWindow <= 1 {
		return confErr("eventwave.release.zscore_window", "must be > 1")
	}
	if e.Release.ZScoreThreshold <= 0 {
		return confErr("eventwave.release.zscore_threshold", "must be > 0")
	}
	return nil
}

func (t *TriggerConfig) validate() error {
	switch t.Mode {
	case "donchian", "zscore":
	default:
		return confErr("trigger.mode", "must be donchian or zscore, got %q", t.Mode)
	}
	if t.Mode == "donchian" && t.DonchianWindow <= 1 {
		return confErr("trigger.donchian_window", "must be > 1")
	}
	if t.Mode == "zscore" {
		if t.ZScoreWindow <= 1 {
			return confErr("trigger.zscore_window", "must be > 1")
		}
		if t.ZScoreThreshold <= 0 {
			return confErr("trigger.zscore_threshold", "must be > 0")
		}
	}
	return nil
}

func (e *EntryConfig) validate() error {
	switch e.Direction {
	case "long", "short", "both":
	default:
		return confErr("entry.direction", "must be long, short or both, got %q", e.Direction)
	}
	if e.CooldownBars < 0 {
		return confErr("entry.cooldown_bars", "must be >= 0")
	}
	return nil
}

func (r *RiskConfig) validate() error {
	switch strings.ToLower(r.ATR.Method) {
	case "wilder", "sma":
	default:
		return confErr("risk.atr.method", "must be wilder or sma, got %q", r.ATR.Method)
	}
	if r.ATR.Window <= 0 {
		return confErr("risk.atr.window", "must be > 0")
	}
	if r.SLMult <= 0 {
		return confErr("risk.sl_mult", "must be > 0")
	}
	if r.TPMult < 0 {
		return confErr("risk.tp_mult", "must be >= 0 (0 disables take-profit)")
	}
	if r.BE.Enabled && r.BE.ThresholdR <= 0 {
		return confErr("risk.be.threshold_r", "must be > 0 when be.enabled")
	}
	if r.TSL.Enabled {
		if r.TSL.TSLATRMult <= 0 {
			return confErr("risk.tsl.tsl_atr_mult", "must be > 0")
		}
		if r.TSL.StepATRMult <= 0 {
			return confErr("risk.tsl.step_atr_mult", "must be > 0")
		}
		if r.TSL.FirstStepDelaySecs < 0 {
			return confErr("risk.tsl.first_step_delay_secs", "must be >= 0")
		}
		if r.TSL.MinStepSecs < 0 {
			return confErr("risk.tsl.min_step_secs", "must be >= 0")
		}
		if r.TSL.FloorFromMedMult <= 0 {
			return confErr("risk.tsl.floor_from_med_mult", "must be > 0")
		}
	}
	if r.TSL.QuantizeTickSize < 0 {
		return confErr("risk.tsl.quantize_tick_size", "must be >= 0")
	}
	return nil
}
