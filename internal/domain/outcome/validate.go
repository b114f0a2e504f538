package outcome

import (
	"errors"
	"fmt"

	"soulforge/internal/domain/tuning"
)

var ErrInvalidConfig = errors.New("invalid outcome configuration")

// ValidateConfig checks the parts of a configuration that resolvers trust
// without re-checking: every configured Mod names a real channel and op,
// and every range is ordered.
func ValidateConfig(cfg *tuning.Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	var errs []error
	check := func(where string, spec tuning.ModSpec) {
		if _, err := ParseChannel(spec.Target); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", where, err))
		}
		if _, err := ParseOp(spec.Op); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", where, err))
		}
	}
	for band, byAction := range cfg.Attention.Ambient {
		for action, specs := range byAction {
			for i, spec := range specs {
				check(fmt.Sprintf("attention.ambient.%s.%s[%d]", band, action, i), spec)
			}
		}
	}
	for action, byBand := range cfg.Feral.Penalties {
		for band, spec := range byBand {
			check(fmt.Sprintf("feral.penalties.%s.%s", action, band), spec)
		}
	}
	for name, trait := range cfg.Traits {
		for i, effect := range trait.Effects {
			check(fmt.Sprintf("traits.%s.effects[%d]", name, i), tuning.ModSpec{Target: effect.Target, Op: effect.Op})
		}
	}
	for name, kind := range cfg.Expedition.Kinds {
		for resource, r := range kind.Loot {
			if r.Min > r.Max || r.Min < 0 {
				errs = append(errs, fmt.Errorf("expedition.kinds.%s.loot.%s: bad range %d..%d", name, resource, r.Min, r.Max))
			}
		}
	}
	for name, res := range cfg.Gather.Resources {
		if res.Amount.Min > res.Amount.Max || res.Seconds.Min > res.Seconds.Max {
			errs = append(errs, fmt.Errorf("gather.resources.%s: bad range", name))
		}
	}
	for name, kind := range cfg.Grow.Kinds {
		if kind.Seconds.Min > kind.Seconds.Max {
			errs = append(errs, fmt.Errorf("grow.kinds.%s.seconds: bad range", name))
		}
	}
	if cfg.Expedition.DeathFloor > cfg.Expedition.DeathCeiling {
		errs = append(errs, fmt.Errorf("expedition: death floor %.3f above ceiling %.3f", cfg.Expedition.DeathFloor, cfg.Expedition.DeathCeiling))
	}
	if cfg.Upload.RetainMin > cfg.Upload.RetainMax {
		errs = append(errs, errors.New("upload: retain_min above retain_max"))
	}
	if cfg.Attention.YellowThreshold > cfg.Attention.RedThreshold {
		errs = append(errs, errors.New("attention: yellow threshold above red"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
