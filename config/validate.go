package config

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"matching-engine-go/order"
)

// Validate ensures required fields are present and symbol limits parse.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if cfg.Engine.SubscriberQueue < 0 {
		return errors.New("engine.subscriberQueue must be >= 0")
	}
	if cfg.Engine.RecentTrades <= 0 {
		return errors.New("engine.recentTrades must be > 0")
	}
	if cfg.Engine.SnapshotDepth <= 0 {
		return errors.New("engine.snapshotDepth must be > 0")
	}
	for sym, sc := range cfg.Symbols {
		if _, err := sc.Constraints(); err != nil {
			return fmt.Errorf("symbol %s: %w", sym, err)
		}
	}
	return nil
}

// Constraints parses the string limits into decimal constraints.
// Empty fields stay zero, which the checker treats as unbounded.
func (sc SymbolConfig) Constraints() (order.SymbolConstraints, error) {
	var out order.SymbolConstraints
	fields := []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"tickSize", sc.TickSize, &out.TickSize},
		{"stepSize", sc.StepSize, &out.StepSize},
		{"minQty", sc.MinQty, &out.MinQty},
		{"maxQty", sc.MaxQty, &out.MaxQty},
		{"minNotional", sc.MinNotional, &out.MinNotional},
	}
	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return out, fmt.Errorf("%s: %w", f.name, err)
		}
		if d.IsNegative() {
			return out, fmt.Errorf("%s must not be negative", f.name)
		}
		*f.dst = d
	}
	return out, nil
}

// SymbolConstraints parses every configured symbol.
func (c AppConfig) SymbolConstraints() (map[string]order.SymbolConstraints, error) {
	if len(c.Symbols) == 0 {
		return nil, nil
	}
	out := make(map[string]order.SymbolConstraints, len(c.Symbols))
	for sym, sc := range c.Symbols {
		cons, err := sc.Constraints()
		if err != nil {
			return nil, fmt.Errorf("symbol %s: %w", sym, err)
		}
		out[sym] = cons
	}
	return out, nil
}
