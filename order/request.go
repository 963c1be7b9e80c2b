package order

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// PriceScale 价格/数量支持的最大小数位数（pip = 1e-8）。
const PriceScale = 8

var (
	ErrUnknownSide     = errors.New("unknown side")
	ErrUnknownType     = errors.New("unknown order_type")
	ErrQuantityNotPos  = errors.New("quantity must be > 0")
	ErrPriceRequired   = errors.New("price required for non-market order")
	ErrPriceNotPos     = errors.New("price must be > 0")
	ErrPrecisionExceed = fmt.Errorf("more than %d decimal places", PriceScale)
	ErrSymbolRequired  = errors.New("symbol is required")
)

// Request is an inbound order submission, before the engine assigns
// identity and sequence.
type Request struct {
	Symbol   string
	Side     Side
	Type     Type
	Quantity decimal.Decimal
	// Price is ignored for market orders. Zero means absent.
	Price decimal.Decimal
}

// Validate 基础校验：方向/类型合法、数量为正、限价单必须带正价格。
// Symbol 级别的精度限制由 SymbolConstraints 单独检查。
func (r Request) Validate() error {
	if r.Symbol == "" {
		return ErrSymbolRequired
	}
	if !r.Side.Valid() {
		return ErrUnknownSide
	}
	if !r.Type.Valid() {
		return ErrUnknownType
	}
	if !r.Quantity.IsPositive() {
		return ErrQuantityNotPos
	}
	if !r.Quantity.Shift(PriceScale).IsInteger() {
		return fmt.Errorf("quantity %s: %w", r.Quantity, ErrPrecisionExceed)
	}
	if r.Type.RequiresPrice() {
		if r.Price.IsZero() {
			return ErrPriceRequired
		}
		if !r.Price.IsPositive() {
			return ErrPriceNotPos
		}
		if !r.Price.Shift(PriceScale).IsInteger() {
			return fmt.Errorf("price %s: %w", r.Price, ErrPrecisionExceed)
		}
	}
	return nil
}
