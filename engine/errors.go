package engine

import "errors"

var (
	// ErrUnknownSymbol is returned when symbols are restricted by config
	// and the request names one that is not listed.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrHalted is returned for a symbol quarantined after an invariant
	// violation. No further submissions are accepted for it.
	ErrHalted = errors.New("symbol halted")
	// ErrClosed is returned once the registry has been shut down.
	ErrClosed = errors.New("engine closed")
)

// RejectReasonFOK 是 FOK 预检失败时响应中的 reject_reason。
const RejectReasonFOK = "fok_unfillable"
