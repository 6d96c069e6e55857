package types

import (
	sdkerrors "cosmossdk.io/errors"
)

// Codespace identifies this service's error domain
const Codespace = "clearing"

// Sentinel errors for every failure class the engine can return. Handlers map
// these to HTTP status codes; callers test with errors.Is.
var (
	// Validation errors — rejected before any state read
	ErrInvalidAmount   = sdkerrors.Register(Codespace, 2, "amount must be positive")
	ErrInvalidHash     = sdkerrors.Register(Codespace, 3, "invalid content hash")
	ErrInvalidDeadline = sdkerrors.Register(Codespace, 4, "deadline must be in the future")
	ErrInvalidScore    = sdkerrors.Register(Codespace, 5, "quality score out of range")
	ErrInvalidJobType  = sdkerrors.Register(Codespace, 6, "unknown job type")

	// Authorization errors
	ErrUnauthorized = sdkerrors.Register(Codespace, 10, "caller not permitted for this operation")
	ErrNotEligible  = sdkerrors.Register(Codespace, 11, "provider not eligible to claim")

	// State conflicts
	ErrNotFound          = sdkerrors.Register(Codespace, 20, "job not found")
	ErrInvalidTransition = sdkerrors.Register(Codespace, 21, "invalid phase transition")
	ErrAlreadyClaimed    = sdkerrors.Register(Codespace, 22, "job already claimed")
	ErrAlreadyDisputed   = sdkerrors.Register(Codespace, 23, "job already disputed")
	ErrNoActiveDispute   = sdkerrors.Register(Codespace, 24, "no active dispute for job")

	// Temporal conflicts
	ErrNotExpired   = sdkerrors.Register(Codespace, 30, "job deadline has not passed")
	ErrWindowClosed = sdkerrors.Register(Codespace, 31, "dispute window closed")

	// Resource conflicts
	ErrAlreadyReleased   = sdkerrors.Register(Codespace, 40, "escrow already released or refunded")
	ErrEscrowNotFound    = sdkerrors.Register(Codespace, 41, "escrow entry not found")
	ErrInsufficientFunds = sdkerrors.Register(Codespace, 42, "insufficient account balance")

	// Fatal/defensive — must never occur from valid inputs
	ErrReconcileMismatch = sdkerrors.Register(Codespace, 50, "escrow reconciliation mismatch")
	ErrJobHalted         = sdkerrors.Register(Codespace, 51, "job halted after invariant failure")
)
