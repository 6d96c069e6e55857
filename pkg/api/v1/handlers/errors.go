// Package handlers provides HTTP request handling
package handlers

import (
	"errors"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/meshcompute/clearing/internal/types"
)

// Common error messages
const (
	ErrMsgInvalidParams       = "Invalid parameters"
	ErrMsgInvalidReqFormat    = "Invalid request format"
	ErrMsgMethodRequired      = "Method is required"
	ErrMsgUnknownMethod       = "Unknown method"
	ErrMsgUnknownJobMethod    = "Unknown job method"
	ErrMsgUnknownDispMethod   = "Unknown dispute method"
	ErrMsgInvalidJobID        = "Invalid job id"
	ErrMsgInvalidProviderID   = "Invalid provider id"
	ErrMsgJobNotFound         = "Job not found"
	ErrMsgProviderNotFound    = "Provider not found"
	ErrMsgJobListFailed       = "Failed to list jobs"
	ErrMsgJobHistoryFailed    = "Failed to get job history"
	ErrMsgAnalyticsFailed     = "Failed to compute analytics"
	ErrMsgProviderStatsFailed = "Failed to get provider stats"
)

// statusForError maps the engine's sentinel errors to HTTP status codes.
// Validation failures are 400, capability failures 403, missing records 404,
// state and temporal conflicts 409, and everything else 500.
func statusForError(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidAmount),
		errors.Is(err, types.ErrInvalidHash),
		errors.Is(err, types.ErrInvalidDeadline),
		errors.Is(err, types.ErrInvalidScore),
		errors.Is(err, types.ErrInvalidJobType):
		return fiber.StatusBadRequest

	case errors.Is(err, types.ErrUnauthorized),
		errors.Is(err, types.ErrNotEligible):
		return fiber.StatusForbidden

	case errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrEscrowNotFound):
		return fiber.StatusNotFound

	case errors.Is(err, types.ErrInvalidTransition),
		errors.Is(err, types.ErrAlreadyClaimed),
		errors.Is(err, types.ErrAlreadyDisputed),
		errors.Is(err, types.ErrNoActiveDispute),
		errors.Is(err, types.ErrNotExpired),
		errors.Is(err, types.ErrWindowClosed),
		errors.Is(err, types.ErrAlreadyReleased),
		errors.Is(err, types.ErrInsufficientFunds),
		errors.Is(err, types.ErrJobHalted):
		return fiber.StatusConflict

	default:
		return fiber.StatusInternalServerError
	}
}
