// Package handlers provides HTTP request handling
package handlers

import (
	"time"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/meshcompute/clearing/internal/ledger"
)

// DisputeHandlers contains all dispute related RPC handlers
type DisputeHandlers struct {
	ledger *ledger.Ledger
}

// NewDisputeHandlers creates a new dispute handlers instance
func NewDisputeHandlers(l *ledger.Ledger) *DisputeHandlers {
	return &DisputeHandlers{ledger: l}
}

// Create handles a party contesting a completed job's outcome
func (h *DisputeHandlers) Create(c *fiber.Ctx, req RPCRequest) error {
	params, err := parseParams[DisputeCreateParams](req)
	if err != nil {
		return respondWithRPCError(c, fiber.StatusBadRequest, ErrMsgInvalidParams, err.Error(), req.ID)
	}
	if err := params.Validate(); err != nil {
		return respondWithRPCError(c, fiber.StatusBadRequest, ErrMsgInvalidParams, err.Error(), req.ID)
	}

	record, err := h.ledger.CreateDispute(c.Context(), params.CallerID, params.JobID, params.Reason, time.Now())
	if err != nil {
		return respondWithEngineError(c, err, req.ID)
	}

	return c.JSON(RPCResponse{
		Data:    record,
		Success: true,
		ID:      req.ID,
	})
}

// Resolve handles an arbiter ruling on an open dispute
func (h *DisputeHandlers) Resolve(c *fiber.Ctx, req RPCRequest) error {
	params, err := parseParams[DisputeResolveParams](req)
	if err != nil {
		return respondWithRPCError(c, fiber.StatusBadRequest, ErrMsgInvalidParams, err.Error(), req.ID)
	}
	if err := params.Validate(); err != nil {
		return respondWithRPCError(c, fiber.StatusBadRequest, ErrMsgInvalidParams, err.Error(), req.ID)
	}

	record, err := h.ledger.ResolveDispute(c.Context(), params.ArbiterID, params.JobID, params.FavorProvider)
	if err != nil {
		return respondWithEngineError(c, err, req.ID)
	}

	return c.JSON(RPCResponse{
		Data:    record,
		Success: true,
		ID:      req.ID,
	})
}
