// Package handlers provides HTTP request handling
package handlers

import (
	"time"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/meshcompute/clearing/internal/db/models"
	"github.com/meshcompute/clearing/internal/ledger"
	"github.com/meshcompute/clearing/internal/types"
)

// JobHandlers contains all job related RPC handlers
type JobHandlers struct {
	ledger *ledger.Ledger
}

// NewJobHandlers creates a new job handlers instance
func NewJobHandlers(l *ledger.Ledger) *JobHandlers {
	return &JobHandlers{ledger: l}
}

// Submit handles funding and creating a new job
func (h *JobHandlers) Submit(c *fiber.Ctx, req RPCRequest) error {
	params, err := parseParams[JobSubmitParams](req)
	if err != nil {
		return respondWithRPCError(c, fiber.StatusBadRequest, ErrMsgInvalidParams, err.Error(), req.ID)
	}
	if err := params.Validate(); err != nil {
		return respondWithRPCError(c, fiber.StatusBadRequest, ErrMsgInvalidParams, err.Error(), req.ID)
	}

	job, err := h.ledger.SubmitJob(c.Context(), ledger.SubmitParams{
		ClientID:          params.ClientID,
		JobType:           models.JobType(params.JobType),
		SpecHash:          params.SpecHash,
		Amount:            params.Amount,
		Deadline:          params.Deadline,
		EstimatedDuration: time.Duration(params.EstimatedDurationSeconds) * time.Second,
		Priority:          params.Priority,
		Private:           params.Private,
		Metadata:          params.Metadata,
	})
	if err != nil {
		return respondWithEngineError(c, err, req.ID)
	}

	return c.JSON(RPCResponse{
		Data:    job,
		Success: true,
		ID:      req.ID,
	})
}

// Claim handles a provider claiming a pending job
func (h *JobHandlers) Claim(c *fiber.Ctx, req RPCRequest) error {
	params, err := parseParams[JobClaimParams](req)
	if err != nil {
		return respondWithRPCError(c, fiber.StatusBadRequest, ErrMsgInvalidParams, err.Error(), req.ID)
	}
	if err := params.Validate(); err != nil {
		return respondWithRPCError(c, fiber.StatusBadRequest, ErrMsgInvalidParams, err.Error(), req.ID)
	}

	job, err := h.ledger.ClaimJob(c.Context(), params.ProviderID, params.JobID, time.Now())
	if err != nil {
		return respondWithEngineError(c, err, req.ID)
	}

	return c.JSON(RPCResponse{
		Data:    job,
		Success: true,
		ID:      req.ID,
	})
}

// Start handles a provider starting execution of a claimed job
func (h *JobHandlers) Start(c *fiber.Ctx, req RPCRequest) error {
	params, err := parseParams[JobStartParams](req)
	if err != nil {
		return respondWithRPCError(c, fiber.StatusBadRequest, ErrMsgInvalidParams, err.Error(), req.ID)
	}
	if err := params.Validate(); err != nil {
		return respondWithRPCError(c, fiber.StatusBadRequest, ErrMsgInvalidParams, err.Error(), req.ID)
	}

	job, err := h.ledger.StartExecution(c.Context(), params.ProviderID, params.JobID)
	if err != nil {
		return respondWithEngineError(c, err, req.ID)
	}

	return c.JSON(RPCResponse{
		Data:    job,
		Success: true,
		ID:      req.ID,
	})
}

// Complete handles a provider delivering a result and settling payment
func (h *JobHandlers) Complete(c *fiber.Ctx, req RPCRequest) error {
	params, err := parseParams[JobCompleteParams](req)
	if err != nil {
		return respondWithRPCError(c, fiber.StatusBadRequest, ErrMsgInvalidParams, err.Error(), req.ID)
	}
	if err := params.Validate(); err != nil {
		return respondWithRPCError(c, fiber.StatusBadRequest, ErrMsgInvalidParams, err.Error(), req.ID)
	}

	job, err := h.ledger.CompleteJob(c.Context(), params.ProviderID, params.JobID,
		params.OutputHash, params.ProofHash, params.QualityScore)
	if err != nil {
		return respondWithEngineError(c, err, req.ID)
	}

	return c.JSON(RPCResponse{
		Data:    job,
		Success: true,
		ID:      req.ID,
	})
}

// Cancel handles the client cancelling a still-pending job
func (h *JobHandlers) Cancel(c *fiber.Ctx, req RPCRequest) error {
	params, err := parseParams[JobCancelParams](req)
	if err != nil {
		return respondWithRPCError(c, fiber.StatusBadRequest, ErrMsgInvalidParams, err.Error(), req.ID)
	}
	if err := params.Validate(); err != nil {
		return respondWithRPCError(c, fiber.StatusBadRequest, ErrMsgInvalidParams, err.Error(), req.ID)
	}

	refunded, err := h.ledger.CancelJob(c.Context(), params.ClientID, params.JobID)
	if err != nil {
		return respondWithEngineError(c, err, req.ID)
	}

	return c.JSON(RPCResponse{
		Data: types.SettlementResponse{
			JobID:  params.JobID,
			Amount: refunded,
			Phase:  models.JobPhaseCancelled.String(),
		},
		Success: true,
		ID:      req.ID,
	})
}

// Expire handles settling a job whose deadline has passed
func (h *JobHandlers) Expire(c *fiber.Ctx, req RPCRequest) error {
	params, err := parseParams[JobExpireParams](req)
	if err != nil {
		return respondWithRPCError(c, fiber.StatusBadRequest, ErrMsgInvalidParams, err.Error(), req.ID)
	}
	if err := params.Validate(); err != nil {
		return respondWithRPCError(c, fiber.StatusBadRequest, ErrMsgInvalidParams, err.Error(), req.ID)
	}

	job, err := h.ledger.ExpireJob(c.Context(), params.JobID, time.Now())
	if err != nil {
		return respondWithEngineError(c, err, req.ID)
	}

	return c.JSON(RPCResponse{
		Data:    job,
		Success: true,
		ID:      req.ID,
	})
}

// Rate handles the client rating a completed job's quality
func (h *JobHandlers) Rate(c *fiber.Ctx, req RPCRequest) error {
	params, err := parseParams[JobRateParams](req)
	if err != nil {
		return respondWithRPCError(c, fiber.StatusBadRequest, ErrMsgInvalidParams, err.Error(), req.ID)
	}
	if err := params.Validate(); err != nil {
		return respondWithRPCError(c, fiber.StatusBadRequest, ErrMsgInvalidParams, err.Error(), req.ID)
	}

	if err := h.ledger.RateJobQuality(c.Context(), params.ClientID, params.JobID, params.Rating); err != nil {
		return respondWithEngineError(c, err, req.ID)
	}

	return c.JSON(RPCResponse{
		Success: true,
		ID:      req.ID,
	})
}
