// Package handlers provides HTTP request handling
package handlers

import (
	"strconv"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/meshcompute/clearing/internal/db/models"
	"github.com/meshcompute/clearing/internal/ledger"
	"github.com/meshcompute/clearing/internal/types"
)

// QueryHandler serves the read-only REST endpoints of the API
type QueryHandler struct {
	ledger *ledger.Ledger
}

// NewQueryHandler creates a new query handler instance
func NewQueryHandler(l *ledger.Ledger) *QueryHandler {
	return &QueryHandler{ledger: l}
}

// GetJob returns a single job by ID
func (h *QueryHandler) GetJob(c *fiber.Ctx) error {
	jobID, err := parseJobID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{
			Error: ErrMsgInvalidJobID,
		})
	}

	job, err := h.ledger.GetJob(c.Context(), jobID)
	if err != nil {
		return c.Status(statusForError(err)).JSON(types.ErrorResponse{
			Error:   ErrMsgJobNotFound,
			Details: err.Error(),
		})
	}

	return c.JSON(job)
}

// GetJobHistory returns the phase transition log of a job, oldest first
func (h *QueryHandler) GetJobHistory(c *fiber.Ctx) error {
	jobID, err := parseJobID(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{
			Error: ErrMsgInvalidJobID,
		})
	}

	events, err := h.ledger.GetJobHistory(c.Context(), jobID)
	if err != nil {
		return c.Status(statusForError(err)).JSON(types.ErrorResponse{
			Error:   ErrMsgJobHistoryFailed,
			Details: err.Error(),
		})
	}

	return c.JSON(events)
}

// ListJobs returns jobs newest first, optionally filtered by participant and
// phase. Supports ?participant=, ?phase= and ?page= query parameters.
func (h *QueryHandler) ListJobs(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	opts := getPaginationOptions(page)

	if phaseStr := c.Query("phase"); phaseStr != "" {
		phase, err := models.ParseJobPhase(phaseStr)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{
				Error:   ErrMsgInvalidParams,
				Details: err.Error(),
			})
		}
		opts.Phase = &phase
	}

	jobs, err := h.ledger.ListJobs(c.Context(), c.Query("participant"), opts)
	if err != nil {
		return c.Status(statusForError(err)).JSON(types.ErrorResponse{
			Error:   ErrMsgJobListFailed,
			Details: err.Error(),
		})
	}

	return c.JSON(types.ListResponse[models.Job]{
		Rows: jobs,
		Pagination: types.PaginationResponse{
			Total:  len(jobs),
			Page:   page,
			Limit:  opts.Limit,
			Offset: opts.Offset,
		},
	})
}

// GetProviderStats returns the participation record and scores of a provider
func (h *QueryHandler) GetProviderStats(c *fiber.Ctx) error {
	providerID := c.Params("id")
	if providerID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(types.ErrorResponse{
			Error: ErrMsgInvalidProviderID,
		})
	}

	stats, err := h.ledger.GetProviderStats(c.Context(), providerID)
	if err != nil {
		return c.Status(statusForError(err)).JSON(types.ErrorResponse{
			Error:   ErrMsgProviderNotFound,
			Details: err.Error(),
		})
	}

	return c.JSON(stats)
}

// GetAnalytics returns marketplace-wide aggregates
func (h *QueryHandler) GetAnalytics(c *fiber.Ctx) error {
	analytics, err := h.ledger.GetPlatformAnalytics(c.Context())
	if err != nil {
		return c.Status(statusForError(err)).JSON(types.ErrorResponse{
			Error:   ErrMsgAnalyticsFailed,
			Details: err.Error(),
		})
	}

	return c.JSON(analytics)
}

// parseJobID extracts the :id path parameter as a job ID
func parseJobID(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
