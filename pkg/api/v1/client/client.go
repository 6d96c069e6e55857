// Package client provides the API client for interacting with the clearing API
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/meshcompute/clearing/internal/db/models"
	"github.com/meshcompute/clearing/internal/types"
	"github.com/meshcompute/clearing/pkg/api/v1/handlers"
	"github.com/meshcompute/clearing/pkg/api/v1/routes"
)

// DefaultTimeout is the default timeout for API requests
const DefaultTimeout = 30 * time.Second

// Client is the interface for API client
type Client interface {
	// Health Check
	HealthCheck(ctx context.Context) (map[string]string, error)

	// Job read endpoints
	GetJob(ctx context.Context, id string) (models.Job, error)
	GetJobHistory(ctx context.Context, id string) ([]models.PhaseEvent, error)
	ListJobs(ctx context.Context, participant string, page int) ([]models.Job, error)

	// Provider and analytics read endpoints
	GetProviderStats(ctx context.Context, providerID string) (types.ProviderStatsView, error)
	GetAnalytics(ctx context.Context) (types.PlatformAnalytics, error)

	// Job methods
	SubmitJob(ctx context.Context, params handlers.JobSubmitParams) (models.Job, error)
	ClaimJob(ctx context.Context, params handlers.JobClaimParams) (models.Job, error)
	StartJob(ctx context.Context, params handlers.JobStartParams) (models.Job, error)
	CompleteJob(ctx context.Context, params handlers.JobCompleteParams) (models.Job, error)
	CancelJob(ctx context.Context, params handlers.JobCancelParams) (types.SettlementResponse, error)
	ExpireJob(ctx context.Context, params handlers.JobExpireParams) (models.Job, error)
	RateJob(ctx context.Context, params handlers.JobRateParams) error

	// Dispute methods
	CreateDispute(ctx context.Context, params handlers.DisputeCreateParams) (models.Dispute, error)
	ResolveDispute(ctx context.Context, params handlers.DisputeResolveParams) (models.Dispute, error)
}

var _ Client = &APIClient{}

// Options contains configuration options for the API client
type Options struct {
	// BaseURL is the base URL of the API
	BaseURL string

	// Timeout is the request timeout
	Timeout time.Duration
}

// DefaultOptions returns the default client options
func DefaultOptions() *Options {
	return &Options{
		BaseURL: routes.DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// APIClient implements the Client interface
type APIClient struct {
	baseURL string
	timeout time.Duration
}

// NewClient creates a new API client with the given options
func NewClient(opts *Options) (Client, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	// Validate the base URL
	_, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	return &APIClient{
		baseURL: opts.BaseURL,
		timeout: opts.Timeout,
	}, nil
}

// createAgent creates a new Fiber Agent for the given method and endpoint
func (c *APIClient) createAgent(ctx context.Context, method, endpoint string, body interface{}) (*fiber.Agent, error) {
	fullURL := c.baseURL + endpoint

	var agent *fiber.Agent
	switch method {
	case http.MethodGet:
		agent = fiber.Get(fullURL)
	case http.MethodPost:
		agent = fiber.Post(fullURL)
	case http.MethodPut:
		agent = fiber.Put(fullURL)
	case http.MethodDelete:
		agent = fiber.Delete(fullURL)
	default:
		return nil, fmt.Errorf("unsupported HTTP method: %s", method)
	}

	// Set timeout from context or client default
	if deadline, ok := ctx.Deadline(); ok {
		agent.Timeout(time.Until(deadline))
	} else {
		agent.Timeout(c.timeout)
	}

	agent.Set("Content-Type", "application/json")
	agent.Set("Accept", "application/json")

	if body != nil {
		agent.JSON(body)
	}

	return agent, nil
}

// executeRequest creates an agent, sends the request, and processes the response
func (c *APIClient) executeRequest(ctx context.Context, method, endpoint string, body, response interface{}) error {
	agent, err := c.createAgent(ctx, method, endpoint, body)
	if err != nil {
		return err
	}

	statusCode, respBody, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("error sending request: %w", errs[0])
	}

	if statusCode < 200 || statusCode >= 300 {
		// If we can't decode the error response, return an error with the raw body as the message
		return &fiber.Error{
			Code:    statusCode,
			Message: string(respBody),
		}
	}

	if response != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, response); err != nil {
			return fmt.Errorf("error decoding response: %w", err)
		}
	}

	return nil
}

// executeRPC performs the actual RPC call
func (c *APIClient) executeRPC(ctx context.Context, method string, params interface{}, result interface{}) error {
	endpoint := routes.RPCURL()

	requestBody := map[string]interface{}{
		"method": method,
		"params": params,
	}

	agent, err := c.createAgent(ctx, http.MethodPost, endpoint, requestBody)
	if err != nil {
		return err
	}

	statusCode, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("error sending RPC request: %w", errs[0])
	}

	// The RPC envelope carries the failure details; decode it even on
	// non-2xx codes so callers see the engine's message.
	var rpcResp handlers.RPCResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		if statusCode < 200 || statusCode >= 300 {
			return &fiber.Error{
				Code:    statusCode,
				Message: string(body),
			}
		}
		return fmt.Errorf("failed to unmarshal RPC response body: %w", err)
	}

	if rpcResp.Error != nil {
		return fmt.Errorf("RPC error: %s (code: %d)", rpcResp.Error.Message, rpcResp.Error.Code)
	}

	if !rpcResp.Success {
		return fmt.Errorf("RPC call failed without specific error details")
	}

	// If result is nil, we don't need to unmarshal data
	if result == nil {
		return nil
	}

	// rpcResp.Data is interface{}; marshal it back to JSON and unmarshal into
	// the target result struct
	dataBytes, err := json.Marshal(rpcResp.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal RPC data field: %w", err)
	}

	if err := json.Unmarshal(dataBytes, result); err != nil {
		return fmt.Errorf("failed to unmarshal RPC data into result: %w", err)
	}

	return nil
}

// Health check implementation

// HealthCheck checks the health of the API
func (c *APIClient) HealthCheck(ctx context.Context) (map[string]string, error) {
	endpoint := routes.HealthCheckURL()
	var response map[string]string
	if err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return map[string]string{}, err
	}
	return response, nil
}

// Job read methods implementation

// GetJob retrieves a job by ID
func (c *APIClient) GetJob(ctx context.Context, id string) (models.Job, error) {
	endpoint := routes.GetJobURL(id)
	var response models.Job
	if err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return models.Job{}, err
	}
	return response, nil
}

// GetJobHistory retrieves the phase transition log of a job
func (c *APIClient) GetJobHistory(ctx context.Context, id string) ([]models.PhaseEvent, error) {
	endpoint := routes.GetJobHistoryURL(id)
	var response []models.PhaseEvent
	if err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}
	return response, nil
}

// ListJobs lists jobs visible to a participant. An empty participant lists
// all jobs.
func (c *APIClient) ListJobs(ctx context.Context, participant string, page int) ([]models.Job, error) {
	q := url.Values{}
	if participant != "" {
		q.Set("participant", participant)
	}
	if page > 1 {
		q.Set("page", fmt.Sprintf("%d", page))
	}

	endpoint := routes.GetJobsURL(q)
	var response types.ListResponse[models.Job]
	if err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return []models.Job{}, err
	}
	return response.Rows, nil
}

// GetProviderStats retrieves the participation record of a provider
func (c *APIClient) GetProviderStats(ctx context.Context, providerID string) (types.ProviderStatsView, error) {
	endpoint := routes.GetProviderStatsURL(providerID)
	var response types.ProviderStatsView
	if err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return types.ProviderStatsView{}, err
	}
	return response, nil
}

// GetAnalytics retrieves marketplace-wide aggregates
func (c *APIClient) GetAnalytics(ctx context.Context) (types.PlatformAnalytics, error) {
	endpoint := routes.GetAnalyticsURL()
	var response types.PlatformAnalytics
	if err := c.executeRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return types.PlatformAnalytics{}, err
	}
	return response, nil
}

// Job methods implementation

// SubmitJob funds and creates a new job
func (c *APIClient) SubmitJob(ctx context.Context, params handlers.JobSubmitParams) (models.Job, error) {
	var job models.Job
	if err := c.executeRPC(ctx, handlers.JobSubmit, params, &job); err != nil {
		return models.Job{}, err
	}
	return job, nil
}

// ClaimJob claims a pending job for a provider
func (c *APIClient) ClaimJob(ctx context.Context, params handlers.JobClaimParams) (models.Job, error) {
	var job models.Job
	if err := c.executeRPC(ctx, handlers.JobClaim, params, &job); err != nil {
		return models.Job{}, err
	}
	return job, nil
}

// StartJob marks a claimed job as running
func (c *APIClient) StartJob(ctx context.Context, params handlers.JobStartParams) (models.Job, error) {
	var job models.Job
	if err := c.executeRPC(ctx, handlers.JobStart, params, &job); err != nil {
		return models.Job{}, err
	}
	return job, nil
}

// CompleteJob delivers a result and settles payment
func (c *APIClient) CompleteJob(ctx context.Context, params handlers.JobCompleteParams) (models.Job, error) {
	var job models.Job
	if err := c.executeRPC(ctx, handlers.JobComplete, params, &job); err != nil {
		return models.Job{}, err
	}
	return job, nil
}

// CancelJob cancels a still-pending job and refunds the client
func (c *APIClient) CancelJob(ctx context.Context, params handlers.JobCancelParams) (types.SettlementResponse, error) {
	var response types.SettlementResponse
	if err := c.executeRPC(ctx, handlers.JobCancel, params, &response); err != nil {
		return types.SettlementResponse{}, err
	}
	return response, nil
}

// ExpireJob settles a job whose deadline has passed
func (c *APIClient) ExpireJob(ctx context.Context, params handlers.JobExpireParams) (models.Job, error) {
	var job models.Job
	if err := c.executeRPC(ctx, handlers.JobExpire, params, &job); err != nil {
		return models.Job{}, err
	}
	return job, nil
}

// RateJob records the client's quality rating for a completed job
func (c *APIClient) RateJob(ctx context.Context, params handlers.JobRateParams) error {
	return c.executeRPC(ctx, handlers.JobRate, params, nil)
}

// Dispute methods implementation

// CreateDispute contests a completed job's outcome
func (c *APIClient) CreateDispute(ctx context.Context, params handlers.DisputeCreateParams) (models.Dispute, error) {
	var record models.Dispute
	if err := c.executeRPC(ctx, handlers.DisputeCreate, params, &record); err != nil {
		return models.Dispute{}, err
	}
	return record, nil
}

// ResolveDispute applies an arbiter ruling to an open dispute
func (c *APIClient) ResolveDispute(ctx context.Context, params handlers.DisputeResolveParams) (models.Dispute, error) {
	var record models.Dispute
	if err := c.executeRPC(ctx, handlers.DisputeResolve, params, &record); err != nil {
		return models.Dispute{}, err
	}
	return record, nil
}
