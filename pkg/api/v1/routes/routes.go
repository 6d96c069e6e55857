// Package routes defines the API routes and URL structure
package routes

import (
	"fmt"
	"net/url"
	"strings"
	"sync"

	fiber "github.com/gofiber/fiber/v2"

	"github.com/meshcompute/clearing/pkg/api/v1/handlers"
)

// API base configuration
const (
	// DefaultPort is the default port for the API
	DefaultPort = "8080"
	// APIv1Prefix is the prefix for all API endpoints
	APIv1Prefix = "/api/v1"
)

// DefaultBaseURL is the default base URL for the API
var DefaultBaseURL = fmt.Sprintf("http://localhost:%s", DefaultPort)

// Route names for lookup
const (
	// Health check
	HealthCheck = "HealthCheck"

	// Job routes
	GetJobs       = "GetJobs"
	GetJob        = "GetJob"
	GetJobHistory = "GetJobHistory"

	// Provider routes
	GetProviderStats = "GetProviderStats"

	// Analytics routes
	GetAnalytics = "GetAnalytics"

	// RPC routes
	RPC = "RPC"
)

// routeCache stores extracted routes for use prior to compilation
var (
	routeCache     map[string]string
	routeCacheMu   sync.RWMutex
	routeCacheInit sync.Once
)

// RegisterRoutes configures all the v1 routes
//
// NOTE: route ordering is important because routes will try and match in the
// order they are registered. Param urls (ie /:id) must go after their static
// siblings, otherwise fiber will interpret the static slug as that param.
func RegisterRoutes(
	app *fiber.App,
	queryHandler *handlers.QueryHandler,
	rpcHandler *handlers.RPCHandler,
) {
	// API v1 routes
	v1 := app.Group(APIv1Prefix)

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	}).Name(HealthCheck)

	// Job endpoints
	jobs := v1.Group("/jobs")
	jobs.Get("/", queryHandler.ListJobs).Name(GetJobs)
	jobs.Get("/:id", queryHandler.GetJob).Name(GetJob)
	jobs.Get("/:id/history", queryHandler.GetJobHistory).Name(GetJobHistory)

	// Provider endpoints
	providers := v1.Group("/providers")
	providers.Get("/:id/stats", queryHandler.GetProviderStats).Name(GetProviderStats)

	// Analytics endpoint
	v1.Get("/analytics", queryHandler.GetAnalytics).Name(GetAnalytics)

	// RPC endpoint as the root handler for all mutating operations
	v1.Post("/", rpcHandler.HandleRPC).Name(RPC)
}

// initRouteCache initializes the route cache by creating a mock app and extracting routes
func initRouteCache() {
	routeCacheInit.Do(func() {
		routeCache = make(map[string]string)

		app := fiber.New()

		// Register routes with mock handlers; job and dispute mutations are
		// handled via RPC
		mockQueryHandler := &handlers.QueryHandler{}
		mockRPCHandler := &handlers.RPCHandler{}
		RegisterRoutes(app, mockQueryHandler, mockRPCHandler)

		for _, route := range app.GetRoutes() {
			if route.Name != "" {
				routeCache[route.Name] = route.Path
			}
		}
	})
}

// GetRoute returns the route pattern for the given route name
func GetRoute(name string) string {
	routeCacheMu.RLock()
	defer routeCacheMu.RUnlock()

	// Initialize cache if needed
	if routeCache == nil {
		routeCacheMu.RUnlock()
		initRouteCache()
		routeCacheMu.RLock()
	}

	return routeCache[name]
}

// BuildURL builds a URL for the given route name and parameters
func BuildURL(routeName string, params map[string]string, queryParams url.Values) string {
	route := GetRoute(routeName)
	if route == "" {
		return ""
	}

	// Replace parameters in the route
	for param, value := range params {
		route = strings.ReplaceAll(route, ":"+param, value)
	}

	// Remove trailing slash if it's a base endpoint with no parameters
	if strings.HasSuffix(route, "/") && !strings.Contains(route, ":") {
		route = strings.TrimSuffix(route, "/")
	}

	// Add query parameters if any
	if len(queryParams) > 0 {
		route = fmt.Sprintf("%s?%s", route, queryParams.Encode())
	}

	return route
}

// Health check route helper

// HealthCheckURL returns the URL for the health check endpoint
func HealthCheckURL() string {
	return BuildURL(HealthCheck, nil, nil)
}

// Job route helpers

// GetJobsURL returns the URL for listing jobs
func GetJobsURL(queryParams url.Values) string {
	return BuildURL(GetJobs, nil, queryParams)
}

// GetJobURL returns the URL for getting a job by ID
func GetJobURL(id string) string {
	return BuildURL(GetJob, map[string]string{"id": id}, nil)
}

// GetJobHistoryURL returns the URL for getting a job's phase history
func GetJobHistoryURL(id string) string {
	return BuildURL(GetJobHistory, map[string]string{"id": id}, nil)
}

// Provider route helpers

// GetProviderStatsURL returns the URL for getting provider stats
func GetProviderStatsURL(id string) string {
	return BuildURL(GetProviderStats, map[string]string{"id": id}, nil)
}

// Analytics route helper

// GetAnalyticsURL returns the URL for the analytics endpoint
func GetAnalyticsURL() string {
	return BuildURL(GetAnalytics, nil, nil)
}

// RPC route helper

// RPCURL returns the URL for the RPC endpoint
func RPCURL() string {
	return BuildURL(RPC, nil, nil)
}
