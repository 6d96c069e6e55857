package test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/meshcompute/clearing/internal/db"
	"github.com/meshcompute/clearing/internal/db/repos"
	"github.com/meshcompute/clearing/internal/ledger"
	"github.com/meshcompute/clearing/pkg/api/v1/client"
	"github.com/meshcompute/clearing/pkg/api/v1/handlers"
	"github.com/meshcompute/clearing/pkg/api/v1/routes"
)

// DefaultTestTimeout is the default timeout for test suites.
const DefaultTestTimeout = 30 * time.Second

// testClientTimeout is the timeout for test API client requests
const testClientTimeout = 5 * time.Second

// Arbiter is the arbiter identity registered with the test engine
const Arbiter = "arbiter-1"

// Suite encapsulates all components needed for integration testing.
// It provides a complete test setup with:
//   - In-memory database
//   - Real API server
//   - Real API client
type Suite struct {
	t *testing.T // The testing.T instance for this suite

	// Server components
	App    *fiber.App
	Server *httptest.Server

	// Client components
	APIClient client.Client

	// Engine components
	Ledger *ledger.Ledger

	// Database components
	DB          *gorm.DB
	JobRepo     *repos.JobRepository
	AccountRepo *repos.AccountRepository

	// Context management
	ctx        context.Context
	cancelFunc context.CancelFunc

	// Cleanup function
	cleanup func()
}

// NewSuite creates a new test suite. The suite must be cleaned up after use
// by calling Cleanup.
func NewSuite(t *testing.T) *Suite {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), DefaultTestTimeout)

	s := &Suite{
		t:          t,
		ctx:        ctx,
		cancelFunc: cancel,
	}

	s.cleanup = func() {
		if s.Server != nil {
			s.Server.Close()
		}
		if s.cancelFunc != nil {
			s.cancelFunc()
		}
		if s.DB != nil {
			sqlDB, err := s.DB.DB()
			if err == nil && sqlDB != nil {
				_ = sqlDB.Close()
			}
		}
	}

	setupDB(s)
	setupServer(s)

	return s
}

// setupDB configures the suite with an in-memory database
func setupDB(s *Suite) {
	gormDB, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_json=1"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(s.t, err, "Failed to create in-memory database")
	require.NoError(s.t, db.Migrate(gormDB), "Failed to run database migrations")

	s.DB = gormDB
	s.JobRepo = repos.NewJobRepository(gormDB)
	s.AccountRepo = repos.NewAccountRepository(gormDB)
}

// setupServer configures the suite with a real API server and client
func setupServer(s *Suite) {
	s.App = fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	cfg := ledger.DefaultConfig()
	cfg.Arbiters = []string{Arbiter}
	s.Ledger = ledger.New(s.DB, cfg, nil, nil)

	queryHandler := handlers.NewQueryHandler(s.Ledger)
	rpcHandler := &handlers.RPCHandler{
		JobHandlers:     handlers.NewJobHandlers(s.Ledger),
		DisputeHandlers: handlers.NewDisputeHandlers(s.Ledger),
	}

	routes.RegisterRoutes(s.App, queryHandler, rpcHandler)

	// Convert the Fiber app to an http.Handler so httptest can serve it
	s.Server = httptest.NewServer(adaptor.FiberApp(s.App))

	apiClient, err := client.NewClient(&client.Options{
		BaseURL: s.Server.URL,
		Timeout: testClientTimeout,
	})
	require.NoError(s.t, err, "Failed to create API client")
	s.APIClient = apiClient
}

// Cleanup tears down the test suite, releasing all resources.
// This should be deferred immediately after creating the suite.
func (s *Suite) Cleanup() {
	if s.cleanup != nil {
		s.cleanup()
	}
}

// Context returns the suite's context, which is automatically
// canceled when the suite is cleaned up.
func (s *Suite) Context() context.Context {
	return s.ctx
}

// Require returns a require.Assertions instance for this suite.
// This is a convenience method to avoid passing t around.
func (s *Suite) Require() *require.Assertions {
	return require.New(s.t)
}

// Fund credits an account so escrow locks against it can succeed
func (s *Suite) Fund(owner string, amount int64) {
	s.Require().NoError(s.AccountRepo.Credit(s.ctx, owner, amount))
}

// Balance reads an account balance, treating a missing account as zero
func (s *Suite) Balance(owner string) int64 {
	balance, err := s.AccountRepo.Balance(s.ctx, owner)
	s.Require().NoError(err)
	return balance
}
