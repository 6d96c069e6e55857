// Package constants provides centralized definitions of constants used throughout the application
package constants

// Environment variable names
const (
	// EnvServerPort is the port the API server listens on
	EnvServerPort = "CLEARING_PORT"

	// EnvFeeBps is the platform fee taken on completion, in basis points
	EnvFeeBps = "CLEARING_FEE_BPS"

	// EnvDisputeWindow is the duration after completion during which a
	// dispute may be raised (Go duration syntax)
	EnvDisputeWindow = "CLEARING_DISPUTE_WINDOW"

	// EnvArbiters is the comma-separated list of participant IDs holding the
	// arbiter capability
	EnvArbiters = "CLEARING_ARBITERS"

	// EnvMinClaimReputation is the minimum reputation score a provider needs
	// to claim jobs
	EnvMinClaimReputation = "CLEARING_MIN_CLAIM_REPUTATION"

	// EnvAMQPURL is the RabbitMQ connection URL for lifecycle events; events
	// are disabled when unset
	EnvAMQPURL = "CLEARING_AMQP_URL"

	// EnvDBHost is the database host
	EnvDBHost = "CLEARING_DB_HOST"
	// EnvDBPort is the database port
	EnvDBPort = "CLEARING_DB_PORT"
	// EnvDBUser is the database user
	EnvDBUser = "CLEARING_DB_USER"
	// EnvDBPassword is the database password
	EnvDBPassword = "CLEARING_DB_PASSWORD"
	// EnvDBName is the database name
	EnvDBName = "CLEARING_DB_NAME"
)
