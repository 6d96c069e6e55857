package models

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// EscrowStatus represents the settlement state of an escrow entry
type EscrowStatus int

// Escrow status constants
const (
	// EscrowStatusUnknown represents an unknown or invalid escrow status
	EscrowStatusUnknown EscrowStatus = iota
	// EscrowStatusLocked indicates funds are held by the vault
	EscrowStatusLocked
	// EscrowStatusReleased indicates funds were paid out (fully or via split)
	EscrowStatusReleased
	// EscrowStatusRefunded indicates funds were returned to the client
	EscrowStatusRefunded
)

var escrowStatusNames = []string{"unknown", "locked", "released", "refunded"}

// ParseEscrowStatus converts a string representation to EscrowStatus
func ParseEscrowStatus(str string) (EscrowStatus, error) {
	for i, name := range escrowStatusNames {
		if name == str {
			return EscrowStatus(i), nil
		}
	}
	return EscrowStatusUnknown, fmt.Errorf("invalid escrow status: %s", str)
}

func (s EscrowStatus) String() string {
	if int(s) < 0 || int(s) >= len(escrowStatusNames) {
		return escrowStatusNames[EscrowStatusUnknown]
	}
	return escrowStatusNames[s]
}

// MarshalJSON implements the json.Marshaler interface for EscrowStatus
func (s EscrowStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for EscrowStatus
func (s *EscrowStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	status, err := ParseEscrowStatus(str)
	if err != nil {
		return err
	}
	*s = status
	return nil
}

// EscrowEntry custodies the locked payment for one job. Exactly one entry
// exists per job from submission until release or refund; Remaining tracks
// the unpaid portion so a partial split keeps the books reconcilable.
type EscrowEntry struct {
	gorm.Model
	JobID     uint         `json:"job_id" gorm:"not null;uniqueIndex"`
	ClientID  string       `json:"client_id" gorm:"not null;index"`
	Amount    int64        `json:"amount" gorm:"not null"`
	Remaining int64        `json:"remaining" gorm:"not null"`
	Status    EscrowStatus `json:"status" gorm:"index"`

	LockedAt   time.Time  `json:"locked_at"`
	ReleasedAt *time.Time `json:"released_at,omitempty"`
	RefundedAt *time.Time `json:"refunded_at,omitempty"`
}

// Account is one row of the balance ledger the vault moves value through.
// Any persistent, append-only, crash-consistent store satisfies the escrow
// contract; this is the reference gorm-backed implementation.
type Account struct {
	gorm.Model
	Owner   string `json:"owner" gorm:"not null;uniqueIndex"`
	Balance int64  `json:"balance" gorm:"not null;default:0"`
}

// ReversalObligation records a clawback owed to a client after a dispute was
// resolved in their favor once payment had already been released. Rows stay
// open until the provider balance covers the amount.
type ReversalObligation struct {
	gorm.Model
	JobID      uint       `json:"job_id" gorm:"not null;index"`
	DisputeID  uint       `json:"dispute_id" gorm:"not null;index"`
	ProviderID string     `json:"provider_id" gorm:"not null;index"`
	ClientID   string     `json:"client_id" gorm:"not null"`
	Amount     int64      `json:"amount" gorm:"not null"`
	Settled    bool       `json:"settled" gorm:"not null;default:false;index"`
	SettledAt  *time.Time `json:"settled_at,omitempty"`
}
