package models

import (
	"time"

	"gorm.io/gorm"
)

// PhaseEvent is the append-only phase history log. One row is written inside
// the same transaction as every phase transition, so the log replays exactly
// the edges the ledger committed.
type PhaseEvent struct {
	gorm.Model
	JobID     uint      `json:"job_id" gorm:"not null;index"`
	FromPhase JobPhase  `json:"from_phase"`
	ToPhase   JobPhase  `json:"to_phase"`
	Actor     string    `json:"actor" gorm:"not null"` // participant ID, or "system" for expiry
	At        time.Time `json:"at" gorm:"index"`
}
