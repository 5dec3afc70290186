// Package domain defines the core persistence models for the application.
// This file holds the records owned by the rate gate and the transaction
// executor. UI-facing code never touches these tables directly; they are
// reached only through the gate/executor contracts.
package domain

import "time"

// TransactionRecord statuses. The state machine is
// pending -> applied (success) or pending -> failed (failure).
// applied is terminal; failed may be re-attempted up to a configured bound.
const (
	TransactionPending = "pending"
	TransactionApplied = "applied"
	TransactionFailed  = "failed"
)

// TransactionRecord pins an externally supplied reference (e.g., a payment
// provider capture ID) to at most one applied state transition. The unique
// index on ExternalRef is the sole idempotence mechanism: concurrent calls
// with the same reference race on the insert and the loser observes the
// winner's record.
type TransactionRecord struct {
	ID          string     `json:"id"           gorm:"type:char(36);primaryKey"`
	ExternalRef string     `json:"external_ref" gorm:"type:varchar(128);not null;uniqueIndex:ux_transaction_external_ref"`
	Kind        string     `json:"kind"         gorm:"type:varchar(32);not null"`
	Status      string     `json:"status"       gorm:"type:varchar(16);not null;default:'pending';check:status IN ('pending','applied','failed')"`
	Attempts    int        `json:"attempts"     gorm:"not null;default:0"`
	LastError   string     `json:"last_error,omitempty" gorm:"type:text"`
	AppliedAt   *time.Time `json:"applied_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName returns the database table name for TransactionRecord.
func (TransactionRecord) TableName() string { return "transaction_records" }

// Terminal reports whether the record can never transition again.
// failed is deliberately not terminal: a later call with the same external
// reference may re-attempt the transition within the configured retry bound.
func (t *TransactionRecord) Terminal() bool { return t.Status == TransactionApplied }

// RateWindow is one admission-control window for an (identity, policy) pair.
// Rows are ephemeral: a rollover overwrites WindowStart and resets Count
// in place rather than inserting history.
type RateWindow struct {
	ID          string    `json:"id"           gorm:"type:char(36);primaryKey"`
	IdentityID  string    `json:"identity_id"  gorm:"type:char(36);not null;uniqueIndex:ux_rate_identity_policy,priority:1"`
	Policy      string    `json:"policy"       gorm:"type:varchar(64);not null;uniqueIndex:ux_rate_identity_policy,priority:2"`
	WindowStart time.Time `json:"window_start" gorm:"not null"`
	Count       int       `json:"count"        gorm:"not null;default:0"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName returns the database table name for RateWindow.
func (RateWindow) TableName() string { return "rate_windows" }
