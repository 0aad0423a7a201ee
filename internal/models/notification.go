package models

import (
	"time"
)

// NotificationLevel is the severity shown to the user
type NotificationLevel string

const (
	NotificationSuccess NotificationLevel = "success"
	NotificationWarning NotificationLevel = "warning"
	NotificationError   NotificationLevel = "error"
)

// Notification is a user-facing message produced by the submission flow
type Notification struct {
	ID        string                 `json:"id"`
	Level     NotificationLevel      `json:"level"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	TxHash    string                 `json:"tx_hash,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// TransactionStatus tracks a submitted write
type TransactionStatus string

const (
	TxStatusPending   TransactionStatus = "pending"
	TxStatusConfirmed TransactionStatus = "confirmed"
	TxStatusFailed    TransactionStatus = "failed"
)

// TransactionRecord is the local history entry for a submitted write
type TransactionRecord struct {
	ID          string            `json:"id" db:"id"`
	Kind        string            `json:"kind" db:"kind"`
	TxHash      string            `json:"tx_hash,omitempty" db:"tx_hash"`
	Account     string            `json:"account" db:"account"`
	Status      TransactionStatus `json:"status" db:"status"`
	Params      map[string]string `json:"params,omitempty" db:"params"`
	BlockNumber *uint64           `json:"block_number,omitempty" db:"block_number"`
	Error       *string           `json:"error,omitempty" db:"error"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at" db:"updated_at"`
}
