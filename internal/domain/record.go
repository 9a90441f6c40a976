package domain

// RecordStatus is the lifecycle state of a ConversationRecord.
type RecordStatus string

const (
	StatusPending   RecordStatus = "pending"
	StatusCompleted RecordStatus = "completed"
	StatusFailed    RecordStatus = "failed"
)

// ConversationRecord is one recording session for a chat. For any chat at
// most one record is pending at a time; the store enforces this.
type ConversationRecord struct {
	ID             string
	ChatID         string
	ChatName       string
	StartMessageID string
	EndMessageID   string
	StartTimestamp int64 // unix seconds
	EndTimestamp   int64
	Items          []string
	Summary        string
	Status         RecordStatus
}
