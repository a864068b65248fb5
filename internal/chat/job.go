package chat

import "time"

type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// TurnJob is the durable record of an asynchronously submitted turn. The
// worker picks it up off the queue, drives the coordinator, and records the
// outcome here.
type TurnJob struct {
	ID string `gorm:"primaryKey;size:26"` // ULID length

	ConversationID string `gorm:"type:varchar(64);index;not null"`
	Prompt         string `gorm:"type:text;not null"`

	Status JobStatus `gorm:"type:varchar(16);index;not null"`

	// Filled when succeeded
	ResultMessageID *string `gorm:"type:varchar(36);index"`

	// Filled when failed
	Error *string `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (TurnJob) TableName() string { return "chat_turn_jobs" }
