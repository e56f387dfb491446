package models

import "time"

type EncodingStatus string

const (
	StatusPending    EncodingStatus = "Pending"
	StatusProcessing EncodingStatus = "Processing"
	StatusSuccess    EncodingStatus = "Success"
	StatusFailed     EncodingStatus = "Failed"
)

// Terminal reports whether the status can no longer change for a given attempt.
func (s EncodingStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// EncodeJob lives only inside the in-memory queue between enqueue and dequeue.
// Name is derived from the generated source file identity, never from the
// client-supplied filename.
type EncodeJob struct {
	Name       string
	SourcePath string
	Attempts   int
}

// VideoStatus is the persisted, externally visible mirror of a job's progress.
// Only the latest state per name survives; it is the only state that outlives
// a worker restart.
type VideoStatus struct {
	Name      string         `json:"name" db:"name" redis:"name" validate:"required,lte=255"`
	Status    EncodingStatus `json:"status" db:"status" redis:"status" validate:"required"`
	Message   string         `json:"message" db:"message" redis:"message"`
	CreatedAt time.Time      `json:"created_at" db:"created_at" redis:"created_at"`
	UpdatedAt time.Time      `json:"updated_at" db:"updated_at" redis:"updated_at"`
}
