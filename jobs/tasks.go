// Package jobs hosts background workers: periodic integrity sweeps over the
// books and the asynq plumbing that schedules them.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBooksIntegrity sweeps ledger groups and stock aggregates for drift.
	TaskBooksIntegrity = "books:integrity"
)

// BooksIntegrityPayload narrows an integrity sweep. A zero FirmID means all
// firms.
type BooksIntegrityPayload struct {
	FirmID int64 `json:"firm_id,omitempty"`
}

// NewBooksIntegrityTask constructs an asynq task for an integrity sweep.
func NewBooksIntegrityTask(payload BooksIntegrityPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBooksIntegrity, data), nil
}
