package queue

import (
	"time"

	"github.com/anirbandas/job-apply-agent/internal/portal"
)

// Status names one of the per-user queues.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRejected Status = "rejected"
	StatusClarify  Status = "clarify"
	StatusApplied  Status = "applied"
)

// Statuses lists every queue in presentation order.
var Statuses = []Status{StatusPending, StatusRejected, StatusClarify, StatusApplied}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusRejected, StatusClarify, StatusApplied:
		return true
	}
	return false
}

// Record is one entry of a queue file. Job is always present. Clarification
// is attached lazily to clarify-queue records; Application and ApplicationID
// are filled only for applied records.
type Record struct {
	Job           *portal.Job         `json:"job"`
	Clarification string              `json:"clarification,omitempty"`
	Application   *portal.Application `json:"application,omitempty"`
	ApplicationID string              `json:"application_id,omitempty"`
	RecordedAt    time.Time           `json:"recorded_at"`
}

func (r Record) JobID() string {
	if r.Job == nil {
		return ""
	}
	return r.Job.ID
}
