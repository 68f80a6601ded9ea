package server

import (
	"encoding/json"
	"time"

	"github.com/CESMikef/cadastral-automation/pkg/pipeline"
)

// Status is the lifecycle state of a generation job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// JobRequest is the payload for creating a generation job: the pipeline
// configuration plus the input layers inline as GeoJSON feature collections,
// keyed by the layer names the configuration references.
type JobRequest struct {
	pipeline.Options
	Layers map[string]json.RawMessage `json:"layers"`
}

// Progress is the last reported pipeline stage of a running job.
type Progress struct {
	Step    int    `json:"step"`
	Total   int    `json:"total"`
	Message string `json:"message"`
}

// JobError is the serialized failure of a job.
type JobError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Job is a single asynchronous generation run and its outcome.
type Job struct {
	ID       string           `json:"id"`
	Status   Status           `json:"status"`
	Request  pipeline.Options `json:"request"`
	Progress Progress         `json:"progress"`
	Warnings []string         `json:"warnings,omitempty"`
	Error    *JobError        `json:"error,omitempty"`

	// CancelRequested is set by the cancel endpoint and polled by the
	// pipeline between stages.
	CancelRequested bool `json:"cancel_requested,omitempty"`

	// Result holds the generated layer as GeoJSON once the job succeeds.
	// It is served by the result endpoint, not inlined in status responses.
	Result []byte `json:"result,omitempty"`

	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// StatusView returns a copy of the job suitable for status responses,
// with the potentially large result payload stripped.
func (j *Job) StatusView() *Job {
	view := *j
	view.Result = nil
	return &view
}

// clone returns a deep copy so stored jobs never share mutable state with
// callers.
func (j *Job) clone() *Job {
	c := *j
	if j.Warnings != nil {
		c.Warnings = append([]string(nil), j.Warnings...)
	}
	if j.Result != nil {
		c.Result = append([]byte(nil), j.Result...)
	}
	if j.Error != nil {
		e := *j.Error
		c.Error = &e
	}
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}
