package entity

import (
	"time"

	"github.com/google/uuid"
)

// HarvestRequest is the caller input of one harvest run.
type HarvestRequest struct {
	RoleDescription string   `json:"role_description"`
	Areas           []string `json:"areas"`
	PerAreaCap      int      `json:"per_area_cap"`
}

// HarvestSession holds the running counters of one harvest invocation.
type HarvestSession struct {
	RoleDescription string
	Areas           []string
	PerAreaCap      int

	TotalExtracted int
	TotalKept      int
	TotalDuplicate int
	TotalAdequate  int
	TotalSkipped   int
	AreasCompleted int
	AreasFailed    int
}

// HarvestProgress is reported after each area.
type HarvestProgress struct {
	Area       string `json:"area"`
	AreaIndex  int    `json:"area_index"`
	TotalAreas int    `json:"total_areas"`
	Found      int    `json:"found"`
	Kept       int    `json:"kept"`
	Duplicates int    `json:"duplicates"`
	Failed     bool   `json:"failed"`
}

// HarvestResult is what a harvest yields to its caller.
type HarvestResult struct {
	Survivors      []CandidateRecord `json:"survivors"`
	TotalFound     int               `json:"total_found"`
	TotalKept      int               `json:"total_kept"`
	TotalDuplicate int               `json:"total_duplicate"`
	TotalAdequate  int               `json:"total_adequate"`
	AreasProcessed []string          `json:"areas_processed"`
	AreasFailed    []string          `json:"areas_failed,omitempty"`
}

// HarvestReport adds persistence outcomes to a harvest result.
type HarvestReport struct {
	RoleDescription string   `json:"role_description"`
	Areas           []string `json:"areas"`
	TotalFound      int      `json:"total_found"`
	TotalKept       int      `json:"total_kept"`
	TotalSaved      int      `json:"total_saved"`
	TotalDuplicates int      `json:"total_duplicates"`
	TotalSaveFailed int      `json:"total_save_failed"`
	AreasProcessed  []string `json:"areas_processed"`
	AreasFailed     []string `json:"areas_failed,omitempty"`
}

// JobState is the lifecycle stage of a queued harvest.
type JobState string

const (
	JobPending   JobState = "pending"
	JobRunning   JobState = "running"
	JobCompleted JobState = "completed"
	JobFailed    JobState = "failed"
	JobNotFound  JobState = "not_found"
)

// HarvestJob is a harvest request waiting in the queue.
type HarvestJob struct {
	ID          uuid.UUID      `json:"id"`
	Request     HarvestRequest `json:"request"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// JobStatus is the externally visible state of a harvest job.
type JobStatus struct {
	JobID      uuid.UUID      `json:"job_id"`
	State      JobState       `json:"state"`
	Report     *HarvestReport `json:"report,omitempty"`
	Failure    string         `json:"failure,omitempty"`
	UpdatedAt  time.Time      `json:"updated_at"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
}
