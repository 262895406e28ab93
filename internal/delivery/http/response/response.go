package response

import (
	"github.com/google/uuid"

	"github.com/user/prospector/internal/entity"
)

type SubmitHarvestResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	JobID   uuid.UUID       `json:"job_id"`
	State   entity.JobState `json:"state"`
}

// SiteVerdictResponse is the verdict of one site, echoing the submitted URL.
type SiteVerdictResponse struct {
	URL string `json:"url"`
	entity.SiteVerdict
}

type ErrorResponse struct {
	Error string `json:"error"`
}
