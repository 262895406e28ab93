package request

import "github.com/user/prospector/internal/entity"

type SubmitHarvestRequest struct {
	RoleDescription string   `json:"role_description"`
	Areas           []string `json:"areas"`
	PerAreaCap      int      `json:"per_area_cap"`
	// Force queues the harvest even if the same one was submitted recently.
	Force bool `json:"force"`
}

func (r SubmitHarvestRequest) ToEntity() entity.HarvestRequest {
	return entity.HarvestRequest{
		RoleDescription: r.RoleDescription,
		Areas:           r.Areas,
		PerAreaCap:      r.PerAreaCap,
	}
}

type ValidateSiteRequest struct {
	URL string `json:"url"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}
