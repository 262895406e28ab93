package request

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/prospector/internal/entity"
)

func TestSubmitHarvestRequest_ToEntity(t *testing.T) {
	var req SubmitHarvestRequest
	require.NoError(t, json.Unmarshal([]byte(`{
		"role_description": "plombier",
		"areas": ["Paris 11", "Lyon"],
		"per_area_cap": 20,
		"force": true
	}`), &req))

	assert.True(t, req.Force)
	assert.Equal(t, entity.HarvestRequest{
		RoleDescription: "plombier",
		Areas:           []string{"Paris 11", "Lyon"},
		PerAreaCap:      20,
	}, req.ToEntity())
}
