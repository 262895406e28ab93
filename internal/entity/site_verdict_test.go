package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSiteCategory_Known(t *testing.T) {
	for _, c := range []SiteCategory{
		CategoryNoSite, CategoryDirectory, CategorySocialOnly, CategoryPlatform,
		CategoryNonResponsive, CategoryOutdated, CategoryValid,
	} {
		assert.True(t, c.Known(), c)
	}
	assert.False(t, SiteCategory("manual_review").Known())
}
