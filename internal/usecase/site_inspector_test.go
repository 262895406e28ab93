package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/user/prospector/internal/repository"
	"github.com/user/prospector/pkg/metrics"
)

const inspectedURL = "https://www.plomberie-test.fr/"

func inspect(t *testing.T, site fakeSite, multi bool) (Inspection, error) {
	t.Helper()
	web := newFakeWeb()
	web.sites[inspectedURL] = site
	inspector := NewSiteInspector(testInspectorConfig(), NewPacer(), Delay{}, zaptest.NewLogger(t), nil)
	return inspector.Inspect(context.Background(), newFakeBrowser(web, multi), inspectedURL)
}

func TestSiteInspector_ModernSite(t *testing.T) {
	for _, multi := range []bool{true, false} {
		got, err := inspect(t, modernSite(), multi)
		require.NoError(t, err)
		assert.True(t, got.Responsive)
		assert.False(t, got.Outdated)
		assert.Equal(t, "2024", got.LastSignal)
	}
}

func TestSiteInspector_Responsiveness(t *testing.T) {
	noViewport := modernSite()
	noViewport.HTML = `<html><head></head><body><footer>© 2024</footer></body></html>`

	overflowing := modernSite()
	overflowing.Probe.ScrollWidth = 980

	rigid := modernSite()
	rigid.Probe.Flexible = 5

	probeFails := modernSite()
	probeFails.EvalErr = errors.New("execution context destroyed")

	tests := []struct {
		name string
		site fakeSite
	}{
		{"missing viewport meta", noViewport},
		{"horizontal overflow", overflowing},
		{"few flexible elements", rigid},
		{"probe failure", probeFails},
		{"navigation failure", fakeSite{NavErr: errors.New("timeout")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := inspect(t, tt.site, true)
			require.NoError(t, err)
			assert.False(t, got.Responsive)
		})
	}
}

func TestSiteInspector_MinimumFlexibleElementsIsInclusive(t *testing.T) {
	site := modernSite()
	site.Probe.Flexible = DefaultInspectorConfig().MinFlexibleElements

	got, err := inspect(t, site, false)
	require.NoError(t, err)
	assert.True(t, got.Responsive)
}

func TestSiteInspector_Age(t *testing.T) {
	oldCopyright := modernSite()
	oldCopyright.HTML = `<html><head><meta name="viewport" content="width=device-width"></head>
<body><footer>© 2014 Plomberie</footer></body></html>`

	legacyFont := modernSite()
	legacyFont.Font = `"Comic Sans MS", cursive`

	flash := modernSite()
	flash.HTML = `<html><head><meta name="viewport" content="width=device-width"></head>
<body><object data="/anim.swf"></object><footer>© 2022</footer></body></html>`

	tables := modernSite()
	tables.HTML = `<html><head><meta name="viewport" content="width=device-width"></head><body>
<table width="900"></table><table width="300"></table><table cellpadding="0"></table></body></html>`

	tablesWithFramework := modernSite()
	tablesWithFramework.HTML = `<html><head><meta name="viewport" content="width=device-width">
<link rel="stylesheet" href="/bootstrap.css"></head><body>
<table width="900"></table><table width="300"></table><table cellpadding="0"></table></body></html>`

	tests := []struct {
		name     string
		site     fakeSite
		outdated bool
		signal   string
	}{
		{"old copyright", oldCopyright, true, "2014"},
		{"legacy font", legacyFont, true, "2024"},
		{"flash", flash, true, "2022"},
		{"table layout", tables, true, ""},
		{"table layout with framework", tablesWithFramework, false, ""},
		{"modern", modernSite(), false, "2024"},
		{"unreachable", fakeSite{NavErr: errors.New("dns")}, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := inspect(t, tt.site, true)
			require.NoError(t, err)
			assert.Equal(t, tt.outdated, got.Outdated)
			assert.Equal(t, tt.signal, got.LastSignal)
		})
	}
}

func TestSiteInspector_Degraded(t *testing.T) {
	probeFails := modernSite()
	probeFails.EvalErr = errors.New("execution context destroyed")

	noViewport := modernSite()
	noViewport.HTML = `<html><head></head><body><footer>© 2024</footer></body></html>`

	tests := []struct {
		name     string
		site     fakeSite
		degraded bool
	}{
		{"modern", modernSite(), false},
		{"measured without viewport", noViewport, false},
		{"navigation failure", fakeSite{NavErr: errors.New("timeout")}, true},
		{"probe failure", probeFails, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, multi := range []bool{true, false} {
				got, err := inspect(t, tt.site, multi)
				require.NoError(t, err)
				assert.Equal(t, tt.degraded, got.Degraded)
			}
		})
	}
}

func TestSiteInspector_Errors(t *testing.T) {
	inspector := NewSiteInspector(testInspectorConfig(), NewPacer(), Delay{}, nil, nil)

	browser := newFakeBrowser(newFakeWeb(), true)
	browser.newPageErr = errors.New("target closed")
	_, err := inspector.Inspect(context.Background(), browser, inspectedURL)
	assert.ErrorIs(t, err, repository.ErrValidationFailed)

	for _, multi := range []bool{true, false} {
		_, err := inspect(t, fakeSite{HTML: modernSiteHTML, Panic: true}, multi)
		assert.ErrorIs(t, err, repository.ErrValidationFailed)
	}
}

func TestSiteInspector_RecordsDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	web := newFakeWeb()
	web.sites[inspectedURL] = modernSite()
	inspector := NewSiteInspector(testInspectorConfig(), NewPacer(), Delay{}, nil, m)

	_, err := inspector.Inspect(context.Background(), newFakeBrowser(web, true), inspectedURL)
	require.NoError(t, err)
	assert.Equal(t, 1, testutil.CollectAndCount(m.InspectionDuration))
}

func TestRegistrableDomain(t *testing.T) {
	assert.Equal(t, "plomberie-test.fr", registrableDomain("https://www.plomberie-test.fr/contact"))
	assert.Equal(t, "example.co.uk", registrableDomain("https://shop.example.co.uk"))
	assert.Equal(t, "unknown", registrableDomain("::"))
}
