package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/user/prospector/internal/entity"
	"github.com/user/prospector/internal/repository"
)

const testSearchBase = "https://maps.test/search/"

var testNow = time.Date(2026, time.March, 2, 9, 30, 0, 0, time.UTC)

// fakeSite is one renderable site of the fake web.
type fakeSite struct {
	HTML    string
	Probe   layoutProbe
	Font    string
	NavErr  error
	EvalErr error
	Panic   bool
}

// fakeItem is one result of the fake map search.
type fakeItem struct {
	HTML     string
	Detail   string
	ClickErr error
}

type fakeWeb struct {
	sites   map[string]fakeSite
	results map[string][]fakeItem // keyed by area
	navErrs map[string]error      // keyed by area
}

func newFakeWeb() *fakeWeb {
	return &fakeWeb{
		sites:   map[string]fakeSite{},
		results: map[string][]fakeItem{},
		navErrs: map[string]error{},
	}
}

type fakeBrowser struct {
	web        *fakeWeb
	multi      bool
	newPageErr error

	mu        sync.Mutex
	pagesOpen int
	navigated []string
	closed    bool
}

func newFakeBrowser(web *fakeWeb, multi bool) *fakeBrowser {
	return &fakeBrowser{web: web, multi: multi}
}

func (b *fakeBrowser) launcher() repository.BrowserLauncher {
	return func(context.Context) (repository.Browser, error) { return b, nil }
}

func (b *fakeBrowser) NewPage(context.Context) (repository.Page, error) {
	if b.newPageErr != nil {
		return nil, b.newPageErr
	}
	b.mu.Lock()
	b.pagesOpen++
	b.mu.Unlock()
	return &fakePage{browser: b, clicked: -1}, nil
}

func (b *fakeBrowser) MultiPage() bool { return b.multi }

func (b *fakeBrowser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

func (b *fakeBrowser) record(url string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.navigated = append(b.navigated, url)
}

func (b *fakeBrowser) navigations() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.navigated...)
}

type fakePage struct {
	browser  *fakeBrowser
	area     string
	site     *fakeSite
	clicked  int
	viewport [2]int
}

func (p *fakePage) Navigate(_ context.Context, url string, _ time.Duration) error {
	p.browser.record(url)
	web := p.browser.web
	if strings.HasPrefix(url, testSearchBase) {
		query := strings.TrimPrefix(url, testSearchBase)
		p.area = ""
		for area := range web.results {
			if strings.HasSuffix(query, strings.ReplaceAll(area, " ", "%20")) {
				p.area = area
			}
		}
		for area, err := range web.navErrs {
			if strings.HasSuffix(query, strings.ReplaceAll(area, " ", "%20")) {
				return fmt.Errorf("%w: %v", repository.ErrNavigationFailed, err)
			}
		}
		p.site = nil
		return nil
	}
	site, ok := web.sites[url]
	if !ok {
		return fmt.Errorf("%w: %s unreachable", repository.ErrNavigationFailed, url)
	}
	if site.NavErr != nil {
		return fmt.Errorf("%w: %v", repository.ErrNavigationFailed, site.NavErr)
	}
	p.site = &site
	return nil
}

func (p *fakePage) WaitVisible(context.Context, string, time.Duration) error { return nil }

func (p *fakePage) items() []fakeItem { return p.browser.web.results[p.area] }

func (p *fakePage) Count(_ context.Context, selector string) (int, error) {
	if selector == resultItemSelector {
		return len(p.items()), nil
	}
	return 0, nil
}

func (p *fakePage) OuterHTML(_ context.Context, selector string, index int) (string, error) {
	if p.site != nil {
		if p.site.Panic {
			panic("renderer crashed")
		}
		return p.site.HTML, nil
	}
	items := p.items()
	switch selector {
	case resultItemSelector:
		if index >= len(items) {
			return "", repository.ErrElementNotFound
		}
		return items[index].HTML, nil
	case detailPanelSelector:
		if p.clicked < 0 || p.clicked >= len(items) {
			return "<body></body>", nil
		}
		return items[p.clicked].Detail, nil
	}
	return "", repository.ErrElementNotFound
}

func (p *fakePage) Click(_ context.Context, _ string, index int) error {
	items := p.items()
	if index >= len(items) {
		return repository.ErrElementNotFound
	}
	if items[index].ClickErr != nil {
		return items[index].ClickErr
	}
	p.clicked = index
	return nil
}

func (p *fakePage) Evaluate(_ context.Context, _ string, out any) error {
	switch v := out.(type) {
	case nil:
		return nil
	case *layoutProbe:
		if p.site == nil {
			return errors.New("no document")
		}
		if p.site.EvalErr != nil {
			return p.site.EvalErr
		}
		*v = p.site.Probe
	case *string:
		if p.site == nil {
			return errors.New("no document")
		}
		*v = p.site.Font
	default:
		return fmt.Errorf("unexpected result type %T", out)
	}
	return nil
}

func (p *fakePage) SetViewport(_ context.Context, w, h int) error {
	p.viewport = [2]int{w, h}
	return nil
}

func (p *fakePage) Close() error { return nil }

// untouchableBrowser fails the test on any use.
type untouchableBrowser struct{ t *testing.T }

func (b untouchableBrowser) NewPage(context.Context) (repository.Page, error) {
	b.t.Errorf("render surface must not be used")
	return nil, errors.New("untouchable")
}

func (b untouchableBrowser) MultiPage() bool {
	b.t.Errorf("render surface must not be used")
	return false
}

func (b untouchableBrowser) Close() error {
	b.t.Errorf("render surface must not be used")
	return nil
}

// memoryStore is an in-memory ProspectRepository with unique phone, email
// and site columns.
type memoryStore struct {
	mu        sync.Mutex
	prospects []*entity.Prospect
	existsErr error
	createErr error
	// raceOn makes Create report a conflict for these names.
	raceOn map[string]bool
}

func newMemoryStore(seed ...*entity.Prospect) *memoryStore {
	return &memoryStore{prospects: seed, raceOn: map[string]bool{}}
}

func (s *memoryStore) Exists(_ context.Context, keys entity.MatchKeys) (bool, error) {
	if s.existsErr != nil {
		return false, s.existsErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	keys = keys.Sanitized()
	for _, p := range s.prospects {
		if field := conflict(p, keys); field != "" {
			return true, nil
		}
	}
	return false, nil
}

func conflict(p *entity.Prospect, keys entity.MatchKeys) string {
	switch {
	case keys.Phone != "" && p.Phone == keys.Phone:
		return "phone"
	case keys.Email != "" && p.Email == keys.Email:
		return "email"
	case keys.Site != "" && p.Site == keys.Site:
		return "site"
	}
	return ""
}

func (s *memoryStore) Create(_ context.Context, p *entity.Prospect) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.raceOn[p.Name] {
		return &repository.DuplicateConstraintError{Field: "phone"}
	}
	for _, existing := range s.prospects {
		if field := conflict(existing, p.MatchKeys()); field != "" {
			return &repository.DuplicateConstraintError{Field: field}
		}
	}
	s.prospects = append(s.prospects, p)
	return nil
}

func (s *memoryStore) Query(_ context.Context, f entity.ProspectFilters, page entity.PageRequest) (*entity.ProspectPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []*entity.Prospect
	for _, p := range s.prospects {
		if f.Area != "" && !strings.EqualFold(p.Area, f.Area) {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		items = append(items, p)
	}
	total := len(items)
	start := min(page.Offset(), total)
	end := min(start+page.Limit, total)
	return entity.NewProspectPage(items[start:end], page, total), nil
}

func (s *memoryStore) FindByID(_ context.Context, id uuid.UUID) (*entity.Prospect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.prospects {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *memoryStore) UpdateStatus(_ context.Context, id uuid.UUID, status entity.ProspectStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.prospects {
		if p.ID == id {
			p.Status = status
			return nil
		}
	}
	return repository.ErrNotFound
}

func (s *memoryStore) Ping(context.Context) error { return nil }
func (s *memoryStore) Close() error               { return nil }

func (s *memoryStore) names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.prospects))
	for _, p := range s.prospects {
		out = append(out, p.Name)
	}
	return out
}

type memorySeen struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemorySeen() *memorySeen { return &memorySeen{keys: map[string]bool{}} }

func (s *memorySeen) MarkSeen(_ context.Context, keys entity.MatchKeys, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range sessionKeys(keys) {
		s.keys[k] = true
	}
	return nil
}

func (s *memorySeen) IsSeen(_ context.Context, keys entity.MatchKeys) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range sessionKeys(keys) {
		if s.keys[k] {
			return true, nil
		}
	}
	return false, nil
}

type memoryVerdictCache struct {
	mu       sync.Mutex
	verdicts map[string]entity.SiteVerdict
}

func newMemoryVerdictCache() *memoryVerdictCache {
	return &memoryVerdictCache{verdicts: map[string]entity.SiteVerdict{}}
}

func (c *memoryVerdictCache) Get(_ context.Context, url string) (entity.SiteVerdict, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.verdicts[url]
	if !ok {
		return entity.SiteVerdict{}, repository.ErrCacheMiss
	}
	return v, nil
}

func (c *memoryVerdictCache) Put(_ context.Context, url string, v entity.SiteVerdict, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verdicts[url] = v
	return nil
}

// HTML fixtures.

func itemHTML(name string) string {
	return fmt.Sprintf(`<div role="article" aria-label=%q><div role="img" aria-label=%q></div></div>`, name, name)
}

func detailHTML(phone, site, address string) string {
	var b strings.Builder
	b.WriteString("<body><div role=\"main\">")
	if phone != "" {
		fmt.Fprintf(&b, `<button data-item-id="phone:tel:%s">%s</button>`, strings.ReplaceAll(phone, " ", ""), phone)
	}
	if site != "" {
		fmt.Fprintf(&b, `<a data-item-id="authority" href=%q>site</a>`, site)
	}
	if address != "" {
		fmt.Fprintf(&b, `<button data-item-id="address">%s</button>`, address)
	}
	b.WriteString(`<span role="img" aria-label="4,5 étoiles 27 avis"></span>`)
	b.WriteString("</div></body>")
	return b.String()
}

const modernSiteHTML = `<html><head>
<meta name="viewport" content="width=device-width, initial-scale=1">
<link rel="stylesheet" href="/css/bootstrap.min.css">
</head><body><main>Plomberie moderne</main><footer>© 2019-2024 Modern Plomberie</footer></body></html>`

const legacySiteHTML = `<html><head><title>Plomberie</title></head>
<body><table width="800"><tr><td>Accueil</td></tr></table>
<footer>Copyright 2009 Plomberie Vieille</footer></body></html>`

func modernSite() fakeSite {
	return fakeSite{
		HTML:  modernSiteHTML,
		Probe: layoutProbe{ScrollWidth: 375, InnerWidth: 375, Flexible: 12},
		Font:  "Inter, sans-serif",
	}
}

// testInspectorConfig is DefaultInspectorConfig without real timeouts.
func testInspectorConfig() InspectorConfig {
	cfg := DefaultInspectorConfig()
	cfg.NavigationTimeout = time.Second
	return cfg
}

func newTestValidator(opts ...ValidatorOption) *Validator {
	inspector := NewSiteInspector(testInspectorConfig(), NewPacer(), Delay{}, nil, nil)
	return NewValidator(NewDomainClassifier(DefaultDomainLists()), inspector, nil, nil, opts...)
}

type memoryQueue struct {
	mu      sync.Mutex
	jobs    []*entity.HarvestJob
	pushErr error
}

func (q *memoryQueue) Push(_ context.Context, job *entity.HarvestJob) error {
	if q.pushErr != nil {
		return q.pushErr
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *memoryQueue) Pop(context.Context) (*entity.HarvestJob, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.jobs) == 0 {
		return nil, repository.ErrQueueEmpty
	}
	job := q.jobs[0]
	q.jobs = q.jobs[1:]
	return job, nil
}

func (q *memoryQueue) Size(context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.jobs)), nil
}

type memoryStatuses struct {
	mu      sync.Mutex
	history []entity.JobStatus
	latest  map[uuid.UUID]entity.JobStatus
}

func newMemoryStatuses() *memoryStatuses {
	return &memoryStatuses{latest: map[uuid.UUID]entity.JobStatus{}}
}

func (s *memoryStatuses) Save(_ context.Context, status *entity.JobStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, *status)
	s.latest[status.JobID] = *status
	return nil
}

func (s *memoryStatuses) Find(_ context.Context, id uuid.UUID) (*entity.JobStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status, ok := s.latest[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &status, nil
}

func (s *memoryStatuses) states(id uuid.UUID) []entity.JobState {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entity.JobState
	for _, st := range s.history {
		if st.JobID == id {
			out = append(out, st.State)
		}
	}
	return out
}

type memorySubmissions struct {
	mu   sync.Mutex
	jobs map[string]uuid.UUID
}

func newMemorySubmissions() *memorySubmissions {
	return &memorySubmissions{jobs: map[string]uuid.UUID{}}
}

func (s *memorySubmissions) MarkSubmitted(_ context.Context, fingerprint string, id uuid.UUID, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[fingerprint] = id
	return nil
}

func (s *memorySubmissions) RecentJob(_ context.Context, fingerprint string) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.jobs[fingerprint]
	if !ok {
		return uuid.Nil, repository.ErrNotFound
	}
	return id, nil
}

func (s *memorySubmissions) Forget(_ context.Context, fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, fingerprint)
	return nil
}

type recordedEvent struct {
	JobID  string
	Report *entity.HarvestReport
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) HarvestCompleted(_ context.Context, jobID string, report *entity.HarvestReport) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{JobID: jobID, Report: report})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

// stubRunner returns a fixed report or error.
type stubRunner struct {
	report *entity.HarvestReport
	err    error
	calls  []entity.HarvestRequest
}

func (r *stubRunner) Run(_ context.Context, req entity.HarvestRequest, progress ProgressFunc) (*entity.HarvestReport, error) {
	r.calls = append(r.calls, req)
	if progress != nil {
		for i, area := range req.Areas {
			progress(entity.HarvestProgress{Area: area, AreaIndex: i, TotalAreas: len(req.Areas)})
		}
	}
	return r.report, r.err
}
