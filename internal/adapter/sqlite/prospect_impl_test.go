package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/user/prospector/internal/entity"
	"github.com/user/prospector/internal/repository"
)

func newTestRepo(t *testing.T) *ProspectRepoImpl {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "data", "prospects.db"))
	require.NoError(t, err)
	require.NoError(t, Migrate(context.Background(), db, zaptest.NewLogger(t)))
	repo := NewProspectRepo(db)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func newProspect(name, phone, site string, createdAt time.Time) *entity.Prospect {
	return entity.NewProspect(entity.CandidateRecord{
		Name:            name,
		Phone:           phone,
		DeclaredSite:    site,
		Area:            "Paris 11",
		RoleDescription: "plombier",
		SelectionReason: entity.ReasonNoSite,
	}, createdAt)
}

func TestProspectRepo_CreateAndFind(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	p := newProspect("Plomberie Martin", "0612345678", "contact@martin.fr", now)
	rating, reviews := 4.5, 27
	p.Rating, p.ReviewCount = &rating, &reviews
	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, "0612345678", got.Phone)
	assert.Equal(t, "contact@martin.fr", got.Email)
	assert.Empty(t, got.Site)
	assert.Equal(t, entity.StatusToContact, got.Status)
	require.NotNil(t, got.Rating)
	assert.InDelta(t, 4.5, *got.Rating, 0.0001)
	require.NotNil(t, got.ReviewCount)
	assert.Equal(t, 27, *got.ReviewCount)
	assert.True(t, now.Equal(got.CreatedAt))

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProspectRepo_Exists(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newProspect("A", "0612345678", "https://a.fr", time.Now())))

	tests := []struct {
		name string
		keys entity.MatchKeys
		want bool
	}{
		{"phone", entity.MatchKeys{Phone: "0612345678"}, true},
		{"site", entity.MatchKeys{Site: "https://a.fr"}, true},
		{"one of many", entity.MatchKeys{Phone: "0700000000", Site: "https://a.fr"}, true},
		{"unknown", entity.MatchKeys{Phone: "0700000000"}, false},
		{"empty", entity.MatchKeys{}, false},
		{"site shaped email ignored", entity.MatchKeys{Email: "https://a.fr"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.Exists(ctx, tt.keys)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProspectRepo_DuplicateConstraint(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, newProspect("A", "0612345678", "", time.Now())))

	err := repo.Create(ctx, newProspect("B", "0612345678", "", time.Now()))
	assert.ErrorIs(t, err, repository.ErrDuplicate)
	var dup *repository.DuplicateConstraintError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "phone", dup.Field)

	// Absent keys are NULL and never collide.
	require.NoError(t, repo.Create(ctx, newProspect("C", "", "", time.Now())))
	require.NoError(t, repo.Create(ctx, newProspect("D", "", "", time.Now())))
}

func TestProspectRepo_Query(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, name := range []string{"Alpha", "Bravo", "Charlie"} {
		p := newProspect(name, "", "", base.Add(time.Duration(i)*time.Hour))
		if name == "Charlie" {
			p.Area = "Lyon 3"
		}
		require.NoError(t, repo.Create(ctx, p))
	}

	all, err := repo.Query(ctx, entity.ProspectFilters{}, entity.PageRequest{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, all.Total)
	assert.Equal(t, 2, all.TotalPages)
	require.Len(t, all.Items, 2)
	assert.Equal(t, "Charlie", all.Items[0].Name)
	assert.Equal(t, "Bravo", all.Items[1].Name)

	second, err := repo.Query(ctx, entity.ProspectFilters{}, entity.PageRequest{Page: 2, Limit: 2})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, "Alpha", second.Items[0].Name)

	byArea, err := repo.Query(ctx, entity.ProspectFilters{Area: "paris"}, entity.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, byArea.Total)
	assert.Equal(t, entity.DefaultPageLimit, byArea.Limit)

	search, err := repo.Query(ctx, entity.ProspectFilters{Search: "brav"}, entity.PageRequest{})
	require.NoError(t, err)
	require.Len(t, search.Items, 1)
	assert.Equal(t, "Bravo", search.Items[0].Name)

	literal, err := repo.Query(ctx, entity.ProspectFilters{Search: "%"}, entity.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, literal.Total)
	assert.NotNil(t, literal.Items)
}

func TestProspectRepo_UpdateStatus(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	p := newProspect("A", "", "", time.Now())
	require.NoError(t, repo.Create(ctx, p))

	require.NoError(t, repo.UpdateStatus(ctx, p.ID, entity.StatusQuoteSent))
	got, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusQuoteSent, got.Status)

	byStatus, err := repo.Query(ctx, entity.ProspectFilters{Status: entity.StatusQuoteSent}, entity.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, byStatus.Total)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, uuid.New(), entity.StatusDone), repository.ErrNotFound)
}

func TestUniqueField(t *testing.T) {
	assert.Equal(t, "phone", uniqueField("constraint failed: UNIQUE constraint failed: prospects.phone (2067)"))
	assert.Equal(t, "site", uniqueField("UNIQUE constraint failed: prospects.site"))
	assert.Equal(t, "", uniqueField("something else"))
}
