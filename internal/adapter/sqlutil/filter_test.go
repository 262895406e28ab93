package sqlutil

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/user/prospector/internal/entity"
)

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\% \_x\\`, EscapeLike(`100% _x\`))
	assert.Equal(t, "plain", EscapeLike("plain"))
}

func TestWhere_Empty(t *testing.T) {
	w := NewWhere(Dollar, "ILIKE")
	ProspectFilters(w, entity.ProspectFilters{Area: "  "})
	assert.Equal(t, "", w.SQL("AND"))
	assert.Empty(t, w.Args())
}

func TestProspectFilters_Dollar(t *testing.T) {
	w := NewWhere(Dollar, "ILIKE")
	ProspectFilters(w, entity.ProspectFilters{Area: "Paris", Status: entity.StatusDone})

	assert.Equal(t,
		` WHERE COALESCE(area, '') ILIKE $1 ESCAPE '\' AND status = $2`,
		w.SQL("AND"))
	assert.Equal(t, []any{"%Paris%", "done"}, w.Args())
}

func TestProspectFilters_SearchSpansColumns(t *testing.T) {
	w := NewWhere(Question, "LIKE")
	ProspectFilters(w, entity.ProspectFilters{Search: "martin"})

	assert.Equal(t, 1, w.Len())
	assert.Len(t, w.Args(), 5)
	assert.Contains(t, w.SQL("AND"), "COALESCE(note, '') LIKE ?")
}

func TestMatchKeys(t *testing.T) {
	w := NewWhere(Dollar, "ILIKE")
	MatchKeys(w, entity.MatchKeys{Phone: "0612345678", Site: "https://a.fr"})

	assert.Equal(t, " WHERE phone = $1 OR site = $2", w.SQL("OR"))
	assert.Equal(t, []any{"0612345678", "https://a.fr"}, w.Args())
}

func TestNullIfEmpty(t *testing.T) {
	assert.Nil(t, NullIfEmpty(""))
	v := NullIfEmpty("x")
	if assert.NotNil(t, v) {
		assert.Equal(t, "x", *v)
		assert.Equal(t, "x", Deref(v))
	}
	assert.Equal(t, "", Deref(nil))
}
