// Package sqlutil holds the query building and migration code shared by the
// SQL record stores.
package sqlutil

import (
	"fmt"
	"strings"

	"github.com/user/prospector/internal/entity"
)

// Placeholder renders the n-th (1-based) bind parameter of a dialect.
type Placeholder func(n int) string

// Dollar is the postgres placeholder style.
func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

// Question is the sqlite placeholder style.
func Question(int) string { return "?" }

// Where accumulates conditions joined with a common operator.
type Where struct {
	placeholder Placeholder
	like        string
	conds       []string
	args        []any
}

// NewWhere starts an empty clause. like is the case-insensitive match
// operator of the dialect.
func NewWhere(placeholder Placeholder, like string) *Where {
	return &Where{placeholder: placeholder, like: like}
}

// Bind appends v to the arguments and returns its placeholder.
func (w *Where) Bind(v any) string {
	w.args = append(w.args, v)
	return w.placeholder(len(w.args))
}

// Add appends a raw condition.
func (w *Where) Add(cond string) {
	w.conds = append(w.conds, cond)
}

// Contains adds a case-insensitive substring match on one of columns.
func (w *Where) Contains(value string, columns ...string) {
	pattern := "%" + EscapeLike(value) + "%"
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		parts = append(parts, fmt.Sprintf(`COALESCE(%s, '') %s %s ESCAPE '\'`, col, w.like, w.Bind(pattern)))
	}
	if len(parts) == 1 {
		w.Add(parts[0])
		return
	}
	w.Add("(" + strings.Join(parts, " OR ") + ")")
}

// Len is the number of conditions.
func (w *Where) Len() int { return len(w.conds) }

// Args returns the bind arguments in order.
func (w *Where) Args() []any { return w.args }

// SQL renders the clause joined by op, or "" when empty.
func (w *Where) SQL(op string) string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " "+op+" ")
}

// EscapeLike escapes LIKE wildcards so user input matches literally.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ProspectFilters translates query filters into conditions.
func ProspectFilters(w *Where, f entity.ProspectFilters) {
	if area := strings.TrimSpace(f.Area); area != "" {
		w.Contains(area, "area")
	}
	if f.Status != "" {
		w.Add("status = " + w.Bind(string(f.Status)))
	}
	if reason := strings.TrimSpace(f.Reason); reason != "" {
		w.Contains(reason, "selection_reason")
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		w.Contains(search, "name", "phone", "address", "site", "note")
	}
}

// MatchKeys adds one equality per non-empty key. Callers join with OR.
func MatchKeys(w *Where, keys entity.MatchKeys) {
	if keys.Phone != "" {
		w.Add("phone = " + w.Bind(keys.Phone))
	}
	if keys.Email != "" {
		w.Add("email = " + w.Bind(keys.Email))
	}
	if keys.Site != "" {
		w.Add("site = " + w.Bind(keys.Site))
	}
}

// ProspectColumns is the select list shared by both stores.
const ProspectColumns = `id, name, phone, email, site, address, area, postal_code,
	role_description, selection_reason, status, note, rating, review_count,
	created_at, updated_at`

// NullIfEmpty maps "" to SQL NULL so unique indexes ignore absent keys.
func NullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref reads a nullable text column.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
