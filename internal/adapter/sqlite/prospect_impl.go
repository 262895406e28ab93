package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/user/prospector/internal/adapter/sqlutil"
	"github.com/user/prospector/internal/entity"
	"github.com/user/prospector/internal/repository"
)

// ProspectRepoImpl stores prospects in a SQLite file.
type ProspectRepoImpl struct {
	db *sql.DB
}

// NewProspectRepo creates a new instance of ProspectRepoImpl.
func NewProspectRepo(db *sql.DB) *ProspectRepoImpl {
	return &ProspectRepoImpl{db: db}
}

var _ repository.ProspectRepository = (*ProspectRepoImpl)(nil)

func (r *ProspectRepoImpl) Exists(ctx context.Context, keys entity.MatchKeys) (bool, error) {
	keys = keys.Sanitized()
	if keys.Empty() {
		return false, nil
	}
	w := sqlutil.NewWhere(sqlutil.Question, "LIKE")
	sqlutil.MatchKeys(w, keys)

	var exists bool
	query := "SELECT EXISTS (SELECT 1 FROM prospects" + w.SQL("OR") + ")"
	if err := r.db.QueryRowContext(ctx, query, w.Args()...).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check prospect existence: %w", err)
	}
	return exists, nil
}

func (r *ProspectRepoImpl) Create(ctx context.Context, p *entity.Prospect) error {
	query := `
		INSERT INTO prospects (id, name, phone, email, site, address, area, postal_code,
			role_description, selection_reason, status, note, rating, review_count,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID.String(),
		p.Name,
		nullString(p.Phone),
		nullString(p.Email),
		nullString(p.Site),
		p.Address,
		p.Area,
		p.PostalCode,
		p.RoleDescription,
		p.SelectionReason,
		string(p.Status),
		p.Note,
		nullFloat(p.Rating),
		nullInt(p.ReviewCount),
		p.CreatedAt.UnixNano(),
		p.UpdatedAt.UnixNano(),
	)
	return mapWriteError(err)
}

func (r *ProspectRepoImpl) Query(ctx context.Context, filters entity.ProspectFilters, page entity.PageRequest) (*entity.ProspectPage, error) {
	page = page.Normalize()
	w := sqlutil.NewWhere(sqlutil.Question, "LIKE")
	sqlutil.ProspectFilters(w, filters)
	where := w.SQL("AND")

	var total int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM prospects"+where, w.Args()...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count prospects: %w", err)
	}

	limit := w.Bind(page.Limit)
	offset := w.Bind(page.Offset())
	query := "SELECT " + sqlutil.ProspectColumns + " FROM prospects" + where +
		" ORDER BY created_at DESC, id LIMIT " + limit + " OFFSET " + offset

	rows, err := r.db.QueryContext(ctx, query, w.Args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to query prospects: %w", err)
	}
	defer rows.Close()

	var items []*entity.Prospect
	for rows.Next() {
		p, err := scanProspect(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entity.NewProspectPage(items, page, total), nil
}

func (r *ProspectRepoImpl) FindByID(ctx context.Context, id uuid.UUID) (*entity.Prospect, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+sqlutil.ProspectColumns+" FROM prospects WHERE id = ?", id.String())
	p, err := scanProspect(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return p, err
}

func (r *ProspectRepoImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.ProspectStatus) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE prospects SET status = ?, updated_at = ? WHERE id = ?",
		string(status), time.Now().UTC().UnixNano(), id.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update prospect status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ProspectRepoImpl) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *ProspectRepoImpl) Close() error {
	return r.db.Close()
}

// nullString maps "" to NULL so the unique columns ignore absent keys.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProspect(row scanner) (*entity.Prospect, error) {
	var (
		p                    entity.Prospect
		id, status           string
		phone, email, site   sql.NullString
		rating               sql.NullFloat64
		reviews              sql.NullInt64
		createdAt, updatedAt int64
	)
	err := row.Scan(
		&id,
		&p.Name,
		&phone,
		&email,
		&site,
		&p.Address,
		&p.Area,
		&p.PostalCode,
		&p.RoleDescription,
		&p.SelectionReason,
		&status,
		&p.Note,
		&rating,
		&reviews,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}
	if p.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid prospect id %q: %w", id, err)
	}
	p.Phone = phone.String
	p.Email = email.String
	p.Site = site.String
	p.Status = entity.ProspectStatus(status)
	if rating.Valid {
		v := rating.Float64
		p.Rating = &v
	}
	if reviews.Valid {
		v := int(reviews.Int64)
		p.ReviewCount = &v
	}
	p.CreatedAt = time.Unix(0, createdAt).UTC()
	p.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &p, nil
}

// mapWriteError turns a UNIQUE failure into a DuplicateConstraintError. SQLite
// names the column in the message: "UNIQUE constraint failed: prospects.phone".
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) && isUniqueViolation(sqliteErr) {
		return &repository.DuplicateConstraintError{Field: uniqueField(sqliteErr.Error()), Err: err}
	}
	return fmt.Errorf("failed to insert prospect: %w", err)
}

func isUniqueViolation(err *sqlite.Error) bool {
	if err.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return err.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(err.Error(), "UNIQUE")
}

func uniqueField(msg string) string {
	_, after, ok := strings.Cut(msg, "prospects.")
	if !ok {
		return ""
	}
	end := strings.IndexFunc(after, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z')
	})
	if end >= 0 {
		after = after[:end]
	}
	return after
}
