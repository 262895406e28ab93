package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/user/prospector/internal/adapter/sqlutil"
	"github.com/user/prospector/internal/entity"
	"github.com/user/prospector/internal/repository"
)

const uniqueViolation = "23505"

// ProspectRepoImpl stores prospects in PostgreSQL.
type ProspectRepoImpl struct {
	db *pgxpool.Pool
}

// NewProspectRepo creates a new instance of ProspectRepoImpl.
func NewProspectRepo(db *pgxpool.Pool) *ProspectRepoImpl {
	return &ProspectRepoImpl{db: db}
}

var _ repository.ProspectRepository = (*ProspectRepoImpl)(nil)

func (r *ProspectRepoImpl) Exists(ctx context.Context, keys entity.MatchKeys) (bool, error) {
	keys = keys.Sanitized()
	if keys.Empty() {
		return false, nil
	}
	w := sqlutil.NewWhere(sqlutil.Dollar, "ILIKE")
	sqlutil.MatchKeys(w, keys)

	var exists bool
	query := "SELECT EXISTS (SELECT 1 FROM prospects" + w.SQL("OR") + ")"
	if err := r.db.QueryRow(ctx, query, w.Args()...).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check prospect existence: %w", err)
	}
	return exists, nil
}

func (r *ProspectRepoImpl) Create(ctx context.Context, p *entity.Prospect) error {
	query := `
		INSERT INTO prospects (id, name, phone, email, site, address, area, postal_code,
			role_description, selection_reason, status, note, rating, review_count,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16);
	`
	_, err := r.db.Exec(ctx, query,
		p.ID,
		p.Name,
		sqlutil.NullIfEmpty(p.Phone),
		sqlutil.NullIfEmpty(p.Email),
		sqlutil.NullIfEmpty(p.Site),
		p.Address,
		p.Area,
		p.PostalCode,
		p.RoleDescription,
		p.SelectionReason,
		string(p.Status),
		p.Note,
		p.Rating,
		p.ReviewCount,
		p.CreatedAt,
		p.UpdatedAt,
	)
	return mapWriteError(err)
}

func (r *ProspectRepoImpl) Query(ctx context.Context, filters entity.ProspectFilters, page entity.PageRequest) (*entity.ProspectPage, error) {
	page = page.Normalize()
	w := sqlutil.NewWhere(sqlutil.Dollar, "ILIKE")
	sqlutil.ProspectFilters(w, filters)
	where := w.SQL("AND")

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM prospects"+where, w.Args()...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count prospects: %w", err)
	}

	limit := w.Bind(page.Limit)
	offset := w.Bind(page.Offset())
	query := "SELECT " + sqlutil.ProspectColumns + " FROM prospects" + where +
		" ORDER BY created_at DESC, id LIMIT " + limit + " OFFSET " + offset

	rows, err := r.db.Query(ctx, query, w.Args()...)
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
	row := r.db.QueryRow(ctx, "SELECT "+sqlutil.ProspectColumns+" FROM prospects WHERE id = $1", id)
	p, err := scanProspect(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return p, err
}

func (r *ProspectRepoImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status entity.ProspectStatus) error {
	tag, err := r.db.Exec(ctx,
		"UPDATE prospects SET status = $1, updated_at = $2 WHERE id = $3",
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update prospect status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ProspectRepoImpl) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

func (r *ProspectRepoImpl) Close() error {
	r.db.Close()
	return nil
}

func scanProspect(row pgx.Row) (*entity.Prospect, error) {
	var (
		p                  entity.Prospect
		phone, email, site *string
		status             string
	)
	err := row.Scan(
		&p.ID,
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
		&p.Rating,
		&p.ReviewCount,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Phone = sqlutil.Deref(phone)
	p.Email = sqlutil.Deref(email)
	p.Site = sqlutil.Deref(site)
	p.Status = entity.ProspectStatus(status)
	return &p, nil
}

// mapWriteError turns a unique violation into a DuplicateConstraintError
// naming the column taken from the index name.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return &repository.DuplicateConstraintError{Field: constraintField(pgErr.ConstraintName), Err: err}
	}
	return fmt.Errorf("failed to insert prospect: %w", err)
}

func constraintField(name string) string {
	name = strings.TrimPrefix(name, "prospects_")
	name = strings.TrimSuffix(name, "_key")
	if name == "pkey" {
		return "id"
	}
	return name
}
