package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDirectory stores members in the members table (see
// internal/infra/migrations). The profile lives in a JSONB column so fields
// stay as free-form as in Airtable.
type PostgresDirectory struct {
	db querier
}

// querier is the subset of *pgxpool.Pool the directory uses.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// NewPostgres builds a Postgres-backed directory.
func NewPostgres(db *pgxpool.Pool) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

const memberColumns = `id, fields, created_at`

func scanMember(row pgx.Row) (Member, error) {
	var (
		m         Member
		createdAt time.Time
	)
	if err := row.Scan(&m.ID, &m.Fields, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Member{}, ErrNotFound
		}
		return Member{}, err
	}
	m.CreatedAt = createdAt.UTC()
	return m, nil
}

// FindByPhone fetches the member registered with phone.
func (d *PostgresDirectory) FindByPhone(ctx context.Context, phone string) (Member, error) {
	n, err := ParsePhone(phone)
	if err != nil {
		return Member{}, err
	}
	row := d.db.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE mobile_number = $1`, n)
	return scanMember(row)
}

// FindByID fetches a member by record id.
func (d *PostgresDirectory) FindByID(ctx context.Context, id string) (Member, error) {
	row := d.db.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id)
	return scanMember(row)
}

// Insert creates a member. The unique mobile_number constraint turns a lost
// insert race into ErrExists instead of a duplicate row.
func (d *PostgresDirectory) Insert(ctx context.Context, fields Fields) (Member, error) {
	n, err := fields.MobileNumber()
	if err != nil {
		return Member{}, err
	}
	now := time.Now().UTC()
	row := d.db.QueryRow(ctx, `INSERT INTO members (id, mobile_number, fields, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $4)
        ON CONFLICT (mobile_number) DO NOTHING
        RETURNING `+memberColumns, NewRecordID(), n, fields, now)
	m, err := scanMember(row)
	if errors.Is(err, ErrNotFound) {
		return Member{}, ErrExists
	}
	if err != nil {
		return Member{}, fmt.Errorf("insert member: %w", err)
	}
	return m, nil
}

// Update merges fields into the stored profile.
func (d *PostgresDirectory) Update(ctx context.Context, id string, fields Fields) (Member, error) {
	row := d.db.QueryRow(ctx, `UPDATE members SET fields = fields || $2::jsonb, updated_at = $3
        WHERE id = $1
        RETURNING `+memberColumns, id, fields, time.Now().UTC())
	m, err := scanMember(row)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Member{}, fmt.Errorf("update member: %w", err)
	}
	return m, err
}

// Colleges lists distinct college names.
func (d *PostgresDirectory) Colleges(ctx context.Context) ([]string, error) {
	return d.distinct(ctx, FieldCollege)
}

// Skills lists distinct skill names.
func (d *PostgresDirectory) Skills(ctx context.Context) ([]string, error) {
	return d.distinct(ctx, FieldSkills)
}

func (d *PostgresDirectory) distinct(ctx context.Context, field string) ([]string, error) {
	const query = `
        SELECT DISTINCT btrim(v) AS value
        FROM members,
             jsonb_array_elements_text(
                 CASE jsonb_typeof(fields->$1::text)
                     WHEN 'array' THEN fields->$1::text
                     WHEN 'string' THEN jsonb_build_array(fields->$1::text)
                     ELSE '[]'::jsonb
                 END) AS v
        WHERE btrim(v) <> ''
        ORDER BY value`
	rows, err := d.db.Query(ctx, query, field)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", field, err)
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", field, err)
	}
	return values, nil
}
