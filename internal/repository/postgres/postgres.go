package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/splax/reportdesk/internal/domain"
	"github.com/splax/reportdesk/internal/repository"
)

const pgUniqueViolation = "23505"

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// New constructs a Repository.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository   = (*Repository)(nil)
	_ repository.ReportRepository = (*Repository)(nil)
)

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

const userColumns = `id, email, password, created_at, updated_at`

// CreateUser inserts a user. The users.email unique index makes concurrent
// signups for one address fail with ErrConflict.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	const query = `INSERT INTO users (id, email, password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.pool.Exec(ctx, query, user.ID, user.Email, user.Password, user.CreatedAt, user.UpdatedAt)
	return translate(err)
}

// ListUsersByEmail returns every user stored under email.
func (r *Repository) ListUsersByEmail(ctx context.Context, email string) ([]domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1 ORDER BY created_at`
	rows, err := r.pool.Query(ctx, query, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0)
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Password, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// UpdateUser rewrites the mutable user columns.
func (r *Repository) UpdateUser(ctx context.Context, user *domain.User) error {
	const query = `UPDATE users SET email = $2, password = $3, updated_at = $4 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, user.ID, user.Email, user.Password, user.UpdatedAt)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteUser removes a user; their reports go with them through the foreign key.
func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

const reportColumns = `id, user_id, price, make, model, year, mileage, lng, lat, approved, created_at, updated_at`

// CreateReport inserts a report.
func (r *Repository) CreateReport(ctx context.Context, report *domain.Report) error {
	const query = `INSERT INTO reports (` + reportColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.pool.Exec(ctx, query,
		report.ID,
		report.UserID,
		report.Price,
		report.Make,
		report.Model,
		report.Year,
		report.Mileage,
		report.Lng,
		report.Lat,
		report.Approved,
		report.CreatedAt,
		report.UpdatedAt,
	)
	return translate(err)
}

// GetReportByID fetches a report.
func (r *Repository) GetReportByID(ctx context.Context, id string) (*domain.Report, error) {
	const query = `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`
	row := r.pool.QueryRow(ctx, query, id)
	var report domain.Report
	if err := row.Scan(
		&report.ID,
		&report.UserID,
		&report.Price,
		&report.Make,
		&report.Model,
		&report.Year,
		&report.Mileage,
		&report.Lng,
		&report.Lat,
		&report.Approved,
		&report.CreatedAt,
		&report.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &report, nil
}

// UpdateReport persists the approval decision of a report.
func (r *Repository) UpdateReport(ctx context.Context, report *domain.Report) error {
	const query = `UPDATE reports SET approved = $2, updated_at = $3 WHERE id = $1`
	tag, err := r.pool.Exec(ctx, query, report.ID, report.Approved, report.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return repository.ErrConflict
	}
	return err
}
