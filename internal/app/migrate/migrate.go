package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

const runTimeout = time.Minute

// Runner applies the users and reports schema with goose.
type Runner struct {
	pool          *pgxpool.Pool
	migrationsDir string
	log           *slog.Logger
}

// Status describes one migration file and whether it has been applied.
type Status struct {
	Version   int64
	Path      string
	Applied   bool
	AppliedAt time.Time
}

// New returns a migration runner over pool.
func New(pool *pgxpool.Pool, migrationsDir string, log *slog.Logger) (Runner, error) {
	if pool == nil {
		return Runner{}, errors.New("nil pool provided")
	}
	if migrationsDir == "" {
		return Runner{}, errors.New("empty migrations directory")
	}
	info, err := os.Stat(migrationsDir)
	if err != nil {
		return Runner{}, fmt.Errorf("locate migrations dir: %w", err)
	}
	if !info.IsDir() {
		return Runner{}, fmt.Errorf("migrations path %q is not a directory", migrationsDir)
	}
	if log == nil {
		log = slog.Default()
	}
	return Runner{pool: pool, migrationsDir: migrationsDir, log: log}, nil
}

// Ensure applies pending migrations.
func (r Runner) Ensure(ctx context.Context) error {
	return r.withProvider(func(p *goose.Provider) error {
		runCtx, cancel := context.WithTimeout(ctx, runTimeout)
		defer cancel()

		r.log.Info("applying migrations", "dir", r.migrationsDir)
		results, err := p.Up(runCtx)
		if err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		for _, res := range results {
			r.log.Info("migration applied", "version", res.Source.Version, "duration_ms", res.Duration.Milliseconds())
		}
		r.log.Info("migrations applied", "count", len(results))
		return nil
	})
}

// Status reports applied and pending migrations.
func (r Runner) Status(ctx context.Context) ([]Status, error) {
	var out []Status
	err := r.withProvider(func(p *goose.Provider) error {
		statuses, err := p.Status(ctx)
		if err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
		out = make([]Status, 0, len(statuses))
		for _, st := range statuses {
			out = append(out, Status{
				Version:   st.Source.Version,
				Path:      st.Source.Path,
				Applied:   st.State == goose.StateApplied,
				AppliedAt: st.AppliedAt,
			})
		}
		return nil
	})
	return out, err
}

// Down rolls back the latest migration, or every migration above targetVersion
// when it is positive.
func (r Runner) Down(ctx context.Context, targetVersion int64) error {
	return r.withProvider(func(p *goose.Provider) error {
		runCtx, cancel := context.WithTimeout(ctx, runTimeout)
		defer cancel()

		if targetVersion > 0 {
			r.log.Info("rolling back migrations", "target", targetVersion)
			if _, err := p.DownTo(runCtx, targetVersion); err != nil {
				return fmt.Errorf("rollback to version %d: %w", targetVersion, err)
			}
		} else {
			r.log.Info("rolling back latest migration")
			if _, err := p.Down(runCtx); err != nil {
				return fmt.Errorf("rollback latest migration: %w", err)
			}
		}
		r.log.Info("rollback complete")
		return nil
	})
}

// Ping ensures the database connection is alive.
func (r Runner) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

func (r Runner) withProvider(fn func(*goose.Provider) error) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer func(db *sql.DB) { _ = db.Close() }(db)

	provider, err := goose.NewProvider(goose.DialectPostgres, db, os.DirFS(r.migrationsDir))
	if err != nil {
		return fmt.Errorf("configure goose: %w", err)
	}
	return fn(provider)
}
