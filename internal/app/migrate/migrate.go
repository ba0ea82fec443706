package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mattbell19/wordgen-v2-production-sub006/db"
)

const commandTimeout = time.Minute

// Runner applies the schema migrations with goose.
type Runner struct {
	dsn  string
	fsys fs.FS
	log  *slog.Logger
}

// New returns a migration runner. An empty dir uses the migrations compiled into the
// binary; otherwise the files are read from dir.
func New(dsn, dir string, log *slog.Logger) (Runner, error) {
	if strings.TrimSpace(dsn) == "" {
		return Runner{}, errors.New("empty database dsn")
	}
	if log == nil {
		log = slog.Default()
	}
	fsys, err := source(dir)
	if err != nil {
		return Runner{}, err
	}
	return Runner{dsn: dsn, fsys: fsys, log: log}, nil
}

func source(dir string) (fs.FS, error) {
	if strings.TrimSpace(dir) == "" {
		return fs.Sub(db.Migrations, "migrations")
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("locate migrations dir: %w", err)
	}
	return os.DirFS(dir), nil
}

// Up applies pending migrations.
func (r Runner) Up(ctx context.Context) error {
	return r.withProvider(ctx, func(ctx context.Context, p *goose.Provider) error {
		results, err := p.Up(ctx)
		for _, res := range results {
			r.logResult(res)
		}
		if err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		r.log.Info("migrations applied", "count", len(results))
		return nil
	})
}

// Status logs applied and pending migrations.
func (r Runner) Status(ctx context.Context) error {
	return r.withProvider(ctx, func(ctx context.Context, p *goose.Provider) error {
		statuses, err := p.Status(ctx)
		if err != nil {
			return fmt.Errorf("migration status: %w", err)
		}
		for _, st := range statuses {
			fields := []any{"version", st.Source.Version, "path", st.Source.Path, "state", st.State}
			if !st.AppliedAt.IsZero() {
				fields = append(fields, "applied_at", st.AppliedAt)
			}
			r.log.Info("migration", fields...)
		}
		return nil
	})
}

// Down rolls back the latest migration, or every migration above targetVersion when
// it is positive.
func (r Runner) Down(ctx context.Context, targetVersion int64) error {
	return r.withProvider(ctx, func(ctx context.Context, p *goose.Provider) error {
		if targetVersion > 0 {
			r.log.Info("rolling back migrations", "target", targetVersion)
			results, err := p.DownTo(ctx, targetVersion)
			for _, res := range results {
				r.logResult(res)
			}
			if err != nil {
				return fmt.Errorf("rollback to version %d: %w", targetVersion, err)
			}
			return nil
		}
		r.log.Info("rolling back latest migration")
		res, err := p.Down(ctx)
		if res != nil {
			r.logResult(res)
		}
		if err != nil {
			return fmt.Errorf("rollback latest migration: %w", err)
		}
		return nil
	})
}

func (r Runner) logResult(res *goose.MigrationResult) {
	fields := []any{"direction", res.Direction, "duration_ms", res.Duration.Milliseconds()}
	if res.Source != nil {
		fields = append(fields, "version", res.Source.Version, "path", res.Source.Path)
	}
	if res.Error != nil {
		r.log.Error("migration failed", append(fields, "error", res.Error)...)
		return
	}
	r.log.Info("migration", fields...)
}

func (r Runner) withProvider(ctx context.Context, fn func(context.Context, *goose.Provider) error) error {
	conn, err := sql.Open("pgx", r.dsn)
	if err != nil {
		return fmt.Errorf("open sql connection: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return fmt.Errorf("ping sql connection: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, conn, r.fsys)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("configure goose: %w", err)
	}
	defer provider.Close()
	return fn(ctx, provider)
}
