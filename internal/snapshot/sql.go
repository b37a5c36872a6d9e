package snapshot

import (
	"context"
	"database/sql"
	"embed"
	stderrors "errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"astral-server/internal/shared/database"
	"astral-server/internal/shared/errors"
	"astral-server/internal/universe"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the schema the SQL store needs.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// SQLStore keeps snapshots in the snapshots table of a postgres or
// sqlite database.
type SQLStore struct {
	db     *database.DB
	logger *slog.Logger
}

func NewSQLStore(db *database.DB, logger *slog.Logger) *SQLStore {
	logger.Debug("Initializing SQL snapshot store", "driver", db.Driver)

	return &SQLStore{
		db:     db,
		logger: logger.With("component", "snapshot_store", "driver", db.Driver),
	}
}

func (s *SQLStore) Save(ctx context.Context, name string, snap universe.Snapshot) (Info, error) {
	if err := ValidateName(name); err != nil {
		return Info{}, err
	}
	data, err := Encode(snap)
	if err != nil {
		return Info{}, err
	}
	info := Info{Name: name, Tick: snap.Tick, Size: len(data), SavedAt: time.Now().UTC()}

	query := `
		INSERT INTO snapshots (name, tick, size_bytes, data, saved_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE SET
			tick = excluded.tick,
			size_bytes = excluded.size_bytes,
			data = excluded.data,
			saved_at = excluded.saved_at`

	if _, err := s.db.ExecContext(ctx, s.db.Rebind(query), name, int64(info.Tick), info.Size, string(data), info.SavedAt); err != nil {
		s.logger.Error("Failed to save snapshot", "operation", "save", "name", name, "error", err)
		return Info{}, fmt.Errorf("failed to save snapshot %s: %w", name, err)
	}

	s.logger.Info("Snapshot saved", "operation", "save", "name", name, "tick", info.Tick, "size_bytes", info.Size)
	return info, nil
}

func (s *SQLStore) Load(ctx context.Context, name string) (universe.Snapshot, error) {
	var data string
	err := s.db.QueryRowContext(ctx, s.db.Rebind("SELECT data FROM snapshots WHERE name = $1"), name).Scan(&data)
	if stderrors.Is(err, sql.ErrNoRows) {
		return universe.Snapshot{}, errors.NotFoundf("snapshot %q not found", name)
	}
	if err != nil {
		return universe.Snapshot{}, fmt.Errorf("failed to load snapshot %s: %w", name, err)
	}
	return Decode([]byte(data))
}

func (s *SQLStore) List(ctx context.Context) ([]Info, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name, tick, size_bytes, saved_at FROM snapshots ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		var (
			info Info
			tick int64
		)
		if err := rows.Scan(&info.Name, &tick, &info.Size, &info.SavedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		info.Tick = uint64(tick)
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *SQLStore) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM snapshots WHERE name = $1"), name)
	if err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", name, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errors.NotFoundf("snapshot %q not found", name)
	}
	return nil
}
