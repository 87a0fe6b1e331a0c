package storage

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/evoship/evoship/pkg/config"
	"github.com/evoship/evoship/pkg/errors"
)

// SQLiteStore persists runs in a single SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the run database at the configured path.
func NewSQLiteStore(cfg config.StorageConfig) (*SQLiteStore, error) {
	path := cfg.Path
	if path == "" {
		path = "evoship_runs.db"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to open run database")
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{db: db}
	if err := s.initDB(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, errors.Unknown, "failed to initialize run database")
	}
	if cfg.WAL {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, errors.Wrap(err, errors.Unknown, "failed to enable WAL mode")
		}
	}
	if _, err := db.Exec("PRAGMA synchronous=NORMAL"); err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to configure run database")
	}
	return s, nil
}

func (s *SQLiteStore) initDB() error {
	query := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at INTEGER NOT NULL,
		snapshot BLOB,
		population BLOB
	);

	CREATE TABLE IF NOT EXISTS generations (
		run_id TEXT NOT NULL REFERENCES runs(id),
		generation INTEGER NOT NULL,
		feasible INTEGER NOT NULL,
		infeasible INTEGER NOT NULL,
		coverage REAL NOT NULL,
		qd_score REAL NOT NULL,
		best_fitness REAL NOT NULL,
		step_kind TEXT NOT NULL,
		recorded_at INTEGER NOT NULL,
		PRIMARY KEY (run_id, generation)
	);

	CREATE INDEX IF NOT EXISTS idx_generations_run ON generations(run_id);
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *SQLiteStore) ensureRun(ctx context.Context, runID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, created_at) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
		runID, time.Now().Unix())
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to register run")
	}
	return nil
}

func (s *SQLiteStore) SaveSnapshot(ctx context.Context, runID string, snapshot []byte) error {
	if err := s.ensureRun(ctx, runID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET snapshot = ? WHERE id = ?`, snapshot, runID)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to save snapshot")
	}
	return nil
}

func (s *SQLiteStore) LoadSnapshot(ctx context.Context, runID string) ([]byte, error) {
	var snapshot []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT snapshot FROM runs WHERE id = ?`, runID).Scan(&snapshot)
	if err == sql.ErrNoRows || (err == nil && snapshot == nil) {
		return nil, errors.WithFields(
			errors.New(errors.ResourceNotFound, "no snapshot stored for run"),
			errors.Fields{"run_id": runID})
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to load snapshot")
	}
	return snapshot, nil
}

func (s *SQLiteStore) SavePopulation(ctx context.Context, runID string, population []byte) error {
	if err := s.ensureRun(ctx, runID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET population = ? WHERE id = ?`, population, runID)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to save population")
	}
	return nil
}

func (s *SQLiteStore) LoadPopulation(ctx context.Context, runID string) ([]byte, error) {
	var population []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT population FROM runs WHERE id = ?`, runID).Scan(&population)
	if err == sql.ErrNoRows || (err == nil && population == nil) {
		return nil, errors.WithFields(
			errors.New(errors.ResourceNotFound, "no population stored for run"),
			errors.Fields{"run_id": runID})
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to load population")
	}
	return population, nil
}

func (s *SQLiteStore) AppendGeneration(ctx context.Context, runID string, rec GenerationRecord) error {
	if err := s.ensureRun(ctx, runID); err != nil {
		return err
	}
	recordedAt := rec.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO generations
			(run_id, generation, feasible, infeasible, coverage, qd_score, best_fitness, step_kind, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, generation) DO UPDATE SET
			feasible = excluded.feasible,
			infeasible = excluded.infeasible,
			coverage = excluded.coverage,
			qd_score = excluded.qd_score,
			best_fitness = excluded.best_fitness,
			step_kind = excluded.step_kind,
			recorded_at = excluded.recorded_at`,
		runID, rec.Generation, rec.Feasible, rec.Infeasible,
		rec.Coverage, rec.QDScore, rec.BestFit, rec.StepKind, recordedAt.Unix())
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "failed to append generation record")
	}
	return nil
}

func (s *SQLiteStore) Generations(ctx context.Context, runID string) ([]GenerationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT generation, feasible, infeasible, coverage, qd_score, best_fitness, step_kind, recorded_at
		FROM generations WHERE run_id = ? ORDER BY generation`, runID)
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to query generation records")
	}
	defer rows.Close()

	var out []GenerationRecord
	for rows.Next() {
		var rec GenerationRecord
		var recordedAt int64
		if err := rows.Scan(&rec.Generation, &rec.Feasible, &rec.Infeasible,
			&rec.Coverage, &rec.QDScore, &rec.BestFit, &rec.StepKind, &recordedAt); err != nil {
			return nil, errors.Wrap(err, errors.Unknown, "failed to scan generation record")
		}
		rec.RecordedAt = time.Unix(recordedAt, 0)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to read generation records")
	}
	return out, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.created_at, COUNT(g.generation)
		FROM runs r LEFT JOIN generations g ON g.run_id = r.id
		GROUP BY r.id ORDER BY r.created_at`)
	if err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to list runs")
	}
	defer rows.Close()

	var out []RunInfo
	for rows.Next() {
		var info RunInfo
		var createdAt int64
		if err := rows.Scan(&info.ID, &createdAt, &info.Generations); err != nil {
			return nil, errors.Wrap(err, errors.Unknown, "failed to scan run info")
		}
		info.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.Unknown, "failed to read run list")
	}
	return out, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
