package share

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/everforgeworks/growcalc/internal/share/migrations"
)

// PostgresStore keeps records in the shared_results table. Expired rows stay
// until Cleanup runs; Service hides them from readers.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to PostgreSQL and returns a store handle.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return NewPostgresStore(pool), nil
}

// NewPostgresStore wraps an existing pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// RunMigrations runs goose migrations on the given DSN.
func RunMigrations(ctx context.Context, dsn string) error {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("opening sql connection for migrations: %w", err)
	}
	defer sqlDB.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, r Record) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding share %s: %w", r.ID, err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO shared_results (share_id, kind, total_value, payload, created_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, string(r.Kind), r.TotalValue(), payload, r.CreatedAt, r.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("inserting share %s: %w", r.ID, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Record, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM shared_results WHERE share_id = $1`, id,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("querying share %s: %w", id, err)
	}

	var r Record
	if err := json.Unmarshal(payload, &r); err != nil {
		return Record{}, fmt.Errorf("decoding share %s: %w", id, err)
	}
	return r, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM shared_results WHERE share_id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting share %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Cleanup(ctx context.Context, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM shared_results WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("deleting expired shares: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) Stats(ctx context.Context, now time.Time) (Stats, error) {
	var st Stats
	err := s.pool.QueryRow(ctx,
		`SELECT count(*), count(*) FILTER (WHERE expires_at < $1) FROM shared_results`, now,
	).Scan(&st.Total, &st.Expired)
	if err != nil {
		return Stats{}, fmt.Errorf("counting shares: %w", err)
	}
	st.Active = st.Total - st.Expired
	return st, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
