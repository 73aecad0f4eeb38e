package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Guizzs26/suya-queue/pkg/infra"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const servingChannel = "queue_serving"

const servingSchema = `
	CREATE TABLE IF NOT EXISTS queue_serving (
		id         SMALLINT PRIMARY KEY DEFAULT 1 CHECK (id = 1),
		value      TEXT        NOT NULL,
		suffix     INTEGER     NOT NULL,
		epoch      BIGINT      NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	)
`

// PostgresDeviceStore persists the serving value in a single-row table.
// Writes go through the same supersede rule as the engine, enforced in SQL so concurrent instances
// cannot roll the value back, and every applied write is announced with NOTIFY.
type PostgresDeviceStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgresDeviceStore(ctx context.Context, connString string, logger *slog.Logger) (*PostgresDeviceStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres config: %w", err)
	}

	p, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}

	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	if _, err := p.Exec(ctx, servingSchema); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to ensure queue_serving table: %w", err)
	}

	logger.Info("Connected to Postgres device store")
	return &PostgresDeviceStore{pool: p, logger: logger}, nil
}

func (r *PostgresDeviceStore) LoadServing(ctx context.Context) (DeviceServing, error) {
	return loadServing(ctx, r.pool)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func loadServing(ctx context.Context, q queryRower) (DeviceServing, error) {
	var (
		d     DeviceServing
		epoch int64
	)
	err := q.QueryRow(ctx, `SELECT value, epoch, updated_at FROM queue_serving WHERE id = 1`).
		Scan(&d.Value, &epoch, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return initialServing(), nil
		}
		return DeviceServing{}, fmt.Errorf("failed to load serving value: %w", err)
	}
	d.Epoch = uint64(epoch)
	return d, nil
}

func (r *PostgresDeviceStore) SaveServing(ctx context.Context, v DeviceServing) (DeviceServing, error) {
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = time.Now()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return DeviceServing{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO queue_serving (id, value, suffix, epoch, updated_at)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET value = EXCLUDED.value,
		    suffix = EXCLUDED.suffix,
		    epoch = EXCLUDED.epoch,
		    updated_at = EXCLUDED.updated_at
		WHERE EXCLUDED.epoch > queue_serving.epoch
		   OR (EXCLUDED.epoch = queue_serving.epoch AND EXCLUDED.suffix > queue_serving.suffix)
	`
	tag, err := tx.Exec(ctx, query, v.Value, v.Suffix(), int64(v.Epoch), v.UpdatedAt)
	if err != nil {
		return DeviceServing{}, fmt.Errorf("failed to save serving value: %w", err)
	}

	if tag.RowsAffected() == 1 {
		payload, err := encodeServing(v)
		if err != nil {
			return DeviceServing{}, err
		}
		if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, servingChannel, payload); err != nil {
			return DeviceServing{}, fmt.Errorf("failed to notify serving change: %w", err)
		}
	}

	stored, err := loadServing(ctx, tx)
	if err != nil {
		return DeviceServing{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return DeviceServing{}, fmt.Errorf("failed to commit serving value: %w", err)
	}
	return stored, nil
}

// Watch holds one pooled connection on LISTEN and reconnects with backoff when it drops
func (r *PostgresDeviceStore) Watch(ctx context.Context) (<-chan DeviceServing, error) {
	ch := make(chan DeviceServing, 1)

	go func() {
		defer close(ch)
		backoff := infra.NewBackoff(500*time.Millisecond, 30*time.Second, 2.0)

		for {
			if err := r.listen(ctx, ch, backoff); err != nil && ctx.Err() == nil {
				r.logger.Warn("Serving listener lost, reconnecting", "attempt", backoff.Attempts()+1, "error", err)
			}
			if backoff.Sleep(ctx) != nil {
				return
			}
		}
	}()

	return ch, nil
}

func (r *PostgresDeviceStore) listen(ctx context.Context, ch chan DeviceServing, backoff *infra.Backoff) error {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire listener connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+servingChannel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_, _ = conn.Exec(cleanupCtx, "UNLISTEN "+servingChannel)
		cancel()
	}()

	backoff.Reset()
	r.logger.Debug("Listening for serving changes", "channel", servingChannel)

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		d, err := decodeServing(n.Payload)
		if err != nil {
			r.logger.Warn("Ignoring malformed serving notification", "payload", n.Payload, "error", err)
			continue
		}
		sendLatest(ch, d)
	}
}

func (r *PostgresDeviceStore) Close() {
	r.logger.Info("Closing Postgres device store")
	r.pool.Close()
}

func encodeServing(d DeviceServing) (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("failed to encode serving notification: %w", err)
	}
	return string(b), nil
}

func decodeServing(payload string) (DeviceServing, error) {
	var d DeviceServing
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return DeviceServing{}, err
	}
	if d.Value == "" {
		return DeviceServing{}, errors.New("missing value")
	}
	return d, nil
}
