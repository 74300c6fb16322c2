package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/dshubenok/backender-challenge/pkg/config"
	"github.com/dshubenok/backender-challenge/pkg/logger"
)

// The event_log column order is part of the wire contract with the sink
// schema. Reordering requires a coordinated table migration.
const insertColumns = "event_type, event_date_time, environment, event_context"

var errClientNotInitialized = errors.New("event log client not initialized")

// Row is the flattened projection delivered to the analytical store. The
// context stays a structured document until Append, where the client renders
// it to text uniformly for every producer.
type Row struct {
	EventType     string
	EventDateTime time.Time
	Environment   string
	EventContext  json.RawMessage
}

type chConn interface {
	Ping(context.Context) error
	Close() error
}

type batch interface {
	Append(v ...any) error
	Send() error
	Abort() error
}

type batchFactory func(ctx context.Context) (batch, error)

// Client owns one scoped connection to the ClickHouse event log. Callers
// must Close it on every exit path of the enclosing operation.
type Client struct {
	conn     chConn
	cfg      config.ClickHouseConfig
	logg     *logger.Logger
	newBatch batchFactory
}

// Open dials the sink with the configured auth and timeouts and verifies the
// connection before handing it out.
func Open(ctx context.Context, cfg config.ClickHouseConfig, logg *logger.Logger) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.Addr()},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
		DialTimeout: cfg.DialTimeout,
		ReadTimeout: cfg.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening clickhouse connection: %w", err)
	}
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("pinging clickhouse: %w", err)
	}

	statement := fmt.Sprintf("INSERT INTO %s.%s (%s)", cfg.Database, cfg.Table, insertColumns)
	client := &Client{
		conn: conn,
		cfg:  cfg,
		logg: logg,
		newBatch: func(ctx context.Context) (batch, error) {
			return conn.PrepareBatch(ctx, statement)
		},
	}

	if logg != nil {
		logg.Debug(logg.WithField(ctx, "addr", cfg.Addr()), "event log client opened")
	}
	return client, nil
}

// Insert delivers all rows as a single bulk batch. Empty input is a success
// without touching the connection. Transport failures are retried up to the
// configured budget; server-side rejections are surfaced immediately since
// resending the same batch cannot fix them.
func (c *Client) Insert(ctx context.Context, rows []Row) error {
	if c == nil || c.newBatch == nil {
		return errClientNotInitialized
	}
	if len(rows) == 0 {
		if c.logg != nil {
			c.logg.Debug(ctx, "no event log rows to insert")
		}
		return nil
	}

	var err error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			if waitErr := sleep(ctx, retryDelay(attempt)); waitErr != nil {
				err = waitErr
				break
			}
		}
		if err = c.insertBatch(ctx, rows); err == nil {
			if c.logg != nil {
				logCtx := c.logg.WithField(ctx, "count", len(rows))
				c.logg.Info(logCtx, "event log rows inserted")
			}
			return nil
		}
		if IsServerException(err) || errors.Is(err, context.Canceled) {
			break
		}
	}

	if c.logg != nil {
		c.logg.Error(c.logg.WithField(ctx, "count", len(rows)), "event log insert failed", err)
	}
	return fmt.Errorf("inserting %d event log rows: %w", len(rows), err)
}

func (c *Client) insertBatch(ctx context.Context, rows []Row) error {
	b, err := c.newBatch(ctx)
	if err != nil {
		return fmt.Errorf("preparing batch: %w", err)
	}
	for _, row := range rows {
		if err := b.Append(
			row.EventType,
			row.EventDateTime,
			row.Environment,
			string(row.EventContext),
		); err != nil {
			_ = b.Abort()
			return fmt.Errorf("appending row: %w", err)
		}
	}
	return b.Send()
}

// Ping verifies the sink is still reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.conn == nil {
		return errClientNotInitialized
	}
	return c.conn.Ping(ctx)
}

// Close releases the connection.
func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// IsServerException reports whether the error is a ClickHouse server-side
// rejection (schema mismatch, malformed row) rather than a transport fault.
func IsServerException(err error) bool {
	var ex *clickhouse.Exception
	return errors.As(err, &ex)
}

func retryDelay(attempt int) time.Duration {
	return time.Duration(attempt) * 500 * time.Millisecond
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
