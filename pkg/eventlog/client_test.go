package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"

	"github.com/dshubenok/backender-challenge/pkg/config"
	"github.com/dshubenok/backender-challenge/pkg/logger"
)

func newTestClient(t *testing.T, factory batchFactory, retries int) *Client {
	t.Helper()
	return &Client{
		cfg: config.ClickHouseConfig{
			Database: "event_log",
			Table:    "event_log",
			Retries:  retries,
		},
		logg:     logger.New(logger.Options{ServiceName: "eventlog-test", Output: io.Discard}),
		newBatch: factory,
	}
}

func sampleRows() []Row {
	return []Row{
		{
			EventType:     "user_created",
			EventDateTime: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			Environment:   "test",
			EventContext:  json.RawMessage(`{"email":"a@example.com"}`),
		},
		{
			EventType:     "user_created",
			EventDateTime: time.Date(2025, 6, 1, 12, 0, 1, 0, time.UTC),
			Environment:   "test",
			EventContext:  json.RawMessage(`{"email":"b@example.com"}`),
		},
	}
}

func TestInsertEmptyIsNoOpWithoutContactingStore(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(ctx context.Context) (batch, error) {
		calls++
		return &fakeBatch{}, nil
	}, 2)

	if err := client.Insert(context.Background(), nil); err != nil {
		t.Fatalf("empty insert returned error: %v", err)
	}
	if calls != 0 {
		t.Fatalf("empty insert prepared %d batches, want 0", calls)
	}
}

func TestInsertAppendsRowsInColumnOrderAndSendsOnce(t *testing.T) {
	fake := &fakeBatch{}
	client := newTestClient(t, func(ctx context.Context) (batch, error) {
		return fake, nil
	}, 2)

	rows := sampleRows()
	if err := client.Insert(context.Background(), rows); err != nil {
		t.Fatalf("insert returned error: %v", err)
	}
	if fake.sends != 1 {
		t.Fatalf("expected exactly one send, got %d", fake.sends)
	}
	if len(fake.appended) != 2 {
		t.Fatalf("expected 2 appended rows, got %d", len(fake.appended))
	}

	first := fake.appended[0]
	if len(first) != 4 {
		t.Fatalf("expected 4 columns per row, got %d", len(first))
	}
	if first[0] != "user_created" {
		t.Fatalf("unexpected event_type column: %v", first[0])
	}
	if _, ok := first[1].(time.Time); !ok {
		t.Fatalf("event_date_time not a time.Time: %T", first[1])
	}
	if first[2] != "test" {
		t.Fatalf("unexpected environment column: %v", first[2])
	}
	contextText, ok := first[3].(string)
	if !ok {
		t.Fatalf("event_context not rendered to text: %T", first[3])
	}
	var decoded map[string]string
	if err := json.Unmarshal([]byte(contextText), &decoded); err != nil {
		t.Fatalf("event_context is not valid serialized JSON: %v", err)
	}
	if decoded["email"] != "a@example.com" {
		t.Fatalf("unexpected context payload: %v", decoded)
	}
}

func TestInsertRetriesTransportErrorsWithinBudget(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(ctx context.Context) (batch, error) {
		attempts++
		if attempts <= 2 {
			return nil, errors.New("connection refused")
		}
		return &fakeBatch{}, nil
	}, 2)

	if err := client.Insert(context.Background(), sampleRows()); err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestInsertExhaustedRetriesSurfaceError(t *testing.T) {
	attempts := 0
	cause := errors.New("connection refused")
	client := newTestClient(t, func(ctx context.Context) (batch, error) {
		attempts++
		return nil, cause
	}, 2)

	err := client.Insert(context.Background(), sampleRows())
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause preserved, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", attempts)
	}
}

func TestInsertDoesNotRetryServerExceptions(t *testing.T) {
	attempts := 0
	client := newTestClient(t, func(ctx context.Context) (batch, error) {
		attempts++
		return &fakeBatch{sendErr: &clickhouse.Exception{Code: 60, Message: "table does not exist"}}, nil
	}, 2)

	err := client.Insert(context.Background(), sampleRows())
	if err == nil {
		t.Fatal("expected server exception to surface")
	}
	if !IsServerException(err) {
		t.Fatalf("expected server exception classification, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("server exceptions must not be retried, got %d attempts", attempts)
	}
}

func TestInsertAbortsBatchOnAppendFailure(t *testing.T) {
	fake := &fakeBatch{appendErr: errors.New("bad column")}
	client := newTestClient(t, func(ctx context.Context) (batch, error) {
		return fake, nil
	}, 0)

	if err := client.Insert(context.Background(), sampleRows()); err == nil {
		t.Fatal("expected append failure to surface")
	}
	if fake.aborts != 1 {
		t.Fatalf("expected aborted batch, got %d aborts", fake.aborts)
	}
	if fake.sends != 0 {
		t.Fatalf("aborted batch must not be sent, got %d sends", fake.sends)
	}
}

type fakeBatch struct {
	appended  [][]any
	appendErr error
	sendErr   error
	sends     int
	aborts    int
}

func (f *fakeBatch) Append(v ...any) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, v)
	return nil
}

func (f *fakeBatch) Send() error {
	f.sends++
	return f.sendErr
}

func (f *fakeBatch) Abort() error {
	f.aborts++
	return nil
}
