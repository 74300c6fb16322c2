package relay

import (
	"context"
	"fmt"

	"github.com/dshubenok/backender-challenge/internal/scheduler"
	"github.com/dshubenok/backender-challenge/pkg/config"
	"github.com/dshubenok/backender-challenge/pkg/db/models"
	"github.com/dshubenok/backender-challenge/pkg/eventlog"
	"github.com/dshubenok/backender-challenge/pkg/logger"
	"github.com/dshubenok/backender-challenge/pkg/metrics"
)

const jobName = "outbox-relay"

// outboxStore captures the outbox operations the relay depends on.
type outboxStore interface {
	FetchPending(ctx context.Context, limit int) ([]models.OutboxRecord, error)
	DeleteByIDs(ctx context.Context, ids []int64) (int64, error)
}

// sink is the scoped event log connection used for a single pass.
type sink interface {
	Insert(ctx context.Context, rows []eventlog.Row) error
	Close() error
}

// sinkFactory opens a fresh sink connection. Each pass gets its own so a
// wedged connection cannot poison later passes.
type sinkFactory func(ctx context.Context) (sink, error)

// ServiceParams configure the relay service.
type ServiceParams struct {
	Outbox     config.OutboxConfig
	ClickHouse config.ClickHouseConfig
	Logger     *logger.Logger
	Store      outboxStore
	OpenSink   sinkFactory
	Metrics    *metrics.RelayMetrics
}

// Service drains pending outbox rows to the analytical event store. Rows are
// deleted only after the sink acknowledges the batch, so every failure mode
// leaves them in place for the next pass. Duplicates on replay are expected;
// the sink is append-only and consumers deduplicate.
type Service struct {
	batchSize int
	logg      *logger.Logger
	store     outboxStore
	openSink  sinkFactory
	metrics   *metrics.RelayMetrics
}

// PassResult reports what a single dispatch pass accomplished.
type PassResult struct {
	Fetched   int
	Delivered int
	Deleted   int64
}

// NewService builds a relay service. When no sink factory is supplied the
// service dials the configured ClickHouse instance per pass.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("outbox store required")
	}
	batchSize := params.Outbox.BatchSize
	if batchSize <= 0 {
		batchSize = 1000
	}
	openSink := params.OpenSink
	if openSink == nil {
		chCfg := params.ClickHouse
		logg := params.Logger
		openSink = func(ctx context.Context) (sink, error) {
			return eventlog.Open(ctx, chCfg, logg)
		}
	}
	return &Service{
		batchSize: batchSize,
		logg:      params.Logger,
		store:     params.Store,
		openSink:  openSink,
		metrics:   params.Metrics,
	}, nil
}

// RunPass executes one fetch, deliver, delete cycle. On any failure the
// whole pass is abandoned and nothing is deleted; the same rows are picked
// up again on the next tick.
func (s *Service) RunPass(ctx context.Context) (PassResult, error) {
	records, err := s.store.FetchPending(ctx, s.batchSize)
	if err != nil {
		return s.fail(newPassError(FailureStoreRead, err))
	}
	if len(records) == 0 {
		s.logg.Debug(ctx, "no pending outbox events")
		return PassResult{}, nil
	}

	client, err := s.openSink(ctx)
	if err != nil {
		return s.fail(newPassError(FailureSinkConnect, err))
	}
	defer func() {
		if closeErr := client.Close(); closeErr != nil {
			s.logg.Warn(ctx, "failed to close event log connection: "+closeErr.Error())
		}
	}()

	rows, ids := project(records)
	if err := client.Insert(ctx, rows); err != nil {
		return s.fail(newPassError(FailureSinkInsert, err))
	}

	deleted, err := s.store.DeleteByIDs(ctx, ids)
	if err != nil {
		// The batch is already in the sink. The rows will be redelivered
		// next pass, which at-least-once delivery permits.
		s.logg.Error(ctx, "outbox rows delivered but not acknowledged", err)
		return s.fail(newPassError(FailureStoreDelete, err))
	}

	result := PassResult{Fetched: len(records), Delivered: len(rows), Deleted: deleted}
	if s.metrics != nil {
		s.metrics.ObservePass(result.Fetched, result.Delivered, int(result.Deleted))
	}
	passCtx := s.logg.WithFields(ctx, map[string]any{
		"fetched":   result.Fetched,
		"delivered": result.Delivered,
		"deleted":   result.Deleted,
	})
	s.logg.Info(passCtx, "outbox pass complete")
	return result, nil
}

// Job exposes the relay as a schedulable job.
func (s *Service) Job() scheduler.Job {
	return &relayJob{svc: s}
}

func (s *Service) fail(err *PassError) (PassResult, error) {
	if s.metrics != nil {
		s.metrics.IncFailure(string(err.Kind))
	}
	return PassResult{}, err
}

// project flattens outbox records into sink rows, preserving store order.
func project(records []models.OutboxRecord) ([]eventlog.Row, []int64) {
	rows := make([]eventlog.Row, 0, len(records))
	ids := make([]int64, 0, len(records))
	for _, record := range records {
		rows = append(rows, eventlog.Row{
			EventType:     record.EventType,
			EventDateTime: record.EventDateTime,
			Environment:   record.Environment,
			EventContext:  record.EventContext,
		})
		ids = append(ids, record.ID)
	}
	return rows, ids
}

type relayJob struct {
	svc *Service
}

func (j *relayJob) Name() string { return jobName }

func (j *relayJob) Run(ctx context.Context) error {
	_, err := j.svc.RunPass(ctx)
	return err
}
