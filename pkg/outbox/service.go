package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/dshubenok/backender-challenge/pkg/db/models"
	"github.com/dshubenok/backender-challenge/pkg/logger"
)

const defaultMetadataVersion = 1

// DomainEvent is what producers hand to Emit. Payload may be any domain
// object; it is marshaled to one canonical JSON document here, at the
// producer boundary, so nothing downstream branches on payload shape.
type DomainEvent struct {
	Type            string
	OccurredAt      time.Time
	Payload         any
	MetadataVersion int64
}

// Service stamps environment/defaults onto domain events and appends them to
// the outbox inside the producer's transaction.
type Service struct {
	repo        *Repository
	environment string
	logg        *logger.Logger
}

func NewService(repo *Repository, environment string, logg *logger.Logger) *Service {
	return &Service{repo: repo, environment: environment, logg: logg}
}

func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if event.Type == "" {
		return errors.New("event type is required")
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshaling event context: %w", err)
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if event.MetadataVersion <= 0 {
		event.MetadataVersion = defaultMetadataVersion
	}

	record := models.OutboxRecord{
		EventType:       event.Type,
		EventDateTime:   event.OccurredAt,
		Environment:     s.environment,
		EventContext:    payload,
		MetadataVersion: event.MetadataVersion,
	}
	if err := s.repo.Insert(tx, &record); err != nil {
		return fmt.Errorf("appending outbox record: %w", err)
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"event_type":       event.Type,
			"metadata_version": event.MetadataVersion,
		})
		s.logg.Info(logCtx, "outbox event queued")
	}
	return nil
}
