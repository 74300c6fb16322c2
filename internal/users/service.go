package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dshubenok/backender-challenge/pkg/db"
	apperrors "github.com/dshubenok/backender-challenge/pkg/errors"
	"github.com/dshubenok/backender-challenge/pkg/logger"
	"github.com/dshubenok/backender-challenge/pkg/outbox"
)

const eventUserCreated = "user_created"

// txRunner runs a function inside a database transaction.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// userCreatedContext is the event payload recorded for new users.
type userCreatedContext struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Service owns the user lifecycle. Creation appends a user_created event to
// the outbox in the same transaction as the user row, so either both commit
// or neither does.
type Service struct {
	tx     txRunner
	repo   *Repository
	outbox *outbox.Service
	logg   *logger.Logger
}

func NewService(tx txRunner, repo *Repository, outboxSvc *outbox.Service, logg *logger.Logger) *Service {
	return &Service{tx: tx, repo: repo, outbox: outboxSvc, logg: logg}
}

// Create persists a new user and enqueues the user_created event atomically.
func (s *Service) Create(ctx context.Context, dto CreateUserDTO) (*UserDTO, error) {
	user := dto.ToModel()

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.Create(tx, user); err != nil {
			return fmt.Errorf("inserting user: %w", err)
		}
		event := outbox.DomainEvent{
			Type:       eventUserCreated,
			OccurredAt: time.Now().UTC(),
			Payload: userCreatedContext{
				Email:     user.Email,
				FirstName: user.FirstName,
				LastName:  user.LastName,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, apperrors.New(apperrors.CodeConflict, "user with this email already exists")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to create user")
	}

	if s.logg != nil {
		userCtx := s.logg.WithField(ctx, "user_id", user.ID.String())
		s.logg.Info(userCtx, "user created")
	}
	return FromModel(user), nil
}

func parseUserID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.New(apperrors.CodeValidation, "invalid user id")
	}
	return id, nil
}

// GetByID returns the user or a not-found error.
func (s *Service) GetByID(ctx context.Context, id string) (*UserDTO, error) {
	userID, err := parseUserID(id)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "user not found")
		}
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to load user")
	}
	return FromModel(user), nil
}
