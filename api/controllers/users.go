package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dshubenok/backender-challenge/api/responses"
	"github.com/dshubenok/backender-challenge/api/validators"
	"github.com/dshubenok/backender-challenge/internal/users"
	"github.com/dshubenok/backender-challenge/pkg/logger"
)

// UsersService is the surface the user endpoints depend on.
type UsersService interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*users.UserDTO, error)
	GetByID(ctx context.Context, id string) (*users.UserDTO, error)
}

type createUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
}

// CreateUser persists a user and enqueues its user_created event in one
// transaction.
func CreateUser(svc UsersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req createUserRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		dto, err := svc.Create(ctx, users.CreateUserDTO{
			Email:     req.Email,
			FirstName: req.FirstName,
			LastName:  req.LastName,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, dto)
	}
}

// GetUser fetches a user by id.
func GetUser(svc UsersService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		dto, err := svc.GetByID(ctx, chi.URLParam(r, "userId"))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, dto)
	}
}
