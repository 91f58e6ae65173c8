package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/epharm-labs/epharm-backend/api/middleware"
	"github.com/epharm-labs/epharm-backend/api/responses"
	"github.com/epharm-labs/epharm-backend/api/validators"
	authsvc "github.com/epharm-labs/epharm-backend/internal/auth"
	"github.com/epharm-labs/epharm-backend/pkg/db/models"
	pkgerrors "github.com/epharm-labs/epharm-backend/pkg/errors"
	"github.com/epharm-labs/epharm-backend/pkg/logger"
	"github.com/epharm-labs/epharm-backend/pkg/pagination"
)

type profileService interface {
	Profile(ctx context.Context, userID string) (*authsvc.UserProfile, error)
}

type orderHistoryService interface {
	ListByUser(ctx context.Context, userID uuid.UUID, paging pagination.Params) ([]models.Order, error)
}

type userMeResponse struct {
	User   *authsvc.UserProfile `json:"user"`
	Orders []models.Order       `json:"orders"`
}

// UserMe returns the authenticated user's profile with recent order history.
func UserMe(profiles profileService, orders orderHistoryService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if profiles == nil || orders == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		uid, err := uuid.Parse(userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := profiles.Profile(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		history, err := orders.ListByUser(r.Context(), uid, pagination.Params{Limit: limit, Offset: offset})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, userMeResponse{User: profile, Orders: history})
	}
}
