package controllers

import (
	"context"
	"net/http"

	"github.com/epharm-labs/epharm-backend/api/responses"
	"github.com/epharm-labs/epharm-backend/api/validators"
	authsvc "github.com/epharm-labs/epharm-backend/internal/auth"
	pkgerrors "github.com/epharm-labs/epharm-backend/pkg/errors"
	"github.com/epharm-labs/epharm-backend/pkg/logger"
)

type authService interface {
	Register(ctx context.Context, input authsvc.RegisterInput) (*authsvc.UserProfile, error)
	Login(ctx context.Context, input authsvc.LoginInput) (*authsvc.TokenResult, error)
}

// AuthRegister creates a customer account.
func AuthRegister(svc authService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var payload authsvc.RegisterInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		profile, err := svc.Register(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, profile)
	}
}

// AuthLogin exchanges credentials for a bearer token.
func AuthLogin(svc authService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var payload authsvc.LoginInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
