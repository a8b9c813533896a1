package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tourlanka/tourlanka-backend/api/middleware"
	"github.com/tourlanka/tourlanka-backend/api/responses"
	paymentsvc "github.com/tourlanka/tourlanka-backend/internal/payments"
	pkgerrors "github.com/tourlanka/tourlanka-backend/pkg/errors"
	"github.com/tourlanka/tourlanka-backend/pkg/logger"
)

// PaymentStatus returns the purchaser's view of one payment. Lookup is scoped
// to the authenticated user so order ids cannot be enumerated.
func PaymentStatus(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context"))
			return
		}

		orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
		if orderID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id required"))
			return
		}

		status, err := svc.GetStatus(r.Context(), orderID, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, status)
	}
}
