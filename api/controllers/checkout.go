package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tourlanka/tourlanka-backend/api/middleware"
	"github.com/tourlanka/tourlanka-backend/api/responses"
	"github.com/tourlanka/tourlanka-backend/api/validators"
	paymentsvc "github.com/tourlanka/tourlanka-backend/internal/payments"
	"github.com/tourlanka/tourlanka-backend/pkg/enums"
	pkgerrors "github.com/tourlanka/tourlanka-backend/pkg/errors"
	"github.com/tourlanka/tourlanka-backend/pkg/logger"
)

type checkoutRequest struct {
	ServiceType string     `json:"service_type" validate:"required"`
	ItemID      *uuid.UUID `json:"item_id,omitempty" validate:"omitempty,uuid4"`
}

func (req checkoutRequest) toInput(userID uuid.UUID) (paymentsvc.CheckoutInput, error) {
	serviceType, err := enums.ParseServiceType(req.ServiceType)
	if err != nil {
		return paymentsvc.CheckoutInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown service type")
	}
	return paymentsvc.CheckoutInput{
		UserID:      userID,
		ServiceType: serviceType,
		ItemID:      req.ItemID,
	}, nil
}

// CreatePayHereCheckout creates a pending payment and returns the signed
// fields the frontend posts to the PayHere hosted page.
func CreatePayHereCheckout(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		checkout, err := svc.CreatePayHereCheckout(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkout)
	}
}

// CreateStripeCheckout creates a pending payment and a hosted Stripe session.
func CreateStripeCheckout(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput(userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		checkout, err := svc.CreateStripeCheckout(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, checkout)
	}
}
