package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tourlanka/tourlanka-backend/api/responses"
	paymentsvc "github.com/tourlanka/tourlanka-backend/internal/payments"
	pkgerrors "github.com/tourlanka/tourlanka-backend/pkg/errors"
	"github.com/tourlanka/tourlanka-backend/pkg/logger"
)

// AdminRefundPayment marks a completed payment refunded and tears down the
// subscription it activated.
func AdminRefundPayment(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		orderID := strings.TrimSpace(chi.URLParam(r, "orderID"))
		if orderID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "order id required"))
			return
		}

		if err := svc.MarkRefunded(r.Context(), orderID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"order_id": orderID, "status": "refunded"})
	}
}

// AdminReconcilePayments runs the stale-pending sweep on demand.
func AdminReconcilePayments(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}

		report, err := svc.Reconcile(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, report)
	}
}
