package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tourlanka/tourlanka-backend/api/middleware"
	paymentsvc "github.com/tourlanka/tourlanka-backend/internal/payments"
	"github.com/tourlanka/tourlanka-backend/pkg/enums"
)

func TestPaymentStatus(t *testing.T) {
	svc := &fakePaymentsService{
		statusResult: &paymentsvc.StatusView{
			OrderID:     "TL-abc",
			ServiceType: enums.ServiceGuidePremiumMonthly,
			Status:      enums.PaymentStatusCompleted,
			Amount:      decimal.NewFromInt(1990),
			Currency:    "LKR",
		},
	}

	r := chi.NewRouter()
	r.Get("/api/v1/payments/{orderID}", PaymentStatus(svc, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/TL-abc", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestPaymentStatusNotFound(t *testing.T) {
	svc := &fakePaymentsService{}

	r := chi.NewRouter()
	r.Get("/api/v1/payments/{orderID}", PaymentStatus(svc, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/TL-missing", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}
