package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	paymentsvc "github.com/tourlanka/tourlanka-backend/internal/payments"
	pkgerrors "github.com/tourlanka/tourlanka-backend/pkg/errors"
)

func TestAdminRefundPayment(t *testing.T) {
	svc := &fakePaymentsService{}

	r := chi.NewRouter()
	r.Post("/api/admin/v1/payments/{orderID}/refund", AdminRefundPayment(svc, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/payments/TL-abc/refund", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.refundedOrder != "TL-abc" {
		t.Fatalf("expected refund call for TL-abc, got %q", svc.refundedOrder)
	}
}

func TestAdminRefundPaymentStateConflict(t *testing.T) {
	svc := &fakePaymentsService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "payment is not completed")}

	r := chi.NewRouter()
	r.Post("/api/admin/v1/payments/{orderID}/refund", AdminRefundPayment(svc, nil))

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/payments/TL-abc/refund", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestAdminReconcilePayments(t *testing.T) {
	svc := &fakePaymentsService{report: &paymentsvc.ReconcileReport{Scanned: 3, Completed: 1, Failed: 1, Skipped: 1}}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/payments/reconcile", nil)
	AdminReconcilePayments(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
}
