package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/tourlanka/tourlanka-backend/api/middleware"
	paymentsvc "github.com/tourlanka/tourlanka-backend/internal/payments"
	"github.com/tourlanka/tourlanka-backend/pkg/enums"
	pkgerrors "github.com/tourlanka/tourlanka-backend/pkg/errors"
	"github.com/tourlanka/tourlanka-backend/pkg/payhere"
)

type fakePaymentsService struct {
	lastInput     paymentsvc.CheckoutInput
	payhereResult *paymentsvc.PayHereCheckout
	stripeResult  *paymentsvc.StripeCheckout
	statusResult  *paymentsvc.StatusView
	refundedOrder string
	report        *paymentsvc.ReconcileReport
	err           error
}

func (f *fakePaymentsService) CreatePayHereCheckout(ctx context.Context, input paymentsvc.CheckoutInput) (*paymentsvc.PayHereCheckout, error) {
	f.lastInput = input
	return f.payhereResult, f.err
}

func (f *fakePaymentsService) CreateStripeCheckout(ctx context.Context, input paymentsvc.CheckoutInput) (*paymentsvc.StripeCheckout, error) {
	f.lastInput = input
	return f.stripeResult, f.err
}

func (f *fakePaymentsService) GetStatus(ctx context.Context, orderID string, userID uuid.UUID) (*paymentsvc.StatusView, error) {
	if f.statusResult == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
	}
	return f.statusResult, f.err
}

func (f *fakePaymentsService) ProcessSuccess(ctx context.Context, orderID, gatewayPaymentID string, gateway enums.PaymentGateway) error {
	return f.err
}

func (f *fakePaymentsService) MarkFailed(ctx context.Context, orderID, reason string, gateway enums.PaymentGateway) error {
	return f.err
}

func (f *fakePaymentsService) MarkRefunded(ctx context.Context, orderID string) error {
	f.refundedOrder = orderID
	return f.err
}

func (f *fakePaymentsService) Reconcile(ctx context.Context) (*paymentsvc.ReconcileReport, error) {
	return f.report, f.err
}

func authedRequest(t *testing.T, method, target string, body []byte, userID uuid.UUID) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
}

func TestCreatePayHereCheckout(t *testing.T) {
	userID := uuid.New()
	svc := &fakePaymentsService{
		payhereResult: &paymentsvc.PayHereCheckout{
			OrderID:     "TL-test",
			CheckoutURL: "https://sandbox.payhere.lk/pay/checkout",
			Fields:      &payhere.CheckoutRequest{OrderID: "TL-test", Amount: "49900.00", Currency: "LKR"},
		},
	}

	body, _ := json.Marshal(map[string]string{"service_type": "business_listing_yearly"})
	req := authedRequest(t, http.MethodPost, "/api/v1/payments/checkout/payhere", body, userID)
	rec := httptest.NewRecorder()
	CreatePayHereCheckout(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.lastInput.UserID != userID {
		t.Fatalf("expected user id forwarded, got %s", svc.lastInput.UserID)
	}
	if svc.lastInput.ServiceType != enums.ServiceBusinessListingYearly {
		t.Fatalf("unexpected service type %s", svc.lastInput.ServiceType)
	}

	var envelope struct {
		Data paymentsvc.PayHereCheckout `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.OrderID != "TL-test" {
		t.Fatalf("unexpected order id %s", envelope.Data.OrderID)
	}
}

func TestCreatePayHereCheckoutRejectsUnknownServiceType(t *testing.T) {
	svc := &fakePaymentsService{}
	body, _ := json.Marshal(map[string]string{"service_type": "free_lunch"})
	req := authedRequest(t, http.MethodPost, "/api/v1/payments/checkout/payhere", body, uuid.New())
	rec := httptest.NewRecorder()
	CreatePayHereCheckout(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreatePayHereCheckoutRequiresAuth(t *testing.T) {
	svc := &fakePaymentsService{}
	body, _ := json.Marshal(map[string]string{"service_type": "business_listing_monthly"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/checkout/payhere", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	CreatePayHereCheckout(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestCreateStripeCheckout(t *testing.T) {
	itemID := uuid.New()
	svc := &fakePaymentsService{
		stripeResult: &paymentsvc.StripeCheckout{
			OrderID:    "TL-test",
			SessionID:  "cs_test_123",
			SessionURL: "https://checkout.stripe.com/c/pay/cs_test_123",
		},
	}

	body, _ := json.Marshal(map[string]any{"service_type": "vehicle_premium_monthly", "item_id": itemID})
	req := authedRequest(t, http.MethodPost, "/api/v1/payments/checkout/stripe", body, uuid.New())
	rec := httptest.NewRecorder()
	CreateStripeCheckout(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.lastInput.ItemID == nil || *svc.lastInput.ItemID != itemID {
		t.Fatalf("expected item id forwarded")
	}
}
