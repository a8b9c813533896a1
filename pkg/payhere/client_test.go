package payhere

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tourlanka/tourlanka-backend/pkg/config"
)

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	client, err := NewClient(context.Background(), config.PayHereConfig{
		MerchantID:     "1211149",
		MerchantSecret: "merchant-secret",
		AppID:          "app-id",
		AppSecret:      "app-secret",
		BaseURL:        baseURL,
		ReturnURL:      "https://example.com/return",
		CancelURL:      "https://example.com/cancel",
		NotifyURL:      "https://example.com/notify",
	}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(context.Background(), config.PayHereConfig{BaseURL: "https://sandbox.payhere.lk"}, nil); err == nil {
		t.Fatal("expected error for missing merchant id")
	}
	if _, err := NewClient(context.Background(), config.PayHereConfig{MerchantID: "m", BaseURL: "https://sandbox.payhere.lk"}, nil); err == nil {
		t.Fatal("expected error for missing merchant secret")
	}
}

func TestCheckoutHash(t *testing.T) {
	client := newTestClient(t, "https://sandbox.payhere.lk")

	inner := md5.Sum([]byte("merchant-secret"))
	innerHex := strings.ToUpper(hex.EncodeToString(inner[:]))
	outer := md5.Sum([]byte("1211149" + "TL-123" + "4999.00" + "LKR" + innerHex))
	want := strings.ToUpper(hex.EncodeToString(outer[:]))

	if got := client.CheckoutHash("TL-123", "4999.00", "LKR"); got != want {
		t.Fatalf("hash mismatch: got %s want %s", got, want)
	}
}

func TestBuildCheckout(t *testing.T) {
	client := newTestClient(t, "https://sandbox.payhere.lk")

	req, err := client.BuildCheckout("TL-123", "Business Listing (yearly)", decimal.RequireFromString("4999"), "LKR")
	if err != nil {
		t.Fatalf("build checkout: %v", err)
	}
	if req.Amount != "4999.00" {
		t.Fatalf("amount not normalized to two decimals: %s", req.Amount)
	}
	if req.Hash != client.CheckoutHash("TL-123", "4999.00", "LKR") {
		t.Fatal("hash does not cover the formatted amount")
	}
	if req.NotifyURL != "https://example.com/notify" {
		t.Fatalf("notify url not propagated: %s", req.NotifyURL)
	}
}

func TestBuildCheckoutRejectsNonPositiveAmount(t *testing.T) {
	client := newTestClient(t, "https://sandbox.payhere.lk")
	if _, err := client.BuildCheckout("TL-123", "item", decimal.Zero, "LKR"); err == nil {
		t.Fatal("expected error for zero amount")
	}
}

func TestVerifyNotificationRoundTrip(t *testing.T) {
	client := newTestClient(t, "https://sandbox.payhere.lk")

	n := &Notification{
		MerchantID:      "1211149",
		OrderID:         "TL-123",
		PayHereAmount:   "4999.00",
		PayHereCurrency: "LKR",
		StatusCode:      StatusCodeSuccess,
	}
	n.MD5Sig = NotificationSignature("1211149", "merchant-secret", n)

	if !client.VerifyNotification(n) {
		t.Fatal("expected valid signature to verify")
	}

	// lowercase signatures from the gateway must still verify
	n.MD5Sig = strings.ToLower(n.MD5Sig)
	if !client.VerifyNotification(n) {
		t.Fatal("expected case-insensitive verification")
	}

	n.PayHereAmount = "1.00"
	if client.VerifyNotification(n) {
		t.Fatal("expected tampered amount to fail verification")
	}
}

func TestParseNotification(t *testing.T) {
	form := url.Values{}
	form.Set("merchant_id", "1211149")
	form.Set("order_id", "TL-123")
	form.Set("payment_id", "320025")
	form.Set("payhere_amount", "4999.00")
	form.Set("payhere_currency", "LKR")
	form.Set("status_code", "2")
	form.Set("md5sig", "ABC")
	form.Set("method", "VISA")

	n, err := ParseNotification(form)
	if err != nil {
		t.Fatalf("parse notification: %v", err)
	}
	if !n.Succeeded() {
		t.Fatal("status code 2 must report success")
	}
	if n.Terminal() {
		t.Fatal("success is not a terminal failure code")
	}

	form.Del("md5sig")
	if _, err := ParseNotification(form); err == nil {
		t.Fatal("expected error for missing md5sig")
	}
}

func TestNotificationTerminalCodes(t *testing.T) {
	for _, code := range []string{StatusCodeCanceled, StatusCodeFailed, StatusCodeChargedback} {
		n := &Notification{StatusCode: code}
		if !n.Terminal() {
			t.Fatalf("code %s must be terminal", code)
		}
		if n.Succeeded() {
			t.Fatalf("code %s must not report success", code)
		}
	}
	if (&Notification{StatusCode: StatusCodePending}).Terminal() {
		t.Fatal("pending is not terminal")
	}
}

func TestAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/merchant/v1/oauth/token" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "app-id" || pass != "app-secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok_123","token_type":"bearer","expires_in":600}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	token, err := client.AccessToken(context.Background())
	if err != nil {
		t.Fatalf("access token: %v", err)
	}
	if token != "tok_123" {
		t.Fatalf("unexpected token %s", token)
	}
}

func TestSearchPayments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/merchant/v1/payment/search" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok_123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if got := r.URL.Query().Get("order_id"); got != "TL-123" {
			t.Fatalf("unexpected order id %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":1,"msg":"ok","data":[{"payment_id":320025,"order_id":"TL-123","status_code":"2","method":"VISA","currency":"LKR","amount":"4999.00"}]}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	records, err := client.SearchPayments(context.Background(), "tok_123", "TL-123")
	if err != nil {
		t.Fatalf("search payments: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected one record, got %d", len(records))
	}
	if records[0].StatusCode != StatusCodeSuccess {
		t.Fatalf("unexpected status code %s", records[0].StatusCode)
	}
}

func TestSearchPaymentsNoRecord(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	records, err := client.SearchPayments(context.Background(), "tok_123", "TL-missing")
	if err != nil {
		t.Fatalf("search payments: %v", err)
	}
	if records != nil {
		t.Fatalf("expected no records, got %v", records)
	}
}
