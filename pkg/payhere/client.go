package payhere

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tourlanka/tourlanka-backend/pkg/config"
	"github.com/tourlanka/tourlanka-backend/pkg/logger"
)

const (
	checkoutPath = "/pay/checkout"
	tokenPath    = "/merchant/v1/oauth/token"
	searchPath   = "/merchant/v1/payment/search"

	defaultTimeout = 15 * time.Second
)

var (
	errMerchantIDRequired     = errors.New("payhere merchant id is required")
	errMerchantSecretRequired = errors.New("payhere merchant secret is required")
)

// Client talks to the PayHere merchant APIs. Checkout is redirect-based so
// CheckoutRequest only prepares the signed form fields; the retrieval API is
// used by reconciliation to ask the gateway for a payment's final status.
type Client struct {
	merchantID     string
	merchantSecret string
	appID          string
	appSecret      string
	baseURL        string
	returnURL      string
	cancelURL      string
	notifyURL      string

	httpClient *http.Client
}

// NewClient validates the merchant credentials and returns a ready client.
func NewClient(ctx context.Context, cfg config.PayHereConfig, logg *logger.Logger) (*Client, error) {
	merchantID := strings.TrimSpace(cfg.MerchantID)
	if merchantID == "" {
		return nil, errMerchantIDRequired
	}
	merchantSecret := strings.TrimSpace(cfg.MerchantSecret)
	if merchantSecret == "" {
		return nil, errMerchantSecretRequired
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("payhere base url is required")
	}

	if logg != nil {
		logg.Info(ctx, fmt.Sprintf("payhere client initialized (%s)", baseURL))
	}

	return &Client{
		merchantID:     merchantID,
		merchantSecret: merchantSecret,
		appID:          strings.TrimSpace(cfg.AppID),
		appSecret:      strings.TrimSpace(cfg.AppSecret),
		baseURL:        baseURL,
		returnURL:      strings.TrimSpace(cfg.ReturnURL),
		cancelURL:      strings.TrimSpace(cfg.CancelURL),
		notifyURL:      strings.TrimSpace(cfg.NotifyURL),
		httpClient:     &http.Client{Timeout: defaultTimeout},
	}, nil
}

// MerchantID returns the configured merchant id.
func (c *Client) MerchantID() string {
	if c == nil {
		return ""
	}
	return c.merchantID
}

// CheckoutURL returns the hosted checkout endpoint the browser posts to.
func (c *Client) CheckoutURL() string {
	if c == nil {
		return ""
	}
	return c.baseURL + checkoutPath
}

// CheckoutRequest is the signed field set the frontend posts to the hosted
// checkout page.
type CheckoutRequest struct {
	MerchantID string `json:"merchant_id"`
	ReturnURL  string `json:"return_url"`
	CancelURL  string `json:"cancel_url"`
	NotifyURL  string `json:"notify_url"`
	OrderID    string `json:"order_id"`
	Items      string `json:"items"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	Hash       string `json:"hash"`
}

// BuildCheckout prepares the signed checkout fields for an order.
func (c *Client) BuildCheckout(orderID, items string, amount decimal.Decimal, currency string) (*CheckoutRequest, error) {
	if orderID == "" {
		return nil, errors.New("order id is required")
	}
	if currency == "" {
		return nil, errors.New("currency is required")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("amount must be positive, got %s", amount)
	}

	formatted := FormatAmount(amount)
	return &CheckoutRequest{
		MerchantID: c.merchantID,
		ReturnURL:  c.returnURL,
		CancelURL:  c.cancelURL,
		NotifyURL:  c.notifyURL,
		OrderID:    orderID,
		Items:      items,
		Amount:     formatted,
		Currency:   currency,
		Hash:       c.CheckoutHash(orderID, formatted, currency),
	}, nil
}

// CheckoutHash computes the checkout signature:
//
//	UPPER(MD5(merchantID + orderID + amount + currency + UPPER(MD5(secret))))
func (c *Client) CheckoutHash(orderID, amount, currency string) string {
	return upperMD5(c.merchantID + orderID + amount + currency + hashSecret(c.merchantSecret))
}

// VerifyNotification checks a parsed notification against this merchant's
// credentials.
func (c *Client) VerifyNotification(n *Notification) bool {
	return VerifyNotification(c.merchantID, c.merchantSecret, n)
}

// FormatAmount renders an amount with exactly two decimal places, the format
// the gateway signs over.
func FormatAmount(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// AccessToken fetches an OAuth token for the merchant retrieval APIs.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	if c.appID == "" || c.appSecret == "" {
		return "", errors.New("payhere app credentials are required for retrieval APIs")
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+tokenPath, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	basic := base64.StdEncoding.EncodeToString([]byte(c.appID + ":" + c.appSecret))
	req.Header.Set("Authorization", "Basic "+basic)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request failed with status %d", resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", errors.New("token response missing access_token")
	}
	return tok.AccessToken, nil
}

// PaymentRecord is one payment returned by the retrieval API.
type PaymentRecord struct {
	PaymentID  int64  `json:"payment_id"`
	OrderID    string `json:"order_id"`
	StatusCode string `json:"status_code"`
	Method     string `json:"method"`
	Currency   string `json:"currency"`
	Amount     string `json:"amount"`
}

type searchResponse struct {
	Status int             `json:"status"`
	Msg    string          `json:"msg"`
	Data   []PaymentRecord `json:"data"`
}

// SearchPayments asks the retrieval API for all payment attempts recorded
// against an order id. An empty slice means the gateway has no record.
func (c *Client) SearchPayments(ctx context.Context, token, orderID string) ([]PaymentRecord, error) {
	if token == "" {
		return nil, errors.New("access token is required")
	}
	if orderID == "" {
		return nil, errors.New("order id is required")
	}

	endpoint := fmt.Sprintf("%s%s?order_id=%s", c.baseURL, searchPath, url.QueryEscape(orderID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search payments: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request failed with status %d", resp.StatusCode)
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if parsed.Status != 1 {
		return nil, fmt.Errorf("search rejected: %s", parsed.Msg)
	}
	return parsed.Data, nil
}
