package payhere

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// Gateway status codes carried in the server-to-server notification.
const (
	StatusCodeSuccess     = "2"
	StatusCodePending     = "0"
	StatusCodeCanceled    = "-1"
	StatusCodeFailed      = "-2"
	StatusCodeChargedback = "-3"
)

// Notification is the form-encoded payload PayHere posts to the notify URL.
// Field names follow the gateway's wire format.
type Notification struct {
	MerchantID      string
	OrderID         string
	PaymentID       string
	PayHereAmount   string
	PayHereCurrency string
	StatusCode      string
	MD5Sig          string
	Method          string
	StatusMessage   string
}

// ParseNotification decodes the notification fields from parsed form values.
func ParseNotification(form url.Values) (*Notification, error) {
	n := &Notification{
		MerchantID:      strings.TrimSpace(form.Get("merchant_id")),
		OrderID:         strings.TrimSpace(form.Get("order_id")),
		PaymentID:       strings.TrimSpace(form.Get("payment_id")),
		PayHereAmount:   strings.TrimSpace(form.Get("payhere_amount")),
		PayHereCurrency: strings.TrimSpace(form.Get("payhere_currency")),
		StatusCode:      strings.TrimSpace(form.Get("status_code")),
		MD5Sig:          strings.TrimSpace(form.Get("md5sig")),
		Method:          strings.TrimSpace(form.Get("method")),
		StatusMessage:   strings.TrimSpace(form.Get("status_message")),
	}
	if n.MerchantID == "" || n.OrderID == "" || n.PayHereAmount == "" ||
		n.PayHereCurrency == "" || n.StatusCode == "" || n.MD5Sig == "" {
		return nil, fmt.Errorf("notification missing required fields")
	}
	return n, nil
}

// Succeeded reports whether the notification carries the success status code.
func (n *Notification) Succeeded() bool {
	return n.StatusCode == StatusCodeSuccess
}

// Terminal reports whether the status code ends the payment attempt
// (canceled, failed, or charged back).
func (n *Notification) Terminal() bool {
	switch n.StatusCode {
	case StatusCodeCanceled, StatusCodeFailed, StatusCodeChargedback:
		return true
	}
	return false
}

// NotificationSignature computes the expected md5sig for a notification:
//
//	UPPER(MD5(merchantID + orderID + amount + currency + statusCode + UPPER(MD5(secret))))
func NotificationSignature(merchantID, merchantSecret string, n *Notification) string {
	payload := merchantID + n.OrderID + n.PayHereAmount + n.PayHereCurrency + n.StatusCode + hashSecret(merchantSecret)
	return upperMD5(payload)
}

// VerifyNotification checks the md5sig against the local recomputation.
// Comparison is constant-time and case-insensitive.
func VerifyNotification(merchantID, merchantSecret string, n *Notification) bool {
	if n == nil {
		return false
	}
	expected := NotificationSignature(merchantID, merchantSecret, n)
	provided := strings.ToUpper(n.MD5Sig)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}

func hashSecret(secret string) string {
	return upperMD5(secret)
}

func upperMD5(s string) string {
	sum := md5.Sum([]byte(s))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
