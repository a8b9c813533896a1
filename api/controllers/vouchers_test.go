package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	vouchersvc "github.com/tourlanka/tourlanka-backend/internal/vouchers"
	pkgerrors "github.com/tourlanka/tourlanka-backend/pkg/errors"
)

type fakeVoucherService struct {
	open       []vouchersvc.VoucherView
	blogPostID uuid.UUID
	tourID     uuid.UUID
	listingID  uuid.UUID
	err        error
}

func (f *fakeVoucherService) ListOpen(ctx context.Context, userID uuid.UUID) ([]vouchersvc.VoucherView, error) {
	return f.open, f.err
}

func (f *fakeVoucherService) RedeemSponsoredBlog(ctx context.Context, userID, postID uuid.UUID) error {
	f.blogPostID = postID
	return f.err
}

func (f *fakeVoucherService) RedeemTourPartnership(ctx context.Context, userID, tourID uuid.UUID) error {
	f.tourID = tourID
	return f.err
}

func (f *fakeVoucherService) ApplyPendingForVehicle(ctx context.Context, userID, vehicleID uuid.UUID) error {
	return f.err
}

func (f *fakeVoucherService) ApplyPendingForGuide(ctx context.Context, userID, guideID uuid.UUID) error {
	return f.err
}

func (f *fakeVoucherService) ApplyPendingForListing(ctx context.Context, userID, listingID uuid.UUID) error {
	f.listingID = listingID
	return f.err
}

func TestListVouchers(t *testing.T) {
	svc := &fakeVoucherService{
		open: []vouchersvc.VoucherView{
			{OrderID: "TL-1", ServiceType: "sponsored_blog_post", Awaiting: "submission", PurchasedAt: time.Now()},
		},
	}

	req := authedRequest(t, http.MethodGet, "/api/v1/vouchers/", nil, uuid.New())
	rec := httptest.NewRecorder()
	ListVouchers(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data struct {
			Vouchers []vouchersvc.VoucherView `json:"vouchers"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Vouchers) != 1 || envelope.Data.Vouchers[0].OrderID != "TL-1" {
		t.Fatalf("unexpected voucher list: %+v", envelope.Data.Vouchers)
	}
}

func TestListVouchersFiltersByServiceType(t *testing.T) {
	svc := &fakeVoucherService{
		open: []vouchersvc.VoucherView{
			{OrderID: "TL-1", ServiceType: "sponsored_blog_post"},
			{OrderID: "TL-2", ServiceType: "tour_partnership"},
		},
	}

	req := authedRequest(t, http.MethodGet, "/api/v1/vouchers/?service_type=tour_partnership", nil, uuid.New())
	rec := httptest.NewRecorder()
	ListVouchers(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data struct {
			Vouchers []vouchersvc.VoucherView `json:"vouchers"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Vouchers) != 1 || envelope.Data.Vouchers[0].OrderID != "TL-2" {
		t.Fatalf("unexpected filtered list: %+v", envelope.Data.Vouchers)
	}
}

func TestRedeemSponsoredBlog(t *testing.T) {
	svc := &fakeVoucherService{}
	postID := uuid.New()

	body, _ := json.Marshal(map[string]any{"post_id": postID})
	req := authedRequest(t, http.MethodPost, "/api/v1/vouchers/redeem/blog", body, uuid.New())
	rec := httptest.NewRecorder()
	RedeemSponsoredBlog(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.blogPostID != postID {
		t.Fatalf("expected post id forwarded")
	}
}

func TestRedeemSponsoredBlogWithoutVoucher(t *testing.T) {
	svc := &fakeVoucherService{err: pkgerrors.New(pkgerrors.CodeNotFound, "no open voucher")}

	body, _ := json.Marshal(map[string]any{"post_id": uuid.New()})
	req := authedRequest(t, http.MethodPost, "/api/v1/vouchers/redeem/blog", body, uuid.New())
	rec := httptest.NewRecorder()
	RedeemSponsoredBlog(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestApplyVehicleVoucher(t *testing.T) {
	svc := &fakeVoucherService{}

	body, _ := json.Marshal(map[string]any{"vehicle_id": uuid.New()})
	req := authedRequest(t, http.MethodPost, "/api/v1/vouchers/apply/vehicle", body, uuid.New())
	rec := httptest.NewRecorder()
	ApplyVehicleVoucher(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestApplyListingVoucher(t *testing.T) {
	svc := &fakeVoucherService{}
	listingID := uuid.New()

	body, _ := json.Marshal(map[string]any{"listing_id": listingID})
	req := authedRequest(t, http.MethodPost, "/api/v1/vouchers/apply/listing", body, uuid.New())
	rec := httptest.NewRecorder()
	ApplyListingVoucher(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.listingID != listingID {
		t.Fatalf("expected listing id forwarded")
	}
}

func TestRedeemTourPartnership(t *testing.T) {
	svc := &fakeVoucherService{}
	tourID := uuid.New()

	body, _ := json.Marshal(map[string]any{"tour_id": tourID})
	req := authedRequest(t, http.MethodPost, "/api/v1/vouchers/redeem/tour", body, uuid.New())
	rec := httptest.NewRecorder()
	RedeemTourPartnership(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.tourID != tourID {
		t.Fatalf("expected tour id forwarded")
	}
}
