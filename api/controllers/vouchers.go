package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tourlanka/tourlanka-backend/api/middleware"
	"github.com/tourlanka/tourlanka-backend/api/responses"
	"github.com/tourlanka/tourlanka-backend/api/validators"
	vouchersvc "github.com/tourlanka/tourlanka-backend/internal/vouchers"
	"github.com/tourlanka/tourlanka-backend/pkg/enums"
	pkgerrors "github.com/tourlanka/tourlanka-backend/pkg/errors"
	"github.com/tourlanka/tourlanka-backend/pkg/logger"
)

// ListVouchers returns the caller's unredeemed purchases.
func ListVouchers(svc vouchersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "voucher service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context"))
			return
		}

		vouchers, err := svc.ListOpen(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if raw := r.URL.Query().Get("service_type"); raw != "" {
			serviceType, err := enums.ParseServiceType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown service type"))
				return
			}
			filtered := vouchers[:0]
			for _, v := range vouchers {
				if v.ServiceType == serviceType {
					filtered = append(filtered, v)
				}
			}
			vouchers = filtered
		}

		responses.WriteSuccess(w, map[string]any{"vouchers": vouchers})
	}
}

type redeemBlogRequest struct {
	PostID uuid.UUID `json:"post_id" validate:"required,uuid4"`
}

// RedeemSponsoredBlog spends an open sponsored-post voucher on a blog post.
func RedeemSponsoredBlog(svc vouchersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "voucher service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context"))
			return
		}

		var payload redeemBlogRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RedeemSponsoredBlog(r.Context(), userID, payload.PostID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "redeemed"})
	}
}

type applyVehicleRequest struct {
	VehicleID uuid.UUID `json:"vehicle_id" validate:"required,uuid4"`
}

// ApplyVehicleVoucher applies the caller's oldest deferred vehicle-premium
// purchase to a newly registered vehicle. No open voucher is not an error.
func ApplyVehicleVoucher(svc vouchersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "voucher service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context"))
			return
		}

		var payload applyVehicleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ApplyPendingForVehicle(r.Context(), userID, payload.VehicleID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "applied"})
	}
}

type applyGuideRequest struct {
	GuideID uuid.UUID `json:"guide_id" validate:"required,uuid4"`
}

// ApplyGuideVoucher applies the caller's oldest deferred guide-premium
// purchase to a newly registered guide profile.
func ApplyGuideVoucher(svc vouchersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "voucher service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context"))
			return
		}

		var payload applyGuideRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ApplyPendingForGuide(r.Context(), userID, payload.GuideID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "applied"})
	}
}

type applyListingRequest struct {
	ListingID uuid.UUID `json:"listing_id" validate:"required,uuid4"`
}

// ApplyListingVoucher applies the caller's oldest deferred listing
// subscription to a newly submitted business listing.
func ApplyListingVoucher(svc vouchersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "voucher service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context"))
			return
		}

		var payload applyListingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.ApplyPendingForListing(r.Context(), userID, payload.ListingID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "applied"})
	}
}

type redeemTourRequest struct {
	TourID uuid.UUID `json:"tour_id" validate:"required,uuid4"`
}

// RedeemTourPartnership spends an open partnership voucher on a tour.
func RedeemTourPartnership(svc vouchersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "voucher service unavailable"))
			return
		}

		userID := middleware.UserIDFromContext(r.Context())
		if userID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context"))
			return
		}

		var payload redeemTourRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.RedeemTourPartnership(r.Context(), userID, payload.TourID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "redeemed"})
	}
}
