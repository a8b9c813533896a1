package webhooks

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tourlanka/tourlanka-backend/api/responses"
	pkgerrors "github.com/tourlanka/tourlanka-backend/pkg/errors"
	"github.com/tourlanka/tourlanka-backend/pkg/logger"
)

type PayHereWebhookService interface {
	HandleNotification(ctx context.Context, form url.Values) error
}

// PayHereWebhook handles server-to-server payment notifications. PayHere
// expects a plain 200 acknowledgement and retries on anything else.
func PayHereWebhook(svc PayHereWebhookService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		if err := r.ParseForm(); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse form"))
			return
		}

		if err := svc.HandleNotification(ctx, r.PostForm); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteText(w, http.StatusOK, "OK")
	}
}
