package cron

import (
	"context"
	"fmt"

	"github.com/tourlanka/tourlanka-backend/internal/payments"
	"github.com/tourlanka/tourlanka-backend/pkg/logger"
)

type paymentReconciler interface {
	Reconcile(ctx context.Context) (*payments.ReconcileReport, error)
}

// PaymentReconcileJobParams configures the stuck-payment sweep job.
type PaymentReconcileJobParams struct {
	Logger   *logger.Logger
	Payments paymentReconciler
}

// NewPaymentReconcileJob builds the cron job that resolves pending payments
// whose gateway notification never arrived.
func NewPaymentReconcileJob(params PaymentReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	return &paymentReconcileJob{
		logg:     params.Logger,
		payments: params.Payments,
	}, nil
}

type paymentReconcileJob struct {
	logg     *logger.Logger
	payments paymentReconciler
}

func (j *paymentReconcileJob) Name() string { return "payment-reconcile" }

func (j *paymentReconcileJob) Run(ctx context.Context) error {
	report, err := j.payments.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("reconcile payments: %w", err)
	}

	reportCtx := j.logg.WithFields(ctx, map[string]any{
		"scanned":   report.Scanned,
		"completed": report.Completed,
		"failed":    report.Failed,
		"skipped":   report.Skipped,
	})
	j.logg.Info(reportCtx, "payment reconcile job complete")
	return nil
}
