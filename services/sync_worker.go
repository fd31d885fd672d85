package services

import (
	"context"
	"errors"
	"time"

	"civic-portal/clients"
	"civic-portal/models"
	"civic-portal/repository"

	"go.uber.org/zap"
)

const (
	syncBatchSize    = 20
	syncBaseBackoff  = 30 * time.Second
	syncMaxBackoff   = 30 * time.Minute
	syncPollInterval = time.Minute
)

// SyncWorker re-posts locally confirmed payments to the backend until it
// acknowledges them. Fallback receipts stay valid; the worker only clears
// the pending_sync marker and records the backend's canonical receipt.
type SyncWorker struct {
	repo    repository.PaymentRepository
	backend BackendReconciler
	logger  *zap.Logger
	stop    chan struct{}
}

func NewSyncWorker(repo repository.PaymentRepository, backend BackendReconciler, logger *zap.Logger) *SyncWorker {
	return &SyncWorker{
		repo:    repo,
		backend: backend,
		logger:  logger,
		stop:    make(chan struct{}),
	}
}

// Start runs the sync loop until Stop is called. Intended to run as a
// background goroutine from main.
func (w *SyncWorker) Start() {
	ticker := time.NewTicker(syncPollInterval)
	defer ticker.Stop()

	w.logger.Info("Payment sync worker started")
	for {
		select {
		case <-w.stop:
			w.logger.Info("Payment sync worker stopped")
			return
		case <-ticker.C:
			w.runOnce(context.Background())
		}
	}
}

func (w *SyncWorker) Stop() {
	close(w.stop)
}

func (w *SyncWorker) runOnce(ctx context.Context) {
	payments, err := w.repo.ListPendingSync(ctx, syncBatchSize)
	if err != nil {
		w.logger.Error("Failed to list pending-sync payments", zap.Error(err))
		return
	}

	for i := range payments {
		p := &payments[i]
		if !w.due(p) {
			continue
		}
		w.syncOne(ctx, p)
	}
}

// due applies exponential backoff per record based on how many attempts have
// already been made.
func (w *SyncWorker) due(p *models.Payment) bool {
	backoff := syncMaxBackoff
	if p.SyncAttempts < 6 { // 30s << 6 already exceeds the cap
		backoff = syncBaseBackoff << uint(p.SyncAttempts)
		if backoff > syncMaxBackoff {
			backoff = syncMaxBackoff
		}
	}
	return time.Since(p.UpdatedAt) >= backoff
}

func (w *SyncWorker) syncOne(ctx context.Context, p *models.Payment) {
	paymentID := ""
	if p.RazorpayPaymentID != nil {
		paymentID = *p.RazorpayPaymentID
	}

	resp, err := w.backend.RecordPayment(ctx, "", clients.ReconcileRequest{
		RecordID:      p.ServiceID,
		PaymentID:     paymentID,
		OrderID:       p.RazorpayOrderID,
		PaymentStatus: models.PaymentStatusPaid,
		Amount:        p.Amount,
		ServiceType:   p.ServiceType,
		RazorpayData: map[string]string{
			"razorpay_order_id":   p.RazorpayOrderID,
			"razorpay_payment_id": paymentID,
		},
	})
	if err != nil {
		// A permanent refusal never heals by retrying; park the record for
		// manual reconciliation instead of hammering the backend forever.
		var be *clients.BackendError
		if errors.As(err, &be) && !be.Temporary() {
			w.logger.Error("Backend permanently rejected payment record, giving up sync",
				zap.String("order_id", p.RazorpayOrderID),
				zap.Int("status_code", be.StatusCode),
				zap.Error(err),
			)
			if updateErr := w.repo.UpdateByOrderID(ctx, p.RazorpayOrderID, map[string]interface{}{
				"pending_sync": false,
			}); updateErr != nil {
				w.logger.Error("Failed to park rejected payment", zap.Error(updateErr))
			}
			return
		}

		w.logger.Warn("Backend sync attempt failed",
			zap.String("order_id", p.RazorpayOrderID),
			zap.Int("attempts", p.SyncAttempts+1),
			zap.Error(err),
		)
		if updateErr := w.repo.UpdateByOrderID(ctx, p.RazorpayOrderID, map[string]interface{}{
			"sync_attempts": p.SyncAttempts + 1,
		}); updateErr != nil {
			w.logger.Error("Failed to record sync attempt", zap.Error(updateErr))
		}
		return
	}

	updates := map[string]interface{}{
		"pending_sync": false,
	}
	if resp.ReceiptNumber != "" {
		updates["receipt_number"] = resp.ReceiptNumber
	}
	if err := w.repo.UpdateByOrderID(ctx, p.RazorpayOrderID, updates); err != nil {
		w.logger.Error("Failed to clear pending_sync", zap.Error(err))
		return
	}

	w.logger.Info("Payment synced to backend",
		zap.String("order_id", p.RazorpayOrderID),
		zap.String("receipt_number", resp.ReceiptNumber),
	)
}
