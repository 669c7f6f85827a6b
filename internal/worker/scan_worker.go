package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"quicksplit/internal/amqp"
	"quicksplit/internal/core"
	"quicksplit/internal/receipt"
	"quicksplit/internal/storage"
)

// ScanWorker turns pending receipt images into bill items. It extracts the
// receipt text through OCR, parses "name price" lines out of it and appends
// the parsed items to the receipt's bill.
type ScanWorker struct {
	store     storage.Store
	extractor receipt.TextExtractor
	batchSize int
}

func NewScanWorker(store storage.Store, extractor receipt.TextExtractor, batchSize int) *ScanWorker {
	return &ScanWorker{
		store:     store,
		extractor: extractor,
		batchSize: batchSize,
	}
}

// HandleScanMessage processes a single receipt scan message from AMQP
func (w *ScanWorker) HandleScanMessage(ctx context.Context, msg *amqp.ReceiptScanMessage) error {
	slog.InfoContext(ctx, "Processing scan message", "receiptId", msg.ReceiptID)

	rcpt, err := w.store.GetReceipt(ctx, msg.ReceiptID)
	if err != nil {
		if errors.Is(err, core.ErrReceiptNotFound) {
			// Receipt deleted between publish and consume, nothing to do.
			slog.WarnContext(ctx, "Receipt gone, dropping scan message", "receiptId", msg.ReceiptID)
			return nil
		}
		return fmt.Errorf("get receipt from storage: %w", err)
	}

	return w.scan(ctx, rcpt)
}

// scan runs OCR and parsing for one receipt and records the outcome on the
// receipt record. Done receipts are skipped so redelivered messages stay
// idempotent.
func (w *ScanWorker) scan(ctx context.Context, rcpt core.Receipt) error {
	if rcpt.Status == core.ReceiptStatusDone {
		slog.InfoContext(ctx, "Receipt already scanned, skipping", "receiptId", rcpt.ID)
		return nil
	}

	text, err := w.extractor.ExtractText(ctx, rcpt.Image)
	if err != nil {
		w.markFailed(ctx, rcpt, fmt.Sprintf("extract text: %v", err))
		return fmt.Errorf("extract text: %w", err)
	}

	items := receipt.ParseText(text)

	if len(items) > 0 {
		bill, err := w.store.GetBill(ctx, rcpt.BillID)
		if err != nil {
			if errors.Is(err, core.ErrBillNotFound) {
				w.markFailed(ctx, rcpt, "bill no longer exists")
				return nil
			}
			return fmt.Errorf("get bill from storage: %w", err)
		}

		if err := w.store.UpdateBill(ctx, bill.AddItems(items)); err != nil {
			return fmt.Errorf("save bill with scanned items: %w", err)
		}
	}

	rcpt.Status = core.ReceiptStatusDone
	rcpt.RawText = text
	rcpt.Items = items
	rcpt.Error = ""
	if err := w.store.UpdateReceipt(ctx, rcpt); err != nil {
		slog.ErrorContext(ctx, "Failed to mark receipt done", "receiptId", rcpt.ID, "error", err)
		// Don't return error here - the items made it onto the bill
	}

	slog.InfoContext(ctx, "Receipt scanned",
		"receiptId", rcpt.ID,
		"billId", rcpt.BillID,
		"items", len(items))

	return nil
}

func (w *ScanWorker) markFailed(ctx context.Context, rcpt core.Receipt, reason string) {
	rcpt.Status = core.ReceiptStatusFailed
	rcpt.Error = reason
	if err := w.store.UpdateReceipt(ctx, rcpt); err != nil {
		slog.ErrorContext(ctx, "Failed to mark receipt failed", "receiptId", rcpt.ID, "error", err)
	}
}

// ProcessPendingReceipts scans receipts that are still pending.
// This is a backup mechanism in case AMQP messages are lost.
func (w *ScanWorker) ProcessPendingReceipts(ctx context.Context) error {
	pending, err := w.store.ListPendingReceipts(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending receipts: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending receipts", "count", len(pending))

	for _, rcpt := range pending {
		if err := w.scan(ctx, rcpt); err != nil {
			slog.ErrorContext(ctx, "Failed to scan receipt", "receiptId", rcpt.ID, "error", err)
		}
	}

	return nil
}

// StartupScanCheck scans any receipts left pending at worker startup,
// using a larger batch to drain downtime backlog faster.
func (w *ScanWorker) StartupScanCheck(ctx context.Context) error {
	pending, err := w.store.ListPendingReceipts(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending receipts for startup check: %w", err)
	}

	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending receipts found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending receipts on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0

	for _, rcpt := range pending {
		if err := w.scan(ctx, rcpt); err != nil {
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup scan completed",
		"total", len(pending),
		"scanned", successCount,
		"errors", errorCount)

	return nil
}
