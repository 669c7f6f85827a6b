package worker

import (
	"context"
	"errors"
	"testing"

	"quicksplit/internal/amqp"
	"quicksplit/internal/core"
	"quicksplit/internal/storage/memory"
)

type fakeExtractor struct {
	text  string
	err   error
	calls int
}

func (f *fakeExtractor) ExtractText(_ context.Context, _ []byte) (string, error) {
	f.calls++
	return f.text, f.err
}

func seedReceipt(t *testing.T, store *memory.Store) (core.Bill, core.Receipt) {
	t.Helper()
	ctx := context.Background()

	bill := core.NewBill("Dinner")
	if err := store.CreateBill(ctx, bill); err != nil {
		t.Fatalf("CreateBill() error = %v", err)
	}

	rcpt := core.NewReceipt(bill.ID, []byte("fake-image"))
	if err := store.CreateReceipt(ctx, rcpt); err != nil {
		t.Fatalf("CreateReceipt() error = %v", err)
	}
	return bill, rcpt
}

func TestHandleScanMessageAppendsItems(t *testing.T) {
	store := memory.New()
	bill, rcpt := seedReceipt(t, store)
	extractor := &fakeExtractor{text: "Burger 12.50\nFries $4.25\nTHANK YOU\n"}
	w := NewScanWorker(store, extractor, 10)
	ctx := context.Background()

	if err := w.HandleScanMessage(ctx, amqp.NewReceiptScanMessage(rcpt.ID)); err != nil {
		t.Fatalf("HandleScanMessage() error = %v", err)
	}

	updated, err := store.GetBill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("GetBill() error = %v", err)
	}
	if len(updated.Items) != 2 {
		t.Fatalf("len(Items) = %d, want 2", len(updated.Items))
	}
	if updated.Items[0].Name != "Burger" || updated.Items[0].Price != 12.50 {
		t.Errorf("first item = %+v", updated.Items[0])
	}
	if updated.Items[1].Name != "Fries" || updated.Items[1].Price != 4.25 {
		t.Errorf("second item = %+v", updated.Items[1])
	}

	scanned, err := store.GetReceipt(ctx, rcpt.ID)
	if err != nil {
		t.Fatalf("GetReceipt() error = %v", err)
	}
	if scanned.Status != core.ReceiptStatusDone {
		t.Errorf("Status = %v, want done", scanned.Status)
	}
	if scanned.RawText == "" || len(scanned.Items) != 2 {
		t.Errorf("scan result not recorded: raw=%q items=%d", scanned.RawText, len(scanned.Items))
	}
}

func TestHandleScanMessageIsIdempotent(t *testing.T) {
	store := memory.New()
	bill, rcpt := seedReceipt(t, store)
	extractor := &fakeExtractor{text: "Burger 12.50"}
	w := NewScanWorker(store, extractor, 10)
	ctx := context.Background()

	msg := amqp.NewReceiptScanMessage(rcpt.ID)
	if err := w.HandleScanMessage(ctx, msg); err != nil {
		t.Fatalf("first HandleScanMessage() error = %v", err)
	}
	if err := w.HandleScanMessage(ctx, msg); err != nil {
		t.Fatalf("redelivered HandleScanMessage() error = %v", err)
	}

	updated, _ := store.GetBill(ctx, bill.ID)
	if len(updated.Items) != 1 {
		t.Errorf("redelivery must not duplicate items, got %d", len(updated.Items))
	}
	if extractor.calls != 1 {
		t.Errorf("extractor calls = %d, want 1", extractor.calls)
	}
}

func TestHandleScanMessageDropsMissingReceipt(t *testing.T) {
	store := memory.New()
	w := NewScanWorker(store, &fakeExtractor{}, 10)

	// Missing receipts are dropped, requeueing would loop forever.
	if err := w.HandleScanMessage(context.Background(), amqp.NewReceiptScanMessage("gone")); err != nil {
		t.Errorf("HandleScanMessage() error = %v, want nil", err)
	}
}

func TestExtractionFailureMarksReceiptFailed(t *testing.T) {
	store := memory.New()
	_, rcpt := seedReceipt(t, store)
	w := NewScanWorker(store, &fakeExtractor{err: errors.New("vision unavailable")}, 10)
	ctx := context.Background()

	if err := w.HandleScanMessage(ctx, amqp.NewReceiptScanMessage(rcpt.ID)); err == nil {
		t.Error("HandleScanMessage() should return the extraction error")
	}

	failed, _ := store.GetReceipt(ctx, rcpt.ID)
	if failed.Status != core.ReceiptStatusFailed {
		t.Errorf("Status = %v, want failed", failed.Status)
	}
	if failed.Error == "" {
		t.Error("failure reason should be recorded")
	}
}

func TestScanWithNoParsableLinesStillCompletes(t *testing.T) {
	store := memory.New()
	bill, rcpt := seedReceipt(t, store)
	w := NewScanWorker(store, &fakeExtractor{text: "THANK YOU\nCOME AGAIN"}, 10)
	ctx := context.Background()

	if err := w.HandleScanMessage(ctx, amqp.NewReceiptScanMessage(rcpt.ID)); err != nil {
		t.Fatalf("HandleScanMessage() error = %v", err)
	}

	updated, _ := store.GetBill(ctx, bill.ID)
	if len(updated.Items) != 0 {
		t.Errorf("len(Items) = %d, want 0", len(updated.Items))
	}
	done, _ := store.GetReceipt(ctx, rcpt.ID)
	if done.Status != core.ReceiptStatusDone {
		t.Errorf("Status = %v, want done", done.Status)
	}
}

func TestScanFailsWhenBillDeleted(t *testing.T) {
	store := memory.New()
	bill, rcpt := seedReceipt(t, store)
	w := NewScanWorker(store, &fakeExtractor{text: "Burger 12.50"}, 10)
	ctx := context.Background()

	if err := store.DeleteBill(ctx, bill.ID); err != nil {
		t.Fatalf("DeleteBill() error = %v", err)
	}

	if err := w.HandleScanMessage(ctx, amqp.NewReceiptScanMessage(rcpt.ID)); err != nil {
		t.Fatalf("HandleScanMessage() error = %v, want nil for missing bill", err)
	}

	failed, _ := store.GetReceipt(ctx, rcpt.ID)
	if failed.Status != core.ReceiptStatusFailed {
		t.Errorf("Status = %v, want failed", failed.Status)
	}
}

func TestProcessPendingReceipts(t *testing.T) {
	store := memory.New()
	bill, _ := seedReceipt(t, store)
	ctx := context.Background()

	second := core.NewReceipt(bill.ID, []byte("another-image"))
	if err := store.CreateReceipt(ctx, second); err != nil {
		t.Fatalf("CreateReceipt() error = %v", err)
	}

	extractor := &fakeExtractor{text: "Coffee 3.00"}
	w := NewScanWorker(store, extractor, 10)

	if err := w.ProcessPendingReceipts(ctx); err != nil {
		t.Fatalf("ProcessPendingReceipts() error = %v", err)
	}

	if extractor.calls != 2 {
		t.Errorf("extractor calls = %d, want 2", extractor.calls)
	}
	pending, _ := store.ListPendingReceipts(ctx, 10)
	if len(pending) != 0 {
		t.Errorf("pending after sweep = %d, want 0", len(pending))
	}
}

func TestProcessPendingReceiptsRespectsBatchSize(t *testing.T) {
	store := memory.New()
	bill, _ := seedReceipt(t, store)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if err := store.CreateReceipt(ctx, core.NewReceipt(bill.ID, []byte("img"))); err != nil {
			t.Fatalf("CreateReceipt() error = %v", err)
		}
	}

	extractor := &fakeExtractor{text: "Coffee 3.00"}
	w := NewScanWorker(store, extractor, 2)

	if err := w.ProcessPendingReceipts(ctx); err != nil {
		t.Fatalf("ProcessPendingReceipts() error = %v", err)
	}
	if extractor.calls != 2 {
		t.Errorf("extractor calls = %d, want batch size 2", extractor.calls)
	}

	pending, _ := store.ListPendingReceipts(ctx, 10)
	if len(pending) != 3 {
		t.Errorf("pending after batch = %d, want 3", len(pending))
	}
}
