package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"quicksplit/internal/core"
	"quicksplit/internal/receipt"
	"quicksplit/internal/storage"
)

// ScanPublisher notifies the scan worker that a receipt is waiting. It is
// satisfied by the AMQP client, a nil publisher disables notifications and
// the worker picks pending receipts up on its periodic sweep instead.
type ScanPublisher interface {
	PublishReceiptScan(ctx context.Context, receiptID string) error
}

// BillService orchestrates bill operations across storage and AMQP.
// All bill mutations go through it so persistence stays the single source
// of truth for raw bill fields.
type BillService struct {
	store     storage.Store
	publisher ScanPublisher
}

func NewBillService(store storage.Store, publisher ScanPublisher) *BillService {
	return &BillService{
		store:     store,
		publisher: publisher,
	}
}

// CreateBill creates a new bill and makes it the current one. An empty name
// gets the date-based default.
func (s *BillService) CreateBill(ctx context.Context, name string) (core.Bill, error) {
	bill := core.NewBill(strings.TrimSpace(name))

	if err := s.store.CreateBill(ctx, bill); err != nil {
		return core.Bill{}, fmt.Errorf("create bill: %w", err)
	}

	if err := s.store.SetCurrentBillID(ctx, bill.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to set current bill", "billId", bill.ID, "error", err)
	}

	return bill, nil
}

func (s *BillService) GetBill(ctx context.Context, id string) (core.Bill, error) {
	return s.store.GetBill(ctx, id)
}

func (s *BillService) ListBills(ctx context.Context) ([]core.Bill, error) {
	return s.store.ListBills(ctx)
}

// CurrentBill returns the bill last created or selected. Falls back to the
// newest bill when no current bill is tracked.
func (s *BillService) CurrentBill(ctx context.Context) (core.Bill, error) {
	id, err := s.store.CurrentBillID(ctx)
	if err != nil {
		return core.Bill{}, fmt.Errorf("current bill id: %w", err)
	}
	if id != "" {
		bill, err := s.store.GetBill(ctx, id)
		if err == nil {
			return bill, nil
		}
		slog.WarnContext(ctx, "Current bill missing, falling back to newest", "billId", id)
	}

	bills, err := s.store.ListBills(ctx)
	if err != nil {
		return core.Bill{}, fmt.Errorf("list bills: %w", err)
	}
	if len(bills) == 0 {
		return core.Bill{}, core.ErrBillNotFound
	}
	return bills[0], nil
}

func (s *BillService) SetCurrentBill(ctx context.Context, id string) error {
	if _, err := s.store.GetBill(ctx, id); err != nil {
		return err
	}
	return s.store.SetCurrentBillID(ctx, id)
}

// DeleteBill removes a bill. When it was the current bill, the newest
// remaining bill becomes current.
func (s *BillService) DeleteBill(ctx context.Context, id string) error {
	currentID, err := s.store.CurrentBillID(ctx)
	if err != nil {
		return fmt.Errorf("current bill id: %w", err)
	}

	if err := s.store.DeleteBill(ctx, id); err != nil {
		return fmt.Errorf("delete bill: %w", err)
	}

	if currentID == id {
		next := ""
		if bills, err := s.store.ListBills(ctx); err == nil && len(bills) > 0 {
			next = bills[0].ID
		}
		if err := s.store.SetCurrentBillID(ctx, next); err != nil {
			slog.ErrorContext(ctx, "Failed to move current bill", "billId", next, "error", err)
		}
	}

	return nil
}

// mutate loads a bill, applies fn to it and saves the result.
func (s *BillService) mutate(ctx context.Context, billID string, fn func(core.Bill) (core.Bill, error)) (core.Bill, error) {
	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return core.Bill{}, err
	}

	updated, err := fn(bill)
	if err != nil {
		return core.Bill{}, err
	}

	if err := s.store.UpdateBill(ctx, updated); err != nil {
		return core.Bill{}, fmt.Errorf("save bill: %w", err)
	}
	return updated, nil
}

func (s *BillService) AddItem(ctx context.Context, billID string, item core.Item) (core.Bill, error) {
	return s.mutate(ctx, billID, func(b core.Bill) (core.Bill, error) {
		if err := item.Validate(); err != nil {
			return core.Bill{}, err
		}
		return b.AddItem(item), nil
	})
}

func (s *BillService) UpdateItem(ctx context.Context, billID string, index int, item core.Item) (core.Bill, error) {
	return s.mutate(ctx, billID, func(b core.Bill) (core.Bill, error) {
		if err := item.Validate(); err != nil {
			return core.Bill{}, err
		}
		return b.UpdateItem(index, item), nil
	})
}

func (s *BillService) RemoveItem(ctx context.Context, billID string, index int) (core.Bill, error) {
	return s.mutate(ctx, billID, func(b core.Bill) (core.Bill, error) {
		return b.RemoveItem(index), nil
	})
}

func (s *BillService) SetTaxes(ctx context.Context, billID string, taxes []core.TaxEntry) (core.Bill, error) {
	return s.mutate(ctx, billID, func(b core.Bill) (core.Bill, error) {
		for _, tax := range taxes {
			if err := tax.Validate(); err != nil {
				return core.Bill{}, err
			}
		}
		return b.SetTaxes(taxes), nil
	})
}

func (s *BillService) AddTax(ctx context.Context, billID, label string, percent float64) (core.Bill, error) {
	return s.mutate(ctx, billID, func(b core.Bill) (core.Bill, error) {
		return b.AddTax(label, percent), nil
	})
}

func (s *BillService) UpdateTax(ctx context.Context, billID, taxID, label string, percent float64) (core.Bill, error) {
	return s.mutate(ctx, billID, func(b core.Bill) (core.Bill, error) {
		return b.UpdateTax(taxID, label, percent), nil
	})
}

func (s *BillService) RemoveTax(ctx context.Context, billID, taxID string) (core.Bill, error) {
	return s.mutate(ctx, billID, func(b core.Bill) (core.Bill, error) {
		return b.RemoveTax(taxID), nil
	})
}

func (s *BillService) AddParticipant(ctx context.Context, billID, name string) (core.Bill, error) {
	return s.mutate(ctx, billID, func(b core.Bill) (core.Bill, error) {
		name = strings.TrimSpace(name)
		if name == "" {
			return core.Bill{}, core.ErrEmptyName
		}
		return b.AddParticipant(name), nil
	})
}

func (s *BillService) RemoveParticipant(ctx context.Context, billID, participantID string) (core.Bill, error) {
	return s.mutate(ctx, billID, func(b core.Bill) (core.Bill, error) {
		return b.RemoveParticipant(participantID), nil
	})
}

func (s *BillService) SetItemSelection(ctx context.Context, billID, participantID string, itemIndex int, selected bool, percentage *float64) (core.Bill, error) {
	return s.mutate(ctx, billID, func(b core.Bill) (core.Bill, error) {
		if _, ok := b.Participant(participantID); !ok {
			return core.Bill{}, core.ErrUnknownParticipant
		}
		return b.SetItemSelection(participantID, itemIndex, selected, percentage), nil
	})
}

func (s *BillService) SetItemPercentage(ctx context.Context, billID, participantID string, itemIndex int, percentage *float64) (core.Bill, error) {
	return s.mutate(ctx, billID, func(b core.Bill) (core.Bill, error) {
		if _, ok := b.Participant(participantID); !ok {
			return core.Bill{}, core.ErrUnknownParticipant
		}
		return b.SetItemPercentage(participantID, itemIndex, percentage), nil
	})
}

// CreateReceipt saves a receipt scan job and notifies the worker. Saving is
// the source of truth, a failed publish only delays the scan until the
// worker's next sweep.
func (s *BillService) CreateReceipt(ctx context.Context, billID string, image []byte) (core.Receipt, error) {
	if _, err := s.store.GetBill(ctx, billID); err != nil {
		return core.Receipt{}, err
	}
	if len(image) == 0 {
		return core.Receipt{}, fmt.Errorf("receipt image is empty")
	}

	receipt := core.NewReceipt(billID, image)
	if err := s.store.CreateReceipt(ctx, receipt); err != nil {
		return core.Receipt{}, fmt.Errorf("save receipt: %w", err)
	}

	if err := s.publishScanMessage(ctx, receipt.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish scan message",
			"receiptId", receipt.ID, "error", err)
		// Don't fail the request - receipt is saved locally
	}

	return receipt, nil
}

// CreateReceiptFromText parses receipt text inline, no OCR job involved.
// The resulting items go straight onto the bill and the receipt record is
// stored already done, keeping text and image submissions symmetric.
func (s *BillService) CreateReceiptFromText(ctx context.Context, billID, text string) (core.Receipt, error) {
	bill, err := s.store.GetBill(ctx, billID)
	if err != nil {
		return core.Receipt{}, err
	}
	if strings.TrimSpace(text) == "" {
		return core.Receipt{}, fmt.Errorf("receipt text is empty")
	}

	items := receipt.ParseText(text)
	if len(items) > 0 {
		if err := s.store.UpdateBill(ctx, bill.AddItems(items)); err != nil {
			return core.Receipt{}, fmt.Errorf("save bill: %w", err)
		}
	}

	rcpt := core.NewReceipt(billID, nil)
	rcpt.Status = core.ReceiptStatusDone
	rcpt.RawText = text
	rcpt.Items = items
	if err := s.store.CreateReceipt(ctx, rcpt); err != nil {
		return core.Receipt{}, fmt.Errorf("save receipt: %w", err)
	}

	return rcpt, nil
}

func (s *BillService) GetReceipt(ctx context.Context, id string) (core.Receipt, error) {
	return s.store.GetReceipt(ctx, id)
}

func (s *BillService) publishScanMessage(ctx context.Context, receiptID string) error {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Scan publisher not available, worker sweep will pick the receipt up")
		return nil
	}
	return s.publisher.PublishReceiptScan(ctx, receiptID)
}

// Close closes the underlying storage connection
func (s *BillService) Close() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close bill service: %w", err)
	}
	return nil
}
