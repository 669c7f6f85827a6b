// Package storage persists bill snapshots and receipt scan jobs. Only raw
// bill fields are stored; every derived quantity (effective prices,
// totals, status) is recomputed after load.
package storage

import (
	"context"

	"quicksplit/internal/core"
)

type (
	// BillStore is the persistence port for bill snapshots.
	BillStore interface {
		CreateBill(ctx context.Context, b core.Bill) error
		GetBill(ctx context.Context, id string) (core.Bill, error)
		UpdateBill(ctx context.Context, b core.Bill) error
		DeleteBill(ctx context.Context, id string) error
		// ListBills returns all bills, newest first.
		ListBills(ctx context.Context) ([]core.Bill, error)

		// Current-bill tracking for the presentation layer.
		CurrentBillID(ctx context.Context) (string, error)
		SetCurrentBillID(ctx context.Context, id string) error
	}

	// ReceiptStore is the persistence port for OCR scan jobs.
	ReceiptStore interface {
		CreateReceipt(ctx context.Context, r core.Receipt) error
		GetReceipt(ctx context.Context, id string) (core.Receipt, error)
		UpdateReceipt(ctx context.Context, r core.Receipt) error
		// ListPendingReceipts returns up to limit pending jobs, oldest
		// first, for the worker's retry sweep.
		ListPendingReceipts(ctx context.Context, limit int) ([]core.Receipt, error)
	}

	// Store is the full persistence surface used by services and workers.
	Store interface {
		BillStore
		ReceiptStore
		Close() error
	}
)
