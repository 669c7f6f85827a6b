package core

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReceiptStatusPending ReceiptStatus = "pending"
	ReceiptStatusDone    ReceiptStatus = "done"
	ReceiptStatusFailed  ReceiptStatus = "failed"
)

type (
	ReceiptStatus string

	// Receipt is a photographed-receipt scan job. The image is uploaded
	// through the API, text extraction runs asynchronously in the worker,
	// and the parsed items land on the target bill. Parsing is
	// best-effort: a done receipt may carry zero items.
	Receipt struct {
		ID        string        `json:"id"`
		BillID    string        `json:"billId"`
		Status    ReceiptStatus `json:"status"`
		Image     []byte        `json:"-"`
		RawText   string        `json:"rawText,omitempty"`
		Items     []Item        `json:"items,omitempty"`
		Error     string        `json:"error,omitempty"`
		CreatedAt int64         `json:"createdAt"`
	}
)

// NewReceipt creates a pending scan job for the given bill.
func NewReceipt(billID string, image []byte) Receipt {
	return Receipt{
		ID:        uuid.NewString(),
		BillID:    billID,
		Status:    ReceiptStatusPending,
		Image:     image,
		CreatedAt: time.Now().UnixMilli(),
	}
}
