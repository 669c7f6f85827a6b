package amqp

import (
	"encoding/json"
	"time"
)

// ReceiptScanMessage is a lightweight notification that a receipt is waiting
// to be scanned. It carries only the receipt ID, the worker fetches the
// image and the rest of the record from the database.
type ReceiptScanMessage struct {
	ReceiptID string    `json:"receiptId"`
	Timestamp time.Time `json:"timestamp"`
}

// NewReceiptScanMessage creates a scan message for the given receipt
func NewReceiptScanMessage(receiptID string) *ReceiptScanMessage {
	return &ReceiptScanMessage{
		ReceiptID: receiptID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ReceiptScanMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReceiptScanMessageFromJSON creates a message from JSON bytes
func ReceiptScanMessageFromJSON(data []byte) (*ReceiptScanMessage, error) {
	var msg ReceiptScanMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ReceiptID == "" {
		return nil, errEmptyReceiptID
	}
	return &msg, nil
}
