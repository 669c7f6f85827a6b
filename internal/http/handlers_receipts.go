package http

import (
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"

	"quicksplit/internal/core"
)

// receiptView omits the raw image bytes, they are write-only from the
// client's point of view.
type receiptView struct {
	ID        string             `json:"id"`
	BillID    string             `json:"billId"`
	Status    core.ReceiptStatus `json:"status"`
	RawText   string             `json:"rawText,omitempty"`
	Items     []core.Item        `json:"items,omitempty"`
	Error     string             `json:"error,omitempty"`
	CreatedAt int64              `json:"createdAt"`
}

func newReceiptView(rcpt core.Receipt) receiptView {
	return receiptView{
		ID:        rcpt.ID,
		BillID:    rcpt.BillID,
		Status:    rcpt.Status,
		RawText:   rcpt.RawText,
		Items:     rcpt.Items,
		Error:     rcpt.Error,
		CreatedAt: rcpt.CreatedAt,
	}
}

// handleCreateReceipt accepts either raw receipt text, parsed inline, or a
// base64-encoded image that is enqueued for OCR.
func (s *Server) handleCreateReceipt(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BillID string `json:"billId"`
		Text   string `json:"text"`
		Image  string `json:"image"` // base64
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Text = strings.TrimSpace(req.Text)
	if req.BillID == "" {
		writeError(w, r, http.StatusBadRequest, "billId is required")
		return
	}
	if (req.Text == "") == (req.Image == "") {
		writeError(w, r, http.StatusBadRequest, "exactly one of text or image is required")
		return
	}

	if req.Text != "" {
		rcpt, err := s.svc.CreateReceiptFromText(r.Context(), req.BillID, req.Text)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		s.invalidateBill(req.BillID)
		slog.InfoContext(r.Context(), "Receipt text parsed", "receiptId", rcpt.ID, "billId", req.BillID, "items", len(rcpt.Items))
		writeJSON(w, r, http.StatusCreated, newReceiptView(rcpt))
		return
	}

	image, err := base64.StdEncoding.DecodeString(req.Image)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "image is not valid base64")
		return
	}

	rcpt, err := s.svc.CreateReceipt(r.Context(), req.BillID, image)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Receipt scan enqueued", "receiptId", rcpt.ID, "billId", req.BillID)
	writeJSON(w, r, http.StatusAccepted, newReceiptView(rcpt))
}

func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	rcpt, err := s.svc.GetReceipt(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newReceiptView(rcpt))
}
