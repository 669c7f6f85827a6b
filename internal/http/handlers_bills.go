package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"quicksplit/internal/core"
	"quicksplit/internal/export"
)

// billView is the wire representation of a bill: the persisted snapshot
// plus the derived quantities clients would otherwise recompute.
type billView struct {
	core.Bill
	Status          core.BillStatus `json:"status"`
	GrandTotal      float64         `json:"grandTotal"`
	AssignedTotal   float64         `json:"assignedTotal"`
	IsFullyAssigned bool            `json:"isFullyAssigned"`
}

func newBillView(b core.Bill) billView {
	return billView{
		Bill:            b,
		Status:          b.Status(),
		GrandTotal:      b.GrandTotal(),
		AssignedTotal:   b.AssignedTotal(),
		IsFullyAssigned: b.IsFullyAssigned(),
	}
}

type summaryResponse struct {
	core.SplitResult
	ItemSplitInfos []core.ItemSplitInfo `json:"itemSplitInfos"`
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	bill, err := s.svc.CreateBill(r.Context(), req.Name)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Bill created", "billId", bill.ID, "name", bill.Name)
	writeJSON(w, r, http.StatusCreated, newBillView(bill))
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.svc.ListBills(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	views := make([]billView, 0, len(bills))
	for _, b := range bills {
		views = append(views, newBillView(b))
	}
	writeJSON(w, r, http.StatusOK, views)
}

func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	bill, err := s.svc.GetBill(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newBillView(bill))
}

func (s *Server) handleCurrentBill(w http.ResponseWriter, r *http.Request) {
	bill, err := s.svc.CurrentBill(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, newBillView(bill))
}

func (s *Server) handleSetCurrentBill(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.svc.SetCurrentBill(r.Context(), req.ID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteBill(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.svc.DeleteBill(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}

	s.invalidateBill(id)
	slog.InfoContext(r.Context(), "Bill deleted", "billId", id)
	w.WriteHeader(http.StatusNoContent)
}

// respondMutated writes the updated bill and drops its cached summaries.
func (s *Server) respondMutated(w http.ResponseWriter, r *http.Request, bill core.Bill, err error) {
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	s.invalidateBill(bill.ID)
	writeJSON(w, r, http.StatusOK, newBillView(bill))
}

func pathIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		writeError(w, r, http.StatusBadRequest, "invalid item index")
		return 0, false
	}
	return index, true
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req core.Item
	if !decodeJSON(w, r, &req) {
		return
	}
	bill, err := s.svc.AddItem(r.Context(), r.PathValue("id"), req)
	s.respondMutated(w, r, bill, err)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}
	var req core.Item
	if !decodeJSON(w, r, &req) {
		return
	}
	bill, err := s.svc.UpdateItem(r.Context(), r.PathValue("id"), index, req)
	s.respondMutated(w, r, bill, err)
}

func (s *Server) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}
	bill, err := s.svc.RemoveItem(r.Context(), r.PathValue("id"), index)
	s.respondMutated(w, r, bill, err)
}

func (s *Server) handleSetTaxes(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Taxes []core.TaxEntry `json:"taxes"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	bill, err := s.svc.SetTaxes(r.Context(), r.PathValue("id"), req.Taxes)
	s.respondMutated(w, r, bill, err)
}

func (s *Server) handleAddTax(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Label   string  `json:"label"`
		Percent float64 `json:"percent"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	bill, err := s.svc.AddTax(r.Context(), r.PathValue("id"), req.Label, req.Percent)
	s.respondMutated(w, r, bill, err)
}

func (s *Server) handleUpdateTax(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Label   string  `json:"label"`
		Percent float64 `json:"percent"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	bill, err := s.svc.UpdateTax(r.Context(), r.PathValue("id"), r.PathValue("taxId"), req.Label, req.Percent)
	s.respondMutated(w, r, bill, err)
}

func (s *Server) handleRemoveTax(w http.ResponseWriter, r *http.Request) {
	bill, err := s.svc.RemoveTax(r.Context(), r.PathValue("id"), r.PathValue("taxId"))
	s.respondMutated(w, r, bill, err)
}

func (s *Server) handleAddParticipant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	bill, err := s.svc.AddParticipant(r.Context(), r.PathValue("id"), req.Name)
	s.respondMutated(w, r, bill, err)
}

func (s *Server) handleRemoveParticipant(w http.ResponseWriter, r *http.Request) {
	bill, err := s.svc.RemoveParticipant(r.Context(), r.PathValue("id"), r.PathValue("participantId"))
	s.respondMutated(w, r, bill, err)
}

func (s *Server) handleSetSelection(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}
	var req struct {
		Selected   bool     `json:"selected"`
		Percentage *float64 `json:"percentage"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	bill, err := s.svc.SetItemSelection(r.Context(), r.PathValue("id"), r.PathValue("participantId"), index, req.Selected, req.Percentage)
	s.respondMutated(w, r, bill, err)
}

// handleSetPercentage adjusts an existing claim without touching whether
// the item is selected. A null percentage reverts to an equal share.
func (s *Server) handleSetPercentage(w http.ResponseWriter, r *http.Request) {
	index, ok := pathIndex(w, r)
	if !ok {
		return
	}
	var req struct {
		Percentage *float64 `json:"percentage"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	bill, err := s.svc.SetItemPercentage(r.Context(), r.PathValue("id"), r.PathValue("participantId"), index, req.Percentage)
	s.respondMutated(w, r, bill, err)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if cached, found := s.summaryCache.Get(id); found {
		slog.DebugContext(r.Context(), "Summary cache hit", "billId", id)
		writeJSON(w, r, http.StatusOK, cached)
		return
	}

	bill, err := s.svc.GetBill(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	summary := summaryResponse{SplitResult: bill.Split(), ItemSplitInfos: bill.AllItemSplitInfo()}
	s.summaryCache.Set(id, summary)
	writeJSON(w, r, http.StatusOK, summary)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	text, found := s.exportCache.Get(id)
	if !found {
		bill, err := s.svc.GetBill(r.Context(), id)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		text = export.Summary(bill)
		s.exportCache.Set(id, text)
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}
