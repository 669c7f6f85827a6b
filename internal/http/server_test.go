package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"quicksplit/internal/services"
	"quicksplit/internal/storage/memory"
)

// Tax-inclusive totals carry float64 noise, compare within epsilon.
func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s := NewServer(":0", services.NewBillService(memory.New(), nil))
	t.Cleanup(func() {
		s.cacheManager.Stop()
		s.limiter.Stop()
	})
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func createBill(t *testing.T, s *Server, name string) billView {
	t.Helper()
	rec := doJSON(t, s, http.MethodPost, "/bills", map[string]string{"name": name})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /bills = %d: %s", rec.Code, rec.Body.String())
	}
	return decodeBody[billView](t, rec)
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := doJSON(t, s, http.MethodGet, path, nil)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestBillLifecycle(t *testing.T) {
	s := newTestServer(t)

	bill := createBill(t, s, "Dinner")
	if bill.Name != "Dinner" || bill.Status != "draft" {
		t.Errorf("created bill = %+v", bill)
	}

	rec := doJSON(t, s, http.MethodGet, "/bills/"+bill.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /bills/{id} = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/bills", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /bills = %d", rec.Code)
	}
	if bills := decodeBody[[]billView](t, rec); len(bills) != 1 {
		t.Errorf("len(bills) = %d, want 1", len(bills))
	}

	rec = doJSON(t, s, http.MethodGet, "/bills/current", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /bills/current = %d", rec.Code)
	}
	if current := decodeBody[billView](t, rec); current.ID != bill.ID {
		t.Errorf("current = %s, want %s", current.ID, bill.ID)
	}

	rec = doJSON(t, s, http.MethodDelete, "/bills/"+bill.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE /bills/{id} = %d", rec.Code)
	}

	rec = doJSON(t, s, http.MethodGet, "/bills/"+bill.ID, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET deleted bill = %d, want 404", rec.Code)
	}
}

func TestUnknownBillReturns404(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/bills/deadbeef", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET unknown bill = %d, want 404", rec.Code)
	}
}

func TestItemAndTaxEndpoints(t *testing.T) {
	s := newTestServer(t)
	bill := createBill(t, s, "Dinner")

	rec := doJSON(t, s, http.MethodPost, "/bills/"+bill.ID+"/items", map[string]any{"name": "Steak", "price": 100.0})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST items = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodPost, "/bills/"+bill.ID+"/taxes", map[string]any{"label": "Sales Tax", "percent": 10.0})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST taxes = %d: %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody[billView](t, rec)
	if !approx(updated.GrandTotal, 110) {
		t.Errorf("GrandTotal = %v, want 110", updated.GrandTotal)
	}

	rec = doJSON(t, s, http.MethodPut, "/bills/"+bill.ID+"/items/0", map[string]any{"name": "Fish", "price": 50.0})
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT items/0 = %d: %s", rec.Code, rec.Body.String())
	}
	if updated = decodeBody[billView](t, rec); !approx(updated.GrandTotal, 55) {
		t.Errorf("GrandTotal after update = %v, want 55", updated.GrandTotal)
	}

	rec = doJSON(t, s, http.MethodPost, "/bills/"+bill.ID+"/items", map[string]any{"name": "Bad", "price": -1.0})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("POST invalid item = %d, want 422", rec.Code)
	}

	rec = doJSON(t, s, http.MethodDelete, "/bills/"+bill.ID+"/items/0", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE items/0 = %d", rec.Code)
	}
	if updated = decodeBody[billView](t, rec); len(updated.Items) != 0 {
		t.Errorf("items after delete = %d, want 0", len(updated.Items))
	}
}

func TestInvalidItemIndexRejected(t *testing.T) {
	s := newTestServer(t)
	bill := createBill(t, s, "Dinner")

	rec := doJSON(t, s, http.MethodDelete, "/bills/"+bill.ID+"/items/abc", nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("DELETE items/abc = %d, want 400", rec.Code)
	}
}

func TestSummaryAndCacheInvalidation(t *testing.T) {
	s := newTestServer(t)
	bill := createBill(t, s, "Dinner")

	doJSON(t, s, http.MethodPost, "/bills/"+bill.ID+"/items", map[string]any{"name": "Pizza", "price": 40.0})
	rec := doJSON(t, s, http.MethodPost, "/bills/"+bill.ID+"/participants", map[string]string{"name": "Alice"})
	if rec.Code != http.StatusOK {
		t.Fatalf("POST participants = %d: %s", rec.Code, rec.Body.String())
	}
	alice := decodeBody[billView](t, rec).Participants[0].ID

	rec = doJSON(t, s, http.MethodPut,
		fmt.Sprintf("/bills/%s/participants/%s/items/0", bill.ID, alice),
		map[string]any{"selected": true})
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT selection = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, s, http.MethodGet, "/bills/"+bill.ID+"/summary", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET summary = %d", rec.Code)
	}
	summary := decodeBody[summaryResponse](t, rec)
	if summary.AssignedTotal != 40 || !summary.IsFullyAssigned {
		t.Errorf("summary = %+v", summary.SplitResult)
	}
	if len(summary.ItemSplitInfos) != 1 {
		t.Errorf("ItemSplitInfos = %d, want 1", len(summary.ItemSplitInfos))
	}

	// A mutation must invalidate the cached summary.
	doJSON(t, s, http.MethodPost, "/bills/"+bill.ID+"/items", map[string]any{"name": "Wine", "price": 20.0})

	rec = doJSON(t, s, http.MethodGet, "/bills/"+bill.ID+"/summary", nil)
	summary = decodeBody[summaryResponse](t, rec)
	if summary.IsFullyAssigned {
		t.Error("summary should reflect the unclaimed item")
	}
	if summary.Status != "splitting" {
		t.Errorf("Status = %v, want splitting", summary.Status)
	}
}

func TestPercentagePatchEndpoint(t *testing.T) {
	s := newTestServer(t)
	bill := createBill(t, s, "Dinner")

	doJSON(t, s, http.MethodPost, "/bills/"+bill.ID+"/items", map[string]any{"name": "Pizza", "price": 40.0})
	rec := doJSON(t, s, http.MethodPost, "/bills/"+bill.ID+"/participants", map[string]string{"name": "Alice"})
	alice := decodeBody[billView](t, rec).Participants[0].ID

	doJSON(t, s, http.MethodPut,
		fmt.Sprintf("/bills/%s/participants/%s/items/0", bill.ID, alice),
		map[string]any{"selected": true})

	rec = doJSON(t, s, http.MethodPatch,
		fmt.Sprintf("/bills/%s/participants/%s/items/0", bill.ID, alice),
		map[string]any{"percentage": 25.0})
	if rec.Code != http.StatusOK {
		t.Fatalf("PATCH percentage = %d: %s", rec.Code, rec.Body.String())
	}
	updated := decodeBody[billView](t, rec)
	if !approx(updated.AssignedTotal, 10) {
		t.Errorf("AssignedTotal = %v, want 10 (25%% of 40)", updated.AssignedTotal)
	}

	// Null percentage reverts the claim to an equal share.
	rec = doJSON(t, s, http.MethodPatch,
		fmt.Sprintf("/bills/%s/participants/%s/items/0", bill.ID, alice),
		map[string]any{"percentage": nil})
	if rec.Code != http.StatusOK {
		t.Fatalf("PATCH null percentage = %d: %s", rec.Code, rec.Body.String())
	}
	if updated = decodeBody[billView](t, rec); !approx(updated.AssignedTotal, 40) {
		t.Errorf("AssignedTotal = %v, want 40", updated.AssignedTotal)
	}

	rec = doJSON(t, s, http.MethodPatch, "/bills/"+bill.ID+"/participants/ghost/items/0",
		map[string]any{"percentage": 25.0})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("PATCH for unknown participant = %d, want 422", rec.Code)
	}
}

func TestSelectionUnknownParticipant(t *testing.T) {
	s := newTestServer(t)
	bill := createBill(t, s, "Dinner")
	doJSON(t, s, http.MethodPost, "/bills/"+bill.ID+"/items", map[string]any{"name": "Pizza", "price": 40.0})

	rec := doJSON(t, s, http.MethodPut, "/bills/"+bill.ID+"/participants/ghost/items/0",
		map[string]any{"selected": true})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("selection for unknown participant = %d, want 422", rec.Code)
	}
}

func TestExportEndpoint(t *testing.T) {
	s := newTestServer(t)
	bill := createBill(t, s, "Dinner")
	doJSON(t, s, http.MethodPost, "/bills/"+bill.ID+"/items", map[string]any{"name": "Pizza", "price": 40.0})

	rec := doJSON(t, s, http.MethodGet, "/bills/"+bill.ID+"/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET export = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("Content-Type = %q, want text/plain", ct)
	}
	if !strings.Contains(rec.Body.String(), "Dinner") {
		t.Errorf("export body missing bill name:\n%s", rec.Body.String())
	}
}

func TestReceiptTextEndpoint(t *testing.T) {
	s := newTestServer(t)
	bill := createBill(t, s, "Dinner")

	rec := doJSON(t, s, http.MethodPost, "/receipts", map[string]string{
		"billId": bill.ID,
		"text":   "Burger 12.50\nFries $4.25",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /receipts = %d: %s", rec.Code, rec.Body.String())
	}
	rcpt := decodeBody[receiptView](t, rec)
	if rcpt.Status != "done" || len(rcpt.Items) != 2 {
		t.Errorf("receipt = %+v", rcpt)
	}

	rec = doJSON(t, s, http.MethodGet, "/bills/"+bill.ID, nil)
	if updated := decodeBody[billView](t, rec); len(updated.Items) != 2 {
		t.Errorf("bill items = %d, want 2", len(updated.Items))
	}
}

func TestReceiptImageEndpointEnqueues(t *testing.T) {
	s := newTestServer(t)
	bill := createBill(t, s, "Dinner")

	rec := doJSON(t, s, http.MethodPost, "/receipts", map[string]string{
		"billId": bill.ID,
		"image":  "aGVsbG8=", // base64("hello")
	})
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST /receipts (image) = %d: %s", rec.Code, rec.Body.String())
	}
	rcpt := decodeBody[receiptView](t, rec)
	if rcpt.Status != "pending" {
		t.Errorf("Status = %v, want pending", rcpt.Status)
	}

	rec = doJSON(t, s, http.MethodGet, "/receipts/"+rcpt.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /receipts/{id} = %d", rec.Code)
	}
}

func TestReceiptRequestValidation(t *testing.T) {
	s := newTestServer(t)
	bill := createBill(t, s, "Dinner")

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{"missing bill id", map[string]string{"text": "a 1"}, http.StatusBadRequest},
		{"neither text nor image", map[string]string{"billId": bill.ID}, http.StatusBadRequest},
		{"both text and image", map[string]string{"billId": bill.ID, "text": "a 1", "image": "aGk="}, http.StatusBadRequest},
		{"bad base64", map[string]string{"billId": bill.ID, "image": "!!!"}, http.StatusBadRequest},
		{"unknown bill", map[string]string{"billId": "missing", "text": "a 1"}, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, s, http.MethodPost, "/receipts", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestMalformedJSONRejected(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/bills", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed JSON = %d, want 400", rec.Code)
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	s := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/bills", nil)
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if rec.Header().Get("Content-Security-Policy") == "" {
		t.Error("Content-Security-Policy header missing")
	}
}

func TestSuspiciousPathRejected(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/bills/%2e%2e%2fetc%2fpasswd", nil)
	req.URL.Path = "/bills/../etc/passwd"
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	if rec.Code == http.StatusOK {
		t.Errorf("suspicious path = %d, want rejection", rec.Code)
	}
}
