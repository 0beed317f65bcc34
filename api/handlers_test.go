package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/happypaisa/ledger/api"
	"github.com/happypaisa/ledger/wallet"
	"github.com/happypaisa/ledger/wallet/store"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	service := wallet.NewService(store.NewTxMemory())
	handler := api.NewHandler(service)
	srv := httptest.NewServer(api.NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, into any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}

func addFunds(t *testing.T, srv *httptest.Server, userID string, amount float64, ref string) {
	t.Helper()
	resp := postJSON(t, srv.URL+"/api/v1/add-funds", map[string]any{
		"user_id":      userID,
		"amount":       amount,
		"source":       "test",
		"reference_id": ref,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("add-funds setup failed with status %d", resp.StatusCode)
	}
}

// =============================================================================
// HEALTH
// =============================================================================

func TestHealth(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var health struct {
		Status  string `json:"status"`
		Service string `json:"service"`
	}
	decodeBody(t, resp, &health)
	if health.Status != "ok" {
		t.Errorf("expected status ok, got %q", health.Status)
	}
	if health.Service != "happy-paisa-ledger" {
		t.Errorf("unexpected service name %q", health.Service)
	}
}

// =============================================================================
// WALLET LIFECYCLE
// =============================================================================

func TestCreateWallet_ThenBalance(t *testing.T) {
	// GIVEN: A fresh server
	// WHEN: A wallet is created and its balance fetched
	// THEN: Both succeed and the balance starts at zero

	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/wallet", map[string]any{"user_id": "u1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var created struct {
		UserID   string  `json:"user_id"`
		Balance  float64 `json:"balance"`
		IsActive bool    `json:"is_active"`
	}
	decodeBody(t, resp, &created)
	if created.UserID != "u1" || created.Balance != 0 || !created.IsActive {
		t.Errorf("unexpected wallet: %+v", created)
	}

	resp, err := http.Get(srv.URL + "/api/v1/balance/u1")
	if err != nil {
		t.Fatalf("GET balance: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var balance struct {
		Balance float64 `json:"balance"`
	}
	decodeBody(t, resp, &balance)
	if balance.Balance != 0 {
		t.Errorf("expected zero balance, got %v", balance.Balance)
	}
}

func TestCreateWallet_MissingUserID_BadRequest(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/wallet", map[string]any{"user_id": "  "})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetBalance_UnknownWallet_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/balance/nobody")
	if err != nil {
		t.Fatalf("GET balance: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

// =============================================================================
// FUNDS OPERATIONS
// =============================================================================

func TestAddFunds_ThenBalanceReflectsIt(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/add-funds", map[string]any{
		"user_id": "u1",
		"amount":  100.50,
		"source":  "top-up",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var outcome struct {
		Success       bool    `json:"success"`
		TransactionID string  `json:"transaction_id"`
		Balance       float64 `json:"balance"`
	}
	decodeBody(t, resp, &outcome)
	if !outcome.Success || outcome.TransactionID == "" {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
	if outcome.Balance != 100.50 {
		t.Errorf("expected balance 100.50, got %v", outcome.Balance)
	}

	resp, err := http.Get(srv.URL + "/api/v1/balance/u1")
	if err != nil {
		t.Fatalf("GET balance: %v", err)
	}
	var balance struct {
		Balance     float64 `json:"balance"`
		TotalEarned float64 `json:"total_earned"`
	}
	decodeBody(t, resp, &balance)
	if balance.Balance != 100.50 || balance.TotalEarned != 100.50 {
		t.Errorf("unexpected balance: %+v", balance)
	}
}

func TestAddFunds_NegativeAmount_BadRequest(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/add-funds", map[string]any{
		"user_id": "u1",
		"amount":  -5,
		"source":  "bogus",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestDeductFunds_Insufficient_UnprocessableEntity(t *testing.T) {
	srv := newTestServer(t)
	addFunds(t, srv, "u1", 10, "seed-1")

	resp := postJSON(t, srv.URL+"/api/v1/deduct-funds", map[string]any{
		"user_id": "u1",
		"amount":  50,
		"reason":  "purchase",
	})
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", resp.StatusCode)
	}
	var outcome struct {
		Success bool    `json:"success"`
		Balance float64 `json:"balance"`
	}
	decodeBody(t, resp, &outcome)
	if outcome.Success {
		t.Error("expected success=false")
	}
	if outcome.Balance != 10 {
		t.Errorf("balance must be unchanged, got %v", outcome.Balance)
	}
}

func TestDeductFunds_UnknownWallet_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/v1/deduct-funds", map[string]any{
		"user_id": "ghost",
		"amount":  5,
		"reason":  "purchase",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

// =============================================================================
// TRANSFERS
// =============================================================================

func TestTransfer_MovesFundsBetweenWallets(t *testing.T) {
	srv := newTestServer(t)
	addFunds(t, srv, "alice", 100, "seed-alice")

	resp := postJSON(t, srv.URL+"/api/v1/transfer", map[string]any{
		"from_user_id": "alice",
		"to_user_id":   "bob",
		"amount":       25,
		"description":  "lunch",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var outcome struct {
		Success bool    `json:"success"`
		Balance float64 `json:"balance"`
	}
	decodeBody(t, resp, &outcome)
	if !outcome.Success || outcome.Balance != 75 {
		t.Errorf("unexpected outcome: %+v", outcome)
	}

	resp, err := http.Get(srv.URL + "/api/v1/balance/bob")
	if err != nil {
		t.Fatalf("GET balance: %v", err)
	}
	var bob struct {
		Balance float64 `json:"balance"`
	}
	decodeBody(t, resp, &bob)
	if bob.Balance != 25 {
		t.Errorf("expected recipient balance 25, got %v", bob.Balance)
	}
}

func TestTransfer_SameWallet_BadRequest(t *testing.T) {
	srv := newTestServer(t)
	addFunds(t, srv, "u1", 100, "seed-1")

	resp := postJSON(t, srv.URL+"/api/v1/transfer", map[string]any{
		"from_user_id": "u1",
		"to_user_id":   "u1",
		"amount":       10,
		"description":  "loop",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

// =============================================================================
// IDEMPOTENT REPLAY
// =============================================================================

func TestAddFunds_Replay_IdenticalOutcomeAppliedOnce(t *testing.T) {
	// GIVEN: An add-funds request carrying a reference id
	// WHEN: The identical request is sent twice
	// THEN: Both return the same outcome but the wallet is credited once

	srv := newTestServer(t)
	body := map[string]any{
		"user_id":      "u1",
		"amount":       40.0,
		"source":       "promo",
		"reference_id": "promo-2026-01",
	}

	first := postJSON(t, srv.URL+"/api/v1/add-funds", body)
	if first.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", first.StatusCode)
	}
	var original struct {
		TransactionID string  `json:"transaction_id"`
		Balance       float64 `json:"balance"`
		Replayed      bool    `json:"replayed"`
	}
	decodeBody(t, first, &original)
	if original.Replayed {
		t.Error("first application must not be marked replayed")
	}

	second := postJSON(t, srv.URL+"/api/v1/add-funds", body)
	if second.StatusCode != http.StatusOK {
		t.Fatalf("replay expected 200, got %d", second.StatusCode)
	}
	var replay struct {
		TransactionID string  `json:"transaction_id"`
		Balance       float64 `json:"balance"`
		Replayed      bool    `json:"replayed"`
	}
	decodeBody(t, second, &replay)
	if !replay.Replayed {
		t.Error("second application must be marked replayed")
	}
	if replay.TransactionID != original.TransactionID || replay.Balance != original.Balance {
		t.Errorf("replay differs from original: %+v vs %+v", replay, original)
	}

	resp, err := http.Get(srv.URL + "/api/v1/balance/u1")
	if err != nil {
		t.Fatalf("GET balance: %v", err)
	}
	var balance struct {
		Balance float64 `json:"balance"`
	}
	decodeBody(t, resp, &balance)
	if balance.Balance != 40 {
		t.Errorf("credit must apply once, got balance %v", balance.Balance)
	}
}

func TestDeductFunds_FailureReplay_SameStatusAndBody(t *testing.T) {
	srv := newTestServer(t)
	addFunds(t, srv, "u1", 5, "seed-1")

	body := map[string]any{
		"user_id":      "u1",
		"amount":       50.0,
		"reason":       "overdraw",
		"reference_id": "deduct-1",
	}

	first := postJSON(t, srv.URL+"/api/v1/deduct-funds", body)
	first.Body.Close()
	if first.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", first.StatusCode)
	}

	second := postJSON(t, srv.URL+"/api/v1/deduct-funds", body)
	if second.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("replayed failure expected 422, got %d", second.StatusCode)
	}
	var outcome struct {
		Success  bool `json:"success"`
		Replayed bool `json:"replayed"`
	}
	decodeBody(t, second, &outcome)
	if outcome.Success || !outcome.Replayed {
		t.Errorf("expected replayed failure, got %+v", outcome)
	}
}

// =============================================================================
// TRANSACTION HISTORY
// =============================================================================

func TestGetTransactions_MostRecentFirst(t *testing.T) {
	srv := newTestServer(t)
	for i := 1; i <= 3; i++ {
		addFunds(t, srv, "u1", float64(i), fmt.Sprintf("seed-%d", i))
	}

	resp, err := http.Get(srv.URL + "/api/v1/transactions/u1?limit=2")
	if err != nil {
		t.Fatalf("GET transactions: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var txs []struct {
		Type   string  `json:"transaction_type"`
		Amount float64 `json:"amount"`
	}
	decodeBody(t, resp, &txs)
	if len(txs) != 2 {
		t.Fatalf("expected limit to cap at 2, got %d", len(txs))
	}
	if txs[0].Amount != 3 || txs[1].Amount != 2 {
		t.Errorf("expected most recent first (3 then 2), got %+v", txs)
	}
	if txs[0].Type != string(wallet.TxCredit) {
		t.Errorf("expected credit rows, got %q", txs[0].Type)
	}
}

func TestGetTransactions_InvalidLimit_BadRequest(t *testing.T) {
	srv := newTestServer(t)
	addFunds(t, srv, "u1", 1, "seed-1")

	resp, err := http.Get(srv.URL + "/api/v1/transactions/u1?limit=abc")
	if err != nil {
		t.Fatalf("GET transactions: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetTransactions_UnknownWallet_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/transactions/ghost")
	if err != nil {
		t.Fatalf("GET transactions: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
