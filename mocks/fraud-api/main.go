// Command fraud-api is a standalone stand-in for the fraud analysis service,
// for local development and manual testing. It answers the same endpoint the
// real service exposes and classifies customers deterministically, so the same
// customer always gets the same answer across restarts.
//
// Set FRAUD_MOCK_CLASSIFICATION to pin every response to one classification,
// or pass ?classification=HIGH_RISK on a request to override a single call.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

var classifications = []string{"REGULAR", "HIGH_RISK", "PREFERENTIAL", "NO_INFORMATION"}

type occurrence struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type analysisResponse struct {
	OrderID        string       `json:"order_id"`
	CustomerID     string       `json:"customer_id"`
	AnalyzedAt     string       `json:"analyzed_at"`
	Classification string       `json:"classification"`
	Occurrences    []occurrence `json:"occurrences"`
}

func classify(customerID, override string) string {
	if override != "" {
		return strings.ToUpper(override)
	}
	if pinned := os.Getenv("FRAUD_MOCK_CLASSIFICATION"); pinned != "" {
		return strings.ToUpper(pinned)
	}
	var sum int
	for _, b := range []byte(customerID) {
		sum += int(b)
	}
	return classifications[sum%len(classifications)]
}

func handleAnalysis(w http.ResponseWriter, r *http.Request) {
	// Expected path: /frauds/{orderID}/customers/{customerID}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 4 || parts[0] != "frauds" || parts[2] != "customers" {
		http.NotFound(w, r)
		return
	}
	orderID, customerID := parts[1], parts[3]

	classification := classify(customerID, r.URL.Query().Get("classification"))
	resp := analysisResponse{
		OrderID:        orderID,
		CustomerID:     customerID,
		AnalyzedAt:     time.Now().UTC().Format(time.RFC3339),
		Classification: classification,
		Occurrences:    []occurrence{},
	}
	if classification == "HIGH_RISK" {
		resp.Occurrences = append(resp.Occurrences, occurrence{
			ID:          "8d806a8c-56f2-4d2f-9cc8-7d4b7fbd3e29",
			ProductID:   "a1b2c3d4-0000-0000-0000-000000000001",
			Type:        "FRAUD",
			Description: "Attempted fraudulent transaction",
			CreatedAt:   "2024-05-10T12:00:00Z",
			UpdatedAt:   "2024-05-10T12:00:00Z",
		})
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func main() {
	addr := os.Getenv("FRAUD_MOCK_ADDR")
	if addr == "" {
		addr = ":8081"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/frauds/", handleAnalysis)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	log.Printf("fraud-api mock listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}
