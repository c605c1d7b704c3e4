// Mock attestation node for local development and e2e tests. It speaks the
// same HTTP API as a real node but keeps attestations in memory.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultPort      = "8545"
	defaultLatencyMs = "50"
)

var (
	latencyMs = getEnvInt("LATENCY_MS", defaultLatencyMs)

	mu           sync.Mutex
	attestations = map[string]map[string]bool{} // contract -> digest -> present
)

type attestRequest struct {
	Digest string `json:"digest"`
}

type attestResponse struct {
	Digest    string `json:"digest"`
	Confirmed bool   `json:"confirmed"`
}

type verifyResponse struct {
	Digest  string `json:"digest"`
	Present bool   `json:"present"`
}

func main() {
	port := getEnv("PORT", defaultPort)

	http.HandleFunc("/status", handleStatus)
	http.HandleFunc("/contracts/", handleContracts)

	log.Printf("mock attestation node starting on port %s", port)
	log.Printf("simulated latency: %dms", latencyMs)

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		log.Fatal(err)
	}
}

func handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"connected": true,
	})
}

// handleContracts routes both attestation endpoints:
//
//	POST /contracts/{addr}/attestations
//	GET  /contracts/{addr}/attestations/{digest}
func handleContracts(w http.ResponseWriter, r *http.Request) {
	time.Sleep(time.Duration(latencyMs) * time.Millisecond)

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) < 3 || parts[0] != "contracts" || parts[2] != "attestations" {
		http.NotFound(w, r)
		return
	}
	contract := parts[1]

	switch {
	case r.Method == http.MethodPost && len(parts) == 3:
		handleAttest(w, r, contract)
	case r.Method == http.MethodGet && len(parts) == 4:
		handleVerify(w, contract, parts[3])
	default:
		http.NotFound(w, r)
	}
}

func handleAttest(w http.ResponseWriter, r *http.Request, contract string) {
	var req attestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Digest == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "digest is required"})
		return
	}

	// Magic digest prefix lets tests exercise the unconfirmed path.
	confirmed := !strings.HasPrefix(req.Digest, "dead")

	mu.Lock()
	if attestations[contract] == nil {
		attestations[contract] = map[string]bool{}
	}
	if confirmed {
		attestations[contract][req.Digest] = true
	}
	mu.Unlock()

	writeJSON(w, http.StatusCreated, attestResponse{Digest: req.Digest, Confirmed: confirmed})
}

func handleVerify(w http.ResponseWriter, contract, digest string) {
	mu.Lock()
	present := attestations[contract][digest]
	mu.Unlock()

	if !present {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "attestation not found"})
		return
	}
	writeJSON(w, http.StatusOK, verifyResponse{Digest: digest, Present: true})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key, fallback string) int {
	v := getEnv(key, fallback)
	n, err := strconv.Atoi(v)
	if err != nil {
		n, _ = strconv.Atoi(fallback)
	}
	return n
}
