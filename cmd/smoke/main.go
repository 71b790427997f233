package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

const (
	defaultBaseURL = "http://localhost:8080/api/inventory"
	totalRequests  = 50
)

type item struct {
	ID          int64  `json:"id"`
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
}

var client = &http.Client{Timeout: 5 * time.Second}

func main() {
	baseURL := os.Getenv("INVENTORY_URL")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	failed := false
	check := func(name string, got, want int) {
		if got == want {
			fmt.Printf("PASS: %-40s %d\n", name, got)
			return
		}
		fmt.Printf("FAIL: %-40s got %d, want %d\n", name, got, want)
		failed = true
	}

	// Lifecycle of a single item
	created, status := send(http.MethodPost, baseURL, item{ProductName: "smoke-widget", Quantity: 10}, nil)
	check("create", status, http.StatusCreated)
	itemURL := fmt.Sprintf("%s/%d", baseURL, created.ID)

	got, status := send(http.MethodGet, itemURL, nil, nil)
	check("get", status, http.StatusOK)
	check("get quantity", got.Quantity, 10)

	_, status = send(http.MethodPut, itemURL, item{ID: created.ID, ProductName: "smoke-widget", Quantity: 15}, nil)
	check("update", status, http.StatusNoContent)

	got, _ = send(http.MethodGet, itemURL, nil, nil)
	check("updated quantity", got.Quantity, 15)

	_, status = send(http.MethodDelete, itemURL, nil, nil)
	check("delete", status, http.StatusNoContent)

	_, status = send(http.MethodGet, itemURL, nil, nil)
	check("get after delete", status, http.StatusNotFound)

	_, status = send(http.MethodPost, baseURL, item{ProductName: "smoke-negative", Quantity: -5}, nil)
	check("negative quantity", status, http.StatusBadRequest)

	// Concurrent creates sharing one idempotency key: only one may win when
	// the server runs with Redis.
	key := uuid.NewString()
	var successCount, conflictCount atomic.Int32
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, status := send(http.MethodPost, baseURL, item{ProductName: "smoke-idem", Quantity: 1},
				http.Header{"Idempotency-Key": []string{key}})
			switch status {
			case http.StatusCreated:
				successCount.Add(1)
				send(http.MethodDelete, fmt.Sprintf("%s/%d", baseURL, created.ID), nil, nil)
			case http.StatusConflict:
				conflictCount.Add(1)
			}
		}()
	}
	wg.Wait()

	fmt.Println("========== IDEMPOTENCY RESULTS ==========")
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Created:          %d\n", successCount.Load())
	fmt.Printf("Conflicts:        %d\n", conflictCount.Load())
	fmt.Printf("Duration:         %v\n", time.Since(start))
	fmt.Println("==========================================")

	if conflictCount.Load() > 0 {
		check("idempotent creates", int(successCount.Load()), 1)
	} else {
		fmt.Println("SKIP: server has no idempotency store configured")
	}

	if failed {
		os.Exit(1)
	}
}

func send(method, url string, body any, header http.Header) (item, int) {
	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			log.Fatalf("encode body: %v", err)
		}
	}

	req, err := http.NewRequest(method, url, &payload)
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		req.Header[k] = vs
	}

	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	var out item
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		json.NewDecoder(resp.Body).Decode(&out)
	}
	return out, resp.StatusCode
}
