package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// The simulator hammers one slot with concurrent booking requests and
// verifies the no-double-booking invariant end to end: exactly one 201,
// everyone else a 409.

type SimConfig struct {
	APIBaseURL string
	Workers    int
	Date       string
	TimeSlot   string
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, status int) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case status == http.StatusCreated:
		atomic.AddInt64(&om.Success, 1)
	case status == http.StatusConflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]

	p95Idx := len(latencies) * 95 / 100
	if p95Idx >= len(latencies) {
		p95Idx = len(latencies) - 1
	}
	p95 = latencies[p95Idx]

	return avg, min, max, p95
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	log.Printf("target=%s workers=%d slot=%s %s", cfg.APIBaseURL, cfg.Workers, cfg.Date, cfg.TimeSlot)

	gofakeit.Seed(time.Now().UnixNano())

	client := &http.Client{Timeout: 15 * time.Second}
	var metrics OperationMetrics
	var winners []string
	var winnersMu sync.Mutex

	start := make(chan struct{})
	var wg sync.WaitGroup

	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			<-start

			body, _ := json.Marshal(map[string]any{
				"name":     gofakeit.Name(),
				"email":    gofakeit.Email(),
				"phone":    gofakeit.Phone(),
				"date":     cfg.Date,
				"timeSlot": cfg.TimeSlot,
				"modality": "online",
			})

			began := time.Now()
			resp, err := client.Post(cfg.APIBaseURL+"/bookings", "application/json", bytes.NewReader(body))
			latency := time.Since(began)

			if err != nil {
				log.Printf("worker %d: request error: %v", worker, err)
				metrics.Record(latency, 0)
				return
			}
			defer resp.Body.Close()

			metrics.Record(latency, resp.StatusCode)

			if resp.StatusCode == http.StatusCreated {
				var created struct {
					ConfirmationCode string `json:"confirmationCode"`
				}
				raw, _ := io.ReadAll(resp.Body)
				if err := json.Unmarshal(raw, &created); err == nil {
					winnersMu.Lock()
					winners = append(winners, created.ConfirmationCode)
					winnersMu.Unlock()
				}
			}
		}(i)
	}

	close(start)
	wg.Wait()

	avg, min, max, p95 := metrics.Stats()

	fmt.Println()
	fmt.Println("=== contention report ===")
	fmt.Printf("requests:  %d\n", metrics.Total)
	fmt.Printf("created:   %d\n", metrics.Success)
	fmt.Printf("conflicts: %d\n", metrics.Conflict)
	fmt.Printf("errors:    %d\n", metrics.Error)
	fmt.Printf("latency:   avg=%s min=%s max=%s p95=%s\n", avg, min, max, p95)

	switch {
	case metrics.Success == 1:
		fmt.Printf("PASS: exactly one winner (%s)\n", winners[0])
	case metrics.Success == 0:
		fmt.Println("WARN: no booking succeeded, was the slot already taken?")
		os.Exit(1)
	default:
		fmt.Printf("FAIL: %d bookings succeeded for the same slot: %v\n", metrics.Success, winners)
		os.Exit(1)
	}
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL: getEnv("API_BASE_URL", "http://localhost:8080"),
		Workers:    getInt("SIM_WORKERS", 50),
		Date:       getEnv("SIM_DATE", time.Now().AddDate(0, 0, 7).Format("2006-01-02")),
		TimeSlot:   getEnv("SIM_TIME_SLOT", "10:00"),
	}
	if cfg.Workers < 2 {
		cfg.Workers = 2
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
