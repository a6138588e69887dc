// simulate drives concurrent booking load against a running api-server and
// verifies the engine's core guarantee afterwards: for every (doctor, date)
// pair, the serials observed by successful bookings cover 1..N exactly once.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shs-health/booking-engine/internal/db"
)

type simConfig struct {
	APIBaseURL  string
	Duration    time.Duration
	Workers     int
	DoctorLimit int
	PatientRows int
	PostgresDSN string
}

func loadSimConfig() simConfig {
	cfg := simConfig{
		APIBaseURL:  getenv("SIM_API_URL", "http://127.0.0.1:8080"),
		Duration:    getenvDuration("SIM_DURATION", 30*time.Second),
		Workers:     getenvInt("SIM_WORKERS", 50),
		DoctorLimit: getenvInt("SIM_DOCTORS", 10),
		PatientRows: getenvInt("SIM_PATIENTS", 2000),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
	}
	if cfg.PostgresDSN == "" {
		log.Fatal("POSTGRES_DSN is required to load doctor/patient ids")
	}
	return cfg
}

type serialBook struct {
	mu sync.Mutex
	// serials observed per "doctorID|date" key
	byKey map[string][]int
}

func (b *serialBook) record(doctorID uuid.UUID, date string, serial int) {
	key := doctorID.String() + "|" + date
	b.mu.Lock()
	defer b.mu.Unlock()
	b.byKey[key] = append(b.byKey[key], serial)
}

type tally struct {
	mu        sync.Mutex
	created   int
	conflicts int
	rejected  int
	errors    int
	latencies []time.Duration
}

func (t *tally) record(latency time.Duration, status int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.latencies = append(t.latencies, latency)
	switch {
	case status == http.StatusCreated:
		t.created++
	case status == http.StatusConflict:
		t.conflicts++
	case status >= 400 && status < 500:
		t.rejected++
	default:
		t.errors++
	}
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	cfg := loadSimConfig()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.Connect(ctx, cfg.PostgresDSN)
	cancel()
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}

	doctors, err := loadIDs(pool, "doctors", cfg.DoctorLimit)
	if err != nil {
		log.Fatalf("load doctors: %v", err)
	}
	patients, err := loadIDs(pool, "patients", cfg.PatientRows)
	if err != nil {
		log.Fatalf("load patients: %v", err)
	}
	pool.Close()

	if len(doctors) == 0 || len(patients) == 0 {
		log.Fatal("no doctors or patients found; run cmd/seed first")
	}

	log.Printf("simulating: workers=%d duration=%s doctors=%d patients=%d",
		cfg.Workers, cfg.Duration, len(doctors), len(patients))

	book := &serialBook{byKey: make(map[string][]int)}
	stats := &tally{}
	client := &http.Client{Timeout: 10 * time.Second}

	today := time.Now().Format("2006-01-02")
	tomorrow := time.Now().AddDate(0, 0, 1).Format("2006-01-02")

	runCtx, stop := context.WithTimeout(context.Background(), cfg.Duration)
	defer stop()

	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for runCtx.Err() == nil {
				doctor := doctors[rng.Intn(len(doctors))]
				patient := patients[rng.Intn(len(patients))]
				date := today
				if rng.Intn(2) == 1 {
					date = tomorrow
				}
				bookOne(client, cfg.APIBaseURL, doctor, patient, date, book, stats)
			}
		}(time.Now().UnixNano() + int64(w))
	}
	wg.Wait()

	report(book, stats)
}

func bookOne(client *http.Client, baseURL string, doctorID, patientID uuid.UUID, date string, book *serialBook, stats *tally) {
	body, _ := json.Marshal(map[string]string{
		"doctor_id":        doctorID.String(),
		"patient_id":       patientID.String(),
		"appointment_date": date,
	})

	start := time.Now()
	resp, err := client.Post(baseURL+"/appointments", "application/json", bytes.NewReader(body))
	if err != nil {
		stats.record(time.Since(start), http.StatusInternalServerError)
		return
	}
	defer resp.Body.Close()

	stats.record(time.Since(start), resp.StatusCode)

	if resp.StatusCode != http.StatusCreated {
		_, _ = io.Copy(io.Discard, resp.Body)
		return
	}

	var created struct {
		SerialNumber int `json:"serial_number"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return
	}
	book.record(doctorID, date, created.SerialNumber)
}

func report(book *serialBook, stats *tally) {
	stats.mu.Lock()
	total := len(stats.latencies)
	sort.Slice(stats.latencies, func(i, j int) bool { return stats.latencies[i] < stats.latencies[j] })
	p50, p99 := percentile(stats.latencies, 0.50), percentile(stats.latencies, 0.99)
	created, conflicts, rejected, errs := stats.created, stats.conflicts, stats.rejected, stats.errors
	stats.mu.Unlock()

	fmt.Printf("\nrequests=%d created=%d conflicts=%d rejected=%d errors=%d\n",
		total, created, conflicts, rejected, errs)
	fmt.Printf("latency p50=%s p99=%s\n\n", p50, p99)

	book.mu.Lock()
	defer book.mu.Unlock()

	violations := 0
	for key, serials := range book.byKey {
		sort.Ints(serials)
		seen := make(map[int]bool, len(serials))
		for _, s := range serials {
			if seen[s] {
				violations++
				fmt.Printf("DUPLICATE serial %d for %s\n", s, key)
			}
			seen[s] = true
		}
	}

	if violations == 0 {
		fmt.Printf("serial uniqueness verified across %d (doctor, date) keys\n", len(book.byKey))
	} else {
		fmt.Printf("FAILED: %d duplicate serials detected\n", violations)
		os.Exit(1)
	}
}

func percentile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(float64(len(sorted)-1) * q)
	return sorted[idx]
}

func loadIDs(pool *pgxpool.Pool, table string, limit int) ([]uuid.UUID, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rows, err := pool.Query(ctx, fmt.Sprintf("SELECT id FROM %s LIMIT %d", table, limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
