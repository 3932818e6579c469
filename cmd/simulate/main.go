package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/joho/godotenv"
)

type SimConfig struct {
	APIBaseURL    string
	Duration      time.Duration
	Workers       int
	BookingRatio  float64
	SubmitRatio   float64
	TrackRatio    float64
	DaysAhead     int
	StaffUser     string
	StaffPassword string
}

// DataPool holds tracking IDs and record IDs created during the run.
type DataPool struct {
	mu           sync.RWMutex
	trackingIDs  []string
	appointments []int64
}

func (dp *DataPool) Add(trackingID string, apptID int64) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.trackingIDs = append(dp.trackingIDs, trackingID)
	if apptID > 0 {
		dp.appointments = append(dp.appointments, apptID)
	}
}

func (dp *DataPool) RandomTrackingID(rng *rand.Rand) (string, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.trackingIDs) == 0 {
		return "", false
	}
	return dp.trackingIDs[rng.Intn(len(dp.trackingIDs))], true
}

func (dp *DataPool) RandomAppointment(rng *rand.Rand) (int64, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.appointments) == 0 {
		return 0, false
	}
	return dp.appointments[rng.Intn(len(dp.appointments))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	switch {
	case success:
		atomic.AddInt64(&om.Success, 1)
	case conflict:
		atomic.AddInt64(&om.Conflict, 1)
	default:
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, p50, p95, max time.Duration) {
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

	n := len(latencies)
	return sum / time.Duration(n), latencies[n*50/100], latencies[min(n*95/100, n-1)], latencies[n-1]
}

type Metrics struct {
	Booking  OperationMetrics
	Submit   OperationMetrics
	Track    OperationMetrics
	Slots    OperationMetrics
	Confirm  OperationMetrics
	LostRace int64
}

type slotTarget struct {
	Service string
	Date    string
}

type Simulator struct {
	config  SimConfig
	client  *http.Client
	pool    DataPool
	metrics Metrics
	token   string
	targets []slotTarget
}

var services = []string{"General Checkup", "Vaccination", "Prenatal Care", "Dental Service", "Mental Health", "Other"}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	_ = godotenv.Load()
	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: base=%s duration=%s workers=%d booking=%.2f submit=%.2f track=%.2f",
		cfg.APIBaseURL, cfg.Duration, cfg.Workers, cfg.BookingRatio, cfg.SubmitRatio, cfg.TrackRatio)

	sim := &Simulator{
		config: cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}

	today := time.Now()
	for d := 1; d <= cfg.DaysAhead; d++ {
		for _, s := range services {
			sim.targets = append(sim.targets, slotTarget{Service: s, Date: today.AddDate(0, 0, d).Format("2006-01-02")})
		}
	}

	if cfg.StaffUser != "" {
		if err := sim.login(); err != nil {
			log.Printf("staff login failed, confirm traffic disabled: %v", err)
		}
	}

	sim.Run()
	sim.PrintReport()
}

func loadConfig() SimConfig {
	cfg := SimConfig{
		APIBaseURL:    strings.TrimRight(getEnv("SIM_API_BASE_URL", "http://localhost:8080"), "/"),
		Duration:      getDuration("SIM_DURATION", 30*time.Second),
		Workers:       getInt("SIM_WORKERS", 10),
		BookingRatio:  getFloat("SIM_BOOKING_RATIO", 0.5),
		SubmitRatio:   getFloat("SIM_SUBMIT_RATIO", 0.2),
		TrackRatio:    getFloat("SIM_TRACK_RATIO", 0.3),
		DaysAhead:     getInt("SIM_DAYS_AHEAD", 3),
		StaffUser:     os.Getenv("SIM_STAFF_USER"),
		StaffPassword: os.Getenv("SIM_STAFF_PASSWORD"),
	}

	total := cfg.BookingRatio + cfg.SubmitRatio + cfg.TrackRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.SubmitRatio /= total
		cfg.TrackRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.DaysAhead <= 0 {
		return fmt.Errorf("SIM_DAYS_AHEAD must be > 0")
	}
	return nil
}

func (s *Simulator) login() error {
	body, _ := json.Marshal(map[string]string{"username": s.config.StaffUser, "password": s.config.StaffPassword})
	resp, err := s.client.Post(s.config.APIBaseURL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login status %d", resp.StatusCode)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}
	s.token = out.Token
	return nil
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for ctx.Err() == nil {
		r := rng.Float64()
		switch {
		case r < s.config.BookingRatio:
			s.doBooking(ctx, rng)
		case r < s.config.BookingRatio+s.config.SubmitRatio:
			s.doSubmit(ctx)
		default:
			if s.token != "" && rng.Intn(4) == 0 {
				s.doConfirm(ctx, rng)
			} else {
				s.doTrack(ctx, rng)
			}
		}
	}
}

func (s *Simulator) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	var body bytes.Buffer
	if payload != nil {
		_ = json.NewEncoder(&body).Encode(payload)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+path, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	return s.client.Do(req)
}

func (s *Simulator) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.APIBaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	return s.client.Do(req)
}

// doBooking reads the free slots for a random service and day, then books
// one of them. Several workers usually pick the same slot, which exercises
// the slot lock.
func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	target := s.targets[rng.Intn(len(s.targets))]

	start := time.Now()
	q := url.Values{"date": {target.Date}, "service": {target.Service}}
	resp, err := s.get(ctx, "/api/appointments/available-slots?"+q.Encode())
	var slots struct {
		AvailableSlots []string `json:"availableSlots"`
	}
	ok := err == nil && resp.StatusCode == http.StatusOK
	if err == nil {
		_ = json.NewDecoder(resp.Body).Decode(&slots)
		resp.Body.Close()
	}
	s.metrics.Slots.Record(time.Since(start), ok, false)
	if !ok || len(slots.AvailableSlots) == 0 {
		return
	}

	// Bias towards the earliest slot so workers collide.
	at := slots.AvailableSlots[0]
	if rng.Intn(3) == 0 {
		at = slots.AvailableSlots[rng.Intn(len(slots.AvailableSlots))]
	}

	start = time.Now()
	resp, err = s.post(ctx, "/api/appointments", map[string]string{
		"name":        gofakeit.Name(),
		"email":       gofakeit.Email(),
		"phone":       "09" + gofakeit.Numerify("#########"),
		"serviceType": target.Service,
		"date":        target.Date,
		"time":        at,
	})
	latency := time.Since(start)

	success, conflict := false, false
	if err == nil {
		defer resp.Body.Close()
		switch resp.StatusCode {
		case http.StatusCreated:
			success = true
			var out struct {
				TrackingID string `json:"trackingId"`
				ID         int64  `json:"id"`
			}
			if json.NewDecoder(resp.Body).Decode(&out) == nil {
				s.pool.Add(out.TrackingID, out.ID)
			}
		case http.StatusConflict:
			conflict = true
			atomic.AddInt64(&s.metrics.LostRace, 1)
		}
	}
	s.metrics.Booking.Record(latency, success, conflict)
}

func (s *Simulator) doSubmit(ctx context.Context) {
	start := time.Now()
	resp, err := s.post(ctx, "/api/certificates", map[string]string{
		"name":            gofakeit.Name(),
		"email":           gofakeit.Email(),
		"phone":           "09" + gofakeit.Numerify("#########"),
		"certificateType": "Barangay Clearance",
		"purpose":         "Employment",
		"idType":          "National ID",
		"idNumber":        gofakeit.Numerify("####-####-####"),
	})
	latency := time.Since(start)

	success := false
	if err == nil {
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusCreated {
			success = true
			var out struct {
				TrackingID string `json:"trackingId"`
			}
			if json.NewDecoder(resp.Body).Decode(&out) == nil {
				s.pool.Add(out.TrackingID, 0)
			}
		}
	}
	s.metrics.Submit.Record(latency, success, false)
}

func (s *Simulator) doTrack(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.RandomTrackingID(rng)
	if !ok {
		return
	}
	kind, _, _ := strings.Cut(id, "-")

	start := time.Now()
	resp, err := s.get(ctx, fmt.Sprintf("/api/track/%s/%s", kind, id))
	latency := time.Since(start)

	success := false
	if err == nil {
		resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
	}
	s.metrics.Track.Record(latency, success, false)
}

func (s *Simulator) doConfirm(ctx context.Context, rng *rand.Rand) {
	id, ok := s.pool.RandomAppointment(rng)
	if !ok {
		return
	}

	start := time.Now()
	resp, err := s.post(ctx, fmt.Sprintf("/api/admin/appointments/%d/confirm", id), nil)
	latency := time.Since(start)

	success, conflict := false, false
	if err == nil {
		resp.Body.Close()
		success = resp.StatusCode == http.StatusOK
		conflict = resp.StatusCode == http.StatusConflict
	}
	s.metrics.Confirm.Record(latency, success, conflict)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Bookings lost to another resident: %d\n", atomic.LoadInt64(&s.metrics.LostRace))
	fmt.Println()

	printOperationReport("Available slots", &s.metrics.Slots)
	printOperationReport("Booking", &s.metrics.Booking)
	printOperationReport("Certificate submit", &s.metrics.Submit)
	printOperationReport("Track", &s.metrics.Track)
	printOperationReport("Confirm", &s.metrics.Confirm)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, p50, p95, max := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s p50=%s p95=%s max=%s\n",
		avg.Round(time.Millisecond), p50.Round(time.Millisecond), p95.Round(time.Millisecond), max.Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
