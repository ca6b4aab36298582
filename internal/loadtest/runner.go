package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/jansou/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// ErrInvalidConfig marks a Config that cannot drive a run.
var ErrInvalidConfig = errors.New("invalid load test config")

type jobKind int

const (
	submitJob jobKind = iota
	updateJob
	deleteJob
)

type job struct {
	kind    jobKind
	session sessionPayload
}

// Run executes the complete load test against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	log := logger.Named("loadtest")
	stats := &Stats{StartTime: time.Now()}
	client := newHTTPClient(cfg.BaseURL, cfg.Token, cfg.Timeout)

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	log.Info(ctx, "starting jansou load test",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("players", cfg.Players),
		logger.Int("sessions", cfg.Sessions),
		logger.Int("workers", cfg.Workers),
		logger.Any("seed", seed),
	)

	if err := checkServiceHealth(ctx, client); err != nil {
		return nil, fmt.Errorf("service health check failed: %w", err)
	}

	group, err := setupGroup(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("group setup failed: %w", err)
	}
	stats.Group = group.Slug
	players, err := addPlayers(ctx, client, group.Slug, cfg.Players)
	if err != nil {
		return nil, fmt.Errorf("adding players failed: %w", err)
	}

	gen := newGenerator(seed, players, time.Now().UTC().AddDate(0, 0, -sessionWindow))
	sessions := make([]sessionPayload, cfg.Sessions)
	for i := range sessions {
		sessions[i] = gen.session(i + 1)
	}
	stats.SessionsGenerated = len(sessions)

	// Phase one: every session once, a share of them twice, in random order.
	jobs := make([]job, 0, len(sessions))
	for _, s := range sessions {
		jobs = append(jobs, job{kind: submitJob, session: s})
	}
	for _, s := range sessions[:share(len(sessions), cfg.Duplicates)] {
		jobs = append(jobs, job{kind: submitJob, session: s})
	}
	gen.rng.Shuffle(len(jobs), func(i, j int) { jobs[i], jobs[j] = jobs[j], jobs[i] })

	created := runJobs(ctx, client, group.Slug, cfg, jobs, stats)

	// Phase two: rewrite some sessions and delete others, concurrently.
	expected := make(map[string]sessionPayload, len(sessions))
	for _, s := range sessions {
		if created[s.SessionID] {
			expected[s.SessionID] = s
		}
	}
	jobs = jobs[:0]
	nUpdate, nDelete := share(len(sessions), cfg.Updates), share(len(sessions), cfg.Deletes)
	for _, s := range sessions[:nUpdate] {
		if created[s.SessionID] {
			jobs = append(jobs, job{kind: updateJob, session: gen.rescore(s)})
		}
	}
	for _, s := range sessions[len(sessions)-nDelete:] {
		if created[s.SessionID] {
			jobs = append(jobs, job{kind: deleteJob, session: s})
		}
	}
	applied := runJobs(ctx, client, group.Slug, cfg, jobs, stats)
	for _, j := range jobs {
		if !applied[j.session.SessionID] {
			continue
		}
		switch j.kind {
		case updateJob:
			expected[j.session.SessionID] = j.session
		case deleteJob:
			delete(expected, j.session.SessionID)
		}
	}

	rows, err := getStandings(ctx, client, group.Slug)
	if err != nil {
		return nil, fmt.Errorf("standings retrieval failed: %w", err)
	}
	stats.StandingsRows = len(rows)

	if err := verifyStandings(group, players, expected, rows); err != nil {
		return stats, fmt.Errorf("standings verification failed: %w", err)
	}
	log.Info(ctx, "standings match local recomputation", logger.Int("sessions", len(expected)))

	if cfg.OutputFile != "" {
		if err := saveSessions(cfg.OutputFile, expected); err != nil {
			log.Warn(ctx, "failed to save sessions to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)
	return stats, nil
}

func validate(cfg *Config) error {
	switch {
	case cfg.BaseURL == "":
		return fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	case cfg.Players < 4:
		return fmt.Errorf("%w: at least 4 players are required", ErrInvalidConfig)
	case cfg.Sessions < 1:
		return fmt.Errorf("%w: at least 1 session is required", ErrInvalidConfig)
	case cfg.Workers < 1:
		return fmt.Errorf("%w: at least 1 worker is required", ErrInvalidConfig)
	case cfg.Updates+cfg.Deletes > 1:
		return fmt.Errorf("%w: update and delete shares exceed all sessions", ErrInvalidConfig)
	}
	return nil
}

func share(n int, fraction float64) int {
	k := int(float64(n) * fraction)
	return max(0, min(k, n))
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient) error {
	status, err := client.do(ctx, http.MethodGet, "/healthz", nil, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", status)
	}
	return nil
}

func setupGroup(ctx context.Context, client *HTTPClient) (groupPayload, error) {
	slug := "load-" + uuid.NewString()[:8]
	var g groupPayload
	status, err := client.do(ctx, http.MethodPost, "/api/groups", map[string]string{
		"name": "Load test " + slug,
		"slug": slug,
	}, &g)
	if err != nil {
		return groupPayload{}, err
	}
	if status != http.StatusCreated {
		return groupPayload{}, fmt.Errorf("create group: HTTP %d", status)
	}
	return g, nil
}

func addPlayers(ctx context.Context, client *HTTPClient, slug string, n int) ([]playerPayload, error) {
	out := make([]playerPayload, 0, n)
	for i := 1; i <= n; i++ {
		var p playerPayload
		status, err := client.do(ctx, http.MethodPost, "/api/groups/"+slug+"/members",
			map[string]string{"name": fmt.Sprintf("player-%03d", i)}, &p)
		if err != nil {
			return nil, err
		}
		if status != http.StatusCreated {
			return nil, fmt.Errorf("add player %d: HTTP %d", i, status)
		}
		out = append(out, p)
	}
	return out, nil
}

// runJobs sends jobs through a worker pool and returns the session ids whose
// request succeeded.
func runJobs(ctx context.Context, client *HTTPClient, slug string, cfg *Config, jobs []job, stats *Stats) map[string]bool {
	log := logger.Named("loadtest")
	var (
		mu        sync.Mutex
		succeeded = make(map[string]bool, len(jobs))

		submitted, createdN, duplicate, updated, deleted, failed int64
	)

	jobChan := make(chan job, cfg.Workers*2)
	var wg sync.WaitGroup
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobChan {
				status, err := send(ctx, client, slug, j)
				ok := false
				switch {
				case err != nil:
					atomic.AddInt64(&failed, 1)
					if cfg.Verbose {
						log.Warn(ctx, "request failed", logger.String("session_id", j.session.SessionID), logger.Error(err))
					}
				case j.kind == submitJob && status == http.StatusCreated:
					atomic.AddInt64(&submitted, 1)
					atomic.AddInt64(&createdN, 1)
					ok = true
				case j.kind == submitJob && status == http.StatusConflict:
					atomic.AddInt64(&submitted, 1)
					atomic.AddInt64(&duplicate, 1)
				case j.kind == updateJob && status == http.StatusOK:
					atomic.AddInt64(&updated, 1)
					ok = true
				case j.kind == deleteJob && status == http.StatusOK:
					atomic.AddInt64(&deleted, 1)
					ok = true
				default:
					atomic.AddInt64(&failed, 1)
					if cfg.Verbose {
						log.Warn(ctx, "unexpected status", logger.String("session_id", j.session.SessionID), logger.Int("status", status))
					}
				}
				if ok {
					mu.Lock()
					succeeded[j.session.SessionID] = true
					mu.Unlock()
				}
			}
		}()
	}

	go func() {
		defer close(jobChan)
		for _, j := range jobs {
			select {
			case <-ctx.Done():
				return
			case jobChan <- j:
			}
		}
	}()
	wg.Wait()

	stats.Submitted += int(submitted)
	stats.Created += int(createdN)
	stats.Duplicate += int(duplicate)
	stats.Updated += int(updated)
	stats.Deleted += int(deleted)
	stats.Failed += int(failed)
	return succeeded
}

func send(ctx context.Context, client *HTTPClient, slug string, j job) (int, error) {
	base := "/api/groups/" + slug + "/sessions"
	switch j.kind {
	case updateJob:
		return client.do(ctx, http.MethodPut, base+"/"+j.session.SessionID, j.session, nil)
	case deleteJob:
		return client.do(ctx, http.MethodDelete, base+"/"+j.session.SessionID, nil, nil)
	default:
		return client.do(ctx, http.MethodPost, base, j.session, nil)
	}
}

func getStandings(ctx context.Context, client *HTTPClient, slug string) ([]standingRow, error) {
	var out standingsPayload
	status, err := client.do(ctx, http.MethodGet, "/api/groups/"+slug+"/standings", nil, &out)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", status)
	}
	return out.Standings, nil
}

// saveSessions writes the final session set as a JSON array.
func saveSessions(filename string, sessions map[string]sessionPayload) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	list := make([]sessionPayload, 0, len(sessions))
	for _, s := range sessions {
		list = append(list, s)
	}
	sortSessions(list)

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sessions: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// displayFinalStats logs the final test statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var perSecond float64
	if stats.Duration > 0 {
		perSecond = float64(stats.Submitted+stats.Updated+stats.Deleted) / stats.Duration.Seconds()
	}
	log.Info(ctx, "final statistics",
		logger.String("group", stats.Group),
		logger.Int("generated", stats.SessionsGenerated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("created", stats.Created),
		logger.Int("duplicate", stats.Duplicate),
		logger.Int("updated", stats.Updated),
		logger.Int("deleted", stats.Deleted),
		logger.Int("failed", stats.Failed),
		logger.Int("standingsRows", stats.StandingsRows),
		logger.Duration("duration", stats.Duration),
		logger.Float64("requestsPerSecond", perSecond),
	)
}
