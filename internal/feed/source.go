package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"sync"
	"time"

	"footy_go/internal/domain"
	"footy_go/internal/infra"
)

// Source delivers raw provider payloads, one batch per Pull. The driver
// owns the cadence; sources never loop on their own.
type Source interface {
	Pull(ctx context.Context) ([][]byte, error)
}

// PollSource fetches payloads from an upstream HTTP endpoint.
type PollSource struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// NewPollSource creates a poll-driven source for the given endpoint.
func NewPollSource(url, apiKey string) *PollSource {
	return &PollSource{
		url:    url,
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Pull fetches one payload with short retries. A failed pull is reported
// as a retriable feed error; the driver logs it and tries next tick.
func (s *PollSource) Pull(ctx context.Context) ([][]byte, error) {
	var lastErr error
	for i := 0; i < 3; i++ {
		if i > 0 {
			delay := infra.CalculateBackoff(i - 1)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		body, err := s.doFetch(ctx)
		if err == nil {
			return [][]byte{body}, nil
		}
		lastErr = err
		slog.Warn("Feed poll attempt failed", slog.Int("attempt", i+1), slog.Any("error", err))
	}
	return nil, domain.NewFeedError("poll", lastErr)
}

func (s *PollSource) doFetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", infra.DefaultUserAgent)
	if s.apiKey != "" {
		req.Header.Set("x-apisports-key", s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// SimulatorSource generates synthetic randomized stat updates for a
// configured instrument set, for environments without network access to
// a real provider. Payloads are canonical JSON handled by
// SimulatorNormalizer.
type SimulatorSource struct {
	instruments []string

	mu      sync.Mutex
	rnd     *rand.Rand
	injured map[string]bool
	seq     uint64
}

// NewSimulatorSource creates a simulator over the given instrument ids.
func NewSimulatorSource(instrumentIDs []string) *SimulatorSource {
	return &SimulatorSource{
		instruments: instrumentIDs,
		rnd:         rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		injured:     make(map[string]bool),
	}
}

// Pull emits one synthetic stat update for a random instrument.
func (s *SimulatorSource) Pull(ctx context.Context) ([][]byte, error) {
	if len(s.instruments) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	id := s.instruments[s.rnd.IntN(len(s.instruments))]
	s.seq++
	upd := domain.StatUpdate{
		InstrumentID: id,
		Timestamp:    time.Now(),
		SourceSeq:    fmt.Sprintf("sim-%d", s.seq),
	}

	if s.injured[id] {
		// Injured players sit out until they draw a recovery.
		if s.rnd.Float64() < 0.3 {
			recovered := false
			upd.Injured = &recovered
			s.injured[id] = false
		}
	} else {
		upd.Goals = weightedPick(s.rnd, []int{0, 1, 2}, []float64{0.85, 0.12, 0.03})
		upd.Assists = weightedPick(s.rnd, []int{0, 1}, []float64{0.9, 0.1})
		upd.Minutes = s.rnd.IntN(91)
		if s.rnd.Float64() < 0.003 {
			hurt := true
			upd.Injured = &hurt
			s.injured[id] = true
		}
	}
	s.mu.Unlock()

	payload, err := json.Marshal([]domain.StatUpdate{upd})
	if err != nil {
		return nil, domain.NewFeedError("simulate", err)
	}
	return [][]byte{payload}, nil
}

func weightedPick(rnd *rand.Rand, values []int, weights []float64) int {
	roll := rnd.Float64()
	acc := 0.0
	for i, w := range weights {
		acc += w
		if roll < acc {
			return values[i]
		}
	}
	return values[len(values)-1]
}
