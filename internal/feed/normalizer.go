package feed

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"footy_go/internal/domain"
)

// Normalizer maps one upstream provider's payload shape into canonical
// StatUpdates. Implementations are pure: no shared state is touched, and
// a malformed record never aborts processing of its siblings.
type Normalizer interface {
	Normalize(raw []byte) ([]domain.StatUpdate, error)
}

// Source names forming the closed adapter set, selected once at startup.
const (
	SourceAggregate = "aggregate"
	SourceStream    = "stream"
	SourceSimulator = "simulator"
)

// NormalizerFor returns the adapter for a configured source name.
func NormalizerFor(name string) (Normalizer, error) {
	switch name {
	case SourceAggregate:
		return AggregateNormalizer{}, nil
	case SourceStream:
		return StreamNormalizer{}, nil
	case SourceSimulator:
		return SimulatorNormalizer{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown feed source %q", domain.ErrInvalidRequest, name)
	}
}

// AggregateNormalizer handles match-event payloads where per-player stats
// must be aggregated across events (StatsBomb-style: an `events` array of
// typed records with player and related-player references).
type AggregateNormalizer struct{}

type playerTally struct {
	goals   int
	assists int
	minutes int
	injured bool
}

func (AggregateNormalizer) Normalize(raw []byte) ([]domain.StatUpdate, error) {
	var envelope struct {
		Sequence string            `json:"sequence"`
		Events   []json.RawMessage `json:"events"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Events == nil {
		// Some exports deliver the events array bare.
		if err2 := json.Unmarshal(raw, &envelope.Events); err2 != nil {
			return nil, domain.NewFeedError("normalize", fmt.Errorf("unrecognized aggregate payload: %w", err2))
		}
	}

	tallies := make(map[string]*playerTally)
	ensure := func(id string) *playerTally {
		if id == "" {
			return nil
		}
		t, ok := tallies[id]
		if !ok {
			t = &playerTally{}
			tallies[id] = t
		}
		return t
	}

	for _, rawEvent := range envelope.Events {
		var ev map[string]any
		if err := json.Unmarshal(rawEvent, &ev); err != nil {
			slog.Warn("Dropping malformed feed record", slog.Any("error", err))
			continue
		}

		minute := intField(ev["minute"])
		typeName := strings.ToLower(typeNameOf(ev["type"]))

		rec := ensure(playerIDOf(ev, "player", "player_id"))
		if rec != nil {
			if strings.Contains(typeName, "goal") {
				rec.goals++
				rec.minutes = max(rec.minutes, minute)
			}
			if strings.Contains(typeName, "injur") {
				rec.injured = true
			}
		}

		related, _ := ev["related_players"].([]any)
		for _, r := range related {
			rm, ok := r.(map[string]any)
			if !ok {
				continue
			}
			role := strings.ToLower(stringField(rm["role"]))
			rrec := ensure(playerIDOf(rm, "player", "player_id", "id"))
			if rrec != nil && strings.Contains(role, "assist") {
				rrec.assists++
				rrec.minutes = max(rrec.minutes, minute)
			}
		}
	}

	updates := make([]domain.StatUpdate, 0, len(tallies))
	for id, t := range tallies {
		upd := domain.StatUpdate{
			InstrumentID: id,
			Goals:        t.goals,
			Assists:      t.assists,
			Minutes:      t.minutes,
			Timestamp:    time.Now(),
		}
		if t.injured {
			injured := true
			upd.Injured = &injured
		}
		if envelope.Sequence != "" {
			upd.SourceSeq = envelope.Sequence + ":" + id
		}
		updates = append(updates, upd)
	}
	// Deterministic emission order regardless of map iteration.
	sort.Slice(updates, func(i, j int) bool {
		return updates[i].InstrumentID < updates[j].InstrumentID
	})
	return updates, nil
}

// StreamNormalizer handles per-player event records delivered one by one
// (API-Football-style: each record already names a single player and a
// single event type).
type StreamNormalizer struct{}

type streamRecord struct {
	ID       string `json:"id"`
	PlayerID string `json:"player_id"`
	Type     string `json:"event_type"`
	Minute   int    `json:"minute"`
	Detail   int    `json:"detail"`
}

func (StreamNormalizer) Normalize(raw []byte) ([]domain.StatUpdate, error) {
	var records []json.RawMessage
	var envelope struct {
		Response []json.RawMessage `json:"response"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Response != nil {
		records = envelope.Response
	} else if err := json.Unmarshal(raw, &records); err != nil {
		return nil, domain.NewFeedError("normalize", fmt.Errorf("unrecognized stream payload: %w", err))
	}

	updates := make([]domain.StatUpdate, 0, len(records))
	for _, r := range records {
		var rec streamRecord
		if err := json.Unmarshal(r, &rec); err != nil || rec.PlayerID == "" {
			slog.Warn("Dropping malformed feed record", slog.Any("error", err))
			continue
		}

		upd := domain.StatUpdate{
			InstrumentID: rec.PlayerID,
			Timestamp:    time.Now(),
			SourceSeq:    rec.ID,
		}
		switch t := strings.ToLower(rec.Type); {
		case strings.Contains(t, "goal"):
			upd.Goals = 1
		case strings.Contains(t, "assist"):
			upd.Assists = 1
		case strings.Contains(t, "injur"):
			injured := true
			upd.Injured = &injured
		case strings.Contains(t, "recover"):
			injured := false
			upd.Injured = &injured
		case strings.Contains(t, "minute"):
			upd.Minutes = rec.Detail
		default:
			slog.Warn("Dropping feed record with unknown event type", slog.String("type", rec.Type))
			continue
		}
		updates = append(updates, upd)
	}
	return updates, nil
}

// SimulatorNormalizer passes through payloads already in canonical form.
type SimulatorNormalizer struct{}

func (SimulatorNormalizer) Normalize(raw []byte) ([]domain.StatUpdate, error) {
	var updates []domain.StatUpdate
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, domain.NewFeedError("normalize", err)
	}
	kept := updates[:0]
	for _, upd := range updates {
		if upd.InstrumentID == "" {
			slog.Warn("Dropping simulator record without instrument id")
			continue
		}
		kept = append(kept, upd)
	}
	return kept, nil
}

func intField(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		var out int
		fmt.Sscanf(n, "%d", &out)
		return out
	default:
		return 0
	}
}

func stringField(v any) string {
	s, _ := v.(string)
	return s
}

// typeNameOf accepts either {"name": "Goal"} or a bare string.
func typeNameOf(v any) string {
	switch t := v.(type) {
	case map[string]any:
		return stringField(t["name"])
	case string:
		return t
	default:
		return ""
	}
}

// playerIDOf accepts player objects, bare ids, and the provider's
// assorted key spellings.
func playerIDOf(ev map[string]any, keys ...string) string {
	for _, key := range keys {
		switch p := ev[key].(type) {
		case map[string]any:
			if id := scalarID(p["id"]); id != "" {
				return id
			}
			if id := scalarID(p["player_id"]); id != "" {
				return id
			}
		default:
			if id := scalarID(p); id != "" {
				return id
			}
		}
	}
	return ""
}

func scalarID(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return fmt.Sprintf("%.0f", id)
	default:
		return ""
	}
}
