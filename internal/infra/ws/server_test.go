package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"footy_go/internal/domain"
	"footy_go/internal/hub"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

type staticSnapshots []domain.Instrument

func (s staticSnapshots) Snapshot() []domain.Instrument { return s }

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/prices"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHandlePrices_SnapshotThenUpdates(t *testing.T) {
	h := hub.New(staticSnapshots{
		{ID: "p1", Price: decimal.NewFromInt(1000)},
	}, 8)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/prices", NewServer(h).HandlePrices)
	server := httptest.NewServer(mux)
	defer server.Close()

	conn := dial(t, server)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read snapshot: %v", err)
	}
	var first struct {
		Type        string `json:"type"`
		Instruments []any  `json:"instruments"`
	}
	if err := json.Unmarshal(raw, &first); err != nil {
		t.Fatalf("Failed to decode snapshot: %v", err)
	}
	if first.Type != "snapshot" || len(first.Instruments) != 1 {
		t.Fatalf("Expected a 1-instrument snapshot, got %+v", first)
	}

	h.Publish(domain.PriceChange{InstrumentID: "p1", NewPrice: decimal.NewFromInt(1100)})

	_, raw, err = conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to read update: %v", err)
	}
	var update struct {
		Type         string          `json:"type"`
		InstrumentID string          `json:"instrument_id"`
		NewPrice     decimal.Decimal `json:"new_price"`
	}
	if err := json.Unmarshal(raw, &update); err != nil {
		t.Fatalf("Failed to decode update: %v", err)
	}
	if update.Type != "update" || update.InstrumentID != "p1" || !update.NewPrice.Equal(decimal.NewFromInt(1100)) {
		t.Errorf("Wrong update frame: %+v", update)
	}
}

func TestHandlePrices_DisconnectUnsubscribes(t *testing.T) {
	h := hub.New(staticSnapshots{}, 8)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws/prices", NewServer(h).HandlePrices)
	server := httptest.NewServer(mux)
	defer server.Close()

	conn := dial(t, server)

	deadline := time.After(2 * time.Second)
	for h.Count() == 0 {
		select {
		case <-deadline:
			t.Fatal("Subscriber never registered")
		case <-time.After(10 * time.Millisecond):
		}
	}

	conn.Close()
	deadline = time.After(2 * time.Second)
	for h.Count() != 0 {
		select {
		case <-deadline:
			t.Fatalf("Subscriber not removed after disconnect, count = %d", h.Count())
		case <-time.After(10 * time.Millisecond):
		}
	}
}
