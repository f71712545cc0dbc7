package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"stm32adc/host/monitor"
	"stm32adc/protocol"
)

type fakeSource struct {
	latest *monitor.Reading
	stats  protocol.DecoderStats
}

func (f *fakeSource) Latest() *monitor.Reading     { return f.latest }
func (f *fakeSource) Stats() protocol.DecoderStats { return f.stats }

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := New(Config{}, zerolog.Nop(), &fakeSource{}, prometheus.NewRegistry())
	rec := get(t, s, "/health")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "OK" {
		t.Errorf("Unexpected health response %d %q", rec.Code, rec.Body.String())
	}
}

func TestLatest(t *testing.T) {
	src := &fakeSource{}
	s := New(Config{}, zerolog.Nop(), src, prometheus.NewRegistry())

	if rec := get(t, s, "/api/latest"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 before first reading, got %d", rec.Code)
	}

	src.latest = &monitor.Reading{Generation: 42, Channels: []string{"pa0"}, Raw: []uint16{4095}, Volts: []float64{3.3}}
	rec := get(t, s, "/api/latest")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	var got monitor.Reading
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.Generation != 42 || got.Raw[0] != 4095 || got.Volts[0] != 3.3 {
		t.Errorf("Unexpected reading %+v", got)
	}
}

func TestStats(t *testing.T) {
	src := &fakeSource{stats: protocol.DecoderStats{Frames: 10, Dropped: 2}}
	s := New(Config{}, zerolog.Nop(), src, prometheus.NewRegistry())

	rec := get(t, s, "/api/stats")
	var got protocol.DecoderStats
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.Frames != 10 || got.Dropped != 2 {
		t.Errorf("Unexpected stats %+v", got)
	}
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := monitor.NewMetrics(reg); err != nil {
		t.Fatalf("NewMetrics failed: %v", err)
	}
	s := New(Config{}, zerolog.Nop(), &fakeSource{}, reg)

	rec := get(t, s, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "adcmon_frames_total 0") {
		t.Errorf("Expected frames counter in output:\n%s", rec.Body.String())
	}
}

func TestNext(t *testing.T) {
	b, err := monitor.NewBroadcaster()
	if err != nil {
		t.Fatalf("NewBroadcaster failed: %v", err)
	}
	defer b.Close()
	s := New(Config{}, zerolog.Nop(), &fakeSource{}, prometheus.NewRegistry())
	s.Watch(b)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() { done <- get(t, s, "/api/next?timeout=5s") }()

	deadline := time.Now().Add(2 * time.Second)
	for b.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Handler never subscribed")
		}
		time.Sleep(time.Millisecond)
	}
	b.Handle(context.Background(), &monitor.Reading{Generation: 5, Raw: []uint16{100}})

	rec := <-done
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var got monitor.Reading
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.Generation != 5 {
		t.Errorf("Expected generation 5, got %d", got.Generation)
	}
	if b.Subscribers() != 0 {
		t.Errorf("Expected subscription released, %d left", b.Subscribers())
	}
}

func TestNextTimeout(t *testing.T) {
	s := New(Config{}, zerolog.Nop(), &fakeSource{}, prometheus.NewRegistry())
	if rec := get(t, s, "/api/next"); rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 without a watcher, got %d", rec.Code)
	}

	b, err := monitor.NewBroadcaster()
	if err != nil {
		t.Fatalf("NewBroadcaster failed: %v", err)
	}
	defer b.Close()
	s.Watch(b)
	if rec := get(t, s, "/api/next?timeout=10ms"); rec.Code != http.StatusGatewayTimeout {
		t.Errorf("Expected 504, got %d", rec.Code)
	}
	if rec := get(t, s, "/api/next?timeout=soon"); rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}
