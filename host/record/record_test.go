package record

import (
	"context"
	"errors"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"stm32adc/host/monitor"
)

func openTemp(t *testing.T) (*Recorder, string) {
	t.Helper()
	dir, err := ioutil.TempDir("", "record")
	if err != nil {
		t.Fatalf("TempDir failed: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "adc.db")
	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return r, path
}

func TestRecordReplay(t *testing.T) {
	r, path := openTemp(t)
	ctx := context.Background()
	at := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	for gen := uint32(1); gen <= 3; gen++ {
		rd := &monitor.Reading{
			Time:       at.Add(time.Duration(gen) * time.Second),
			Seq:        uint8(gen),
			Generation: gen,
			VddaUV:     3_300_000,
			Bits:       12,
			Channels:   []string{"pa0", "pa1"},
			Raw:        []uint16{uint16(gen), 4095},
			Volts:      []float64{0.5, 3.3},
		}
		if err := r.Handle(ctx, rd); err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
	}
	if err := r.SetBoard("nucleo"); err != nil {
		t.Fatalf("SetBoard failed: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer r.Close()

	if n, err := r.Count(); err != nil || n != 3 {
		t.Errorf("Expected 3 readings, got %d %v", n, err)
	}
	if board, err := r.Board(); err != nil || board != "nucleo" {
		t.Errorf("Expected board nucleo, got %q %v", board, err)
	}

	var ids []uint64
	var got []*monitor.Reading
	err = r.Replay(ctx, func(id uint64, rd *monitor.Reading) error {
		ids = append(ids, id)
		got = append(got, rd)
		return nil
	})
	if err != nil {
		t.Fatalf("Replay failed: %v", err)
	}
	if len(got) != 3 || ids[0] != 1 || ids[2] != 3 {
		t.Fatalf("Unexpected ids %v", ids)
	}
	second := got[1]
	if second.Generation != 2 || second.Raw[0] != 2 || second.Channels[1] != "pa1" || second.Volts[1] != 3.3 {
		t.Errorf("Unexpected reading %+v", second)
	}
	if !second.Time.Equal(at.Add(2 * time.Second)) {
		t.Errorf("Unexpected time %v", second.Time)
	}
}

func TestReplayStops(t *testing.T) {
	r, _ := openTemp(t)
	defer r.Close()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := r.Handle(ctx, &monitor.Reading{Generation: uint32(i)}); err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
	}

	stop := errors.New("stop")
	calls := 0
	err := r.Replay(ctx, func(id uint64, rd *monitor.Reading) error {
		calls++
		return stop
	})
	if err != stop || calls != 1 {
		t.Errorf("Expected stop after 1 call, got %d %v", calls, err)
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if err := r.Replay(canceled, func(uint64, *monitor.Reading) error { return nil }); err != context.Canceled {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestEmptyDatabase(t *testing.T) {
	r, _ := openTemp(t)
	defer r.Close()

	if n, err := r.Count(); err != nil || n != 0 {
		t.Errorf("Expected empty, got %d %v", n, err)
	}
	if board, err := r.Board(); err != nil || board != "" {
		t.Errorf("Expected no board, got %q %v", board, err)
	}
}
