// Package monitor turns the firmware's telemetry stream into scaled
// readings and fans them out to sinks.
package monitor

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"stm32adc/core"
	"stm32adc/host/config"
	"stm32adc/protocol"
)

const (
	rxBufferSize = 4096
	readChunk    = 256
	readingQueue = 64
)

// Reading is one decoded frame scaled to volts.
type Reading struct {
	Time       time.Time `json:"time"`
	Seq        uint8     `json:"seq"`
	Generation uint32    `json:"generation"`
	VddaUV     uint32    `json:"vddaUV"`
	Bits       uint8     `json:"resolutionBits"`
	Channels   []string  `json:"channels"`
	Raw        []uint16  `json:"raw"`
	Volts      []float64 `json:"volts"`
}

// Sink consumes readings. A failing sink is logged and skipped; it does not
// stop the monitor.
type Sink interface {
	Name() string
	Handle(ctx context.Context, r *Reading) error
}

// Monitor decodes frames from a reader and dispatches readings.
type Monitor struct {
	log     zerolog.Logger
	profile *config.Profile
	metrics *Metrics
	sinks   []Sink
	now     func() time.Time

	mu     sync.RWMutex
	latest *Reading
	stats  protocol.DecoderStats
}

// New creates a monitor for the given profile. Metrics are registered with
// reg when it is not nil.
func New(log zerolog.Logger, profile *config.Profile, reg prometheus.Registerer, sinks ...Sink) (*Monitor, error) {
	if err := profile.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid profile")
	}
	metrics, err := NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	return &Monitor{
		log:     log,
		profile: profile,
		metrics: metrics,
		sinks:   sinks,
		now:     time.Now,
	}, nil
}

// Latest returns the most recent reading, or nil before the first frame.
func (m *Monitor) Latest() *Reading {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest
}

// Stats returns the decoder counters.
func (m *Monitor) Stats() protocol.DecoderStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// Run reads from r until it returns io.EOF, fails, or ctx is canceled.
func (m *Monitor) Run(ctx context.Context, r io.Reader) error {
	g, ctx := errgroup.WithContext(ctx)
	readings := make(chan *Reading, readingQueue)

	g.Go(func() error {
		defer close(readings)
		return m.readLoop(ctx, r, readings)
	})
	g.Go(func() error {
		return m.dispatchLoop(ctx, readings)
	})
	return g.Wait()
}

func (m *Monitor) readLoop(ctx context.Context, r io.Reader, out chan<- *Reading) error {
	log := m.log
	rx := protocol.NewRxBuffer(rxBufferSize)
	var pending []*Reading
	decoder := protocol.NewDecoder(func(seq uint8, f *protocol.SampleFrame) {
		pending = append(pending, m.newReading(seq, f))
	})
	decoder.SetErrorHandler(func(err error) {
		log.Debug().Err(err).Msg("Rejected block")
	})

	buf := make([]byte, readChunk)
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := r.Read(buf)
		data := buf[:n]
		for len(data) > 0 {
			w := rx.Write(data)
			data = data[w:]
			decoder.Receive(rx)
			if w == 0 && rx.Free() == 0 {
				log.Warn().Int("bytes", rx.Available()).Msg("Receive buffer stuck, discarding")
				rx.Reset()
			}
		}
		if n > 0 {
			stats := decoder.Stats()
			m.mu.Lock()
			m.stats = stats
			m.mu.Unlock()
			m.metrics.updateStats(stats)
		}
		for _, rd := range pending {
			select {
			case out <- rd:
			case <-ctx.Done():
				return nil
			}
		}
		pending = pending[:0]

		if err == io.EOF {
			log.Debug().Msg("End of stream")
			return nil
		} else if err != nil {
			return errors.Wrap(err, "failed to read telemetry")
		}
	}
}

func (m *Monitor) dispatchLoop(ctx context.Context, in <-chan *Reading) error {
	for rd := range in {
		m.mu.Lock()
		m.latest = rd
		m.mu.Unlock()
		m.metrics.observe(rd)

		for _, s := range m.sinks {
			if err := s.Handle(ctx, rd); err != nil {
				m.log.Warn().Err(err).Str("sink", s.Name()).Msg("Sink failed")
			}
		}
	}
	return nil
}

// newReading scales a frame. Frames without a supply measurement are scaled
// against the nominal calibration voltage.
func (m *Monitor) newReading(seq uint8, f *protocol.SampleFrame) *Reading {
	res, ok := core.ResolutionFromBits(f.ResolutionBits)
	if !ok {
		res = m.profile.Resolution()
	}
	vdda := f.VddaUV
	if vdda == 0 {
		vdda = core.CalibrationUV
	}

	rd := &Reading{
		Time:       m.now(),
		Seq:        seq,
		Generation: f.Generation,
		VddaUV:     vdda,
		Bits:       res.Bits(),
		Channels:   make([]string, len(f.Samples)),
		Raw:        f.Samples,
		Volts:      make([]float64, len(f.Samples)),
	}
	for i, raw := range f.Samples {
		ch := m.profile.ChannelAt(i)
		rd.Channels[i] = ch.Name
		rd.Volts[i] = float64(core.RawToUV(raw, vdda, res)) / 1e6 * ch.Scale
	}
	return rd
}
