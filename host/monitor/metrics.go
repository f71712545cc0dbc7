package monitor

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"

	"stm32adc/protocol"
)

const metricsNamespace = "adcmon"

// Metrics exports link health and the latest channel voltages.
type Metrics struct {
	Frames     prometheus.Counter
	Dropped    prometheus.Counter
	Resyncs    prometheus.Counter
	Errors     prometheus.Counter
	Generation prometheus.Gauge
	Vdda       prometheus.Gauge
	Volts      *prometheus.GaugeVec

	last protocol.DecoderStats
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_total",
			Help:      "Sample frames decoded from the link",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "frames_dropped_total",
			Help:      "Frames missing according to sequence numbers",
		}),
		Resyncs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "resyncs_total",
			Help:      "Times block framing was lost",
		}),
		Errors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "payload_errors_total",
			Help:      "Well-framed blocks with an invalid payload",
		}),
		Generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "generation",
			Help:      "Sampler generation of the latest frame",
		}),
		Vdda: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "vdda_volts",
			Help:      "Analog supply measured against the internal reference",
		}),
		Volts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "channel_volts",
			Help:      "Latest scaled voltage per channel",
		}, []string{"channel"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.Frames, m.Dropped, m.Resyncs, m.Errors, m.Generation, m.Vdda, m.Volts} {
		if err := reg.Register(c); err != nil {
			return nil, errors.Wrap(err, "failed to register metric")
		}
	}
	return m, nil
}

// updateStats adds the growth of the decoder counters since the last call.
func (m *Metrics) updateStats(s protocol.DecoderStats) {
	m.Frames.Add(float64(s.Frames - m.last.Frames))
	m.Dropped.Add(float64(s.Dropped - m.last.Dropped))
	m.Resyncs.Add(float64(s.Resyncs - m.last.Resyncs))
	m.Errors.Add(float64(s.Errors - m.last.Errors))
	m.last = s
}

func (m *Metrics) observe(r *Reading) {
	m.Generation.Set(float64(r.Generation))
	m.Vdda.Set(float64(r.VddaUV) / 1e6)
	for i, name := range r.Channels {
		m.Volts.WithLabelValues(name).Set(r.Volts[i])
	}
}
