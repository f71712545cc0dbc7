package main

import (
	"context"
	"io"

	aerr "github.com/ewoutp/go-aggregate-error"
	"github.com/prometheus/client_golang/prometheus"
	terminate "github.com/pulcy/go-terminate"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"stm32adc/host/config"
	"stm32adc/host/monitor"
	"stm32adc/host/publish"
	"stm32adc/host/record"
	"stm32adc/host/serial"
	"stm32adc/host/server"
)

type streamOptions struct {
	serial     serial.Config
	recordPath string
	broker     string
	httpHost   string
	httpPort   int
}

// apply overrides the profile with every flag that was given explicitly.
func (o *streamOptions) apply(cmd *cobra.Command, p *config.Profile) {
	flags := cmd.Flags()
	if p.Serial == nil {
		p.Serial = serial.DefaultConfig(config.DefaultDevice)
	}
	if flags.Changed("device") {
		p.Serial.Device = o.serial.Device
	}
	if flags.Changed("baud") {
		p.Serial.Baud = o.serial.Baud
	}
	if flags.Changed("read-timeout") {
		p.Serial.ReadTimeout = o.serial.ReadTimeout
	}
	if flags.Changed("record") {
		p.RecordPath = o.recordPath
	}
	if flags.Changed("mqtt") {
		if p.MQTT == nil {
			p.MQTT = &config.MQTTConfig{}
		}
		p.MQTT.Broker = o.broker
	}
	if flags.Changed("http-port") || flags.Changed("http-host") {
		if p.HTTP == nil {
			p.HTTP = &config.HTTPConfig{}
		}
		if flags.Changed("http-port") {
			p.HTTP.Port = o.httpPort
		}
		if flags.Changed("http-host") {
			p.HTTP.Host = o.httpHost
		}
	}
}

func newStreamOptions() *streamOptions {
	return &streamOptions{serial: *serial.DefaultConfig(config.DefaultDevice)}
}

func (o *streamOptions) addFlags(fs *pflag.FlagSet) {
	o.serial.AddFlags(fs)
	fs.StringVar(&o.recordPath, "record", "", "Record readings to this database")
	fs.StringVar(&o.broker, "mqtt", "", "Publish readings to this MQTT broker (host:port)")
	fs.StringVar(&o.httpHost, "http-host", "0.0.0.0", "Host address the HTTP server will listen on")
	fs.IntVar(&o.httpPort, "http-port", 0, "Port the HTTP server will listen on (0 = disabled)")
}

func newStreamCommand(a *app) *cobra.Command {
	opts := newStreamOptions()
	cmd := &cobra.Command{
		Use:   "stream",
		Short: "Decode telemetry from the serial port",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.apply(cmd, a.profile)
			return runStream(a, a.profile)
		},
	}
	opts.addFlags(cmd.Flags())
	return cmd
}

// closeAll closes every closer, newest first, and reports all failures.
func closeAll(closers []io.Closer) error {
	var ae aerr.AggregateError
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			ae.Add(err)
		}
	}
	return ae.AsError()
}

func runStream(a *app, p *config.Profile) (err error) {
	log := a.log
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var closers []io.Closer
	defer func() {
		if cerr := closeAll(closers); cerr != nil {
			log.Warn().Err(cerr).Msg("Failed to close stream resources")
			if err == nil {
				err = maskAny(cerr)
			}
		}
	}()

	port, err := serial.Open(p.Serial)
	if err != nil {
		return maskAny(err)
	}
	closers = append(closers, port)
	if err := port.Flush(); err != nil {
		log.Warn().Err(err).Msg("Failed to flush serial input")
	}

	var sinks []monitor.Sink
	if p.RecordPath != "" {
		rec, err := record.Open(p.RecordPath)
		if err != nil {
			return maskAny(err)
		}
		closers = append(closers, rec)
		if err := rec.SetBoard(p.Board); err != nil {
			return maskAny(err)
		}
		sinks = append(sinks, rec)
	}
	if p.MQTT != nil && p.MQTT.Broker != "" {
		pub := publish.New(log, *p.MQTT, p.Board)
		if err := pub.Connect(ctx); err != nil {
			return maskAny(err)
		}
		closers = append(closers, pub)
		sinks = append(sinks, pub)
	}
	var bc *monitor.Broadcaster
	if p.HTTP != nil && p.HTTP.Port != 0 {
		if bc, err = monitor.NewBroadcaster(); err != nil {
			return maskAny(err)
		}
		closers = append(closers, bc)
		sinks = append(sinks, bc)
	}

	reg := prometheus.NewRegistry()
	mon, err := monitor.New(log, p, reg, sinks...)
	if err != nil {
		return maskAny(err)
	}

	// Prepare to shutdown in a controlled manner
	t := terminate.NewTerminator(func(template string, args ...interface{}) {
		log.Info().Msgf(template, args...)
	}, cancel)
	go t.ListenSignals()

	log.Info().
		Str("device", p.Serial.Device).
		Int("baud", p.Serial.Baud).
		Str("board", p.Board).
		Msg("Streaming")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		return mon.Run(ctx, port)
	})
	if bc != nil {
		srv := server.New(server.Config{Host: p.HTTP.Host, HTTPPort: p.HTTP.Port}, log, mon, reg)
		srv.Watch(bc)
		g.Go(func() error { return srv.Run(ctx) })
	}
	if err := g.Wait(); err != nil {
		return maskAny(err)
	}

	stats := mon.Stats()
	log.Info().
		Uint32("frames", stats.Frames).
		Uint32("dropped", stats.Dropped).
		Uint32("resyncs", stats.Resyncs).
		Uint32("errors", stats.Errors).
		Msg("Stream closed")
	return nil
}
