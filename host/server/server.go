// Package server exposes the monitor over HTTP.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"stm32adc/host/monitor"
	"stm32adc/protocol"
)

// Config for the HTTP server.
type Config struct {
	// Host interface to listen on
	Host string
	// Port to listen on for HTTP requests
	HTTPPort int
}

// Source is the part of the monitor the server reads from.
type Source interface {
	Latest() *monitor.Reading
	Stats() protocol.DecoderStats
}

// Watcher delivers readings as they arrive.
type Watcher interface {
	Subscribe(cb func(monitor.Reading)) context.CancelFunc
}

const (
	defaultNextTimeout = 5 * time.Second
	maxNextTimeout     = time.Minute
)

// Server runs the HTTP server.
type Server struct {
	Config
	log     zerolog.Logger
	source  Source
	watcher Watcher
	router  *echo.Echo
}

// New configures a new Server. Metrics are served from gatherer.
func New(cfg Config, log zerolog.Logger, source Source, gatherer prometheus.Gatherer) *Server {
	s := &Server{
		Config: cfg,
		log:    log,
		source: source,
		router: echo.New(),
	}
	s.router.HideBanner = true
	s.router.HidePort = true
	s.router.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	s.router.GET("/health", echo.WrapHandler(http.HandlerFunc(healthHandler)))
	s.router.GET("/api/latest", s.latestHandler)
	s.router.GET("/api/stats", s.statsHandler)
	return s
}

// Watch enables /api/next, which waits for the next reading from w.
func (s *Server) Watch(w Watcher) {
	s.watcher = w
	s.router.GET("/api/next", s.nextHandler)
}

// ServeHTTP lets the router be used without a listener.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run the server until the given context is canceled.
func (s *Server) Run(ctx context.Context) error {
	log := s.log
	httpAddr := net.JoinHostPort(s.Host, strconv.Itoa(s.HTTPPort))
	httpLis, err := net.Listen("tcp", httpAddr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on address %s", httpAddr)
	}
	httpSrv := http.Server{
		Handler: s.router,
	}

	log.Debug().Str("address", httpAddr).Msg("Serving HTTP")
	serveErr := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(httpLis); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return errors.Wrap(err, "failed to serve HTTP")
	}

	log.Info().Msg("Closing HTTP server")
	httpSrv.Shutdown(context.Background())
	return nil
}

func (s *Server) latestHandler(c echo.Context) error {
	rd := s.source.Latest()
	if rd == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "no reading yet")
	}
	return c.JSON(http.StatusOK, rd)
}

func (s *Server) statsHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, s.source.Stats())
}

// nextHandler blocks until a new reading arrives, the timeout query
// parameter (a Go duration) elapses, or the client goes away.
func (s *Server) nextHandler(c echo.Context) error {
	timeout := defaultNextTimeout
	if v := c.QueryParam("timeout"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid timeout "+strconv.Quote(v))
		}
		timeout = min(d, maxNextTimeout)
	}

	next := make(chan monitor.Reading, 1)
	cancel := s.watcher.Subscribe(func(rd monitor.Reading) {
		select {
		case next <- rd:
		default:
		}
	})
	defer cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case rd := <-next:
		return c.JSON(http.StatusOK, rd)
	case <-timer.C:
		return echo.NewHTTPError(http.StatusGatewayTimeout, "no reading within "+timeout.String())
	case <-c.Request().Context().Done():
		return c.Request().Context().Err()
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintln(w, "OK")
}
