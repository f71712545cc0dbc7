//go:build !wasm

package serial

import (
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/tarm/serial"
)

// uartPort is a Port backed by tarm/serial.
type uartPort struct {
	*serial.Port
	idleOK bool
}

// Open opens the device named in cfg at 8N1.
func Open(cfg *Config) (Port, error) {
	switch {
	case cfg == nil:
		return nil, errors.New("config cannot be nil")
	case cfg.Device == "":
		return nil, errors.New("no serial device configured")
	case cfg.Baud <= 0:
		return nil, errors.Errorf("invalid baud rate %d", cfg.Baud)
	}

	p, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s at %d baud", cfg.Device, cfg.Baud)
	}
	return &uartPort{Port: p, idleOK: cfg.ReadTimeout > 0}, nil
}

// Read turns the io.EOF tarm reports for an idle line into an empty read,
// so a quiet firmware does not end the stream.
func (p *uartPort) Read(b []byte) (int, error) {
	n, err := p.Port.Read(b)
	if n == 0 && err == io.EOF && p.idleOK {
		err = nil
	}
	return n, err
}
