// Package serial opens the UART link to the ADC firmware.
package serial

import (
	"io"

	"github.com/spf13/pflag"
)

// Port is an open serial connection.
type Port interface {
	io.ReadWriteCloser

	// Flush flushes any buffered data
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyUSB0", "COM3")
	Device string `json:"device"`

	// Baud rate of the firmware UART
	Baud int `json:"baud"`

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int `json:"readTimeoutMs,omitempty"`
}

// DefaultBaud matches the telemetry UART setup in the firmware.
const DefaultBaud = 115200

// DefaultConfig returns the configuration used when no profile is given.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100,
	}
}

// AddFlags binds the serial options to fs. Values already in cfg become
// the flag defaults.
func (cfg *Config) AddFlags(fs *pflag.FlagSet) {
	fs.StringVarP(&cfg.Device, "device", "d", cfg.Device, "Serial device path")
	fs.IntVar(&cfg.Baud, "baud", cfg.Baud, "Baud rate")
	fs.IntVar(&cfg.ReadTimeout, "read-timeout", cfg.ReadTimeout, "Read timeout in milliseconds (0 = blocking)")
}
