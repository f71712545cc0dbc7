package serial

import (
	"testing"

	"github.com/spf13/pflag"
)

func TestAddFlags(t *testing.T) {
	cfg := DefaultConfig("/dev/ttyUSB0")
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	cfg.AddFlags(fs)

	if err := fs.Parse([]string{"-d", "/dev/ttyACM1", "--baud", "921600"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if cfg.Device != "/dev/ttyACM1" || cfg.Baud != 921600 {
		t.Errorf("Unexpected config %+v", cfg)
	}
	if cfg.ReadTimeout != 100 {
		t.Errorf("Expected default read timeout kept, got %d", cfg.ReadTimeout)
	}
}

func TestOpenRequiresDevice(t *testing.T) {
	if _, err := Open(nil); err == nil {
		t.Error("Expected error for nil config")
	}
	if _, err := Open(&Config{Baud: DefaultBaud}); err == nil {
		t.Error("Expected error for empty device")
	}
	if _, err := Open(&Config{Device: "/dev/null", Baud: 0}); err == nil {
		t.Error("Expected error for zero baud")
	}
}
