// Package config loads the YAML board profile describing how a target's
// ADC is clocked and which channels its telemetry frames carry.
package config

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"stm32adc/core"
	"stm32adc/host/serial"
)

const (
	ConfigDir  = ".adcmon"
	ConfigFile = "profile.yaml"

	DefaultVariant    = "stm32f40x"
	DefaultPCLK2Hz    = 84_000_000
	DefaultResolution = 12
	DefaultDevice     = "/dev/ttyUSB0"
	DefaultMQTTTopic  = "adcmon"
)

// Channel names one position of the conversion sequence.
type Channel struct {
	Name    string `json:"name"`
	Channel uint8  `json:"channel"`
	// Scale multiplies the pin voltage, e.g. 2 behind a 1:1 divider.
	Scale float64 `json:"scale,omitempty"`
}

// MQTTConfig configures the optional MQTT publisher.
type MQTTConfig struct {
	Broker   string `json:"broker"`
	ClientID string `json:"clientId,omitempty"`
	Topic    string `json:"topic,omitempty"`
}

// HTTPConfig configures the optional HTTP endpoint.
type HTTPConfig struct {
	Host string `json:"host,omitempty"`
	Port int    `json:"port"`
}

// Profile is the board description shared by the firmware and the host.
type Profile struct {
	Board          string         `json:"board"`
	Variant        string         `json:"variant"`
	PCLK2Hz        uint32         `json:"pclk2Hz"`
	ResolutionBits uint8          `json:"resolutionBits"`
	Channels       []Channel      `json:"channels"`
	Serial         *serial.Config `json:"serial,omitempty"`
	MQTT           *MQTTConfig    `json:"mqtt,omitempty"`
	HTTP           *HTTPConfig    `json:"http,omitempty"`
	RecordPath     string         `json:"recordPath,omitempty"`

	filepath string
}

// DefaultProfilePath returns ~/.adcmon/profile.yaml.
func DefaultProfilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	return filepath.Join(home, ConfigDir, ConfigFile)
}

// NewDefaultProfile describes the STM32F4 target with its default scan of
// PA0, PA1, PB0 and PB1. PA2/PA3 carry the telemetry UART.
func NewDefaultProfile() *Profile {
	return &Profile{
		Board:          "stm32f4disco",
		Variant:        DefaultVariant,
		PCLK2Hz:        DefaultPCLK2Hz,
		ResolutionBits: DefaultResolution,
		Channels: []Channel{
			{Name: "pa0", Channel: 0},
			{Name: "pa1", Channel: 1},
			{Name: "pb0", Channel: 8},
			{Name: "pb1", Channel: 9},
		},
		Serial:   serial.DefaultConfig(DefaultDevice),
		filepath: DefaultProfilePath(),
	}
}

// Load reads a profile from path, on top of the defaults.
func Load(path string) (*Profile, error) {
	p := NewDefaultProfile()
	p.filepath = path
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read profile %s", path)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, errors.Wrapf(err, "failed to parse profile %s", path)
	}
	if err := p.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid profile %s", path)
	}
	return p, nil
}

// LoadOrDefault loads path when it exists and returns the defaults
// otherwise.
func LoadOrDefault(path string) (*Profile, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		p := NewDefaultProfile()
		p.filepath = path
		return p, nil
	}
	return Load(path)
}

// Persist writes the profile back to its file.
func (p *Profile) Persist(overwrite bool) error {
	if _, err := os.Stat(p.filepath); err == nil && !overwrite {
		return errors.Errorf("profile %s already exists", p.filepath)
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := os.MkdirAll(filepath.Dir(p.filepath), 0755); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(ioutil.WriteFile(p.filepath, data, 0644))
}

// Path returns the file the profile was loaded from.
func (p *Profile) Path() string {
	return p.filepath
}

// Validate checks the profile against the chip limits.
func (p *Profile) Validate() error {
	v, ok := core.LookupVariant(p.Variant)
	if !ok {
		return errors.Errorf("unknown variant %q", p.Variant)
	}
	if p.PCLK2Hz == 0 {
		return errors.New("pclk2Hz must be set")
	}
	if uint64(p.PCLK2Hz) > uint64(v.MaxFrequency)*uint64(core.PrescalerDiv8.Divisor()) {
		return errors.Errorf("pclk2Hz %d too high for %s", p.PCLK2Hz, v.Name)
	}
	if _, ok := core.ResolutionFromBits(p.ResolutionBits); !ok {
		return errors.Errorf("unsupported resolution %d bits", p.ResolutionBits)
	}
	if len(p.Channels) == 0 || len(p.Channels) > core.MaxBulkSequence {
		return errors.Errorf("profile must list 1 to %d channels", core.MaxBulkSequence)
	}
	for _, ch := range p.Channels {
		if ch.Channel > core.MaxChannel {
			return errors.Errorf("channel %s: id %d out of range", ch.Name, ch.Channel)
		}
		if ch.Scale < 0 {
			return errors.Errorf("channel %s: negative scale", ch.Name)
		}
	}
	return nil
}

// ChipVariant returns the variant constants. The profile must be valid.
func (p *Profile) ChipVariant() *core.Variant {
	v, _ := core.LookupVariant(p.Variant)
	return v
}

// Resolution returns the configured resolution. The profile must be valid.
func (p *Profile) Resolution() core.Resolution {
	r, _ := core.ResolutionFromBits(p.ResolutionBits)
	return r
}

// Prescaler returns the divider the firmware picks for PCLK2.
func (p *Profile) Prescaler() core.Prescaler {
	return core.PrescalerFor(p.PCLK2Hz, p.ChipVariant().MaxFrequency)
}

// ADCHz returns the resulting ADC clock.
func (p *Profile) ADCHz() uint32 {
	return p.PCLK2Hz / p.Prescaler().Divisor()
}

// ChannelAt returns the channel of the i-th sample in a frame. Frames hold
// whole scans, so sample i belongs to sequence position i mod len.
func (p *Profile) ChannelAt(i int) Channel {
	ch := p.Channels[i%len(p.Channels)]
	if ch.Scale == 0 {
		ch.Scale = 1
	}
	return ch
}
