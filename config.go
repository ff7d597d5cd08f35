package pixelwire

import (
	"encoding"
	"io"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"libdb.so/pixelwire/ledstream"
)

// Config is the configuration for the pixelwire daemon.
type Config struct {
	// Device is the path to the serial device file for the controller.
	// This is usually /dev/ttyUSB0 or /dev/ttyACM0.
	Device string `toml:"device"`
	// Baud is the baud rate for the serial connection.
	Baud int `toml:"baud"`
	// Rate is the number of animation frames rendered per second. It also
	// caps how often frames are sent to the controller.
	Rate int `toml:"rate"`
	// PixelsPerStrip is the length of each of the two strips.
	PixelsPerStrip int `toml:"pixels_per_strip"`
	// Listen is the UDP address that the control listener binds to.
	Listen string `toml:"listen"`
	// AckTimeout is how long the sender waits for the controller to
	// acknowledge a frame before giving up on it.
	AckTimeout TOMLDuration `toml:"ack_timeout"`
	// Pulse configures the pulse animation.
	Pulse PulseConfig `toml:"pulse"`
}

// PulseConfig is the configuration for the pulse animation.
type PulseConfig struct {
	// MiddlePixel is the per-strip index that pulses start from.
	MiddlePixel int `toml:"middle_pixel"`
	// Width is the number of pixels each pulse edge lights up. Odd widths
	// render symmetrically.
	Width int `toml:"width"`
}

// DefaultConfig returns the configuration matching the deployed setup: two
// strips of 150 pixels on /dev/ttyUSB0 at 115200 baud.
func DefaultConfig() Config {
	return Config{
		Device:         "/dev/ttyUSB0",
		Baud:           ledstream.DefaultBaud,
		Rate:           60,
		PixelsPerStrip: ledstream.DefaultPixelsPerStrip,
		Listen:         ":41234",
		AckTimeout:     TOMLDuration(250 * time.Millisecond),
		Pulse: PulseConfig{
			MiddlePixel: 74,
			Width:       3,
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Device == "" {
		return errors.New("no serial device configured")
	}
	if c.Baud <= 0 {
		return errors.New("baud must be positive")
	}
	if c.Rate <= 0 {
		return errors.New("rate must be positive")
	}
	if c.PixelsPerStrip <= 0 {
		return errors.New("pixels_per_strip must be positive")
	}
	if c.Listen == "" {
		return errors.New("no control listen address configured")
	}
	if c.AckTimeout <= 0 {
		return errors.New("ack_timeout must be positive")
	}
	return nil
}

// TOMLDuration is a duration that can be parsed from TOML.
type TOMLDuration time.Duration

var (
	_ encoding.TextUnmarshaler = (*TOMLDuration)(nil)
	_ encoding.TextMarshaler   = (*TOMLDuration)(nil)
)

func (d *TOMLDuration) UnmarshalText(text []byte) error {
	duration, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = TOMLDuration(duration)
	return nil
}

func (d TOMLDuration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// ParseConfig parses a configuration from a reader. Fields that the
// document leaves unset keep their defaults.
func ParseConfig(r io.Reader) (*Config, error) {
	config := DefaultConfig()
	if err := toml.NewDecoder(r).Decode(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
