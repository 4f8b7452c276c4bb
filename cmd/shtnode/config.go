package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"time"

	"go.uber.org/multierr"

	"github.com/walkure/shtnode/pkg/sht3x"
)

// Config is the command line of the node.
type Config struct {
	Listen string
	Place  string

	Backend       string
	Bus           string
	D2R2Bus       int
	Addr          uint
	Stretch       bool
	Repeatability uint
	ClockOffset   uint64

	Interval time.Duration
	Stale    time.Duration

	MQTT     string
	MQTTUser string
	MQTTPass string
	Name     string

	Sonoff     string
	SonoffPort int
	SonoffID   string

	Motion       string
	LED          string
	LEDActiveLow bool

	Console     string
	ConsoleBaud int
	LogLevel    string
}

var backends = []string{"periph", "d2r2"}

func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Listen, "listen", ":9821", "OpenMetrics Exporter Listeing Address")
	fs.StringVar(&c.Place, "place", "inside", "place label of the metrics")

	fs.StringVar(&c.Backend, "backend", "periph", "I2C stack: periph or d2r2")
	fs.StringVar(&c.Bus, "i2c", "", "periph I2C bus name, empty for the first one")
	fs.IntVar(&c.D2R2Bus, "d2r2bus", 1, "d2r2 /dev/i2c-N bus number")
	fs.UintVar(&c.Addr, "addr", uint(sht3x.DefaultAddress), "SHT3x I2C address")
	fs.BoolVar(&c.Stretch, "stretch", false, "use clock stretching measurement command")
	fs.UintVar(&c.Repeatability, "repeatability", uint(sht3x.RepeatabilityHigh), "measurement command LSB")
	fs.Uint64Var(&c.ClockOffset, "clock_offset", 0, "start value of the millisecond clock")

	fs.DurationVar(&c.Interval, "interval", 2*time.Second, "report interval")
	fs.DurationVar(&c.Stale, "stale", 4*time.Minute, "warn when no fresh reading for this long")

	fs.StringVar(&c.MQTT, "mqtt", "", "MQTT broker URL, e.g. tcp://host:1883")
	fs.StringVar(&c.MQTTUser, "mqtt_user", "", "MQTT user name")
	fs.StringVar(&c.MQTTPass, "mqtt_pass", "", "MQTT password")
	fs.StringVar(&c.Name, "name", "shtnode", "MQTT client id and topic prefix")

	fs.StringVar(&c.Sonoff, "sonoff", "", "Sonoff relay host")
	fs.IntVar(&c.SonoffPort, "sonoff_port", 8081, "Sonoff relay port")
	fs.StringVar(&c.SonoffID, "sonoff_id", "", "Sonoff device id")

	fs.StringVar(&c.Motion, "motion", "", "GPIO name of the PIR sensor")
	fs.StringVar(&c.LED, "led", "", "GPIO name of the motion indicator")
	fs.BoolVar(&c.LEDActiveLow, "led_active_low", true, "indicator is lit on low level")

	fs.StringVar(&c.Console, "console", "", "serial port to mirror the log to")
	fs.IntVar(&c.ConsoleBaud, "console_baud", 9600, "baud rate of the log console")
	fs.StringVar(&c.LogLevel, "loglevel", "INFO", "Log Level")
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var err error

	if !slices.Contains(backends, c.Backend) {
		multierr.AppendInto(&err, fmt.Errorf("backend %q: want one of %v", c.Backend, backends))
	}
	if !sht3x.ValidAddress(c.Addr) {
		multierr.AppendInto(&err, fmt.Errorf("addr 0x%x: not a 7-bit device address", c.Addr))
	}
	if c.Repeatability > 0xff {
		multierr.AppendInto(&err, fmt.Errorf("repeatability 0x%x: does not fit a byte", c.Repeatability))
	}
	if c.Backend == "d2r2" && c.D2R2Bus < 0 {
		multierr.AppendInto(&err, fmt.Errorf("d2r2bus %d: negative", c.D2R2Bus))
	}
	if c.Interval < time.Millisecond {
		multierr.AppendInto(&err, fmt.Errorf("interval %v: must be at least 1ms", c.Interval))
	}
	if c.Stale <= c.Interval {
		multierr.AppendInto(&err, fmt.Errorf("stale %v: must exceed interval %v", c.Stale, c.Interval))
	}
	if c.MQTT != "" {
		if u, perr := url.Parse(c.MQTT); perr != nil {
			multierr.AppendInto(&err, fmt.Errorf("mqtt: %w", perr))
		} else if !slices.Contains([]string{"tcp", "mqtt", "ssl", "tls", "ws", "wss"}, u.Scheme) {
			multierr.AppendInto(&err, fmt.Errorf("mqtt %q: unsupported scheme", c.MQTT))
		}
		if c.Name == "" {
			multierr.AppendInto(&err, errors.New("name: required with mqtt"))
		}
	}
	if c.Sonoff != "" && (c.SonoffPort <= 0 || c.SonoffPort > 65535) {
		multierr.AppendInto(&err, fmt.Errorf("sonoff_port %d: out of range", c.SonoffPort))
	}
	if c.Console != "" && c.ConsoleBaud <= 0 {
		multierr.AppendInto(&err, fmt.Errorf("console_baud %d: must be positive", c.ConsoleBaud))
	}
	var lv slog.Level
	if lerr := lv.UnmarshalText([]byte(c.LogLevel)); lerr != nil {
		multierr.AppendInto(&err, fmt.Errorf("loglevel: %w", lerr))
	}

	return err
}

// DriverOpts returns the sensor configuration.
func (c *Config) DriverOpts(logger *slog.Logger) *sht3x.Opts {
	o := sht3x.DefaultOpts
	o.Addr = uint16(c.Addr)
	o.ClockStretch = c.Stretch
	o.Repeatability = sht3x.Repeatability(c.Repeatability)
	o.Logger = logger
	return &o
}
