// Package config loads the demo board configuration from YAML and publishes
// each section as a retained bus message, so services pick up their settings
// by subscribing rather than by wiring.
package config

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mcucode-go/bus"
	"mcucode-go/errcode"
)

const (
	serviceName  = "config"
	configPrefix = "config"
)

// SerialConfig names the host serial port bridged to the simulated USART.
type SerialConfig struct {
	Port string `yaml:"port"`
	Baud uint32 `yaml:"baud"`
}

// PanelConfig is the LCD geometry.
type PanelConfig struct {
	Rows    uint16 `yaml:"rows"`
	Columns uint16 `yaml:"columns"`
}

// I2CDevice is one entry in the bus device table.
type I2CDevice struct {
	Name    string `yaml:"name"`
	Address uint8  `yaml:"address"`
}

type I2CConfig struct {
	Devices []I2CDevice `yaml:"devices"`
}

type Config struct {
	Serial SerialConfig `yaml:"serial"`
	Panel  PanelConfig  `yaml:"panel"`
	I2C    I2CConfig    `yaml:"i2c"`
}

// Default is the configuration of the reference board: 9600 baud serial,
// 480x320 panel, one port expander at 0x20.
func Default() Config {
	return Config{
		Serial: SerialConfig{Port: "/dev/ttyUSB0", Baud: 9600},
		Panel:  PanelConfig{Rows: 480, Columns: 320},
		I2C: I2CConfig{
			Devices: []I2CDevice{{Name: "expander", Address: 0x20}},
		},
	}
}

// Parse unmarshals YAML over the defaults, so a partial file only overrides
// what it names.
func Parse(raw []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, &errcode.E{C: errcode.BadFormat, Op: "config.parse", Msg: "bad yaml", Err: err}
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(raw)
}

func (c Config) validate() error {
	if c.Serial.Baud == 0 {
		return &errcode.E{C: errcode.InvalidParams, Op: "config.validate", Msg: "serial baud must be non-zero"}
	}
	if c.Panel.Rows == 0 || c.Panel.Columns == 0 {
		return &errcode.E{C: errcode.InvalidParams, Op: "config.validate", Msg: "panel geometry must be non-zero"}
	}
	for _, dev := range c.I2C.Devices {
		if dev.Address > 0x7F {
			return &errcode.E{C: errcode.BadAddress, Op: "config.validate", Msg: "i2c address for " + dev.Name}
		}
	}
	return nil
}

// Service publishes the configuration on the bus at startup.
type Service struct {
	Name string
	cfg  Config
}

func NewService(cfg Config) *Service {
	return &Service{Name: serviceName, cfg: cfg}
}

// Start publishes each config section as a retained message under
// config/<section>.
func (s *Service) Start(ctx context.Context, conn *bus.Connection) {
	sections := []struct {
		key     string
		payload any
	}{
		{"serial", s.cfg.Serial},
		{"panel", s.cfg.Panel},
		{"i2c", s.cfg.I2C},
	}
	for _, sec := range sections {
		if ctx.Err() != nil {
			return
		}
		conn.Publish(&bus.Message{
			Topic:    bus.Topic{configPrefix, sec.key},
			Payload:  sec.payload,
			Retained: true,
		})
	}
}
