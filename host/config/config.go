// Package config loads host-side settings: the serial link and the
// initial controller configuration.
package config

import (
	"encoding/json"

	"gospi/core"
	"gospi/host/serial"
)

// Link describes the byte stream to the controller.
type Link struct {
	Device string `json:"device"`
	Baud   int    `json:"baud"`
}

// Controller is the initial config register contents, in friendly
// form. Divisors follow f_sys/f_spi == div + 2.
type Controller struct {
	CSPolarity bool  `json:"cs_polarity"`
	ClkPol     bool  `json:"clk_polarity"`
	ClkPhase   bool  `json:"clk_phase"`
	LSBFirst   bool  `json:"lsb_first"`
	HalfDuplex bool  `json:"half_duplex"`
	DivWrite   uint8 `json:"div_write"`
	DivRead    uint8 `json:"div_read"`
}

// Config is the top-level host configuration.
type Config struct {
	Link       Link       `json:"link"`
	Controller Controller `json:"controller"`
}

// Load parses JSON configuration and applies defaults.
func Load(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Link.Device == "" {
		cfg.Link.Device = "/dev/ttyACM0"
	}
	if cfg.Link.Baud == 0 {
		cfg.Link.Baud = 250000
	}
	if cfg.Controller.DivWrite == 0 {
		cfg.Controller.DivWrite = 3
	}
	if cfg.Controller.DivRead == 0 {
		cfg.Controller.DivRead = 3
	}
}

// SerialConfig converts the link settings for the serial package.
func (c *Config) SerialConfig() *serial.Config {
	sc := serial.DefaultConfig(c.Link.Device)
	sc.Baud = c.Link.Baud
	return sc
}

// CoreConfig converts the controller settings into a config register
// value, online and with no transfer state.
func (c *Controller) CoreConfig() core.Config {
	return core.Config{
		CSPolarity: c.CSPolarity,
		ClkPol:     c.ClkPol,
		ClkPhase:   c.ClkPhase,
		LSBFirst:   c.LSBFirst,
		HalfDuplex: c.HalfDuplex,
		DivWrite:   c.DivWrite,
		DivRead:    c.DivRead,
	}
}
