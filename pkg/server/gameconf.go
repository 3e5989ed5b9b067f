package server

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// GameConf holds server configuration, loaded from YAML.
type GameConf struct {
	// --- Identity ---
	MudName string `yaml:"mud_name"`

	// --- Listeners ---
	Bind          string   `yaml:"bind"`              // Bind address (empty = all interfaces)
	Port          int      `yaml:"port"`              // Telnet port
	Cleartext     *bool    `yaml:"cleartext"`         // nil = default true; explicitly false disables plaintext
	TLS           bool     `yaml:"tls"`
	TLSPort       int      `yaml:"tls_port"`
	TLSCert       string   `yaml:"tls_cert"`
	TLSKey        string   `yaml:"tls_key"`
	WebSocketPort int      `yaml:"websocket_port"`    // 0 = disabled
	WSOrigins     []string `yaml:"websocket_origins"` // Allowed Origin headers, empty = any
	MetricsPort   int      `yaml:"metrics_port"`      // 0 = disabled

	// --- Accept throttling ---
	AcceptRate  float64 `yaml:"accept_rate"`  // New connections per second, 0 = unlimited
	AcceptBurst int     `yaml:"accept_burst"` // Token bucket size

	// --- Sessions ---
	InputQueueCap int    `yaml:"input_queue_cap"` // Unprocessed lines that trigger a flood disconnect
	MaxLineLength int    `yaml:"max_line_length"` // Longest unterminated line accepted, in bytes
	WriteTimeout  int    `yaml:"write_timeout"`   // Seconds before a blocked write closes the session
	BcryptCost    int    `yaml:"bcrypt_cost"`
	Prompt        string `yaml:"prompt"`

	// --- Scheduling ---
	ProcessTickMS int `yaml:"process_tick_ms"` // Input processing period
	WorldTickMin  int `yaml:"world_tick_min"`  // Seconds
	WorldTickMax  int `yaml:"world_tick_max"`  // Seconds

	// --- Text ---
	TextDir string `yaml:"text_dir"` // connect.txt / motd.txt, reloaded on change

	// --- Commands ---
	Aliases map[string]string `yaml:"aliases"` // typed word -> command text

	Debug bool `yaml:"debug"` // Log every input line
}

// DefaultGameConf returns a GameConf with the stock defaults.
func DefaultGameConf() *GameConf {
	return &GameConf{
		MudName:       "GoMUD",
		Port:          4000,
		AcceptBurst:   5,
		InputQueueCap: 10,
		MaxLineLength: 4096,
		WriteTimeout:  5,
		BcryptCost:    5,
		Prompt:        "<my prompt> ",
		ProcessTickMS: 200,
		WorldTickMin:  45,
		WorldTickMax:  75,
	}
}

// LoadGameConf reads a YAML config file on top of the defaults.
// A relative text_dir is resolved against the config file's directory.
func LoadGameConf(path string) (*GameConf, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	gc := DefaultGameConf()
	if err := yaml.Unmarshal(data, gc); err != nil {
		return nil, fmt.Errorf("parsing YAML %s: %w", path, err)
	}

	if gc.TextDir != "" && !filepath.IsAbs(gc.TextDir) {
		gc.TextDir = filepath.Join(filepath.Dir(path), gc.TextDir)
	}
	return gc, nil
}

// IsCleartext reports whether the plaintext telnet listener is enabled.
func (gc *GameConf) IsCleartext() bool {
	return gc.Cleartext == nil || *gc.Cleartext
}

// Validate rejects settings the server cannot run with.
func (gc *GameConf) Validate() error {
	if !gc.IsCleartext() && !gc.TLS && gc.WebSocketPort == 0 {
		return fmt.Errorf("cleartext, TLS and websocket listeners are all disabled; nothing to listen on")
	}
	if gc.TLS && (gc.TLSCert == "" || gc.TLSKey == "") {
		return fmt.Errorf("tls is enabled but tls_cert and/or tls_key are not set")
	}
	if gc.InputQueueCap < 1 {
		return fmt.Errorf("input_queue_cap must be at least 1, got %d", gc.InputQueueCap)
	}
	if gc.ProcessTickMS < 1 {
		return fmt.Errorf("process_tick_ms must be positive, got %d", gc.ProcessTickMS)
	}
	if gc.WorldTickMin < 1 || gc.WorldTickMax < gc.WorldTickMin {
		return fmt.Errorf("world tick range %d..%d is invalid", gc.WorldTickMin, gc.WorldTickMax)
	}
	if gc.AcceptRate < 0 {
		return fmt.Errorf("accept_rate must not be negative")
	}
	return nil
}

// ProcessTick returns the input processing period.
func (gc *GameConf) ProcessTick() time.Duration {
	return time.Duration(gc.ProcessTickMS) * time.Millisecond
}

// WriteDeadline returns the per-write timeout, or zero for none.
func (gc *GameConf) WriteDeadline() time.Duration {
	if gc.WriteTimeout <= 0 {
		return 0
	}
	return time.Duration(gc.WriteTimeout) * time.Second
}

// TLSListenPort returns the TLS port, defaulting to the telnet port + 1.
func (gc *GameConf) TLSListenPort() int {
	if gc.TLSPort != 0 {
		return gc.TLSPort
	}
	return gc.Port + 1
}
