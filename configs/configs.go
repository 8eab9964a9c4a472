package configs

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

type Duration struct {
	time.Duration
}

// UnmarshalJSON accepts "1.5s" style strings or integer nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("invalid duration %s", string(b))
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

type NodeConfig struct {
	NodeName       string
	NodeVersion    uint32
	ListenAddr     string
	Contact        string // name@host:port of the node to probe, empty for none
	DialTimeout    Duration
	MaxConnections int
	PoolSize       int
	Codec          string // "binary" or "schema"
	ProbeInterval  Duration
	LogLevel       string
	MetricsAddr    string // empty disables the /metrics endpoint
}

func DefaultConfig() NodeConfig {
	return NodeConfig{
		NodeName:       "node0",
		NodeVersion:    1,
		ListenAddr:     "localhost:1234",
		DialTimeout:    Duration{3 * time.Second},
		MaxConnections: 64,
		PoolSize:       128,
		Codec:          "binary",
		ProbeInterval:  Duration{1 * time.Second},
		LogLevel:       "info",
		MetricsAddr:    "",
	}
}

// ReadConfigFromFile overlays the JSON file at filePath on DefaultConfig.
func ReadConfigFromFile(filePath string) (NodeConfig, error) {
	config := DefaultConfig()
	data, err := os.ReadFile(filePath)
	if err != nil {
		return config, err
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parsing %s: %w", filePath, err)
	}
	return config, config.Validate()
}

func (c NodeConfig) Validate() error {
	if c.NodeName == "" {
		return fmt.Errorf("NodeName must be set")
	}
	switch c.Codec {
	case "binary", "schema":
	default:
		return fmt.Errorf("unknown codec %q", c.Codec)
	}
	if c.ProbeInterval.Duration < 0 {
		return fmt.Errorf("ProbeInterval must not be negative")
	}
	if c.MaxConnections < 0 || c.PoolSize < 0 {
		return fmt.Errorf("MaxConnections and PoolSize must not be negative")
	}
	return nil
}
