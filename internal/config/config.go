// Package config loads the daemon configuration from YAML.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Zone setup modes: how percentage-actuated zones are exposed.
const (
	SetupActuator = "actuator" // plain power + aperture entities
	SetupClimate  = "climate"  // manual climate views, one bound sensor per zone
)

// Config is the full daemon configuration.
type Config struct {
	Gateway         GatewayConfig  `yaml:"gateway"`
	Zones           ZonesConfig    `yaml:"zones"`
	MQTT            MQTTConfig     `yaml:"mqtt"`
	Metrics         MetricsConfig  `yaml:"metrics"`
	Database        DatabaseConfig `yaml:"database"`
	Log             LogConfig      `yaml:"log"`
	ShutdownTimeout Duration       `yaml:"shutdown_timeout"`
}

// GatewayConfig holds the vendor gateway connection and schedules.
type GatewayConfig struct {
	Address        string   `yaml:"address"`
	Simulate       bool     `yaml:"simulate"`         // use the in-memory gateway (development)
	PollInterval   Duration `yaml:"poll_interval"`    // coordinator tick (default 10s)
	AdjustInterval Duration `yaml:"adjust_interval"`  // controller tick (default 1m)
	CallTimeout    Duration `yaml:"call_timeout"`     // per driver call (default 10s)
	RateLimitRPS   float64  `yaml:"rate_limit_rps"`   // gateway call budget (default 5)
}

// ZonesConfig selects how percentage zones are exposed and binds their
// external sensors (zone id -> sensor reference, an MQTT topic).
type ZonesConfig struct {
	Setup   string         `yaml:"setup"`
	Sensors map[int]string `yaml:"sensors"`
}

// MQTTConfig contains broker settings for the bridge and sensor source.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	Port        int    `yaml:"port"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// MetricsConfig contains the metrics/health listener settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// DatabaseConfig contains database settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string `yaml:"level"`
	UseJSON bool   `yaml:"json"`
	Colors  bool   `yaml:"colors"`
}

// Duration is a wrapper around time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Gateway.PollInterval == 0 {
		c.Gateway.PollInterval = Duration(10 * time.Second)
	}
	if c.Gateway.AdjustInterval == 0 {
		c.Gateway.AdjustInterval = Duration(time.Minute)
	}
	if c.Gateway.CallTimeout == 0 {
		c.Gateway.CallTimeout = Duration(10 * time.Second)
	}
	if c.Gateway.RateLimitRPS == 0 {
		c.Gateway.RateLimitRPS = 5.0
	}

	if c.Zones.Setup == "" {
		c.Zones.Setup = SetupActuator
	}

	if c.MQTT.Port == 0 {
		c.MQTT.Port = 1883
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "airtouchd"
	}

	if c.Metrics.Port == 0 {
		c.Metrics.Port = 9090
	}
	if c.Metrics.Host == "" {
		c.Metrics.Host = "0.0.0.0"
	}

	if c.Database.Path == "" {
		c.Database.Path = "./airtouchd.sqlite"
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}

	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = Duration(10 * time.Second)
	}
}

func (c *Config) validate() error {
	if c.Gateway.Address == "" && !c.Gateway.Simulate {
		return fmt.Errorf("gateway.address is required")
	}
	switch c.Zones.Setup {
	case SetupActuator, SetupClimate:
	default:
		return fmt.Errorf("zones.setup must be %q or %q, got %q", SetupActuator, SetupClimate, c.Zones.Setup)
	}
	if c.Zones.Setup == SetupClimate {
		if !c.MQTT.Enabled {
			return fmt.Errorf("zones.setup=climate requires mqtt (sensor readings arrive over MQTT)")
		}
		if len(c.Zones.Sensors) == 0 {
			return fmt.Errorf("zones.setup=climate requires at least one zone sensor binding")
		}
	}
	return nil
}

// expandEnvVars replaces ${VAR} and ${VAR:default} occurrences.
func expandEnvVars(input string) string {
	re := regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

	return re.ReplaceAllStringFunc(input, func(match string) string {
		parts := re.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		varName := parts[1]
		defaultVal := ""
		if len(parts) >= 3 {
			defaultVal = parts[2]
		}

		if val := os.Getenv(varName); val != "" {
			return val
		}
		return defaultVal
	})
}
