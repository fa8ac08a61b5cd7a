package config

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Operator is one OPER account
type Operator struct {
	Name     string   `yaml:"name" toml:"name" json:"name"`
	Password string   `yaml:"password" toml:"password" json:"password"` // bcrypt hash or plain text
	Hosts    []string `yaml:"hosts" toml:"hosts" json:"hosts"`          // user@host globs
	VHost    string   `yaml:"vhost" toml:"vhost" json:"vhost"`
	Type     string   `yaml:"type" toml:"type" json:"type"` // "global" or "local"
}

// IsGlobal reports whether the account grants global operator status
func (o Operator) IsGlobal() bool {
	return strings.EqualFold(o.Type, "global")
}

// Config represents the server configuration
type Config struct {
	// Server settings
	Server struct {
		Name     string `yaml:"name" toml:"name" json:"name" env:"FLEX_SERVER_NAME"`
		Network  string `yaml:"network" toml:"network" json:"network" env:"FLEX_NETWORK"`
		Host     string `yaml:"host" toml:"host" json:"host" env:"FLEX_HOST"`
		Port     int    `yaml:"port" toml:"port" json:"port" env:"FLEX_PORT"`
		Password string `yaml:"password" toml:"password" json:"password" env:"FLEX_PASSWORD"`
	} `yaml:"server" toml:"server" json:"server"`

	// Protocol limits
	Limits struct {
		MaxNicknameSize   int      `yaml:"max_nickname_size" toml:"max_nickname_size" json:"max_nickname_size" env:"FLEX_MAX_NICKNAME_SIZE"`
		MaxChannelSize    int      `yaml:"max_channel_size" toml:"max_channel_size" json:"max_channel_size" env:"FLEX_MAX_CHANNEL_SIZE"`
		MaxSilences       int      `yaml:"max_silences" toml:"max_silences" json:"max_silences" env:"FLEX_MAX_SILENCES"`
		ReservedNicknames []string `yaml:"reserved_nicknames" toml:"reserved_nicknames" json:"reserved_nicknames" env:"FLEX_RESERVED_NICKNAMES"`
	} `yaml:"limits" toml:"limits" json:"limits"`

	// Operator definitions
	Operators []Operator `yaml:"operators" toml:"operators" json:"operators"`

	// Storage for topic and message history; empty disables it
	Storage struct {
		DSN string `yaml:"dsn" toml:"dsn" json:"dsn" env:"FLEX_STORAGE_DSN"`
		// seconds to keep retrying the first connection
		ConnectTimeout int `yaml:"connect_timeout" toml:"connect_timeout" json:"connect_timeout" env:"FLEX_STORAGE_CONNECT_TIMEOUT"`
	} `yaml:"storage" toml:"storage" json:"storage"`

	Log struct {
		Level  string `yaml:"level" toml:"level" json:"level" env:"FLEX_LOG_LEVEL"`
		Format string `yaml:"format" toml:"format" json:"format" env:"FLEX_LOG_FORMAT"`
	} `yaml:"log" toml:"log" json:"log"`

	Metrics struct {
		Enabled bool `yaml:"enabled" toml:"enabled" json:"enabled" env:"FLEX_METRICS_ENABLED"`
	} `yaml:"metrics" toml:"metrics" json:"metrics"`

	// HTTPS redirect for visitors arriving through a CDN edge
	CDN struct {
		Redirect     bool `yaml:"redirect" toml:"redirect" json:"redirect" env:"FLEX_CDN_REDIRECT"`
		RedirectPort int  `yaml:"redirect_port" toml:"redirect_port" json:"redirect_port" env:"FLEX_CDN_REDIRECT_PORT"`
	} `yaml:"cdn" toml:"cdn" json:"cdn"`

	// Configuration source for reloading
	Source string `yaml:"-" toml:"-" json:"-"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.Server.Name = "flex.local"
	cfg.Server.Network = "Flex"
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	cfg.Limits.MaxNicknameSize = 30
	cfg.Limits.MaxChannelSize = 30
	cfg.Limits.MaxSilences = 15
	cfg.Limits.ReservedNicknames = []string{"flex"}
	cfg.Log.Level = "info"
	cfg.Log.Format = "json"
	cfg.Storage.ConnectTimeout = 30
	cfg.Metrics.Enabled = true
	cfg.CDN.Redirect = true
	cfg.CDN.RedirectPort = 443
	return cfg
}

// Load loads configuration from a file or URL. An empty source yields the
// defaults with environment overrides.
func Load(source string) (*Config, error) {
	cfg := Default()

	if source != "" {
		if err := cfg.loadFromSource(source); err != nil {
			return nil, err
		}
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	return cfg, nil
}

// Reload reloads the configuration from the original source or a new source
func (c *Config) Reload(newSource string) error {
	if newSource == "" {
		newSource = c.Source
	}

	newCfg, err := Load(newSource)
	if err != nil {
		return err
	}

	*c = *newCfg
	return nil
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

// loadFromSource loads configuration from a file or URL
func (c *Config) loadFromSource(source string) error {
	var data []byte
	var err error

	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		resp, err := httpClient.Get(source)
		if err != nil {
			return fmt.Errorf("failed to load config from URL: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("failed to load config from URL, status: %s", resp.Status)
		}

		data, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read config from URL: %w", err)
		}
	} else {
		data, err = os.ReadFile(source)
		if err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Determine the format based on the extension, ignoring any query string
	path := strings.SplitN(source, "?", 2)[0]
	switch {
	case strings.HasSuffix(path, ".toml"):
		err = toml.Unmarshal(data, c)
	case strings.HasSuffix(path, ".json"):
		err = json.Unmarshal(data, c)
	default:
		// Default to YAML
		err = yaml.Unmarshal(data, c)
	}

	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	c.Source = source
	return nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) {
	applyEnvOverridesRecursive(reflect.ValueOf(cfg).Elem())
}

func applyEnvOverridesRecursive(v reflect.Value) {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldValue := v.Field(i)

		// Skip unexported fields
		if field.PkgPath != "" {
			continue
		}

		if envTag := field.Tag.Get("env"); envTag != "" {
			if envValue, exists := os.LookupEnv(envTag); exists {
				setFieldFromEnv(fieldValue, envValue)
			}
		} else if field.Type.Kind() == reflect.Struct {
			applyEnvOverridesRecursive(fieldValue)
		}
	}
}

// setFieldFromEnv sets a field's value from an environment variable
func setFieldFromEnv(field reflect.Value, envValue string) {
	switch field.Kind() {
	case reflect.String:
		field.SetString(envValue)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v, err := parseInt(envValue); err == nil {
			field.SetInt(v)
		}
	case reflect.Bool:
		field.SetBool(parseBool(envValue))
	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			values := strings.Split(envValue, ",")
			slice := reflect.MakeSlice(field.Type(), len(values), len(values))
			for i, v := range values {
				slice.Index(i).SetString(strings.TrimSpace(v))
			}
			field.Set(slice)
		}
	}
}

func parseInt(s string) (int64, error) {
	var v int64
	_, err := fmt.Sscanf(s, "%d", &v)
	return v, err
}

func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "y"
}

// GetListenAddress returns the formatted listen address for the server
func (c *Config) GetListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Operator looks up an operator account by name, ignoring case
func (c *Config) Operator(name string) (Operator, bool) {
	for _, op := range c.Operators {
		if strings.EqualFold(op.Name, name) {
			return op, true
		}
	}
	return Operator{}, false
}
