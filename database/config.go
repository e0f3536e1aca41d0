package database

import (
	"fmt"
	"net/url"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Config holds the connection parameters for a warehouse database. It can be
// populated directly, from a YAML file (LoadConfig), or from a loose
// parameter map (ConfigFromMap).
type Config struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Database string `yaml:"dbname" mapstructure:"dbname"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	// SSLMode overrides the connector's default TLS policy when set.
	SSLMode string `yaml:"sslmode,omitempty" mapstructure:"sslmode,omitempty"`
}

// CredentialsError is returned when connection parameters are missing,
// malformed, or supplied ambiguously.
type CredentialsError struct {
	Msg string
	Err error
}

func (e *CredentialsError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *CredentialsError) Unwrap() error { return e.Err }

func (c Config) Validate() error {
	var requiredProperties = [][]string{
		{"host", c.Host},
		{"dbname", c.Database},
		{"user", c.User},
		{"password", c.Password},
	}
	for _, req := range requiredProperties {
		if req[1] == "" {
			return &CredentialsError{Msg: fmt.Sprintf("missing '%s'", req[0])}
		}
	}
	if c.Port == 0 {
		return &CredentialsError{Msg: "missing 'port'"}
	}
	return nil
}

// URI renders the config as a postgres connection URL for the pgx driver.
// defaultSSLMode applies when the config does not set its own.
func (c Config) URI(defaultSSLMode string) string {
	uri := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.Host, c.Port),
		User:   url.UserPassword(c.User, c.Password),
		Path:   "/" + c.Database,
	}

	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = defaultSSLMode
	}
	if sslMode != "" {
		uri.RawQuery = "sslmode=" + sslMode
	}
	return uri.String()
}

// LoadConfig reads connection parameters from a YAML file, for example:
//
//	host: my.redshift.cluster.com
//	port: 5439
//	dbname: db
//	user: userid
//	password: password
func LoadConfig(path string) (Config, error) {
	var cfg Config

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, &CredentialsError{Msg: "error reading yaml", Err: err}
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, &CredentialsError{Msg: "error reading yaml", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ConfigFromMap decodes connection parameters from a loose key/value map.
func ConfigFromMap(params map[string]any) (Config, error) {
	var cfg Config
	if err := mapstructure.Decode(params, &cfg); err != nil {
		return cfg, &CredentialsError{Msg: "invalid connection parameters", Err: err}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ResolveConfig returns the connection config from either a YAML file or a
// parameter map. Providing both is an error rather than a precedence rule.
func ResolveConfig(configYAML string, params map[string]any) (Config, error) {
	if configYAML != "" && len(params) > 0 {
		return Config{}, &CredentialsError{Msg: "please provide connection parameters or a YAML configuration, not both"}
	}
	if configYAML != "" {
		return LoadConfig(configYAML)
	}
	return ConfigFromMap(params)
}
