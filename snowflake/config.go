package snowflake

import (
	"os"

	"github.com/mitchellh/mapstructure"
	"github.com/snowflakedb/gosnowflake"
	"gopkg.in/yaml.v3"

	"github.com/datawarp/bulkload/database"
)

// ConnectionConfig holds Snowflake connection parameters. Database, Schema,
// Warehouse and Role are optional; when Warehouse or Database are set they
// are also activated with USE statements right after connecting.
type ConnectionConfig struct {
	Account   string `yaml:"account" mapstructure:"account"`
	User      string `yaml:"user" mapstructure:"user"`
	Password  string `yaml:"password" mapstructure:"password"`
	Database  string `yaml:"database,omitempty" mapstructure:"database,omitempty"`
	Schema    string `yaml:"schema,omitempty" mapstructure:"schema,omitempty"`
	Warehouse string `yaml:"warehouse,omitempty" mapstructure:"warehouse,omitempty"`
	Role      string `yaml:"role,omitempty" mapstructure:"role,omitempty"`
	Region    string `yaml:"region,omitempty" mapstructure:"region,omitempty"`
}

func (c ConnectionConfig) Validate() error {
	var requiredProperties = [][]string{
		{"account", c.Account},
		{"user", c.User},
		{"password", c.Password},
	}
	for _, req := range requiredProperties {
		if req[1] == "" {
			return &database.CredentialsError{Msg: "missing '" + req[0] + "'"}
		}
	}
	return nil
}

// DSN renders the config for the gosnowflake driver.
func (c ConnectionConfig) DSN() (string, error) {
	dsn, err := gosnowflake.DSN(&gosnowflake.Config{
		Account:   c.Account,
		User:      c.User,
		Password:  c.Password,
		Database:  c.Database,
		Schema:    c.Schema,
		Warehouse: c.Warehouse,
		Role:      c.Role,
		Region:    c.Region,
	})
	if err != nil {
		return "", &database.CredentialsError{Msg: "invalid Snowflake connection parameters", Err: err}
	}
	return dsn, nil
}

// LoadConnectionConfig reads connection parameters from a YAML file.
func LoadConnectionConfig(path string) (ConnectionConfig, error) {
	var cfg ConnectionConfig

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, &database.CredentialsError{Msg: "error reading yaml", Err: err}
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, &database.CredentialsError{Msg: "error reading yaml", Err: err}
	}
	return cfg, cfg.Validate()
}

// ConnectionConfigFromMap decodes connection parameters from a loose
// key/value map.
func ConnectionConfigFromMap(params map[string]any) (ConnectionConfig, error) {
	var cfg ConnectionConfig
	if err := mapstructure.Decode(params, &cfg); err != nil {
		return cfg, &database.CredentialsError{Msg: "invalid connection parameters", Err: err}
	}
	return cfg, cfg.Validate()
}
