package config

// Default configuration values.
const (
	DefaultEnv = "dev"
)

// defaultPorts are the server ports assumed when none is configured.
var defaultPorts = map[string]int{
	"postgres": 5432,
	"mysql":    3306,
	"mssql":    1433,
}

// ApplyDefaults fills in type-specific defaults.
func (d *DatabaseConfig) ApplyDefaults() {
	if d == nil {
		return
	}
	if d.Port == 0 && d.Host != "" {
		d.Port = defaultPorts[d.Type]
	}
}

// MergeDatabaseConfig merges two database configs, with override taking precedence.
func MergeDatabaseConfig(base, override *DatabaseConfig) *DatabaseConfig {
	if base == nil {
		return override.Clone()
	}
	if override == nil {
		return base.Clone()
	}

	merged := base.Clone()
	if override.Type != "" {
		merged.Type = override.Type
	}
	if override.Database != "" {
		merged.Database = override.Database
	}
	if override.Host != "" {
		merged.Host = override.Host
	}
	if override.Port != 0 {
		merged.Port = override.Port
	}
	if override.User != "" {
		merged.User = override.User
	}
	if override.Password != "" {
		merged.Password = override.Password
	}
	if override.PoolSize != 0 {
		merged.PoolSize = override.PoolSize
	}
	if len(override.Params) > 0 && merged.Params == nil {
		merged.Params = make(map[string]any, len(override.Params))
	}
	for k, v := range override.Params {
		merged.Params[k] = v
	}
	return merged
}
