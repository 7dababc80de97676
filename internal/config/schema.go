package config

// Config is the root configuration structure
type Config struct {
	Version     int               `yaml:"version"`
	LogLevel    string            `yaml:"log_level"`
	Database    DatabaseConfig    `yaml:"database"`
	Definitions DefinitionsConfig `yaml:"definitions"`
	Fields      FieldsConfig      `yaml:"fields"`
	Binding     BindingConfig     `yaml:"binding"`
}

// DatabaseConfig configures the model database
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// DefinitionsConfig locates the shared definition file. An empty Path
// means no file is configured and numbering runs fail.
type DefinitionsConfig struct {
	Path  string `yaml:"path"`
	Group string `yaml:"group"` // group new definitions are created in
}

// FieldsConfig names the fields a numbering run writes
type FieldsConfig struct {
	GridSquare string `yaml:"grid_square"`
	Number     string `yaml:"number"`
}

// BindingConfig configures how fields are bound to categories
type BindingConfig struct {
	ParameterGroup string `yaml:"parameter_group"` // PG_IDENTITY_DATA, PG_DATA, PG_TEXT
}
