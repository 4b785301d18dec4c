// Package config handles tool configuration loading and management.
package config

// Config holds all converter settings.
type Config struct {
	Convert ConvertConfig `yaml:"convert"`
	Logging LoggingConfig `yaml:"logging"`
}

// ConvertConfig holds batch conversion settings.
type ConvertConfig struct {
	SourceDir    string `yaml:"source_dir"`    // Directory scanned for .obj files
	OutputDir    string `yaml:"output_dir"`    // Destination for .mdl files
	CollisionDir string `yaml:"collision_dir"` // Destination for .csn files
	Collisions   bool   `yaml:"collisions"`    // Generate collision maps
	Workers      int    `yaml:"workers"`       // Parallel file conversions (0 = NumCPU)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Convert: ConvertConfig{
			SourceDir:  ".",
			OutputDir:  ".",
			Collisions: false,
			Workers:    0,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
