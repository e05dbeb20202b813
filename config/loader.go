package config

import (
	"os"
	"path/filepath"

	log "github.com/geoknoesis/cimshacl/internal/logging"
)

// ProjectConfigFile is the name of the project-level config file
const ProjectConfigFile = "cimshacl.yaml"

// Loader handles configuration loading with layered precedence
type Loader struct {
	// Dir is where the project config search starts (default: working directory)
	Dir string
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. Explicit file, when path is non-empty (must exist)
// 3. Otherwise cimshacl.yaml in the start directory or one of its parents
//
// Command-line flags are applied by the caller afterwards; Validate should run
// once they are.
func (l *Loader) Load(path string) (*Config, error) {
	if path != "" {
		config, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		log.Debug().Str("path", path).Msg("loaded config")
		return config, nil
	}

	projectConfigPath := l.findProjectConfig()
	if projectConfigPath == "" {
		log.Debug().Msg("no project config found, using defaults")
		return DefaultConfig(), nil
	}
	config, err := LoadFromFile(projectConfigPath)
	if err != nil {
		return nil, err
	}
	log.Debug().Str("path", projectConfigPath).Msg("loaded project config")
	return config, nil
}

// findProjectConfig searches for cimshacl.yaml in the start and parent directories
func (l *Loader) findProjectConfig() string {
	dir := l.Dir
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return ""
		}
		dir = cwd
	}

	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}
