package config

import (
	"errors"
	"io/fs"
	"log"
	"path/filepath"

	"github.com/spf13/afero"
)

// Initialize creates the configuration directory with a default config.yaml
// if one doesn't exist, then loads it.
func Initialize(dir string, logger *log.Logger) (*Configuration, error) {
	return initializeFs(afero.NewOsFs(), dir, logger)
}

func initializeFs(base afero.Fs, dir string, logger *log.Logger) (*Configuration, error) {
	if err := base.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	configPath := filepath.Join(dir, ConfigurationName)
	_, err := base.Stat(configPath)
	switch {
	case err == nil:
		logger.Printf("%s already exists, keeping it", configPath)
	case errors.Is(err, fs.ErrNotExist):
		logger.Printf("writing default configuration to %s", configPath)
		if err := afero.WriteFile(base, configPath, defaultConfigData, 0600); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	return loadFs(base, dir)
}
