package config

import "github.com/spf13/pflag"

// StatusConfig holds configuration for the status command.
type StatusConfig struct {
	Store    StoreConfig
	JSON     bool
	LogLevel string
}

// LoadStatus merges config file, environment variables, and flags into StatusConfig.
func LoadStatus(cfgFile string, flags *pflag.FlagSet) (StatusConfig, error) {
	v, err := newViper(cfgFile, flags, storeDefaults(map[string]interface{}{}))
	if err != nil {
		return StatusConfig{}, err
	}
	cfg := StatusConfig{
		Store:    readStore(v),
		JSON:     v.GetBool("json"),
		LogLevel: v.GetString("log-level"),
	}
	if err := cfg.Store.Validate(); err != nil {
		return StatusConfig{}, err
	}
	return cfg, nil
}
