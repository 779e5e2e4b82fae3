package cli

import (
	"fmt"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/bufilter/internal/model"
)

// loadConfig merges defaults, config file, environment and bound flags
// into a Config
func loadConfig(v *viper.Viper) (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := registerDefaults(v, cfg); err != nil {
		return nil, err
	}

	// Rebuilt from viper, whose keys are lowercase; Header matches either case
	cfg.Output.Headers = nil

	if err := v.Unmarshal(cfg); err != nil {
		return nil, model.NewConfigurationError("", "cannot decode configuration", err)
	}

	// -v raises the default level; an explicit level wins
	if v.GetBool("verbose") && cfg.Log.Level == "info" {
		cfg.Log.Level = "debug"
	}
	return cfg, nil
}

// registerDefaults makes every config key known to viper so environment
// variables override keys that appear in no config file
func registerDefaults(v *viper.Viper, cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	for key, val := range flatten("", tree) {
		v.SetDefault(key, val)
	}
	return nil
}

func flatten(prefix string, tree map[string]any) map[string]any {
	out := make(map[string]any)
	for k, val := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		// Header relabeling stays a single map value
		if sub, ok := val.(map[string]any); ok && key != "output.headers" {
			for sk, sv := range flatten(key, sub) {
				out[sk] = sv
			}
			continue
		}
		out[key] = val
	}
	return out
}
