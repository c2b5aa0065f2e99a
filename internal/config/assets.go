package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Assets holds hosted asset overrides read from a YAML file:
//
//	overlays:
//	  dust: https://cdn.example.com/dust.mp4
//	  fire: https://cdn.example.com/fire.mp4
type Assets struct {
	Overlays map[string]string `yaml:"overlays"`
}

var knownOverlays = map[string]struct{}{
	"dust":               {},
	"snow":               {},
	"screenDisplacement": {},
	"fire":               {},
}

// LoadAssets reads and validates an assets file.
func LoadAssets(path string) (*Assets, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read assets file: %w", err)
	}

	var assets Assets
	if err := yaml.Unmarshal(contents, &assets); err != nil {
		return nil, fmt.Errorf("unmarshal assets file: %w", err)
	}
	for kind, src := range assets.Overlays {
		if _, ok := knownOverlays[kind]; !ok {
			return nil, fmt.Errorf("assets file: unknown overlay %q", kind)
		}
		if src == "" {
			return nil, fmt.Errorf("assets file: overlay %q has an empty url", kind)
		}
	}
	return &assets, nil
}
