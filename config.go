package stormdag

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config names the attributes a solve reads and the rules it applies to links.
// It is fixed for the duration of a solve.
type Config struct {
	VolumeAttribute    string   `yaml:"volume_attribute_name" json:"volume_attribute_name"`
	LoadAttributes     []string `yaml:"load_attribute_names" json:"load_attribute_names"`
	NameAttribute      string   `yaml:"name_attribute" json:"name_attribute"`
	TreatmentEnabled   bool     `yaml:"treatment_enabled" json:"treatment_enabled"`
	TreatedFlags       []string `yaml:"treated_flags" json:"treated_flags"`
	VolumeReducedFlags []string `yaml:"volume_reduced_flags" json:"volume_reduced_flags"`
	OutfallFlags       []string `yaml:"outfall_flags" json:"outfall_flags"`

	// FlagSplitChar is used by network builders to split identifiers; the solver ignores it.
	FlagSplitChar string `yaml:"flag_split_char" json:"flag_split_char"`

	// RemovalEfficiency is the fraction of concentration removed on treated links.
	RemovalEfficiency float64 `yaml:"removal_efficiency" json:"removal_efficiency"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		VolumeAttribute:    "volume",
		LoadAttributes:     []string{"load"},
		NameAttribute:      "id",
		TreatmentEnabled:   true,
		TreatedFlags:       []string{"TR"},
		VolumeReducedFlags: []string{"INF", "HU"},
		OutfallFlags:       []string{"OF"},
		FlagSplitChar:      "-",
		RemovalEfficiency:  0.7,
	}
}

// Clone returns a copy that shares no slices with c.
func (c Config) Clone() Config {
	c.LoadAttributes = append([]string(nil), c.LoadAttributes...)
	c.TreatedFlags = append([]string(nil), c.TreatedFlags...)
	c.VolumeReducedFlags = append([]string(nil), c.VolumeReducedFlags...)
	c.OutfallFlags = append([]string(nil), c.OutfallFlags...)
	return c
}

// LoadConfig reads a YAML config file. Keys not present keep their defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return Config{}, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// ParseConfig decodes YAML on top of DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the config is usable by a solve.
func (c Config) Validate() error {
	if c.VolumeAttribute == "" {
		return fmt.Errorf("%w: volume_attribute_name is empty", ErrInvalidConfig)
	}
	if c.NameAttribute == "" {
		return fmt.Errorf("%w: name_attribute is empty", ErrInvalidConfig)
	}
	if c.RemovalEfficiency < 0 || c.RemovalEfficiency > 1 {
		return fmt.Errorf("%w: removal_efficiency %v outside [0, 1]", ErrInvalidConfig, c.RemovalEfficiency)
	}
	seen := make(map[string]bool, len(c.LoadAttributes))
	for _, l := range c.LoadAttributes {
		switch {
		case l == "":
			return fmt.Errorf("%w: empty load attribute name", ErrInvalidConfig)
		case l == c.VolumeAttribute:
			return fmt.Errorf("%w: load attribute %q shadows the volume attribute", ErrInvalidConfig, l)
		case seen[l]:
			return fmt.Errorf("%w: duplicate load attribute %q", ErrInvalidConfig, l)
		}
		seen[l] = true
	}
	for name, flags := range map[string][]string{
		"treated_flags":        c.TreatedFlags,
		"volume_reduced_flags": c.VolumeReducedFlags,
		"outfall_flags":        c.OutfallFlags,
	} {
		for _, f := range flags {
			if f == "" {
				return fmt.Errorf("%w: %s contains an empty flag", ErrInvalidConfig, name)
			}
		}
	}
	return nil
}

// checkAttr is the attribute holding a node's expected volume.
func checkAttr(volume string) string {
	return "_ck_" + volume
}
