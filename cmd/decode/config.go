package main

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/kittclouds/colibridec/pkg/decoder"
)

// fileConfig overrides decoder.DefaultConfig()'s fields when a -c config
// file is given. Pointer fields distinguish "not set in the file" from a
// genuine zero, so command-line flags can still win over an unset field
// without a config file forcing every field to appear.
type fileConfig struct {
	StackSize      *int      `yaml:"stack_size"`
	PruneThreshold *float64  `yaml:"prune_threshold"`
	TWeights       []float64 `yaml:"translation_weights"`
	DWeight        *float64  `yaml:"distortion_weight"`
	LWeight        *float64  `yaml:"lm_weight"`
	DLimit         *int      `yaml:"distortion_limit"`
	MaxN           *int      `yaml:"max_fragment_length"`
	AllowSkipGrams *bool     `yaml:"allow_skip_grams"`
}

func loadFileConfig(r io.Reader, cfg *decoder.Config) error {
	var fc fileConfig
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&fc); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if fc.StackSize != nil {
		cfg.StackSize = *fc.StackSize
	}
	if fc.PruneThreshold != nil {
		cfg.PruneThreshold = *fc.PruneThreshold
	}
	if len(fc.TWeights) > 0 {
		cfg.TWeights = fc.TWeights
	}
	if fc.DWeight != nil {
		cfg.DWeight = *fc.DWeight
	}
	if fc.LWeight != nil {
		cfg.LWeight = *fc.LWeight
	}
	if fc.DLimit != nil {
		cfg.DLimit = *fc.DLimit
	}
	if fc.MaxN != nil {
		cfg.MaxN = *fc.MaxN
	}
	if fc.AllowSkipGrams != nil {
		cfg.AllowSkipGrams = *fc.AllowSkipGrams
	}
	return nil
}
