package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kittclouds/colibridec/pkg/decoder"
)

func TestLoadFileConfigOverridesOnlySetFields(t *testing.T) {
	cfg := decoder.DefaultConfig()
	err := loadFileConfig(strings.NewReader("stack_size: 50\ndistortion_limit: 4\n"), &cfg)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.StackSize)
	assert.Equal(t, 4, cfg.DLimit)
	assert.Equal(t, decoder.DefaultConfig().LWeight, cfg.LWeight, "fields absent from the file keep their default")
}

func TestLoadFileConfigOverridesWeights(t *testing.T) {
	cfg := decoder.DefaultConfig()
	err := loadFileConfig(strings.NewReader("translation_weights: [0.3, 0.7]\n"), &cfg)
	require.NoError(t, err)

	assert.Equal(t, []float64{0.3, 0.7}, cfg.TWeights)
}

func TestLoadFileConfigRejectsMalformedYAML(t *testing.T) {
	cfg := decoder.DefaultConfig()
	err := loadFileConfig(strings.NewReader("stack_size: [this is not an int\n"), &cfg)
	assert.Error(t, err)
}
