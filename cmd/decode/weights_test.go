package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeightsFlagAccumulatesAcrossOccurrences(t *testing.T) {
	var w weightsFlag
	require.NoError(t, w.Set("0.5"))
	require.NoError(t, w.Set("1.25"))

	assert.Equal(t, weightsFlag{0.5, 1.25}, w)
}

func TestWeightsFlagRejectsNonNumeric(t *testing.T) {
	var w weightsFlag
	assert.Error(t, w.Set("not-a-number"))
}
