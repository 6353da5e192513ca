package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseHorizonKnownLabels(t *testing.T) {
	assert.Equal(t, Horizon1h, ParseHorizon("1h"))
	assert.Equal(t, Horizon4h, ParseHorizon("4h"))
	assert.Equal(t, Horizon24h, ParseHorizon("24h"))
	assert.Equal(t, Horizon24h, ParseHorizon("1d"))
	assert.Equal(t, Horizon7d, ParseHorizon("7d"))
}

func TestParseHorizonUnknownFoldsToDay(t *testing.T) {
	assert.Equal(t, Horizon24h, ParseHorizon("3w"))
	assert.Equal(t, Horizon24h, ParseHorizon(""))
}

func TestParseHorizonsDedupesPreservingOrder(t *testing.T) {
	got := ParseHorizons([]string{"7d", "1h", "1d", "24h", "1h"})
	assert.Equal(t, []Horizon{Horizon7d, Horizon1h, Horizon24h}, got)
}

func TestParseHorizonsEmptyYieldsDefaults(t *testing.T) {
	assert.Equal(t, DefaultHorizons(), ParseHorizons(nil))
	assert.Equal(t, DefaultHorizons(), ParseHorizons([]string{}))
}

func TestHorizonLabelRoundTrip(t *testing.T) {
	for _, h := range DefaultHorizons() {
		assert.Equal(t, h, ParseHorizon(h.Label()))
	}
	assert.Equal(t, "6h", Horizon(6).Label())
}
