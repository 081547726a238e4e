package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultPassesValidate(t *testing.T) {
	assert.NoError(t, Validate(Default()))
}

func TestValidateRejectsEmptySymbols(t *testing.T) {
	s := Default()
	s.Symbols = nil
	err := Validate(s)
	assert.ErrorContains(t, err, "symbols")
}

func TestValidateRejectsMissingVenueName(t *testing.T) {
	s := Default()
	s.Venue.Name = ""
	err := Validate(s)
	assert.ErrorContains(t, err, "venue.name")
}

func TestValidateRejectsThetaOrdering(t *testing.T) {
	s := Default()
	s.Signals.Theta2 = s.Signals.Theta1
	err := Validate(s)
	assert.ErrorContains(t, err, "theta2")
}
