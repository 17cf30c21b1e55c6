package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecolorRequestWithDefaults(t *testing.T) {
	got := RecolorRequest{TargetColor: "#00ff00", Strength: 0}.WithDefaults()

	assert.Equal(t, 0.0, got.Strength, "zero strength is a valid request")
	assert.Equal(t, DefaultHueTolerance, got.HueTolerance)
	assert.Equal(t, DefaultShadowDilation, got.ShadowDilation)
	assert.Equal(t, DefaultShadowValueThreshold, got.ShadowValueThreshold)

	kept := RecolorRequest{TargetColor: "red", HueTolerance: 10, ShadowDilation: 4, ShadowValueThreshold: 0.3}.WithDefaults()
	assert.Equal(t, 10.0, kept.HueTolerance)
	assert.Equal(t, 4, kept.ShadowDilation)
	assert.Equal(t, 0.3, kept.ShadowValueThreshold)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(RecolorRequest{TargetColor: "#ff0000", Strength: 1}.WithDefaults()))
	assert.NoError(t, Validate(RefineParams{MorphKernel: 5, FeatherPx: 2, Threshold: 0.5}))

	assert.ErrorIs(t, Validate(RecolorRequest{TargetColor: "#ff0000", Strength: -0.1}), ErrInvalidRequest)
	assert.ErrorIs(t, Validate(RecolorRequest{Strength: 0.5}), ErrInvalidRequest)
	assert.ErrorIs(t, Validate(RefineParams{MorphKernel: 10, Threshold: 0.5}), ErrInvalidRequest)
	assert.ErrorIs(t, Validate(RefineParams{MorphKernel: 3, Threshold: 1.5}), ErrInvalidRequest)
}
