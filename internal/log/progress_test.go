package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressIndicatorBasicFunctionality(t *testing.T) {
	config := QuietProgressConfig()
	progress := NewProgressIndicator("test progress", 10, config)
	assert.NotNil(t, progress)

	progress.Increment()
	progress.Update(5)
	progress.Finish()
}

func TestSpinnerStylesCoverAdaptedSet(t *testing.T) {
	styles := []SpinnerStyle{SpinnerDots, SpinnerLine, SpinnerPipeline}
	for _, style := range styles {
		s := NewSpinner(style)
		assert.NotEmpty(t, s.chars)
	}
}

func TestStepLoggerTracksNamedSteps(t *testing.T) {
	steps := []string{"load config", "wire venue", "wire engine"}
	sl := NewStepLogger("startup", steps, QuietProgressConfig())

	sl.StartStep("load config")
	sl.CompleteStep()
	sl.StartStep("wire venue")
	sl.CompleteStep()

	assert.Equal(t, 1, sl.currentStep)
}

func TestStepLoggerIgnoresUnknownStep(t *testing.T) {
	sl := NewStepLogger("startup", []string{"load config"}, QuietProgressConfig())
	sl.StartStep("not a real step")
	assert.Equal(t, -1, sl.currentStep)
}
