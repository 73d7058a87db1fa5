package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroundingPenalizesHedging(t *testing.T) {
	gc := NewGroundingChecker()

	result := gc.Check("Typically, most companies stamp the invoice first.", "Stamp the invoice first.", 0.8)

	assert.NotEmpty(t, result.Warnings)
	assert.InDelta(t, 0.7, result.Confidence, 1e-9)
}

func TestGroundingAcceptsHedgingPresentInContext(t *testing.T) {
	gc := NewGroundingChecker()

	// "usually" comes from the excerpt itself, so repeating it is not a
	// sign of the model drawing on outside knowledge.
	result := gc.Check(
		"Invoices are usually stamped by the finance desk.",
		"Invoices are usually stamped by the finance desk before filing.",
		0.8)

	assert.Empty(t, result.Warnings)
	assert.InDelta(t, 0.8, result.Confidence, 1e-9)
	assert.True(t, result.Grounded)
}

func TestGroundingFlagsUnsourcedNumbers(t *testing.T) {
	gc := NewGroundingChecker()

	result := gc.Check("Submit form 88214 to finance.", "Submit the expense form to finance.", 0.8)

	assert.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "88214")
	assert.InDelta(t, 0.65, result.Confidence, 1e-9)
}

func TestGroundingAcceptsSourcedNumbers(t *testing.T) {
	gc := NewGroundingChecker()

	result := gc.Check("Submit form 88214 to finance.", "Submit form 88214 to the finance desk.", 0.8)

	assert.Empty(t, result.Warnings)
	assert.True(t, result.Grounded)
}

func TestGroundingRewardsCitation(t *testing.T) {
	gc := NewGroundingChecker()

	result := gc.Check("According to the SOP, stamp the invoice first.", "Stamp the invoice first.", 0.8)

	assert.Empty(t, result.Warnings)
	assert.InDelta(t, 0.85, result.Confidence, 1e-9)
	assert.True(t, result.Grounded)
}

func TestGroundingFailsOnMultipleWarningsOrLowConfidence(t *testing.T) {
	gc := NewGroundingChecker()

	// Hedging plus a fabricated number: two warnings.
	result := gc.Check("Typically you submit form 99999.", "Submit the form.", 0.9)
	assert.False(t, result.Grounded)

	// Single warning but the adjusted confidence sinks below 0.5.
	result = gc.Check("Usually it works like this.", "The procedure.", 0.55)
	assert.False(t, result.Grounded)
}

func TestGroundingConfidenceStaysInRange(t *testing.T) {
	gc := NewGroundingChecker()

	high := gc.Check("According to the SOP, do this.", "do this", 0.99)
	assert.LessOrEqual(t, high.Confidence, 1.0)

	low := gc.Check("Typically, in general, form 12345 is used.", "nothing", 0.05)
	assert.GreaterOrEqual(t, low.Confidence, 0.0)
}

func TestIsProperDecline(t *testing.T) {
	gc := NewGroundingChecker()

	assert.True(t, gc.IsProperDecline("The excerpts do not contain enough information to answer."))
	assert.True(t, gc.IsProperDecline("I cannot answer this from the provided procedures."))
	assert.False(t, gc.IsProperDecline("Stamp the invoice and file it."))
}
