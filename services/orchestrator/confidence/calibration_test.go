// Copyright (C) 2025 FAIR-Agent Project
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package confidence

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const epsilon = 1e-9

func TestCalibrate_FullQualityEvidence(t *testing.T) {
	// Evidence at the quality reference leaves boosts unscaled.
	res := Calibrate(0.3, 0.4, 0.15, 0.1)

	assert.InDelta(t, 1.0, res.QualityFactor, epsilon)
	assert.InDelta(t, 0.4, res.ScaledSafety, epsilon)
	assert.InDelta(t, 0.1, res.ScaledReasoning, epsilon)
	// 0.3 + 0.4 + 0.15 + 0.1 = 0.95 hits the ceiling.
	assert.InDelta(t, ConfidenceCeiling, res.Final, epsilon)
}

func TestCalibrate_WeakEvidenceScalesBoosts(t *testing.T) {
	res := Calibrate(0.3, 0.4, 0.075, 0.1)

	assert.InDelta(t, 0.5, res.QualityFactor, epsilon)
	assert.InDelta(t, 0.4*(0.3+0.7*0.5), res.ScaledSafety, epsilon)
	assert.InDelta(t, 0.1*(0.4+0.6*0.5), res.ScaledReasoning, epsilon)

	expected := 0.3 + 0.4*0.65 + 0.075 + 0.1*0.7
	assert.InDelta(t, expected, res.Final, epsilon)
}

func TestCalibrate_NoEvidenceUsesHalfQuality(t *testing.T) {
	res := Calibrate(0.3, 0.4, 0, 0.1)
	assert.InDelta(t, 0.5, res.QualityFactor, epsilon)
	assert.Zero(t, res.EvidenceBoost)
}

func TestCalibrate_EvidenceCapApplied(t *testing.T) {
	res := Calibrate(0.2, 0, 0.9, 0)
	assert.InDelta(t, EvidenceCap, res.EvidenceBoost, epsilon)
}

func TestCalibrate_NeverExceedsCeiling(t *testing.T) {
	res := Calibrate(0.5, 1.0, 0.35, 1.0)
	assert.LessOrEqual(t, res.Final, ConfidenceCeiling)
}

func TestCalibrate_NeverBelowBase(t *testing.T) {
	res := Calibrate(0.45, 0, 0, 0)
	assert.GreaterOrEqual(t, res.Final, 0.45)
}

func TestCalibrate_SanitizesBadInputs(t *testing.T) {
	res := Calibrate(math.NaN(), -1, math.NaN(), -0.5)
	assert.Zero(t, res.Base)
	assert.Zero(t, res.ScaledSafety)
	assert.Zero(t, res.ScaledReasoning)
	assert.Zero(t, res.EvidenceBoost)
	assert.False(t, math.IsNaN(res.Final))
}

func TestLiveSourceBoost(t *testing.T) {
	assert.Zero(t, LiveSourceBoost(0))
	assert.Zero(t, LiveSourceBoost(-2))
	assert.InDelta(t, 0.05, LiveSourceBoost(1), epsilon)
	assert.InDelta(t, 0.10, LiveSourceBoost(2), epsilon)
	assert.InDelta(t, LiveBoostCap, LiveSourceBoost(3), epsilon)
	assert.InDelta(t, LiveBoostCap, LiveSourceBoost(10), epsilon, "boost must cap at three sources")
}

func TestBaseConfidence_Bounds(t *testing.T) {
	hedged := "It may or might vary; unclear and uncertain, possibly, potentially."
	assert.InDelta(t, 0.2, BaseConfidence(hedged), epsilon, "heavy hedging floors at 0.2")

	confident := strings.Repeat("The clinical trial data and research study evidence proven. ", 12)
	assert.InDelta(t, 0.5, BaseConfidence(confident), epsilon, "marker-dense long answers cap at 0.5")
}

func TestBaseConfidence_LengthAdjustments(t *testing.T) {
	short := "Brief."
	// Baseline 0.3 minus the short-answer penalty.
	assert.InDelta(t, 0.25, BaseConfidence(short), epsilon)

	neutralLong := strings.Repeat("z ", 300)
	assert.InDelta(t, 0.35, BaseConfidence(neutralLong), epsilon)
}

func TestApplyAdjustment(t *testing.T) {
	assert.InDelta(t, 0.25, ApplyAdjustment(0.45, -0.20), epsilon)
	assert.InDelta(t, 0.1, ApplyAdjustment(0.15, -0.30), epsilon, "floor at 0.1")
	assert.InDelta(t, 1.0, ApplyAdjustment(0.98, 0.05), epsilon, "cap at 1.0")
}
