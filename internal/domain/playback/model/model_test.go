// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package model

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQualityLevel_DerivesName(t *testing.T) {
	q := NewQualityLevel(1, 2_000_000, 1280, 720, "avc1.64001f")
	assert.Equal(t, "720p", q.Name)
	assert.Equal(t, "1280x720", q.Resolution())
}

func TestQualitySelection(t *testing.T) {
	assert.True(t, AutoQuality.IsAuto())
	assert.Equal(t, -1, AutoQuality.EngineValue())

	id, ok := Level(3).LevelID()
	require.True(t, ok)
	assert.Equal(t, 3, id)

	sel, err := ParseQualitySelection("auto")
	require.NoError(t, err)
	assert.Equal(t, AutoQuality, sel)

	sel, err = ParseQualitySelection("2")
	require.NoError(t, err)
	assert.Equal(t, Level(2), sel)

	_, err = ParseQualitySelection("-4")
	require.ErrorIs(t, err, ErrInvalidSelection)
	_, err = ParseQualitySelection("hd")
	require.ErrorIs(t, err, ErrInvalidSelection)
}

func TestQualitySelection_JSON(t *testing.T) {
	b, err := json.Marshal(struct {
		Q QualitySelection `json:"q"`
	}{Q: Level(1)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"q":"1"}`, string(b))

	var out struct {
		Q QualitySelection `json:"q"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"q":"auto"}`), &out))
	assert.True(t, out.Q.IsAuto())
}

func TestNewPlaybackState_Defaults(t *testing.T) {
	s := NewPlaybackState()
	assert.True(t, math.IsNaN(s.Duration))
	assert.False(t, s.DurationKnown())
	assert.Equal(t, DefaultVolume, s.Volume)
	assert.True(t, s.SelectedQuality.IsAuto())
	assert.Zero(t, s.PlayedFraction())
}

func TestSessionErrorText(t *testing.T) {
	e := &SessionError{Category: CategoryOther, Message: "keySystemNoSession", Retryable: true}
	assert.Contains(t, e.Text(), "Retry")
	assert.Contains(t, e.Error(), "other")

	var nilErr *SessionError
	assert.Empty(t, nilErr.Text())
}
