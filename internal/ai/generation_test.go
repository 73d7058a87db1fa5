package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePrimarySucceeds(t *testing.T) {
	primary := &scriptedTransport{name: "http", catchAll: &scriptedReply{response: "stamp the invoice"}}
	fallback := &scriptedTransport{name: "process"}
	c := NewGenerationClientWithTransports(aiTestConfig(), primary, fallback)

	got, err := c.Generate(context.Background(), "how?")

	require.NoError(t, err)
	assert.Equal(t, "stamp the invoice", got)
	assert.Equal(t, []string{"llama3.2"}, primary.models)
	assert.Zero(t, fallback.callCount)
}

func TestGenerateFallsBackOnPrimaryFailure(t *testing.T) {
	primary := &scriptedTransport{name: "http", catchAll: &scriptedReply{err: errors.New("connection refused")}}
	fallback := &scriptedTransport{name: "process", catchAll: &scriptedReply{response: "from fallback"}}
	c := NewGenerationClientWithTransports(aiTestConfig(), primary, fallback)

	got, err := c.Generate(context.Background(), "how?")

	require.NoError(t, err)
	assert.Equal(t, "from fallback", got)
}

func TestGenerateEmptyPrimaryResponseFallsBack(t *testing.T) {
	primary := &scriptedTransport{name: "http", catchAll: &scriptedReply{response: ""}}
	fallback := &scriptedTransport{name: "process", catchAll: &scriptedReply{response: "recovered"}}
	c := NewGenerationClientWithTransports(aiTestConfig(), primary, fallback)

	got, err := c.Generate(context.Background(), "how?")

	require.NoError(t, err)
	assert.Equal(t, "recovered", got)
}

func TestGenerateBothTiersFailIsTerminal(t *testing.T) {
	primary := &scriptedTransport{name: "http", catchAll: &scriptedReply{err: errors.New("down")}}
	fallback := &scriptedTransport{name: "process", catchAll: &scriptedReply{err: errors.New("also down")}}
	c := NewGenerationClientWithTransports(aiTestConfig(), primary, fallback)

	_, err := c.Generate(context.Background(), "how?")

	assert.ErrorIs(t, err, ErrGenerationUnavailable)
}

func TestSelfAssessParsesScore(t *testing.T) {
	primary := &scriptedTransport{name: "http", catchAll: &scriptedReply{response: "0.85"}}
	c := NewGenerationClientWithTransports(aiTestConfig(), primary, &scriptedTransport{name: "process"})

	score, err := c.SelfAssess(context.Background(), "q", "a", "ctx")

	require.NoError(t, err)
	assert.InDelta(t, 0.85, score, 1e-9)
}

func TestParseScore(t *testing.T) {
	cases := []struct {
		reply   string
		want    float64
		wantErr bool
	}{
		{reply: "0.7", want: 0.7},
		{reply: "Score: 0.45 out of 1", want: 0.45},
		{reply: "I would rate this 85", want: 0.85},
		{reply: "100", want: 1.0},
		{reply: "1.0", want: 1.0},
		{reply: "0", want: 0},
		{reply: "-0.3", want: 0},
		{reply: "no number here", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.reply, func(t *testing.T) {
			got, err := parseScore(tc.reply)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}
