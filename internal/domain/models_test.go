package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityRoundTrip(t *testing.T) {
	rec := Recommendation{
		Priority: SeverityCritical,
		Type:     "risk",
		Message:  "DO NOT BET",
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"priority":"CRITICAL"`)

	var decoded Recommendation
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, SeverityCritical, decoded.Priority)
}

func TestSeverityUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		want Severity
	}{
		{"LOW", SeverityLow},
		{"MEDIUM", SeverityMedium},
		{"HIGH", SeverityHigh},
		{"CRITICAL", SeverityCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s Severity
			require.NoError(t, json.Unmarshal([]byte(`"`+tt.name+`"`), &s))
			assert.Equal(t, tt.want, s)
		})
	}

	var s Severity
	assert.Error(t, json.Unmarshal([]byte(`"SEVERE"`), &s))
	assert.Error(t, json.Unmarshal([]byte(`3`), &s))
}
