package baseline

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusOrder(t *testing.T) {
	if !(WidelyAvailable > NewlyAvailable && NewlyAvailable > Limited) {
		t.Fatalf("maturity order broken: %d %d %d", WidelyAvailable, NewlyAvailable, Limited)
	}
	if Status(0).Valid() {
		t.Fatalf("zero status must be invalid")
	}
}

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"high", WidelyAvailable},
		{"low", NewlyAvailable},
		{"false", Limited},
		{"Widely", WidelyAvailable},
		{" newly ", NewlyAvailable},
		{"limited", Limited},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseStatus("maybe")
	assert.Error(t, err)
}

func TestStatusJSON(t *testing.T) {
	f := Finding{Status: Limited, Label: "x", Key: "x"}
	b, err := json.Marshal(f)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"status":false`)

	var back Finding
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, Limited, back.Status)

	var s Status
	require.NoError(t, json.Unmarshal([]byte(`"low"`), &s))
	assert.Equal(t, NewlyAvailable, s)
	assert.Error(t, json.Unmarshal([]byte(`true`), &s))

	_, err = json.Marshal(Status(0))
	assert.Error(t, err)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Widely available", Label(WidelyAvailable))
	assert.Equal(t, "Newly available", Label(NewlyAvailable))
	assert.Equal(t, "Limited availability", Label(Limited))
}

func TestNewEntryDefaultsName(t *testing.T) {
	e := NewEntry(FeatureRecord{ID: "gap", Status: NewlyAvailable})
	assert.Equal(t, "gap", e.FeatureName)
	assert.Equal(t, NewlyAvailable, e.Status)
}
