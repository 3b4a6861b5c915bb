package status

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive_FlagFallbackOrder(t *testing.T) {
	tests := []struct {
		name  string
		notes string
		flags Flags
		want  string
	}{
		{
			name:  "fresh case with no notes",
			flags: Flags{IsActive: true},
			want:  New,
		},
		{
			name:  "assigned to WHS",
			flags: Flags{IsActive: true, AssignedToWHS: true},
			want:  Assessed,
		},
		{
			name:  "active rehab plan wins over WHS assignment",
			flags: Flags{IsActive: true, AssignedToWHS: true, HasActiveRehabPlan: true},
			want:  InRehab,
		},
		{
			name:  "inactive case is closed regardless of other flags",
			flags: Flags{IsActive: false, AssignedToWHS: true, HasActiveRehabPlan: true},
			want:  Closed,
		},
		{
			name:  "plain text note falls back to flags",
			notes: "worker called in, waiting on medical certificate",
			flags: Flags{IsActive: true, AssignedToWHS: true},
			want:  Assessed,
		},
		{
			name:  "JSON without case_status falls back to flags",
			notes: `{"approved_by":"Dr. Chen"}`,
			flags: Flags{IsActive: true},
			want:  New,
		},
		{
			name:  "unknown case_status value falls back to flags",
			notes: `{"case_status":"archived"}`,
			flags: Flags{IsActive: true},
			want:  New,
		},
		{
			name:  "explicit case_status wins over flags",
			notes: `{"case_status":"triaged"}`,
			flags: Flags{IsActive: true, AssignedToWHS: true, HasActiveRehabPlan: true},
			want:  Triaged,
		},
		{
			name:  "JSON array is not structured status",
			notes: `["a","b"]`,
			flags: Flags{IsActive: true},
			want:  New,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Derive(tt.notes, tt.flags))
		})
	}
}

func TestMerge_RoundTrip(t *testing.T) {
	out, err := Merge("", Assessed, nil)
	require.NoError(t, err)

	got := Derive(out, Flags{IsActive: true})
	assert.Equal(t, Assessed, got)
}

func TestMerge_PreservesUnknownKeys(t *testing.T) {
	in := `{"case_status":"new","injury_site":"lower back","severity":3}`

	out, err := Merge(in, Assessed, nil)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))

	assert.Equal(t, "assessed", doc["case_status"])
	assert.Equal(t, "lower back", doc["injury_site"])
	assert.Equal(t, float64(3), doc["severity"])
}

func TestMerge_PlainTextNotesStartFresh(t *testing.T) {
	out, err := Merge("free-form note, not JSON", InRehab, nil)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "in_rehab", doc["case_status"])
}

func TestMerge_ApprovalStamp(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	out, err := Merge("{}", ReturnToWork, &Approval{By: "Dr. Amara Okafor", At: at})
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "return_to_work", doc["case_status"])
	assert.Equal(t, "Dr. Amara Okafor", doc["approved_by"])
	assert.Equal(t, "2026-03-14T09:30:00Z", doc["approved_at"])
}

func TestMerge_RejectsInvalidStatus(t *testing.T) {
	_, err := Merge("", "archived", nil)
	require.Error(t, err)
}

func TestIsValid(t *testing.T) {
	for _, s := range Order {
		assert.True(t, IsValid(s), s)
	}
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("open"))
}
