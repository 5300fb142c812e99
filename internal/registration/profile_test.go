package registration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jenga-hub/jenga/internal/directory"
)

func TestNormalizeProfile(t *testing.T) {
	cases := []struct {
		name    string
		payload directory.Fields
		college any
		skills  any
	}{
		{"strings", directory.Fields{"College": "X", "My_Skills": " a,b ,c "}, []any{"X"}, []any{"a", "b", "c"}},
		{"lists kept", directory.Fields{"College": []any{"X"}, "My_Skills": []any{"a"}}, []any{"X"}, []any{"a"}},
		{"empty skipped", directory.Fields{"College": "", "My_Skills": "  "}, "", "  "},
		{"absent", directory.Fields{}, nil, nil},
		{"trailing comma", directory.Fields{"My_Skills": "go,"}, nil, []any{"go"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := normalizeProfile(tc.payload, "9876543210")
			require.NoError(t, err)
			assert.Equal(t, int64(9876543210), got[directory.FieldMobileNumber])
			assert.Equal(t, tc.college, got[directory.FieldCollege])
			assert.Equal(t, tc.skills, got[directory.FieldSkills])
		})
	}
}

func TestNormalizeProfileOverridesMobileNumber(t *testing.T) {
	payload := directory.Fields{"MobileNumber": "1111111111"}
	got, err := normalizeProfile(payload, "9876543210")
	require.NoError(t, err)
	assert.Equal(t, int64(9876543210), got["MobileNumber"])
	assert.Equal(t, "1111111111", payload["MobileNumber"], "input must not be mutated")
}

func TestNormalizeProfileBadNumber(t *testing.T) {
	_, err := normalizeProfile(directory.Fields{}, "not-a-number")
	assert.Error(t, err)
}
