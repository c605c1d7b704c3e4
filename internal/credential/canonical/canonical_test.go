package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "certledger/pkg/domain-errors"
)

func TestCanonicalizeDropsUnknownAndEmptyFields(t *testing.T) {
	out := Canonicalize(map[string]any{
		"student_name":    "  Ada Lovelace  ",
		"institution":     "University of Lagos",
		"degree":          "BSc Computer Science",
		"graduation_year": 2021,
		"student_email":   "   ",
		"honours":         "",
		"cgpa":            nil,
		"favourite_color": "blue",
		"hash":            "should-never-be-hashed",
	})

	assert.Equal(t, map[string]any{
		"student_name":    "Ada Lovelace",
		"institution":     "University of Lagos",
		"degree":          "BSc Computer Science",
		"graduation_year": 2021,
	}, out)
}

func TestCanonicalizePreservesNumericTypes(t *testing.T) {
	out := Canonicalize(map[string]any{
		"graduation_year": 2020,
		"cgpa":            4.52,
	})

	assert.Equal(t, 2020, out["graduation_year"])
	assert.Equal(t, 4.52, out["cgpa"])
}

func TestSerializeSortsKeysCompact(t *testing.T) {
	serialized, err := Serialize(map[string]any{
		"student_name":    "Bola",
		"degree":          "LLB",
		"graduation_year": 2019,
	})
	require.NoError(t, err)

	assert.Equal(t, `{"degree":"LLB","graduation_year":2019,"student_name":"Bola"}`, string(serialized))
}

func TestSerializeDoesNotEscapeHTML(t *testing.T) {
	serialized, err := Serialize(map[string]any{
		"institution": "A&M <College>",
	})
	require.NoError(t, err)

	assert.Equal(t, `{"institution":"A&M <College>"}`, string(serialized))
}

func TestDigestDeterministic(t *testing.T) {
	payload := map[string]any{
		"student_name":    "Chidi Okafor",
		"institution":     "University of Nigeria",
		"degree":          "BEng Electrical Engineering",
		"graduation_year": 2022,
		"cgpa":            4.1,
	}

	first, err := Digest(payload)
	require.NoError(t, err)
	second, err := Digest(payload)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
	assert.Equal(t, strings.ToLower(first), first)
}

func TestDigestMatchesManualComputation(t *testing.T) {
	payload := map[string]any{
		"student_name": "Ngozi",
		"degree":       "MBBS",
	}

	got, err := Digest(payload)
	require.NoError(t, err)

	sum := sha256.Sum256([]byte(`{"degree":"MBBS","student_name":"Ngozi"}`))
	assert.Equal(t, hex.EncodeToString(sum[:]), got)
}

func TestDigestIgnoresFieldOrderAndWhitespace(t *testing.T) {
	a, err := Digest(map[string]any{
		"student_name": "Tunde Bakare",
		"degree":       "BSc Physics",
		"institution":  "Obafemi Awolowo University",
	})
	require.NoError(t, err)

	b, err := Digest(map[string]any{
		"institution":  "  Obafemi Awolowo University ",
		"degree":       "BSc Physics",
		"student_name": "Tunde Bakare",
	})
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestDigestChangesWhenFieldChanges(t *testing.T) {
	base := map[string]any{
		"student_name":    "Amaka",
		"degree":          "BSc Botany",
		"graduation_year": 2018,
	}
	tampered := map[string]any{
		"student_name":    "Amaka",
		"degree":          "BSc Botany",
		"graduation_year": 2019,
	}

	a, err := Digest(base)
	require.NoError(t, err)
	b, err := Digest(tampered)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestNormalizeDigest(t *testing.T) {
	valid := "a3b5c7d9e1f2a3b5c7d9e1f2a3b5c7d9e1f2a3b5c7d9e1f2a3b5c7d9e1f2a3b5"

	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "already canonical", input: valid, want: valid},
		{name: "0x prefix stripped", input: "0x" + valid, want: valid},
		{name: "mixed case lowered", input: "0xA3B5C7D9E1F2a3b5c7d9e1f2a3b5c7d9e1f2a3b5c7d9e1f2a3b5c7d9e1f2a3b5", want: valid},
		{name: "surrounding whitespace", input: "  " + valid + "\n", want: valid},
		{name: "too short", input: valid[:63], wantErr: true},
		{name: "too long", input: valid + "a", wantErr: true},
		{name: "not hex", input: "z" + valid[1:], wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeDigest(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
