package toon

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyRecord(t *testing.T) {
	assert.Equal(t, "", Encode(Record{}))
	r := Decode("")
	assert.Equal(t, 0, r.Len())
	assert.True(t, r.Equal(Record{}))
}

func TestEncodePreservesInsertionOrder(t *testing.T) {
	r := New("sev", "HIGH", "file", "auth.py", "line_range", "45-47", "kind", "vulnerability")
	assert.Equal(t, "sev:HIGH|file:auth.py|line_range:45-47|kind:vulnerability", Encode(r))
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789 _-./=+é"
	runes := []rune(alphabet)
	word := func(min int) string {
		n := min + rng.Intn(12)
		out := make([]rune, n)
		for i := range out {
			out[i] = runes[rng.Intn(len(runes))]
		}
		return string(out)
	}
	for i := 0; i < 200; i++ {
		var r Record
		n := rng.Intn(8)
		for j := 0; j < n; j++ {
			r.Set(fmt.Sprintf("%s%d", word(1), j), word(0))
		}
		got := Decode(Encode(r))
		require.Truef(t, r.Equal(got), "round trip mismatch: %q -> %q", Encode(r), Encode(got))
	}
}

func TestEmptyValueRoundTrips(t *testing.T) {
	r := New("a", "", "b", "x")
	assert.Equal(t, "a:|b:x", Encode(r))
	assert.True(t, r.Equal(Decode(Encode(r))))
}

func TestDecodeMalformed(t *testing.T) {
	r := Decode("novalue|:nokey|a:1||b:2:3|a:9")
	assert.Equal(t, []string{"a", "b"}, r.Keys())
	assert.Equal(t, "9", r.Value("a"))
	// only the first separator splits
	assert.Equal(t, "2:3", r.Value("b"))
}

func TestDelimiterInValueIsLossy(t *testing.T) {
	r := New("code", "a|b")
	got := Decode(Encode(r))
	assert.False(t, r.Equal(got))
	assert.False(t, Valid("a|b"))
	assert.False(t, Valid("k:v"))
	assert.True(t, Valid("plain text"))
}

func TestScrub(t *testing.T) {
	s := Scrub("Use a|b\nthen c:d")
	assert.True(t, Valid(s))
	assert.Equal(t, "Use a/b then c;d", s)
}

func TestSetIgnoresEmptyKey(t *testing.T) {
	var r Record
	r.Set("", "x")
	assert.Equal(t, 0, r.Len())
}

func TestCloneIsIndependent(t *testing.T) {
	r := New("a", "1")
	c := r.Clone()
	c.Set("a", "2")
	c.Set("b", "3")
	assert.Equal(t, "1", r.Value("a"))
	assert.Equal(t, 1, r.Len())
}

func TestMarshalJSONKeepsOrder(t *testing.T) {
	r := New("z", "1", "a", "2")
	b, err := json.Marshal(r)
	require.NoError(t, err)
	assert.Equal(t, `{"z":"1","a":"2"}`, string(b))
}

func TestUnmarshalJSONKeepsOrder(t *testing.T) {
	var r Record
	require.NoError(t, json.Unmarshal([]byte(`{"z":"1","a":"x:y","n":3}`), &r))
	assert.Equal(t, []string{"z", "a", "n"}, r.Keys())
	assert.Equal(t, "x:y", r.Value("a"))
	assert.Equal(t, "3", r.Value("n"))

	var arr []Record
	assert.Error(t, json.Unmarshal([]byte(`[["a"]]`), &arr))
}
