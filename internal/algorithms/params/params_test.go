package params

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInt(t *testing.T) {
	m := map[string]interface{}{
		"a": 4,
		"b": int64(7),
		"c": 3.0,
		"d": 2.5,
		"e": "x",
	}

	tests := []struct {
		key     string
		want    int
		wantErr bool
	}{
		{"a", 4, false},
		{"b", 7, false},
		{"c", 3, false},
		{"d", 0, true},
		{"e", 0, true},
		{"missing", 10, false},
	}

	for _, tc := range tests {
		got, err := Int(m, tc.key, 10)
		if tc.wantErr {
			assert.Error(t, err, tc.key)
			continue
		}
		require.NoError(t, err, tc.key)
		assert.Equal(t, tc.want, got, tc.key)
	}
}

func TestFloat(t *testing.T) {
	m := map[string]interface{}{"f": 0.25, "i": 3, "i64": int64(2), "s": "no"}

	v, err := Float(m, "f", 0)
	require.NoError(t, err)
	assert.Equal(t, 0.25, v)

	v, err = Float(m, "i", 0)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)

	v, err = Float(m, "i64", 0)
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)

	v, err = Float(m, "missing", 1.5)
	require.NoError(t, err)
	assert.Equal(t, 1.5, v)

	_, err = Float(m, "s", 0)
	assert.ErrorContains(t, err, "s must be a number")
}

func TestString(t *testing.T) {
	m := map[string]interface{}{"s": "loop", "n": 1}

	s, err := String(m, "s", "clamp")
	require.NoError(t, err)
	assert.Equal(t, "loop", s)

	s, err = String(m, "missing", "clamp")
	require.NoError(t, err)
	assert.Equal(t, "clamp", s)

	_, err = String(m, "n", "")
	assert.Error(t, err)
}

func TestMerge(t *testing.T) {
	base := map[string]interface{}{"a": 1, "b": 2}
	out := Merge(base, map[string]interface{}{"b": 3, "c": 4})

	assert.Equal(t, map[string]interface{}{"a": 1, "b": 3, "c": 4}, out)
	assert.Equal(t, 2, base["b"])
}
