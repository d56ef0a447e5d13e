package ratings

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_RoundTrip(t *testing.T) {
	tests := []Cursor{
		{},
		{Term: 3},
		{Term: 25, After: "YXJyYXljb25uZWN0aW9uOjE5"},
		{Term: 1, After: "with:colon"},
	}

	for _, c := range tests {
		t.Run(c.Encode(), func(t *testing.T) {
			got, err := DecodeCursor(c.Encode())
			require.NoError(t, err)
			assert.Equal(t, c, got)
		})
	}
}

func TestDecodeCursor_EmptyIsStart(t *testing.T) {
	c, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Equal(t, Cursor{}, c)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	for _, s := range []string{"nocolon", "x:abc", "-1:abc"} {
		t.Run(s, func(t *testing.T) {
			_, err := DecodeCursor(s)
			assert.ErrorIs(t, err, ErrInvalidCursor)
		})
	}
}
