package path

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		pointer string
		names   []string
		indexes []int
	}{
		{"", nil, nil},
		{"/Simple", []string{"Simple"}, []int{-1}},
		{"/SimpleCollection/0", []string{"SimpleCollection", "0"}, []int{-1, 0}},
		{"/a/12/b", []string{"a", "12", "b"}, []int{-1, 12, -1}},
		{"/a/01", []string{"a", "01"}, []int{-1, -1}},
		{"/a/-1", []string{"a", "-1"}, []int{-1, -1}},
		{"/a/1x", []string{"a", "1x"}, []int{-1, -1}},
		{"/a/99999999999", []string{"a", "99999999999"}, []int{-1, -1}},
		{"/a/4294967296", []string{"a", "4294967296"}, []int{-1, -1}},
		{"/", []string{""}, []int{-1}},
		{"/a//b", []string{"a", "", "b"}, []int{-1, -1, -1}},
	}

	for _, tt := range tests {
		t.Run(tt.pointer, func(t *testing.T) {
			p, err := Parse(tt.pointer)
			require.NoError(t, err)

			require.Equal(t, len(tt.names), p.Len())
			for i, tok := range p.Tokens() {
				assert.Equal(t, tt.names[i], tok.Name())
				assert.Equal(t, tt.indexes[i], tok.Index())
				assert.Equal(t, tt.indexes[i] >= 0, tok.IsIndex())
			}
			assert.Equal(t, tt.pointer, p.String())
		})
	}
}

func TestParseMalformed(t *testing.T) {
	_, err := Parse("Simple")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedPath)

	assert.Panics(t, func() { MustParse("a/b") })
}

func TestPathTail(t *testing.T) {
	p := MustParse("/a/0/b")

	assert.False(t, p.Matches())
	assert.Equal(t, 0, p.Position())
	assert.Equal(t, "a", p.Head().Name())

	p = p.Tail()
	assert.Equal(t, 1, p.Position())
	assert.Equal(t, 0, p.Head().Index())
	assert.Equal(t, "/0/b", p.String())
	assert.Equal(t, "/a/0/b", p.Full())

	p = p.Tail().Tail()
	assert.True(t, p.Matches())
	assert.Equal(t, 0, p.Len())
	assert.True(t, p.Tail().Matches(), "tail of an empty path stays empty")
}

func TestGJSON(t *testing.T) {
	assert.Equal(t, "a.0.b", MustParse("/a/0/b").GJSON())
	assert.Equal(t, `type\.name`, MustParse("/type.name").GJSON())
	assert.Equal(t, "b", MustParse("/a/b").Tail().GJSON())
	assert.Equal(t, "x.y", FromTokens("x", "y").GJSON())
}
