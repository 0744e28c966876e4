package path

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glesirok/jsoncodec/pkg/message"
	"github.com/glesirok/jsoncodec/pkg/schema"
)

type fixture struct {
	dict *schema.Dictionary
	nav  *Navigator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dict, err := schema.LoadFromFile("testdata/dictionary.yaml")
	require.NoError(t, err)
	return &fixture{dict: dict, nav: NewNavigator()}
}

func (f *fixture) structure(t *testing.T, name string) *schema.Message {
	t.Helper()
	m, ok := f.dict.Message(name)
	require.True(t, ok, "structure %s required", name)
	return m
}

func (f *fixture) record(t *testing.T, name string) *message.Record {
	return message.NewRecord(f.structure(t, name))
}

func (f *fixture) field(t *testing.T, msg, name string) *schema.Field {
	t.Helper()
	field, ok := f.structure(t, msg).Field(name)
	require.True(t, ok)
	return field
}

func TestGetReturnsAbsentForMissingField(t *testing.T) {
	f := newFixture(t)
	source := f.record(t, "Top")
	source.Set("Simple1", "42")

	v, ok, err := Get[string](f.nav, source, MustParse("/Simple"), source.Structure())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestGetReturnsAbsentForNullField(t *testing.T) {
	f := newFixture(t)
	source := f.record(t, "Top")
	source.Set("Complex", nil)

	_, ok, err := Get[string](f.nav, source, MustParse("/Complex/Simple"), source.Structure())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGet(t *testing.T) {
	f := newFixture(t)

	inner := func(build func(*message.Record)) *message.Record {
		rec := f.record(t, "Complex1")
		build(rec)
		return rec
	}

	tests := []struct {
		name    string
		pointer string
		build   func(*message.Record)
	}{
		{"from root", "/Simple", func(r *message.Record) {
			r.Set("Simple", "42")
		}},
		{"from root collection", "/SimpleCollection/0", func(r *message.Record) {
			r.Set("SimpleCollection", message.NewList(f.field(t, "Top", "SimpleCollection"), "42"))
		}},
		{"from inner message", "/Complex/Simple", func(r *message.Record) {
			r.Set("Complex", inner(func(c *message.Record) { c.Set("Simple", "42") }))
		}},
		{"from collection in inner message", "/Complex/SimpleCollection/0", func(r *message.Record) {
			r.Set("Complex", inner(func(c *message.Record) {
				c.Set("SimpleCollection", message.NewList(f.field(t, "Complex1", "SimpleCollection"), "42"))
			}))
		}},
		{"from inner message collection", "/ComplexCollection/0/Simple", func(r *message.Record) {
			r.Set("ComplexCollection", message.NewList(f.field(t, "Top", "ComplexCollection"),
				inner(func(c *message.Record) { c.Set("Simple", "42") })))
		}},
		{"from collection in inner message collection", "/ComplexCollection/0/SimpleCollection/0", func(r *message.Record) {
			r.Set("ComplexCollection", message.NewList(f.field(t, "Top", "ComplexCollection"),
				inner(func(c *message.Record) {
					c.Set("SimpleCollection", message.NewList(f.field(t, "Complex1", "SimpleCollection"), "42"))
				})))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := f.record(t, "Top")
			tt.build(source)

			v, ok, err := Get[string](f.nav, source, MustParse(tt.pointer), source.Structure())
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "42", v)
		})
	}
}

func TestGetUsesWireName(t *testing.T) {
	f := newFixture(t)
	source := f.record(t, "AnotherTop")
	source.Set("Simple", "42")

	v, ok, err := Get[string](f.nav, source, MustParse("/simple"), source.Structure())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "42", v)
}

func TestGetRoot(t *testing.T) {
	f := newFixture(t)
	source := f.record(t, "Top")

	v, ok, err := Get[*message.Record](f.nav, source, MustParse(""), source.Structure())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, source, v)
}

func TestGetNestedRecord(t *testing.T) {
	f := newFixture(t)
	source := f.record(t, "Top")
	require.NoError(t, f.nav.Set(source, MustParse("/Complex/Simple"), source.Structure(), "42", true))

	v, ok, err := Get[*message.Record](f.nav, source, MustParse("/Complex"), source.Structure())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Complex1", v.Name())

	l, ok, err := Get[*message.List](f.nav, source, MustParse("/Complex/SimpleCollection"), source.Structure())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, l)
}

func TestGetErrors(t *testing.T) {
	f := newFixture(t)

	t.Run("unknown field", func(t *testing.T) {
		source := f.record(t, "Top")
		source.Set("Simple", "42")

		_, _, err := Get[string](f.nav, source, MustParse("/Simple1"), source.Structure())
		require.Error(t, err)
		assert.Equal(t, "cannot find a field Simple1 in the message Top", err.Error())
		assert.ErrorIs(t, err, ErrUnknownField)

		var pathErr *Error
		require.True(t, errors.As(err, &pathErr))
		assert.Equal(t, "Simple1", pathErr.Token)
		assert.Equal(t, "Top", pathErr.Structure)
		assert.Equal(t, 0, pathErr.Position)
	})

	t.Run("unknown index", func(t *testing.T) {
		source := f.record(t, "Top")
		source.Set("SimpleCollection", message.NewList(f.field(t, "Top", "SimpleCollection"), "42"))

		_, _, err := Get[string](f.nav, source, MustParse("/SimpleCollection/1"), source.Structure())
		require.Error(t, err)
		assert.Equal(t, "cannot get element at index 1 in collection SimpleCollection with size 1", err.Error())
		assert.ErrorIs(t, err, ErrIndexOutOfBounds)

		var pathErr *Error
		require.True(t, errors.As(err, &pathErr))
		assert.Equal(t, 1, pathErr.Index)
		assert.Equal(t, 1, pathErr.Size)
		assert.Equal(t, 1, pathErr.Position)
		assert.Equal(t, "/SimpleCollection/1", pathErr.Path)
	})

	t.Run("type mismatch", func(t *testing.T) {
		source := f.record(t, "Top")
		source.Set("Simple", "42")

		_, ok, err := Get[bool](f.nav, source, MustParse("/Simple"), source.Structure())
		require.Error(t, err)
		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrTypeMismatch)
		assert.Contains(t, err.Error(), "value at /Simple is string, expected bool")
	})

	t.Run("index against record", func(t *testing.T) {
		source := f.record(t, "Top")

		_, _, err := Get[string](f.nav, source, MustParse("/0"), source.Structure())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidPathShape)
		assert.Contains(t, err.Error(), "matches the element at index 0")
	})

	t.Run("name against list", func(t *testing.T) {
		source := f.record(t, "Top")
		source.Set("SimpleCollection", message.NewList(f.field(t, "Top", "SimpleCollection"), "42"))

		_, _, err := Get[string](f.nav, source, MustParse("/SimpleCollection/Simple"), source.Structure())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidPathShape)
		assert.Contains(t, err.Error(), "matches Simple field")
	})

	t.Run("descend into scalar", func(t *testing.T) {
		source := f.record(t, "Top")
		source.Set("Simple", "42")

		_, _, err := Get[string](f.nav, source, MustParse("/Simple/x"), source.Structure())
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidPathShape)
		assert.Equal(t, "cannot extract path from string in field Simple", err.Error())
	})
}

func TestSet(t *testing.T) {
	f := newFixture(t)

	t.Run("to root", func(t *testing.T) {
		source := f.record(t, "Top")

		require.NoError(t, f.nav.Set(source, MustParse("/Simple"), source.Structure(), "42", true))
		v, _ := source.Get("Simple")
		assert.Equal(t, "42", v)
	})

	t.Run("does not replace existing value", func(t *testing.T) {
		source := f.record(t, "Top")
		source.Set("Simple", "43")

		require.NoError(t, f.nav.Set(source, MustParse("/Simple"), source.Structure(), "42", false))
		v, _ := source.Get("Simple")
		assert.Equal(t, "43", v)
	})

	t.Run("replaces null value", func(t *testing.T) {
		source := f.record(t, "Top")
		source.Set("Simple", nil)

		require.NoError(t, f.nav.Set(source, MustParse("/Simple"), source.Structure(), "42", false))
		v, _ := source.Get("Simple")
		assert.Equal(t, "42", v)
	})

	t.Run("to root collection", func(t *testing.T) {
		source := f.record(t, "Top")

		require.NoError(t, f.nav.Set(source, MustParse("/SimpleCollection/0"), source.Structure(), "42", true))
		collection := listField(t, source, "SimpleCollection")
		assert.Equal(t, []any{"42"}, collection.Items())
	})

	t.Run("grows collection with nulls", func(t *testing.T) {
		source := f.record(t, "Top")

		require.NoError(t, f.nav.Set(source, MustParse("/SimpleCollection/2"), source.Structure(), "42", true))
		collection := listField(t, source, "SimpleCollection")
		assert.Equal(t, []any{nil, nil, "42"}, collection.Items())
	})

	t.Run("in inner message", func(t *testing.T) {
		source := f.record(t, "Top")

		require.NoError(t, f.nav.Set(source, MustParse("/Complex/Simple"), source.Structure(), "42", true))
		inner := recordField(t, source, "Complex")
		assert.Equal(t, "Complex1", inner.Name())
		v, _ := inner.Get("Simple")
		assert.Equal(t, "42", v)
	})

	t.Run("in inner message collection", func(t *testing.T) {
		source := f.record(t, "Top")

		require.NoError(t, f.nav.Set(source, MustParse("/Complex/SimpleCollection/0"), source.Structure(), "42", true))
		inner := recordField(t, source, "Complex")
		collection := listField(t, inner, "SimpleCollection")
		assert.Equal(t, []any{"42"}, collection.Items())
	})

	t.Run("in collection in inner message collection", func(t *testing.T) {
		source := f.record(t, "Top")

		require.NoError(t, f.nav.Set(source, MustParse("/ComplexCollection/1/SimpleCollection/0"), source.Structure(), "42", true))
		outer := listField(t, source, "ComplexCollection")
		require.Equal(t, 2, outer.Len())

		// 补齐的元素是新的空消息
		first, ok := outer.At(0).(*message.Record)
		require.True(t, ok)
		assert.Equal(t, 0, first.Len())

		second, ok := outer.At(1).(*message.Record)
		require.True(t, ok)
		collection := listField(t, second, "SimpleCollection")
		assert.Equal(t, []any{"42"}, collection.Items())
	})

	t.Run("keeps created empty record without replace", func(t *testing.T) {
		source := f.record(t, "Top")
		replacement := f.record(t, "Complex1")
		replacement.Set("Simple", "new")

		require.NoError(t, f.nav.Set(source, MustParse("/Complex"), source.Structure(), replacement, false))
		inner := recordField(t, source, "Complex")
		assert.NotSame(t, replacement, inner)
		assert.Equal(t, "Complex1", inner.Name())
		assert.Equal(t, 0, inner.Len())
	})

	t.Run("keeps created empty collection without replace", func(t *testing.T) {
		source := f.record(t, "Top")
		replacement := message.NewList(f.field(t, "Top", "SimpleCollection"))
		replacement.Append("42")

		require.NoError(t, f.nav.Set(source, MustParse("/SimpleCollection"), source.Structure(), replacement, false))
		collection := listField(t, source, "SimpleCollection")
		assert.NotSame(t, replacement, collection)
		assert.Equal(t, 0, collection.Len())
	})

	t.Run("keeps created empty element without replace", func(t *testing.T) {
		source := f.record(t, "Top")
		replacement := f.record(t, "Complex1")
		replacement.Set("Simple", "new")

		require.NoError(t, f.nav.Set(source, MustParse("/ComplexCollection/0"), source.Structure(), replacement, false))
		outer := listField(t, source, "ComplexCollection")
		require.Equal(t, 1, outer.Len())
		first, ok := outer.At(0).(*message.Record)
		require.True(t, ok)
		assert.NotSame(t, replacement, first)
		assert.Equal(t, 0, first.Len())
	})

	t.Run("replaces nested record", func(t *testing.T) {
		source := f.record(t, "Top")
		replacement := f.record(t, "Complex1")
		replacement.Set("Simple", "new")

		require.NoError(t, f.nav.Set(source, MustParse("/Complex"), source.Structure(), replacement, true))
		assert.Same(t, replacement, recordField(t, source, "Complex"))
	})
}

func TestSetThenGet(t *testing.T) {
	f := newFixture(t)

	for _, pointer := range []string{
		"/Simple",
		"/SimpleCollection/3",
		"/Complex/Simple",
		"/Complex/SimpleCollection/1",
		"/ComplexCollection/2/Simple",
		"/ComplexCollection/0/SimpleCollection/4",
	} {
		t.Run(pointer, func(t *testing.T) {
			source := f.record(t, "Top")
			p := MustParse(pointer)

			require.NoError(t, f.nav.Set(source, p, source.Structure(), "v1", true))
			require.NoError(t, f.nav.Set(source, p, source.Structure(), "v2", false))

			v, ok, err := Get[string](f.nav, source, p, source.Structure())
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "v1", v)

			require.NoError(t, f.nav.Set(source, p, source.Structure(), "v3", true))
			v, _, err = Get[string](f.nav, source, p, source.Structure())
			require.NoError(t, err)
			assert.Equal(t, "v3", v)
		})
	}
}

func TestSetErrors(t *testing.T) {
	f := newFixture(t)

	t.Run("unknown field keeps created nodes", func(t *testing.T) {
		source := f.record(t, "Top")

		err := f.nav.Set(source, MustParse("/Complex/Missing"), source.Structure(), "42", true)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownField)
		assert.Equal(t, "cannot find a field Missing in the message Complex1", err.Error())

		var pathErr *Error
		require.True(t, errors.As(err, &pathErr))
		assert.Equal(t, 1, pathErr.Position)

		// 中间节点不回滚
		assert.True(t, source.Has("Complex"))
	})

	t.Run("unsupported value", func(t *testing.T) {
		source := f.record(t, "Top")

		err := f.nav.Set(source, MustParse("/Simple"), source.Structure(), 42, true)
		assert.ErrorIs(t, err, ErrTypeMismatch)
		assert.False(t, source.Has("Simple"))
	})

	t.Run("root", func(t *testing.T) {
		source := f.record(t, "Top")

		err := f.nav.Set(source, MustParse(""), source.Structure(), "42", true)
		assert.ErrorIs(t, err, ErrInvalidPathShape)
	})

	t.Run("through scalar", func(t *testing.T) {
		source := f.record(t, "Top")

		err := f.nav.Set(source, MustParse("/Simple/x"), source.Structure(), "42", true)
		assert.ErrorIs(t, err, ErrInvalidPathShape)
	})
}

func recordField(t *testing.T, rec *message.Record, name string) *message.Record {
	t.Helper()
	v, ok := rec.Get(name)
	require.True(t, ok, "field %s", name)
	r, ok := v.(*message.Record)
	require.True(t, ok, "field %s is %T", name, v)
	return r
}

func listField(t *testing.T, rec *message.Record, name string) *message.List {
	t.Helper()
	v, ok := rec.Get(name)
	require.True(t, ok, "field %s", name)
	l, ok := v.(*message.List)
	require.True(t, ok, "field %s is %T", name, v)
	return l
}
