package funcs

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()
	r.Register("upper", func(args []Value) ([]Value, error) {
		return []Value{StringValue("X")}, nil
	})

	h, ok := r.Lookup("upper")
	require.True(t, ok)
	out, err := h(nil)
	require.NoError(t, err)
	assert.Equal(t, "X", out[0].Str)

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestRegistry_DateDependentTracking(t *testing.T) {
	r := NewRegistry()
	r.RegisterDateDependent("now", func(args []Value) ([]Value, error) { return nil, nil })
	assert.True(t, r.IsDateDependent("now"))

	// Re-registering as a plain handler clears the flag.
	r.Register("now", func(args []Value) ([]Value, error) { return nil, nil })
	assert.False(t, r.IsDateDependent("now"))
}

func TestRegistry_Names(t *testing.T) {
	r := Builtins()
	assert.Equal(t, []string{"concatenate", "daysSince", "today", "wrap"}, r.Names())
	assert.True(t, r.IsDateDependent("daysSince"))
	assert.True(t, r.IsDateDependent("today"))
	assert.False(t, r.IsDateDependent("concatenate"))
	assert.False(t, r.IsDateDependent("wrap"))
}

func TestValue_Render(t *testing.T) {
	assert.Equal(t, `"a\"b"`, StringValue(`a"b`).Render())
	assert.Equal(t, "-5", NumberValue(-5).Render())
	assert.Equal(t, "2.5", FloatValue(2.5).Render())
	assert.Equal(t, "2.0", FloatValue(2).Render())
}

func TestConcatenate(t *testing.T) {
	out, err := concatenate([]Value{
		StringValue("card-"),
		NumberValue(42),
		StringValue("/"),
		FloatValue(1.5),
	})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "card-42/1.5", out[0].Str)

	out, err = concatenate(nil)
	require.NoError(t, err)
	assert.Equal(t, "", out[0].Str)
}

func TestDaysSince(t *testing.T) {
	_, err := daysSince(nil)
	assert.Error(t, err)
	_, err = daysSince([]Value{StringValue("2020-01-01"), StringValue("2020-01-02")})
	assert.Error(t, err)

	out, err := daysSince([]Value{NumberValue(7)})
	require.NoError(t, err)
	assert.Equal(t, int64(0), out[0].Num)

	out, err = daysSince([]Value{StringValue("not a date")})
	require.NoError(t, err)
	assert.Equal(t, int64(0), out[0].Num)

	out, err = daysSince([]Value{StringValue("2000-01-01")})
	require.NoError(t, err)
	assert.Greater(t, out[0].Num, int64(9000))
	assert.Less(t, out[0].Num, int64(40000))
}

func TestToday(t *testing.T) {
	_, err := today([]Value{StringValue("x")})
	assert.Error(t, err)

	before := time.Now().Format("2006-01-02")
	out, err := today(nil)
	require.NoError(t, err)
	after := time.Now().Format("2006-01-02")

	assert.Contains(t, []string{before, after}, out[0].Str)
}

func TestWrap(t *testing.T) {
	_, err := wrap(nil)
	assert.Error(t, err)

	out, err := wrap([]Value{NumberValue(9)})
	require.NoError(t, err)
	assert.Equal(t, "", out[0].Str)

	out, err = wrap([]Value{StringValue("The quick brown fox jumps over the lazy dog")})
	require.NoError(t, err)
	assert.Equal(t, "The quick brown fox jumps<br/>over the lazy dog", out[0].Str)
}

func TestWrap_EscapesMarkup(t *testing.T) {
	out, err := wrap([]Value{StringValue(`a & b "c" <d> it's`)})
	require.NoError(t, err)
	assert.Equal(t, "a &amp; b &quot;c&quot; &lt;d&gt; it&apos;s", out[0].Str)

	// Escaping happens after wrapping, so entity expansion never
	// changes the line breaks.
	out, err = wrap([]Value{StringValue("aaaaaaaaaa & bbbbbbbbbb & cccccccccc")})
	require.NoError(t, err)
	assert.Equal(t, "aaaaaaaaaa &amp; bbbbbbbbbb &amp;<br/>cccccccccc", out[0].Str)
}

func TestWrapText(t *testing.T) {
	assert.Nil(t, wrapText("", 27))
	assert.Nil(t, wrapText("   ", 27))

	// A word fits when line length plus one space stays within width.
	assert.Equal(t, []string{"ab cd"}, wrapText("ab cd", 5))
	assert.Equal(t, []string{"ab", "cde"}, wrapText("ab cde", 5))

	// Overlong words keep their own line and are never split.
	assert.Equal(t,
		[]string{"supercalifragilistic", "ok"},
		wrapText("supercalifragilistic ok", 10))
}

func TestParseISODate(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{"2026-03-14", time.Date(2026, 3, 14, 0, 0, 0, 0, time.Local)},
		{"2026-03-14T09:30", time.Date(2026, 3, 14, 9, 30, 0, 0, time.Local)},
		{"2026-03-14T09:30:15", time.Date(2026, 3, 14, 9, 30, 15, 0, time.Local)},
		{"2026-03-14T093015", time.Date(2026, 3, 14, 9, 30, 15, 0, time.Local)},
		{"2026-03-14T09:30:15Z", time.Date(2026, 3, 14, 9, 30, 15, 0, time.Local)},
	}
	for _, tc := range cases {
		got, ok := parseISODate(tc.in)
		require.True(t, ok, tc.in)
		assert.True(t, tc.want.Equal(got), tc.in)
	}

	_, ok := parseISODate("14.03.2026")
	assert.False(t, ok)
	_, ok = parseISODate("")
	assert.False(t, ok)
}
