package adapters

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hornetworks/aspcache/asp/solve/funcs"
	ports "github.com/hornetworks/aspcache/asp/solve/ports"
)

func testEngine() *MangleEngine {
	return NewMangleEngine(funcs.Builtins(), 0, zerolog.Nop())
}

func TestMangleEngine_SolveSimpleProgram(t *testing.T) {
	e := testEngine()
	parts := []ports.Part{{
		Name: "__query__",
		Text: "parent(/alice, /bob).\n" +
			"parent(/bob, /carol).\n" +
			"ancestor(X, Y) :- parent(X, Y).\n" +
			"ancestor(X, Z) :- parent(X, Y), ancestor(Y, Z).",
	}}

	res, err := e.Solve(context.Background(), parts)
	require.NoError(t, err)
	require.Len(t, res.Answers, 1)
	assert.Contains(t, res.Answers[0], "ancestor(")
	assert.Contains(t, res.Answers[0], "/carol")
	assert.Empty(t, res.Diagnostics.Errors)
	assert.False(t, res.UsedCurrentDate)
}

func TestMangleEngine_EmptyProgram(t *testing.T) {
	e := testEngine()

	res, err := e.Solve(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []string{""}, res.Answers)

	res, err = e.Solve(context.Background(), []ports.Part{{Name: "blank", Text: "   \n  "}})
	require.NoError(t, err)
	assert.Equal(t, []string{""}, res.Answers)
}

func TestMangleEngine_SyntaxErrorNamesOffendingPart(t *testing.T) {
	e := testEngine()
	parts := []ports.Part{
		{Name: "good", Text: "p(1)."},
		{Name: "bad", Text: "this is ( not a program"},
	}

	res, err := e.Solve(context.Background(), parts)
	require.Error(t, err)
	assert.Equal(t, "bad", res.OffendingPart)
	assert.NotEmpty(t, res.Diagnostics.Errors)
	assert.Empty(t, res.Answers)
}

func TestMangleEngine_FunctionExpansion(t *testing.T) {
	e := testEngine()
	parts := []ports.Part{{Name: "__query__", Text: `label(@concatenate("a-", 1)).`}}

	res, err := e.Solve(context.Background(), parts)
	require.NoError(t, err)
	require.Len(t, res.Answers, 1)
	assert.Contains(t, res.Answers[0], "a-1")
}

func TestMangleEngine_NestedFunctionExpansion(t *testing.T) {
	e := testEngine()
	parts := []ports.Part{{
		Name: "__query__",
		Text: `label(@concatenate("a", @concatenate("b", "c"))).`,
	}}

	res, err := e.Solve(context.Background(), parts)
	require.NoError(t, err)
	assert.Contains(t, res.Answers[0], "abc")
}

func TestMangleEngine_UnknownFunctionDropsStatement(t *testing.T) {
	e := testEngine()
	parts := []ports.Part{{
		Name: "__query__",
		Text: "p(@nosuch(\"x\")).\nq(1).",
	}}

	res, err := e.Solve(context.Background(), parts)
	require.NoError(t, err)
	require.Len(t, res.Answers, 1)
	assert.Contains(t, res.Answers[0], "q(")
	assert.NotContains(t, res.Answers[0], "p(")
	require.NotEmpty(t, res.Diagnostics.Warnings)
	assert.Contains(t, res.Diagnostics.Warnings[0], "nosuch")
}

func TestMangleEngine_DateFunctionRaisesFlag(t *testing.T) {
	e := testEngine()

	res, err := e.Solve(context.Background(), []ports.Part{{
		Name: "__query__",
		Text: "built(@today()).",
	}})
	require.NoError(t, err)
	assert.True(t, res.UsedCurrentDate)

	res, err = e.Solve(context.Background(), []ports.Part{{
		Name: "__query__",
		Text: `built(@concatenate("now")).`,
	}})
	require.NoError(t, err)
	assert.False(t, res.UsedCurrentDate)
}

func TestMangleEngine_HandlerErrorNamesOffendingPart(t *testing.T) {
	e := testEngine()
	parts := []ports.Part{
		{Name: "fine", Text: "p(1)."},
		{Name: "broken", Text: "x(@wrap())."},
	}

	res, err := e.Solve(context.Background(), parts)
	require.Error(t, err)
	assert.Equal(t, "broken", res.OffendingPart)
	assert.Contains(t, err.Error(), "wrap")
}

func TestMangleEngine_MultiValueDuplicatesLine(t *testing.T) {
	registry := funcs.NewRegistry()
	registry.Register("pair", func(args []funcs.Value) ([]funcs.Value, error) {
		return []funcs.Value{funcs.NumberValue(1), funcs.NumberValue(2)}, nil
	})
	e := NewMangleEngine(registry, 0, zerolog.Nop())

	res, err := e.Solve(context.Background(), []ports.Part{{
		Name: "__query__",
		Text: "v(@pair()).",
	}})
	require.NoError(t, err)
	assert.Contains(t, res.Answers[0], "v(1)")
	assert.Contains(t, res.Answers[0], "v(2)")
}

func TestMangleEngine_CanceledContext(t *testing.T) {
	e := testEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Solve(ctx, []ports.Part{{Name: "__query__", Text: "p(1)."}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExpandPart_ZeroValuesDropLine(t *testing.T) {
	registry := funcs.NewRegistry()
	registry.Register("nothing", func(args []funcs.Value) ([]funcs.Value, error) {
		return nil, nil
	})
	state := &groundState{registry: registry}

	out, err := state.expandPart("keep(1).\ngone(@nothing()).\nkeep(2).")
	require.NoError(t, err)
	assert.Equal(t, "keep(1).\nkeep(2).", out)
	assert.Empty(t, state.warnings, "silent drop, not a warning")
}

func TestExpandPart_NonLiteralArgumentDropsWithWarning(t *testing.T) {
	state := &groundState{registry: funcs.Builtins()}

	out, err := state.expandPart("p(@concatenate(X)) :- q(X).")
	require.NoError(t, err)
	assert.Equal(t, "", out)
	require.NotEmpty(t, state.warnings)
	assert.Contains(t, state.warnings[0], "not a literal")
}

func TestExpandLine_DepthLimit(t *testing.T) {
	registry := funcs.NewRegistry()
	registry.Register("loop", func(args []funcs.Value) ([]funcs.Value, error) {
		return []funcs.Value{funcs.StringValue("@loop()")}, nil
	})
	state := &groundState{registry: registry}

	_, _, err := state.expandLine("p(@loop()).", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "depth")
}

func TestSplitArgs(t *testing.T) {
	assert.Equal(t, []string{`"a,b"`, ` 1`}, splitArgs(`"a,b", 1`))
	assert.Equal(t, []string{`"a\",b"`}, splitArgs(`"a\",b"`))
	assert.Equal(t, []string{"1", " 2", " 3"}, splitArgs("1, 2, 3"))
}

func TestParseArgValue(t *testing.T) {
	v, err := parseArgValue(`"hi"`)
	require.NoError(t, err)
	assert.Equal(t, funcs.StringValue("hi"), v)

	v, err = parseArgValue("-7")
	require.NoError(t, err)
	assert.Equal(t, funcs.NumberValue(-7), v)

	v, err = parseArgValue("1.5")
	require.NoError(t, err)
	assert.Equal(t, funcs.FloatValue(1.5), v)

	v, err = parseArgValue("/name/const")
	require.NoError(t, err)
	assert.Equal(t, funcs.StringValue("/name/const"), v)

	_, err = parseArgValue("Variable")
	assert.Error(t, err)
	_, err = parseArgValue(`"unterminated`)
	assert.Error(t, err)
}
