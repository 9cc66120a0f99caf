package adapters

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	mengine "github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"
	"github.com/rs/zerolog"

	"github.com/hornetworks/aspcache/asp/solve/funcs"
	ports "github.com/hornetworks/aspcache/asp/solve/ports"
)

// DefaultFactLimit caps the facts one evaluation may derive when no
// explicit limit is configured.
const DefaultFactLimit = 500000

// maxExpandDepth bounds nested function expansion within one line.
const maxExpandDepth = 16

// callPattern matches the innermost function call on a line: a name
// directly followed by an argument list containing no parentheses.
var callPattern = regexp.MustCompile(`@([A-Za-z_][A-Za-z0-9_]*)\(([^()]*)\)`)

// nameTokenPattern accepts bare constants and name constants as
// function arguments, passed to handlers as their literal text.
var nameTokenPattern = regexp.MustCompile(`^/?[a-z_][a-zA-Z0-9_/]*$`)

// MangleEngine evaluates assembled programs with the embedded Mangle
// datalog engine. Function calls are expanded by text substitution
// before parsing, so handlers only ever see literal arguments.
type MangleEngine struct {
	registry  *funcs.Registry
	factLimit int
	logger    zerolog.Logger
}

// NewMangleEngine creates an engine using the given function registry.
// A non-positive factLimit falls back to DefaultFactLimit.
func NewMangleEngine(registry *funcs.Registry, factLimit int, logger zerolog.Logger) *MangleEngine {
	if registry == nil {
		registry = funcs.NewRegistry()
	}
	if factLimit <= 0 {
		factLimit = DefaultFactLimit
	}
	return &MangleEngine{
		registry:  registry,
		factLimit: factLimit,
		logger:    logger.With().Str("component", "mangle_engine").Logger(),
	}
}

// Solve expands, parses, analyzes and evaluates the program assembled
// from parts. Syntax problems are attributed to the part that carries
// them; later failures apply to the program as a whole.
func (e *MangleEngine) Solve(ctx context.Context, parts []ports.Part) (ports.EngineResult, error) {
	res := ports.EngineResult{}
	state := &groundState{registry: e.registry}

	submitStart := time.Now()
	expanded := make([]string, 0, len(parts))
	for _, part := range parts {
		text, err := state.expandPart(part.Text)
		if err != nil {
			res.Submit = time.Since(submitStart)
			res.OffendingPart = part.Name
			res.UsedCurrentDate = state.usedDate
			res.Diagnostics = state.diagnostics(err)
			return res, fmt.Errorf("failed to expand part %q: %w", part.Name, err)
		}
		if strings.TrimSpace(text) != "" {
			if _, err := parse.Unit(strings.NewReader(text)); err != nil {
				res.Submit = time.Since(submitStart)
				res.OffendingPart = part.Name
				res.UsedCurrentDate = state.usedDate
				res.Diagnostics = state.diagnostics(err)
				return res, fmt.Errorf("failed to parse part %q: %w", part.Name, err)
			}
		}
		expanded = append(expanded, text)
	}
	res.Submit = time.Since(submitStart)
	res.UsedCurrentDate = state.usedDate

	if err := ctx.Err(); err != nil {
		res.Diagnostics = state.diagnostics(err)
		return res, err
	}

	program := strings.Join(expanded, "\n")
	if strings.TrimSpace(program) == "" {
		res.Answers = []string{""}
		res.Diagnostics = state.diagnostics(nil)
		return res, nil
	}

	groundStart := time.Now()
	unit, err := parse.Unit(strings.NewReader(program))
	if err != nil {
		res.Ground = time.Since(groundStart)
		res.Diagnostics = state.diagnostics(err)
		return res, fmt.Errorf("failed to parse program: %w", err)
	}
	info, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		res.Ground = time.Since(groundStart)
		res.Diagnostics = state.diagnostics(err)
		return res, fmt.Errorf("failed to analyze program: %w", err)
	}
	res.Ground = time.Since(groundStart)

	if err := ctx.Err(); err != nil {
		res.Diagnostics = state.diagnostics(err)
		return res, err
	}

	solveStart := time.Now()
	store := factstore.NewSimpleInMemoryStore()
	stats, err := mengine.EvalProgramWithStats(info, store, mengine.WithCreatedFactLimit(e.factLimit))
	if err != nil {
		res.Solve = time.Since(solveStart)
		res.Diagnostics = state.diagnostics(err)
		return res, fmt.Errorf("failed to evaluate program: %w", err)
	}
	answer := renderFacts(store)
	res.Solve = time.Since(solveStart)

	// Stratified evaluation yields exactly one model. An empty model is
	// still an answer.
	res.Answers = []string{answer}
	res.Diagnostics = state.diagnostics(nil)

	e.logger.Debug().
		Int("parts", len(parts)).
		Int("strata", len(stats.Strata)).
		Dur("solve", res.Solve).
		Msg("program evaluated")

	return res, nil
}

// groundState carries the per-solve expansion bookkeeping so one engine
// can serve concurrent solves.
type groundState struct {
	registry *funcs.Registry
	usedDate bool
	warnings []string
}

func (s *groundState) diagnostics(err error) ports.Diagnostics {
	d := ports.Diagnostics{Warnings: s.warnings}
	if err != nil {
		d.Errors = []string{err.Error()}
	}
	return d
}

func (s *groundState) warnf(format string, args ...any) {
	s.warnings = append(s.warnings, fmt.Sprintf(format, args...))
}

// expandPart rewrites every function call in the part's text. Lines
// whose calls cannot be evaluated to at least one value are dropped,
// matching grounding semantics where an empty expansion removes the
// statement.
func (s *groundState) expandPart(text string) (string, error) {
	if !strings.Contains(text, "@") {
		return text, nil
	}

	var out []string
	for _, line := range strings.Split(text, "\n") {
		expanded, keep, err := s.expandLine(line, 0)
		if err != nil {
			return "", err
		}
		if keep {
			out = append(out, expanded)
		}
	}
	return strings.Join(out, "\n"), nil
}

// expandLine resolves the innermost call on the line and recurses until
// no calls remain. A call returning several values duplicates the line
// once per value.
func (s *groundState) expandLine(line string, depth int) (string, bool, error) {
	loc := callPattern.FindStringSubmatchIndex(line)
	if loc == nil {
		return line, true, nil
	}
	if depth >= maxExpandDepth {
		return "", false, fmt.Errorf("function expansion exceeded depth %d", maxExpandDepth)
	}

	name := line[loc[2]:loc[3]]
	handler, ok := s.registry.Lookup(name)
	if !ok {
		s.warnf("unknown function @%s, statement dropped", name)
		return "", false, nil
	}

	args, err := parseArgs(line[loc[4]:loc[5]])
	if err != nil {
		s.warnf("cannot evaluate @%s: %v, statement dropped", name, err)
		return "", false, nil
	}

	if s.registry.IsDateDependent(name) {
		s.usedDate = true
	}

	values, err := handler(args)
	if err != nil {
		return "", false, fmt.Errorf("function @%s: %w", name, err)
	}

	// No values grounds the statement to nothing.
	if len(values) == 0 {
		return "", false, nil
	}

	if len(values) == 1 {
		rewritten := line[:loc[0]] + values[0].Render() + line[loc[1]:]
		return s.expandLine(rewritten, depth+1)
	}

	var lines []string
	for _, v := range values {
		rewritten := line[:loc[0]] + v.Render() + line[loc[1]:]
		expanded, keep, err := s.expandLine(rewritten, depth+1)
		if err != nil {
			return "", false, err
		}
		if keep {
			lines = append(lines, expanded)
		}
	}
	if len(lines) == 0 {
		return "", false, nil
	}
	return strings.Join(lines, "\n"), true, nil
}

// parseArgs evaluates a call's argument list to literal values.
func parseArgs(src string) ([]funcs.Value, error) {
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}

	tokens := splitArgs(src)
	values := make([]funcs.Value, 0, len(tokens))
	for _, token := range tokens {
		v, err := parseArgValue(strings.TrimSpace(token))
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// splitArgs splits on commas outside string literals.
func splitArgs(src string) []string {
	var (
		args    []string
		inStr   bool
		escaped bool
		start   int
	)
	for i := 0; i < len(src); i++ {
		switch {
		case escaped:
			escaped = false
		case src[i] == '\\' && inStr:
			escaped = true
		case src[i] == '"':
			inStr = !inStr
		case src[i] == ',' && !inStr:
			args = append(args, src[start:i])
			start = i + 1
		}
	}
	return append(args, src[start:])
}

func parseArgValue(token string) (funcs.Value, error) {
	if token == "" {
		return funcs.Value{}, fmt.Errorf("empty argument")
	}
	if token[0] == '"' {
		s, err := strconv.Unquote(token)
		if err != nil {
			return funcs.Value{}, fmt.Errorf("malformed string literal %s", token)
		}
		return funcs.StringValue(s), nil
	}
	if n, err := strconv.ParseInt(token, 10, 64); err == nil {
		return funcs.NumberValue(n), nil
	}
	if f, err := strconv.ParseFloat(token, 64); err == nil {
		return funcs.FloatValue(f), nil
	}
	if nameTokenPattern.MatchString(token) {
		return funcs.StringValue(token), nil
	}
	return funcs.Value{}, fmt.Errorf("argument %q is not a literal", token)
}

// renderFacts lists every derived fact in lexicographic order, one atom
// per line, so equal programs always render equal answers.
func renderFacts(store factstore.FactStore) string {
	var atoms []string
	for _, pred := range store.ListPredicates() {
		_ = store.GetFacts(ast.NewQuery(pred), func(a ast.Atom) error {
			atoms = append(atoms, a.String())
			return nil
		})
	}
	sort.Strings(atoms)
	return strings.Join(atoms, "\n")
}

var _ ports.Engine = (*MangleEngine)(nil)
