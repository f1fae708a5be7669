package criteria

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/google/cel-go/cel"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-keyvalue/pkg/logging"
	"github.com/goliatone/go-repository-keyvalue/query"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/sirupsen/logrus"
)

// CELAccessor compiles CEL expressions into predicates. Expressions see two variables:
// key, the entry key, and value, the entry value in its JSON form. Field access on value
// uses JSON names:
//
//	value.year >= 1990 && value.title.startsWith("The")
//
// Compiled programs are kept per expression so repeated queries compile once.
type CELAccessor[K comparable, V any] struct {
	env      *cel.Env
	programs *xsync.MapOf[string, cel.Program]
	log      logrus.FieldLogger
}

// NewCELAccessor creates an accessor. A nil logger discards evaluation errors.
func NewCELAccessor[K comparable, V any](logger logrus.FieldLogger) (*CELAccessor[K, V], error) {
	env, err := cel.NewEnv(
		cel.Variable("key", cel.DynType),
		cel.Variable("value", cel.DynType),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "error creating CEL environment")
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &CELAccessor[K, V]{
		env:      env,
		programs: xsync.NewMapOf[string, cel.Program](),
		log:      logger,
	}, nil
}

// Compile turns expr into a predicate. An empty expression matches everything and yields a
// nil predicate. The expression must evaluate to a bool.
func (a *CELAccessor[K, V]) Compile(expr string) (query.Predicate[K, V], error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}

	program, ok := a.programs.Load(expr)
	if !ok {
		compiled, err := a.compile(expr)
		if err != nil {
			return nil, err
		}
		program, _ = a.programs.LoadOrStore(expr, compiled)
	}
	return &celPredicate[K, V]{expr: expr, program: program, log: a.log}, nil
}

func (a *CELAccessor[K, V]) compile(expr string) (cel.Program, error) {
	ast, issues := a.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, invalidExpression(issues.Err(), expr)
	}

	out := ast.OutputType()
	if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, goerrors.New("criteria expression must return a bool, got "+out.String(), goerrors.CategoryValidation).
			WithTextCode("INVALID_CRITERIA").
			WithMetadata(map[string]any{"expression": expr})
	}

	program, err := a.env.Program(ast)
	if err != nil {
		return nil, invalidExpression(err, expr)
	}
	return program, nil
}

func invalidExpression(err error, expr string) error {
	return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid criteria expression").
		WithTextCode("INVALID_CRITERIA").
		WithMetadata(map[string]any{"expression": expr})
}

type celPredicate[K comparable, V any] struct {
	expr    string
	program cel.Program
	log     logrus.FieldLogger
}

// Apply evaluates the program for entry. Entries that fail to evaluate do not match.
func (p *celPredicate[K, V]) Apply(entry query.Entry[K, V]) bool {
	value, err := jsonValue(entry.Value)
	if err != nil {
		p.log.WithError(err).WithField("expression", p.expr).Debug("criteria value not convertible")
		return false
	}

	out, _, err := p.program.Eval(map[string]any{
		"key":   entry.Key,
		"value": value,
	})
	if err != nil {
		p.log.WithError(err).WithField("expression", p.expr).Debug("criteria evaluation failed")
		return false
	}

	matched, ok := out.Value().(bool)
	return ok && matched
}

func (p *celPredicate[K, V]) CacheKey() string {
	return "cel(" + strconv.Quote(p.expr) + ")"
}

// jsonValue converts v to the maps, slices and scalars of its JSON encoding.
func jsonValue(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}
