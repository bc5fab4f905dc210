package rtbind

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL evaluator.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

type celProgram struct {
	env     *celgo.Env
	program celgo.Program
}

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	ctx = ctx.withDefaults()
	env := ctx.bindings()
	program, err := e.loadOrCompile(expression, env)
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, ctx.Key, err)
	}
	out, _, err := program.program.Eval(e.activation(env))
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, ctx.Key, err)
	}
	return celNative(out.Value()), nil
}

func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	return &celCompiledRule{
		evaluator:  e,
		expression: expression,
	}, nil
}

func (e *celEvaluator) loadOrCompile(expression string, bindings map[string]any) (*celProgram, error) {
	cacheKey := celCacheKey(expression, bindings)
	if e.cache != nil {
		if cached, ok := e.cache.Get(cacheKey); ok {
			if program, ok := cached.(*celProgram); ok {
				return program, nil
			}
		}
	}

	env, err := e.buildEnv(bindings)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Parse(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	checked, issues := env.Check(ast)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prg, err := env.Program(checked)
	if err != nil {
		return nil, err
	}

	bundle := &celProgram{
		env:     env,
		program: prg,
	}
	if e.cache != nil {
		e.cache.Set(cacheKey, bundle)
	}
	return bundle, nil
}

// celCacheKey includes the declared variable names, since a CEL program is
// checked against a fixed set of declarations.
func celCacheKey(expression string, bindings map[string]any) string {
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)
	return "cel|" + strings.Join(names, ",") + "|" + expression
}

func (e *celEvaluator) buildEnv(bindings map[string]any) (*celgo.Env, error) {
	opts := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("key", celgo.StringType),
	}
	if e.registry != nil {
		opts = append(opts, celgo.Function("call", celgo.Overload(
			"call_string_list",
			[]*celgo.Type{celgo.StringType, celgo.ListType(celgo.DynType)},
			celgo.DynType,
			celgo.BinaryBinding(e.callBinding()),
		)))
	}
	for name := range bindings {
		if name == "now" || name == "key" || !celIdentifier(name) {
			continue
		}
		opts = append(opts, celgo.Variable(name, celgo.DynType))
	}
	return celgo.NewEnv(opts...)
}

func (e *celEvaluator) activation(bindings map[string]any) map[string]any {
	activation := make(map[string]any, len(bindings))
	for name, value := range bindings {
		if !celIdentifier(name) {
			continue
		}
		activation[name] = value
	}
	return activation
}

var celReserved = map[string]struct{}{
	"true": {}, "false": {}, "null": {}, "in": {}, "as": {}, "break": {},
	"const": {}, "continue": {}, "else": {}, "for": {}, "function": {},
	"if": {}, "import": {}, "let": {}, "loop": {}, "package": {},
	"namespace": {}, "return": {}, "var": {}, "void": {}, "while": {},
}

// celIdentifier reports whether name can be declared as a CEL variable.
// Record attributes such as ".key" are skipped.
func celIdentifier(name string) bool {
	if name == "" {
		return false
	}
	if _, reserved := celReserved[name]; reserved {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// celNative unwraps CEL container results into plain Go maps and slices.
func celNative(value any) any {
	switch typed := value.(type) {
	case map[ref.Val]ref.Val:
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[fmt.Sprint(k.Value())] = celNative(v.Value())
		}
		return out
	case []ref.Val:
		out := make([]any, 0, len(typed))
		for _, v := range typed {
			out = append(out, celNative(v.Value()))
		}
		return out
	case ref.Val:
		return celNative(typed.Value())
	default:
		return value
	}
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	expression string
}

func (r *celCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil {
		return nil, fmt.Errorf("cel compiled rule missing evaluator")
	}
	ctx = ctx.withDefaults()
	env := ctx.bindings()
	program, err := r.evaluator.loadOrCompile(r.expression, env)
	if err != nil {
		return nil, wrapEvaluationError("cel", r.expression, ctx.Key, err)
	}
	out, _, err := program.program.Eval(r.evaluator.activation(env))
	if err != nil {
		return nil, wrapEvaluationError("cel", r.expression, ctx.Key, err)
	}
	return celNative(out.Value()), nil
}

// callBinding backs call(name, [args...]); CEL has no variadic functions.
func (e *celEvaluator) callBinding() func(ref.Val, ref.Val) ref.Val {
	return func(nameVal, argsVal ref.Val) ref.Val {
		if e.registry == nil {
			return types.NewErr("rtbind: function registry not configured")
		}
		name, ok := nameVal.Value().(string)
		if !ok {
			return types.NewErr("rtbind: call name must be string")
		}
		native, err := argsVal.ConvertToNative(reflect.TypeOf([]any{}))
		if err != nil {
			return types.NewErr("rtbind: call arguments: %v", err)
		}
		args, _ := native.([]any)
		for i, arg := range args {
			args[i] = celNative(arg)
		}
		result, err := e.registry.Call(name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}
