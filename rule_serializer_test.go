package rtbind

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

var serializerFactories = []struct {
	name string
	new  func(expression string, opts ...SerializerOption) (Serializer, error)
}{
	{name: "expr", new: ExprSerializer},
	{name: "cel", new: CELSerializer},
	{name: "js", new: JSSerializer},
}

func newTestSerializer(t *testing.T, factory func(string, ...SerializerOption) (Serializer, error), expression string, opts ...SerializerOption) Serializer {
	t.Helper()
	serialize, err := factory(expression, opts...)
	if errors.Is(err, ErrNoEvaluator) {
		t.Skip("evaluator not available in this build")
	}
	if err != nil {
		t.Fatalf("compile %q: %v", expression, err)
	}
	return serialize
}

func TestRuleSerializerShapesMappingResult(t *testing.T) {
	for _, factory := range serializerFactories {
		t.Run(factory.name, func(t *testing.T) {
			serialize := newTestSerializer(t, factory.new, `{"label": title + "!", "id": key}`)

			got := serialize(fakeSnapshot{key: "a", val: map[string]any{"title": "hi"}})

			want := Record{"label": "hi!", "id": "a", KeyField: "a"}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("expected %v, got %v", want, got)
			}
		})
	}
}

func TestRuleSerializerWrapsScalarResult(t *testing.T) {
	for _, factory := range serializerFactories {
		t.Run(factory.name, func(t *testing.T) {
			serialize := newTestSerializer(t, factory.new, `title + "?"`)

			got := serialize(fakeSnapshot{key: "a", val: map[string]any{"title": "why"}})

			if got[ValueField] != "why?" {
				t.Fatalf("expected wrapped scalar, got %v", got)
			}
			if key, _ := got.Key(); key != "a" {
				t.Fatalf("expected key a, got %q", key)
			}
		})
	}
}

func TestRuleSerializerArgsAndMetadata(t *testing.T) {
	for _, factory := range serializerFactories {
		t.Run(factory.name, func(t *testing.T) {
			serialize := newTestSerializer(t, factory.new, `args.prefix + metadata.suffix`,
				WithSerializerArgs(map[string]any{"prefix": "pre-"}),
				WithSerializerMetadata(map[string]any{"suffix": "post"}),
			)

			got := serialize(fakeSnapshot{key: "a", val: 1})

			if got[ValueField] != "pre-post" {
				t.Fatalf("expected args and metadata bound, got %v", got)
			}
		})
	}
}

func TestRuleSerializerFallsBackOnError(t *testing.T) {
	for _, factory := range serializerFactories {
		t.Run(factory.name, func(t *testing.T) {
			var handled error
			serialize := newTestSerializer(t, factory.new, `title.missing.deep`,
				WithSerializerErrorHandler(func(_ Snapshot, err error) { handled = err }),
			)

			got := serialize(fakeSnapshot{key: "a", val: map[string]any{"title": map[string]any{}}})

			want := Record{"title": map[string]any{}, KeyField: "a"}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("expected CreateRecord fallback %v, got %v", want, got)
			}
			if handled == nil {
				t.Fatalf("expected error handler to receive the failure")
			}
			var evalErr *EvaluationError
			if !errors.As(handled, &evalErr) || evalErr.Key != "a" {
				t.Fatalf("expected EvaluationError for key a, got %v", handled)
			}
		})
	}
}

func TestRuleSerializerClock(t *testing.T) {
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rule := &recordingRule{}
	serialize := NewRuleSerializer(rule, WithSerializerClock(func() time.Time { return fixed }))

	serialize(fakeSnapshot{key: "a", val: 1})

	if rule.last.Now == nil || !rule.last.Now.Equal(fixed) {
		t.Fatalf("expected fixed clock, got %v", rule.last.Now)
	}
	if rule.last.Key != "a" || rule.last.Value != 1 {
		t.Fatalf("expected snapshot in context, got %+v", rule.last)
	}
}

func TestExprSerializerFunctionsAndCache(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("shout", func(args ...any) (any, error) {
		text, _ := args[0].(string)
		return text + "!!", nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	cache := NewMemoryProgramCache()
	serialize, err := ExprSerializer(`shout(title)`,
		WithSerializerFunctions(registry),
		WithSerializerProgramCache(cache),
	)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	first := serialize(fakeSnapshot{key: "a", val: map[string]any{"title": "hey"}})
	second := serialize(fakeSnapshot{key: "b", val: map[string]any{"title": "yo"}})

	if first[ValueField] != "hey!!" || second[ValueField] != "yo!!" {
		t.Fatalf("unexpected results %v %v", first, second)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected one cached program, got %d", cache.Len())
	}
}

func TestCELSerializerCallFunction(t *testing.T) {
	registry := NewFunctionRegistry()
	if err := registry.Register("join", func(args ...any) (any, error) {
		out := ""
		for _, arg := range args {
			out += arg.(string)
		}
		return out, nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}
	serialize, err := CELSerializer(`call("join", [title, "-", key])`, WithSerializerFunctions(registry))
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	got := serialize(fakeSnapshot{key: "a", val: map[string]any{"title": "t"}})

	if got[ValueField] != "t-a" {
		t.Fatalf("expected registry call result, got %v", got)
	}
}

func TestJSSerializerAvailability(t *testing.T) {
	_, err := JSSerializer(`1`)
	if jsEvaluatorAvailable() {
		if err != nil {
			t.Fatalf("expected js serializer, got %v", err)
		}
		return
	}
	if !errors.Is(err, ErrNoEvaluator) {
		t.Fatalf("expected ErrNoEvaluator, got %v", err)
	}
}

func TestFunctionRegistryRejectsDuplicates(t *testing.T) {
	registry := NewFunctionRegistry()
	fn := func(...any) (any, error) { return nil, nil }
	if err := registry.Register("Fn", fn); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register("fn", fn); err == nil {
		t.Fatalf("expected duplicate name to fail")
	}
	if err := registry.Register("", fn); err == nil {
		t.Fatalf("expected empty name to fail")
	}
	if _, err := registry.Call("missing"); err == nil {
		t.Fatalf("expected unknown function to fail")
	}
}

type recordingRule struct {
	last RuleContext
}

func (r *recordingRule) Evaluate(ctx RuleContext) (any, error) {
	r.last = ctx
	return ctx.Value, nil
}

// keyEvaluator is a minimal Evaluator returning the upper-cased key.
type keyEvaluator struct {
	compileErr error
}

var _ Evaluator = keyEvaluator{}

func (e keyEvaluator) Evaluate(ctx RuleContext, _ string) (any, error) {
	return strings.ToUpper(ctx.Key), nil
}

func (e keyEvaluator) Compile(expression string) (CompiledRule, error) {
	if e.compileErr != nil {
		return nil, e.compileErr
	}
	return keyRule{evaluator: e, expression: expression}, nil
}

type keyRule struct {
	evaluator  keyEvaluator
	expression string
}

func (r keyRule) Evaluate(ctx RuleContext) (any, error) {
	return r.evaluator.Evaluate(ctx, r.expression)
}

func TestCompileSerializerAcceptsCustomEvaluator(t *testing.T) {
	serialize, err := compileSerializer(keyEvaluator{}, "upper", nil)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	got := serialize(fakeSnapshot{key: "a", val: 1})
	if got[ValueField] != "A" {
		t.Fatalf("expected custom evaluator result, got %v", got)
	}

	boom := errors.New("bad expression")
	if _, err := compileSerializer(keyEvaluator{compileErr: boom}, "upper", nil); !errors.Is(err, boom) {
		t.Fatalf("expected compile error, got %v", err)
	}
	if _, err := compileSerializer(nil, "upper", nil); !errors.Is(err, ErrNoEvaluator) {
		t.Fatalf("expected ErrNoEvaluator, got %v", err)
	}
}
