package rtbind

import "time"

// SerializerOption configures an expression serializer.
type SerializerOption func(*serializerConfig)

type serializerConfig struct {
	args     map[string]any
	metadata map[string]any
	cache    ProgramCache
	registry *FunctionRegistry
	onError  func(Snapshot, error)
	now      func() time.Time
}

// WithSerializerArgs exposes args to the expression as `args`.
func WithSerializerArgs(args map[string]any) SerializerOption {
	return func(cfg *serializerConfig) {
		cfg.args = args
	}
}

// WithSerializerMetadata exposes metadata to the expression as `metadata`.
func WithSerializerMetadata(metadata map[string]any) SerializerOption {
	return func(cfg *serializerConfig) {
		cfg.metadata = metadata
	}
}

// WithSerializerProgramCache shares compiled programs across serializers.
func WithSerializerProgramCache(cache ProgramCache) SerializerOption {
	return func(cfg *serializerConfig) {
		cfg.cache = cache
	}
}

// WithSerializerFunctions makes the registry's functions callable from the
// expression.
func WithSerializerFunctions(registry *FunctionRegistry) SerializerOption {
	return func(cfg *serializerConfig) {
		if registry == nil {
			return
		}
		cfg.registry = registry.Clone()
	}
}

// WithSerializerErrorHandler receives evaluation errors. The snapshot is still
// serialized with CreateRecord.
func WithSerializerErrorHandler(fn func(Snapshot, error)) SerializerOption {
	return func(cfg *serializerConfig) {
		cfg.onError = fn
	}
}

// WithSerializerClock overrides the `now` binding.
func WithSerializerClock(now func() time.Time) SerializerOption {
	return func(cfg *serializerConfig) {
		cfg.now = now
	}
}

func applySerializerOptions(opts []SerializerOption) serializerConfig {
	cfg := serializerConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// NewRuleSerializer returns a Serializer that evaluates rule for every
// snapshot and shapes the result like CreateRecord does. Evaluation errors
// fall back to CreateRecord.
func NewRuleSerializer(rule CompiledRule, opts ...SerializerOption) Serializer {
	cfg := applySerializerOptions(opts)
	return func(snapshot Snapshot) Record {
		if snapshot == nil || rule == nil {
			return CreateRecord(snapshot)
		}
		ctx := RuleContext{
			Key:      snapshot.Key(),
			Value:    snapshot.Val(),
			Args:     cfg.args,
			Metadata: cfg.metadata,
		}
		if cfg.now != nil {
			now := cfg.now()
			ctx.Now = &now
		}
		result, err := rule.Evaluate(ctx)
		if err != nil {
			if cfg.onError != nil {
				cfg.onError(snapshot, err)
			}
			return CreateRecord(snapshot)
		}
		return shapeRecord(ctx.Key, result)
	}
}

// ExprSerializer compiles expression with expr-lang/expr.
func ExprSerializer(expression string, opts ...SerializerOption) (Serializer, error) {
	cfg := applySerializerOptions(opts)
	var exprOpts []ExprEvaluatorOption
	if cfg.cache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(cfg.cache))
	}
	if cfg.registry != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(cfg.registry))
	}
	return compileSerializer(NewExprEvaluator(exprOpts...), expression, opts)
}

// CELSerializer compiles expression with cel-go. Variables are declared from
// each payload, so type errors surface at evaluation time.
func CELSerializer(expression string, opts ...SerializerOption) (Serializer, error) {
	cfg := applySerializerOptions(opts)
	var celOpts []CELEvaluatorOption
	if cfg.cache != nil {
		celOpts = append(celOpts, CELWithProgramCache(cfg.cache))
	}
	if cfg.registry != nil {
		celOpts = append(celOpts, CELWithFunctionRegistry(cfg.registry))
	}
	return compileSerializer(NewCELEvaluator(celOpts...), expression, opts)
}

// JSSerializer compiles expression with goja. It returns ErrNoEvaluator unless
// built with the js_eval tag.
func JSSerializer(expression string, opts ...SerializerOption) (Serializer, error) {
	if !jsEvaluatorAvailable() {
		return nil, ErrNoEvaluator
	}
	cfg := applySerializerOptions(opts)
	var jsOpts []JSEvaluatorOption
	if cfg.cache != nil {
		jsOpts = append(jsOpts, JSWithProgramCache(cfg.cache))
	}
	if cfg.registry != nil {
		jsOpts = append(jsOpts, JSWithFunctionRegistry(cfg.registry))
	}
	return compileSerializer(NewJSEvaluator(jsOpts...), expression, opts)
}

func compileSerializer(evaluator Evaluator, expression string, opts []SerializerOption) (Serializer, error) {
	if evaluator == nil {
		return nil, ErrNoEvaluator
	}
	rule, err := evaluator.Compile(expression)
	if err != nil {
		return nil, err
	}
	return NewRuleSerializer(rule, opts...), nil
}
