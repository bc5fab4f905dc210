package rtbind

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrKeyNotFound reports a child event whose key is not in the local array.
	ErrKeyNotFound = errors.New("rtbind: key not found")
	// ErrNoEvaluator reports an expression serializer built without an evaluator.
	ErrNoEvaluator = errors.New("rtbind: evaluator not configured")
)

// MissError describes a child event that referenced a key absent from the
// bound array. The event is dropped.
type MissError struct {
	Event EventType
	Key   string
}

func (e *MissError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("rtbind: %s key=%q: %v", e.Event, e.Key, ErrKeyNotFound)
}

func (e *MissError) Unwrap() error {
	if e == nil {
		return nil
	}
	return ErrKeyNotFound
}

// EvaluationError captures evaluator metadata alongside the originating error.
type EvaluationError struct {
	Engine string
	Expr   string
	Key    string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("rtbind: %s evaluator %s key=%s: %v", e.Engine, describeExpression(e.Expr), e.Key, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describeExpression(expr string) string {
	if expr == "" {
		return "expr=<empty>"
	}
	return fmt.Sprintf("expr=%q", expr)
}

func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}

	if strings.HasPrefix(err.Error(), "rtbind:") {
		return err
	}
	return fmt.Errorf("rtbind: %s evaluator: %w", engine, err)
}

func wrapEvaluationError(engine, expr, key string, err error) error {
	if err == nil {
		return nil
	}

	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		if evalErr.Key == "" {
			evalErr.Key = key
		}
		return evalErr
	}

	return &EvaluationError{
		Engine: engine,
		Expr:   expr,
		Key:    key,
		Err:    err,
	}
}
