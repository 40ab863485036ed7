package record

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNoEvaluator is returned when a rule needs an evaluator and none could be
// constructed.
var ErrNoEvaluator = errors.New("record: evaluator not configured")

// ruleValidator turns the expressions attached to a property into a Validator
// that evaluates each one in registration order. A rule rejects the write
// when it errors, yields false, or yields anything other than a boolean.
func (sh *Shape) ruleValidator(property string, expressions []string) Validator {
	if len(expressions) == 0 {
		return nil
	}
	return func(ctx context.Context, s *Store, value any) error {
		for _, expression := range expressions {
			if err := sh.evaluateRule(s, property, expression, value); err != nil {
				return err
			}
		}
		return nil
	}
}

func (sh *Shape) evaluateRule(s *Store, property, expression string, value any) error {
	evaluator, err := sh.resolveEvaluator()
	if err != nil {
		return err
	}
	rctx := RuleContext{
		Value:    value,
		Property: property,
		Record:   s.snapshot(),
	}.withDefaults()

	engine := evaluatorEngineName(evaluator)
	start := time.Now()
	result, evalErr := evaluator.Evaluate(rctx, expression)
	evalErr = wrapEvaluationError(engine, expression, property, evalErr)
	sh.accessLogger().LogAccess(AccessEvent{
		Op:       OpRule,
		Property: property,
		Key:      property,
		Engine:   engine,
		Expr:     expression,
		Duration: time.Since(start),
		Err:      evalErr,
	})
	if evalErr != nil {
		if vErr, ok := AsValidationError(evalErr); ok {
			return vErr
		}
		return &ValidationError{
			Message: fmt.Sprintf("rule for property %s failed: %v", property, evalErr),
			Details: map[string]any{
				"property":   property,
				"expression": expression,
				"error":      evalErr.Error(),
			},
			Code: CodeRuleViolation,
		}
	}

	pass, ok := result.(bool)
	if !ok {
		return &ValidationError{
			Message: fmt.Sprintf("rule for property %s returned non-boolean %T", property, result),
			Details: map[string]any{
				"property":   property,
				"expression": expression,
				"result":     result,
			},
			Code: CodeRuleViolation,
		}
	}
	if !pass {
		return &ValidationError{
			Message: fmt.Sprintf("property %s rejected by rule", property),
			Details: map[string]any{
				"property":   property,
				"expression": expression,
				"value":      value,
			},
			Code: CodeRuleViolation,
		}
	}
	return nil
}

func (sh *Shape) resolveEvaluator() (Evaluator, error) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.evaluator != nil {
		return sh.evaluator, nil
	}
	var exprOpts []ExprEvaluatorOption
	if sh.programCache != nil {
		exprOpts = append(exprOpts, ExprWithProgramCache(sh.programCache))
	}
	if sh.functions != nil {
		exprOpts = append(exprOpts, ExprWithFunctionRegistry(sh.functions))
	}
	defaultEvaluator := NewExprEvaluator(exprOpts...)
	if defaultEvaluator == nil {
		return nil, ErrNoEvaluator
	}
	sh.evaluator = defaultEvaluator
	return defaultEvaluator, nil
}

func evaluatorEngineName(e Evaluator) string {
	if e == nil {
		return "unknown"
	}
	switch fmt.Sprintf("%T", e) {
	case "*record.exprEvaluator":
		return "expr"
	case "*record.celEvaluator":
		return "cel"
	case "*record.jsEvaluator":
		return "js"
	default:
		return "custom"
	}
}
