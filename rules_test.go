package record

import (
	"context"
	"errors"
	"testing"
)

var ruleEngineFactories = []struct {
	name string
	new  func(cache ProgramCache, registry *FunctionRegistry) Evaluator
}{
	{
		name: "expr",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []ExprEvaluatorOption{}
			if cache != nil {
				opts = append(opts, ExprWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, ExprWithFunctionRegistry(registry))
			}
			return NewExprEvaluator(opts...)
		},
	},
	{
		name: "cel",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []CELEvaluatorOption{}
			if cache != nil {
				opts = append(opts, CELWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, CELWithFunctionRegistry(registry))
			}
			return NewCELEvaluator(opts...)
		},
	},
	{
		name: "js",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []JSEvaluatorOption{}
			if cache != nil {
				opts = append(opts, JSWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, JSWithFunctionRegistry(registry))
			}
			return NewJSEvaluator(opts...)
		},
	},
}

func skipUnlessAvailable(t *testing.T, name string, evaluator Evaluator) {
	t.Helper()
	if evaluator == nil {
		if name == "js" && !jsEvaluatorAvailable() {
			t.Skip("js evaluator requires the js_eval build tag")
		}
		t.Fatalf("%s evaluator unavailable", name)
	}
}

func TestRuleAcceptsAndRejectsAcrossEngines(t *testing.T) {
	ctx := context.Background()
	for _, factory := range ruleEngineFactories {
		t.Run(factory.name, func(t *testing.T) {
			evaluator := factory.new(nil, nil)
			skipUnlessAvailable(t, factory.name, evaluator)

			shape := NewShape(
				WithRuleEvaluator(evaluator),
				WithRule("life_span", "value > 0"),
			)
			s := shape.Empty()

			if _, err := s.Set(ctx, "lifeSpan", 14); err != nil {
				t.Fatalf("valid value rejected: %v", err)
			}
			_, err := s.Set(ctx, "life-span", -2)
			vErr, ok := AsValidationError(err)
			if !ok {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Code != CodeRuleViolation {
				t.Fatalf("expected %q, got %q", CodeRuleViolation, vErr.Code)
			}
			if vErr.Details["property"] != "lifeSpan" {
				t.Fatalf("expected normalized property in details, got %v", vErr.Details)
			}
		})
	}
}

func TestRuleSeesSiblingProperties(t *testing.T) {
	ctx := context.Background()
	for _, factory := range ruleEngineFactories {
		t.Run(factory.name, func(t *testing.T) {
			evaluator := factory.new(nil, nil)
			skipUnlessAvailable(t, factory.name, evaluator)

			shape := NewShape(
				WithRuleEvaluator(evaluator),
				WithRule("weight", `value > 0 && unit == "kg"`),
			)
			s, err := shape.New(map[string]any{"unit": "kg"})
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if _, err := s.Set(ctx, "weight", 4); err != nil {
				t.Fatalf("rule with sibling reference failed: %v", err)
			}

			s.Raw()["unit"] = "lb"
			if _, err := s.Set(ctx, "weight", 4); err == nil {
				t.Fatal("expected rejection when sibling changes")
			}
		})
	}
}

func TestRuleNonBooleanResultIsViolation(t *testing.T) {
	ctx := context.Background()
	shape := NewShape(WithRule("name", `"not a bool"`))
	s := shape.Empty()

	_, err := s.Set(ctx, "name", "x")
	vErr, ok := AsValidationError(err)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if vErr.Code != CodeRuleViolation {
		t.Fatalf("expected %q, got %q", CodeRuleViolation, vErr.Code)
	}
}

func TestRuleDefaultsToExprEvaluator(t *testing.T) {
	ctx := context.Background()
	shape := NewShape(WithRule("age", "value >= 0"))
	s := shape.Empty()

	if _, err := s.Set(ctx, "age", 3); err != nil {
		t.Fatalf("default evaluator failed: %v", err)
	}
	if _, err := s.Set(ctx, "age", -1); err == nil {
		t.Fatal("expected rejection from default evaluator")
	}
}

func TestRuleRunsBeforeCustomValidator(t *testing.T) {
	ctx := context.Background()
	validatorRan := false
	shape := NewShape(
		WithRule("age", "value >= 0"),
		WithValidator("age", func(ctx context.Context, s *Store, value any) error {
			validatorRan = true
			return nil
		}),
	)
	s := shape.Empty()

	if _, err := s.Set(ctx, "age", -1); err == nil {
		t.Fatal("expected rule rejection")
	}
	if validatorRan {
		t.Fatal("custom validator must not run after rule rejection")
	}

	if _, err := s.Set(ctx, "age", 1); err != nil {
		t.Fatalf("valid value rejected: %v", err)
	}
	if !validatorRan {
		t.Fatal("custom validator must run after rule acceptance")
	}
}

func TestRuleCustomFunctions(t *testing.T) {
	ctx := context.Background()
	registry := NewFunctionRegistry()
	if err := registry.Register("positive", func(args ...any) (any, error) {
		if len(args) != 1 {
			return false, errors.New("positive expects one argument")
		}
		n, ok := args[0].(int)
		return ok && n > 0, nil
	}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	shape := NewShape(
		WithFunctionRegistry(registry),
		WithRule("count", "positive(value)"),
	)
	s := shape.Empty()

	if _, err := s.Set(ctx, "count", 2); err != nil {
		t.Fatalf("custom function rule failed: %v", err)
	}
	if _, err := s.Set(ctx, "count", -2); err == nil {
		t.Fatal("expected rejection via custom function")
	}
}

func TestRuleProgramCacheIsUsed(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryProgramCache()
	shape := NewShape(
		WithProgramCache(cache),
		WithRule("age", "value >= 0"),
	)
	s := shape.Empty()

	if _, err := s.Set(ctx, "age", 1); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, ok := cache.Get("value >= 0"); !ok {
		t.Fatal("expected compiled program in cache")
	}
	if _, err := s.Set(ctx, "age", 2); err != nil {
		t.Fatalf("cached Set failed: %v", err)
	}
}

func TestWithCustomFunctionOption(t *testing.T) {
	ctx := context.Background()
	shape := NewShape(
		WithCustomFunction("allowed", func(args ...any) (any, error) {
			return args[0] == "ok", nil
		}),
		WithRule("status", "allowed(value)"),
	)
	s := shape.Empty()

	if _, err := s.Set(ctx, "status", "ok"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := s.Set(ctx, "status", "nope"); err == nil {
		t.Fatal("expected rejection")
	}
}

func TestEvaluationErrorMetadata(t *testing.T) {
	evaluator := NewExprEvaluator()
	_, err := evaluator.Evaluate(RuleContext{Property: "age"}, "value ??! garbage")
	if err == nil {
		t.Fatal("expected compile error")
	}
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("expected *EvaluationError, got %T", err)
	}
	if evalErr.Engine != "expr" {
		t.Fatalf("expected engine expr, got %q", evalErr.Engine)
	}
}
