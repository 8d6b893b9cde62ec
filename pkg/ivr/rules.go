package ivr

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/connectline-io/switchboard/pkg/signals"
	"github.com/connectline-io/switchboard/pkg/tenants"
)

// RuleInput is the signal set a routing rule is evaluated against.
type RuleInput struct {
	Intent    signals.Intent
	Sentiment float64
	Tier      tenants.CustomerTier
	Hour      int
	Input     string
}

// RuleEvaluator evaluates tenant routing rules, including the CEL
// expression kind. Compiled CEL programs are cached per expression.
type RuleEvaluator struct {
	env   *cel.Env
	mu    sync.RWMutex
	cache map[string]cel.Program
}

// NewRuleEvaluator creates an evaluator with the rule environment:
// intent, tier and input as strings, sentiment as a double, hour as an
// int.
func NewRuleEvaluator() (*RuleEvaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("intent", cel.StringType),
		cel.Variable("sentiment", cel.DoubleType),
		cel.Variable("tier", cel.StringType),
		cel.Variable("hour", cel.IntType),
		cel.Variable("input", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("ivr: failed to create rule environment: %w", err)
	}
	return &RuleEvaluator{
		env:   env,
		cache: make(map[string]cel.Program),
	}, nil
}

// Evaluate reports whether the rule matches the input.
func (e *RuleEvaluator) Evaluate(rule tenants.RoutingRule, in RuleInput) (bool, error) {
	switch rule.Condition {
	case tenants.CondIntent:
		return compareString(string(in.Intent), rule.Operator, rule.Value)
	case tenants.CondSentiment:
		return compareNumber(in.Sentiment, rule.Operator, rule.Value)
	case tenants.CondTier:
		return compareString(string(in.Tier), rule.Operator, rule.Value)
	case tenants.CondTimeOfDay:
		return compareNumber(float64(in.Hour), rule.Operator, rule.Value)
	case tenants.CondKeyword:
		return compareKeyword(in.Input, rule.Operator, rule.Value)
	case tenants.CondExpression:
		return e.evaluateExpression(rule, in)
	default:
		return false, fmt.Errorf("ivr: unknown rule condition %q", rule.Condition)
	}
}

func (e *RuleEvaluator) evaluateExpression(rule tenants.RoutingRule, in RuleInput) (bool, error) {
	expr, ok := rule.Value.(string)
	if !ok {
		return false, fmt.Errorf("ivr: expression rule value must be a string, got %T", rule.Value)
	}

	prg, err := e.program(expr)
	if err != nil {
		return false, err
	}

	out, _, err := prg.Eval(map[string]any{
		"intent":    string(in.Intent),
		"sentiment": in.Sentiment,
		"tier":      string(in.Tier),
		"hour":      in.Hour,
		"input":     in.Input,
	})
	if err != nil {
		return false, fmt.Errorf("ivr: expression evaluation failed: %w", err)
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("ivr: expression %q did not return a bool", expr)
	}
	return matched, nil
}

func (e *RuleEvaluator) program(expr string) (cel.Program, error) {
	e.mu.RLock()
	prg, ok := e.cache[expr]
	e.mu.RUnlock()
	if ok {
		return prg, nil
	}

	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("ivr: failed to compile expression %q: %w", expr, issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("ivr: failed to build program for %q: %w", expr, err)
	}

	e.mu.Lock()
	e.cache[expr] = prg
	e.mu.Unlock()
	return prg, nil
}

func compareString(actual string, op tenants.Operator, value any) (bool, error) {
	expected, ok := value.(string)
	if !ok {
		return false, fmt.Errorf("ivr: string comparison needs a string value, got %T", value)
	}
	switch op {
	case tenants.OpEquals:
		return strings.EqualFold(actual, expected), nil
	case tenants.OpContains:
		return strings.Contains(strings.ToLower(actual), strings.ToLower(expected)), nil
	default:
		return false, fmt.Errorf("ivr: operator %q not valid for strings", op)
	}
}

func compareKeyword(input string, op tenants.Operator, value any) (bool, error) {
	keyword, ok := value.(string)
	if !ok {
		return false, fmt.Errorf("ivr: keyword rule needs a string value, got %T", value)
	}
	lower := strings.ToLower(input)
	switch op {
	case tenants.OpEquals:
		return strings.EqualFold(strings.TrimSpace(input), keyword), nil
	case tenants.OpContains, "":
		return strings.Contains(lower, strings.ToLower(keyword)), nil
	default:
		return false, fmt.Errorf("ivr: operator %q not valid for keywords", op)
	}
}

func compareNumber(actual float64, op tenants.Operator, value any) (bool, error) {
	switch op {
	case tenants.OpBetween:
		lo, hi, err := toRange(value)
		if err != nil {
			return false, err
		}
		return actual >= lo && actual <= hi, nil
	case tenants.OpEquals:
		n, err := toFloat(value)
		if err != nil {
			return false, err
		}
		return actual == n, nil
	case tenants.OpGreaterThan:
		n, err := toFloat(value)
		if err != nil {
			return false, err
		}
		return actual > n, nil
	case tenants.OpLessThan:
		n, err := toFloat(value)
		if err != nil {
			return false, err
		}
		return actual < n, nil
	default:
		return false, fmt.Errorf("ivr: operator %q not valid for numbers", op)
	}
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("ivr: expected a number, got %T", value)
	}
}

// toRange accepts the [min, max] pair a between rule carries, both as a
// typed slice and as the []any JSON decoding produces.
func toRange(value any) (float64, float64, error) {
	switch v := value.(type) {
	case []float64:
		if len(v) == 2 {
			return v[0], v[1], nil
		}
	case []any:
		if len(v) == 2 {
			lo, err1 := toFloat(v[0])
			hi, err2 := toFloat(v[1])
			if err1 == nil && err2 == nil {
				return lo, hi, nil
			}
		}
	}
	return 0, 0, fmt.Errorf("ivr: between rule needs a [min, max] pair, got %v", value)
}
