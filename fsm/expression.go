package fsm

import (
	"context"
	"fmt"
	"strings"
)

// CompileExpression turns a guard expression into a Guard over Data.
// Supported forms:
//
//	always | never
//	data.key          true when key holds boolean true
//	!data.key         true when key is absent or holds boolean false
//	data.key == 'v'   string comparison of the key's value
//	data.key != 'v'
//
// A bare or negated key whose value is not a boolean makes the guard fail
// with ErrGuardContract when evaluated.
func CompileExpression(expr string) (Guard[Data], error) {
	expr = strings.TrimSpace(expr)

	switch expr {
	case "always":
		return func(context.Context, Data) (bool, error) { return true, nil }, nil
	case "never":
		return func(context.Context, Data) (bool, error) { return false, nil }, nil
	}

	if left, op, right, ok := cutOperator(expr); ok {
		return compileComparison(expr, left, right, op == "==")
	}

	negate := false
	if after, ok := strings.CutPrefix(expr, "!"); ok {
		negate = true
		expr = strings.TrimSpace(after)
	}

	key, err := dataKey(expr)
	if err != nil {
		return nil, err
	}

	return func(_ context.Context, data Data) (bool, error) {
		val, exists := data[key]
		if !exists {
			return negate, nil
		}

		b, ok := val.(bool)
		if !ok {
			return false, fmt.Errorf("%w: data.%s holds %T", ErrGuardContract, key, val)
		}

		return b != negate, nil
	}, nil
}

func compileComparison(expr, left, right string, equal bool) (Guard[Data], error) {
	key, err := dataKey(strings.TrimSpace(left))
	if err != nil {
		return nil, err
	}

	want, err := literal(strings.TrimSpace(right))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, expr)
	}

	return func(_ context.Context, data Data) (bool, error) {
		val, exists := data[key]
		if !exists {
			return !equal, nil
		}

		return (fmt.Sprint(val) == want) == equal, nil
	}, nil
}

// cutOperator splits expr around the first == or != that is not inside a
// quoted literal.
func cutOperator(expr string) (string, string, string, bool) {
	var quote byte

	for i := 0; i+1 < len(expr); i++ {
		c := expr[i]

		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case expr[i+1] == '=' && (c == '=' || c == '!'):
			return expr[:i], expr[i : i+2], expr[i+2:], true
		}
	}

	return "", "", "", false
}

// literal returns the value of a comparison operand. Quoted operands are
// taken verbatim; bare ones may not contain operator characters or quotes.
func literal(operand string) (string, error) {
	if operand == "" {
		return "", ErrInvalidExpression
	}

	if q := operand[0]; q == '\'' || q == '"' {
		if len(operand) < 2 || operand[len(operand)-1] != q || strings.IndexByte(operand[1:len(operand)-1], q) >= 0 {
			return "", ErrInvalidExpression
		}

		return operand[1 : len(operand)-1], nil
	}

	if strings.ContainsAny(operand, `=!'"`) {
		return "", ErrInvalidExpression
	}

	return operand, nil
}

func dataKey(operand string) (string, error) {
	key, ok := strings.CutPrefix(operand, "data.")
	if !ok || key == "" || strings.ContainsAny(key, " \t") {
		return "", fmt.Errorf("%w: %q", ErrInvalidExpression, operand)
	}

	return key, nil
}
