package recognize

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"strconv"
	"strings"
)

var (
	// ErrUnknownSymbol is returned when an expression names a variable that
	// has not been assigned.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrDivisionByZero is returned for x/0.
	ErrDivisionByZero = errors.New("division by zero")
)

var symbolReplacer = strings.NewReplacer(
	"×", "*",
	"·", "*",
	"÷", "/",
	"−", "-",
	"–", "-",
)

// Normalize rewrites typographic operators into their ASCII forms.
func Normalize(expr string) string {
	return strings.TrimSpace(symbolReplacer.Replace(expr))
}

// Evaluate computes an arithmetic expression. It supports + - * / %,
// parentheses, unary signs, numbers and names bound in vars.
func Evaluate(expr string, vars Vars) (float64, error) {
	src := Normalize(expr)
	if src == "" {
		return 0, fmt.Errorf("empty expression")
	}
	node, err := parser.ParseExpr(src)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %q: %w", expr, err)
	}
	return eval(node, vars)
}

func eval(node ast.Expr, vars Vars) (float64, error) {
	switch n := node.(type) {
	case *ast.BasicLit:
		if n.Kind != token.INT && n.Kind != token.FLOAT {
			return 0, fmt.Errorf("unsupported literal %s", n.Value)
		}
		return strconv.ParseFloat(n.Value, 64)

	case *ast.Ident:
		if v, ok := vars[n.Name]; ok {
			return strconv.ParseFloat(strings.TrimSpace(v), 64)
		}
		switch n.Name {
		case "pi":
			return math.Pi, nil
		case "e":
			return math.E, nil
		}
		return 0, fmt.Errorf("%w %q", ErrUnknownSymbol, n.Name)

	case *ast.ParenExpr:
		return eval(n.X, vars)

	case *ast.UnaryExpr:
		x, err := eval(n.X, vars)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case token.ADD:
			return x, nil
		case token.SUB:
			return -x, nil
		}
		return 0, fmt.Errorf("unsupported operator %s", n.Op)

	case *ast.BinaryExpr:
		x, err := eval(n.X, vars)
		if err != nil {
			return 0, err
		}
		y, err := eval(n.Y, vars)
		if err != nil {
			return 0, err
		}
		switch n.Op {
		case token.ADD:
			return x + y, nil
		case token.SUB:
			return x - y, nil
		case token.MUL:
			return x * y, nil
		case token.QUO:
			if y == 0 {
				return 0, ErrDivisionByZero
			}
			return x / y, nil
		case token.REM:
			if y == 0 {
				return 0, ErrDivisionByZero
			}
			return math.Mod(x, y), nil
		}
		return 0, fmt.Errorf("unsupported operator %s", n.Op)
	}
	return 0, fmt.Errorf("unsupported expression %T", node)
}

// Interpret turns recognized text lines into results. "name = expr" lines
// bind a variable for the lines after them; "expr =" and bare expressions are
// evaluated. Lines that cannot be evaluated are skipped.
func Interpret(lines []string, vars Vars) []Result {
	scope := vars.Clone()
	var out []Result
	for _, line := range lines {
		line = Normalize(line)
		if line == "" {
			continue
		}
		lhs, rhs, hasEq := strings.Cut(line, "=")
		lhs = strings.TrimSpace(lhs)
		rhs = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(rhs), "?"))

		if hasEq && token.IsIdentifier(lhs) && rhs != "" {
			v, err := Evaluate(rhs, scope)
			if err != nil {
				continue
			}
			val := FormatNumber(v)
			scope[lhs] = val
			out = append(out, Result{Expr: lhs, Result: val, Assign: true})
			continue
		}

		v, err := Evaluate(lhs, scope)
		if err != nil {
			continue
		}
		out = append(out, Result{Expr: lhs, Result: FormatNumber(v)})
	}
	return out
}
