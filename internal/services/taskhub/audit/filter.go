package audit

import (
	"fmt"
	"slices"
	"strings"
	"time"

	apperrors "github.com/louisbranch/taskhub/internal/platform/errors"
	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Condition is a parameterized SQL predicate over audit_logs.
type Condition struct {
	Clause string
	Params []any
}

// Declarations returns the identifiers an audit filter may reference.
func Declarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("entity_type", filtering.TypeString),
		filtering.DeclareIdent("entity_id", filtering.TypeInt),
		filtering.DeclareIdent("action", filtering.TypeString),
		filtering.DeclareIdent("actor_user_id", filtering.TypeInt),
		filtering.DeclareIdent("created_at", filtering.TypeTimestamp),
	)
}

var columns = map[string]string{
	"entity_type":   "entity_type",
	"entity_id":     "entity_id",
	"action":        "action",
	"actor_user_id": "actor_user_id",
	"created_at":    "created_at",
}

// ParseFilter parses an AIP-160 expression such as
// `action = "delete" AND created_at >= timestamp("2026-01-01T00:00:00Z")`.
// An empty string yields an empty condition.
func ParseFilter(raw string) (Condition, error) {
	if strings.TrimSpace(raw) == "" {
		return Condition{}, nil
	}
	decls, err := Declarations()
	if err != nil {
		return Condition{}, fmt.Errorf("create filter declarations: %w", err)
	}
	parsed, err := filtering.ParseFilterString(raw, decls)
	if err != nil {
		return Condition{}, invalidFilter(err)
	}
	if parsed.CheckedExpr == nil {
		return Condition{}, nil
	}
	condition, err := translate(parsed.CheckedExpr.GetExpr())
	if err != nil {
		return Condition{}, invalidFilter(err)
	}
	return condition, nil
}

func invalidFilter(err error) error {
	return apperrors.Wrap(apperrors.CodeAuditFilterInvalid, "invalid filter: "+err.Error(), err)
}

func translate(e *expr.Expr) (Condition, error) {
	if e == nil {
		return Condition{}, nil
	}
	call, ok := e.GetExprKind().(*expr.Expr_CallExpr)
	if !ok {
		return Condition{}, fmt.Errorf("unsupported expression %T", e.GetExprKind())
	}
	args := call.CallExpr.GetArgs()
	switch call.CallExpr.GetFunction() {
	case "AND", "_&&_":
		return join(flatten(args, "AND", "_&&_"), "AND")
	case "OR", "_||_":
		return join(flatten(args, "OR", "_||_"), "OR")
	case "NOT", "_!_":
		if len(args) != 1 {
			return Condition{}, fmt.Errorf("NOT requires 1 argument")
		}
		inner, err := translate(args[0])
		if err != nil {
			return Condition{}, err
		}
		return Condition{Clause: "NOT (" + inner.Clause + ")", Params: inner.Params}, nil
	case "=", "_==_":
		return compare(args, "=")
	case "!=", "_!=_":
		return compare(args, "!=")
	case "<", "_<_":
		return compare(args, "<")
	case "<=", "_<=_":
		return compare(args, "<=")
	case ">", "_>_":
		return compare(args, ">")
	case ">=", "_>=_":
		return compare(args, ">=")
	default:
		return Condition{}, fmt.Errorf("unsupported function %s", call.CallExpr.GetFunction())
	}
}

// flatten inlines nested calls of the same operator so chained conjunctions
// render as a single parenthesized group.
func flatten(args []*expr.Expr, names ...string) []*expr.Expr {
	out := make([]*expr.Expr, 0, len(args))
	for _, arg := range args {
		if call, ok := arg.GetExprKind().(*expr.Expr_CallExpr); ok && slices.Contains(names, call.CallExpr.GetFunction()) {
			out = append(out, flatten(call.CallExpr.GetArgs(), names...)...)
			continue
		}
		out = append(out, arg)
	}
	return out
}

func join(args []*expr.Expr, op string) (Condition, error) {
	if len(args) < 2 {
		return Condition{}, fmt.Errorf("%s requires at least 2 arguments", op)
	}
	clauses := make([]string, 0, len(args))
	var params []any
	for _, arg := range args {
		part, err := translate(arg)
		if err != nil {
			return Condition{}, err
		}
		clauses = append(clauses, part.Clause)
		params = append(params, part.Params...)
	}
	return Condition{
		Clause: "(" + strings.Join(clauses, " "+op+" ") + ")",
		Params: params,
	}, nil
}

func compare(args []*expr.Expr, op string) (Condition, error) {
	if len(args) != 2 {
		return Condition{}, fmt.Errorf("comparison requires 2 arguments")
	}
	ident, ok := args[0].GetExprKind().(*expr.Expr_IdentExpr)
	if !ok {
		return Condition{}, fmt.Errorf("left side of %s must be a field", op)
	}
	field := ident.IdentExpr.GetName()
	column, ok := columns[field]
	if !ok {
		return Condition{}, fmt.Errorf("unknown field %s", field)
	}
	value, err := literal(args[1])
	if err != nil {
		return Condition{}, err
	}
	return Condition{
		Clause: fmt.Sprintf("%s %s ?", column, op),
		Params: []any{value},
	}, nil
}

// literal returns the SQL parameter for a constant. Timestamps become UTC
// milliseconds to match the stored created_at column.
func literal(e *expr.Expr) (any, error) {
	switch kind := e.GetExprKind().(type) {
	case *expr.Expr_ConstExpr:
		switch c := kind.ConstExpr.GetConstantKind().(type) {
		case *expr.Constant_StringValue:
			return c.StringValue, nil
		case *expr.Constant_Int64Value:
			return c.Int64Value, nil
		case *expr.Constant_Uint64Value:
			return int64(c.Uint64Value), nil
		default:
			return nil, fmt.Errorf("unsupported constant %T", c)
		}
	case *expr.Expr_CallExpr:
		if kind.CallExpr.GetFunction() != "timestamp" || len(kind.CallExpr.GetArgs()) != 1 {
			return nil, fmt.Errorf("unsupported function %s in value position", kind.CallExpr.GetFunction())
		}
		arg, ok := kind.CallExpr.GetArgs()[0].GetExprKind().(*expr.Expr_ConstExpr)
		if !ok {
			return nil, fmt.Errorf("timestamp argument must be a string")
		}
		text, ok := arg.ConstExpr.GetConstantKind().(*expr.Constant_StringValue)
		if !ok {
			return nil, fmt.Errorf("timestamp argument must be a string")
		}
		ts, err := time.Parse(time.RFC3339Nano, text.StringValue)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q", text.StringValue)
		}
		return ts.UTC().UnixMilli(), nil
	default:
		return nil, fmt.Errorf("expected a literal, got %T", kind)
	}
}
