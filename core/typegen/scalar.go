package typegen

import (
	"strconv"

	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

func newJSONScalar() *graphql.Scalar {
	return graphql.NewScalar(graphql.ScalarConfig{
		Name:         "JSON",
		Description:  "Arbitrary JSON value.",
		Serialize:    func(value interface{}) interface{} { return value },
		ParseValue:   func(value interface{}) interface{} { return value },
		ParseLiteral: parseJSONLiteral,
	})
}

// parseJSONLiteral converts an inline literal to its Go value.
func parseJSONLiteral(v ast.Value) interface{} {
	switch lit := v.(type) {
	case *ast.StringValue:
		return lit.Value
	case *ast.BooleanValue:
		return lit.Value
	case *ast.IntValue:
		if n, err := strconv.ParseInt(lit.Value, 10, 64); err == nil {
			return n
		}
		return nil
	case *ast.FloatValue:
		if f, err := strconv.ParseFloat(lit.Value, 64); err == nil {
			return f
		}
		return nil
	case *ast.EnumValue:
		return lit.Value
	case *ast.ListValue:
		out := make([]interface{}, len(lit.Values))
		for i, item := range lit.Values {
			out[i] = parseJSONLiteral(item)
		}
		return out
	case *ast.ObjectValue:
		out := make(map[string]interface{}, len(lit.Fields))
		for _, f := range lit.Fields {
			out[f.Name.Value] = parseJSONLiteral(f.Value)
		}
		return out
	default:
		return nil
	}
}
