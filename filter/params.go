package filter

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/strategist922/sensei/codec"
)

// DSL parameter names.
const (
	ParamValues       = "values"
	ParamExcludes     = "excludes"
	ParamOperator     = "operator"
	ParamParams       = "params"
	ParamMust         = "must"
	ParamMustNot      = "must_not"
	ParamShould       = "should"
	ParamFrom         = "from"
	ParamTo           = "to"
	ParamNoOptimize   = "_noOptimize"
	ParamQuery        = "query"
	ParamOr           = "or"
	ParamValue        = "value"
	ParamIncludeLower = "include_lower"
	ParamIncludeUpper = "include_upper"
	ParamStrict       = "strict"
	ParamDepth        = "depth"
)

// ConvertParams flattens a JSON object into string parameters.
// Null members are dropped; nested objects and arrays keep their JSON text.
func ConvertParams(obj map[string]any) map[string]string {
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		if v == nil {
			continue
		}
		if s, ok := scalarString(v); ok {
			out[k] = s
			continue
		}
		if b, err := codec.Default.Marshal(v); err == nil {
			out[k] = string(b)
		}
	}
	return out
}

func asObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok && m != nil
}

// singleField unpacks the {"<field>": spec} shape shared by field leaves.
func singleField(typ string, params any) (string, any, error) {
	obj, ok := asObject(params)
	if !ok {
		return "", nil, malformed(typ, "expected an object keyed by field name")
	}
	if len(obj) != 1 {
		return "", nil, malformed(typ, "expected exactly one field, got %d", len(obj))
	}
	for field, spec := range obj {
		if field == "" {
			return "", nil, malformed(typ, "empty field name")
		}
		return field, spec, nil
	}
	panic("unreachable")
}

func scalarString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return FormatNumber(x), true
	case json.Number:
		return x.String(), true
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	default:
		return "", false
	}
}

// stringList accepts a JSON array of scalars or a single scalar.
func stringList(typ, name string, v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := scalarString(v); ok {
		return []string{s}, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, malformed(typ, "%q must be a value or an array of values", name)
	}
	out := make([]string, 0, len(arr))
	for i, item := range arr {
		s, ok := scalarString(item)
		if !ok {
			return nil, malformed(typ, "%q[%d] is not a scalar value", name, i)
		}
		out = append(out, s)
	}
	return out, nil
}

func int64List(typ, name string, v any) ([]int64, error) {
	strs, err := stringList(typ, name, v)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, len(strs))
	for _, s := range strs {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, malformedCause(typ, err, "%q holds a non-integer id %q", name, s)
		}
		out = append(out, n)
	}
	return out, nil
}

func boolParam(typ string, obj map[string]any, name string, def bool) (bool, error) {
	v, ok := obj[name]
	if !ok || v == nil {
		return def, nil
	}
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(x)
		if err != nil {
			return false, malformedCause(typ, err, "%q must be a boolean", name)
		}
		return b, nil
	default:
		return false, malformed(typ, "%q must be a boolean", name)
	}
}

func intParam(typ string, obj map[string]any, name string) (int, error) {
	v, ok := obj[name]
	if !ok || v == nil {
		return 0, nil
	}
	s, ok := scalarString(v)
	if !ok {
		return 0, malformed(typ, "%q must be an integer", name)
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, malformed(typ, "%q must be a non-negative integer", name)
	}
	return n, nil
}

func operatorParam(typ string, obj map[string]any) (Operator, error) {
	v, ok := obj[ParamOperator]
	if !ok || v == nil {
		return OpOr, nil
	}
	s, _ := v.(string)
	switch strings.ToLower(s) {
	case "or":
		return OpOr, nil
	case "and":
		return OpAnd, nil
	default:
		return OpOr, malformed(typ, "operator must be \"and\" or \"or\", got %v", v)
	}
}

func metaParam(typ string, obj map[string]any) (Meta, error) {
	noOpt, err := boolParam(typ, obj, ParamNoOptimize, false)
	if err != nil {
		return Meta{}, err
	}
	return Meta{NoOptimize: noOpt}, nil
}

// normalizeValue canonicalizes a value for the field's type.
func normalizeValue(typ string, fi FieldInfo, v string) (string, error) {
	if fi.Type != FieldNumeric {
		return v, nil
	}
	f, err := parseNumber(v)
	if err != nil {
		return "", malformedCause(typ, err, "value %q is not numeric", v)
	}
	return FormatNumber(f), nil
}

func normalizeValues(typ string, fi FieldInfo, vs []string) ([]string, error) {
	if fi.Type != FieldNumeric {
		return vs, nil
	}
	out := make([]string, len(vs))
	for i, v := range vs {
		n, err := normalizeValue(typ, fi, v)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func parseNumber(s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) {
		return 0, fmt.Errorf("NaN is not a valid bound")
	}
	return f, nil
}
