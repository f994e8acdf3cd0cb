package filter

// Stateless leaf constructors. One value of each is shared by every Compiler.

type idsConstructor struct{}

func (idsConstructor) Construct(_ *Builder, params any) (Predicate, error) {
	obj, ok := asObject(params)
	if !ok {
		return nil, malformed(TypeIDs, "expected an object")
	}
	rawValues, hasValues := obj[ParamValues]
	values, err := int64List(TypeIDs, ParamValues, rawValues)
	if err != nil {
		return nil, err
	}
	excludes, err := int64List(TypeIDs, ParamExcludes, obj[ParamExcludes])
	if err != nil {
		return nil, err
	}
	if !hasValues && len(excludes) == 0 {
		return nil, malformed(TypeIDs, "one of %q or %q is required", ParamValues, ParamExcludes)
	}
	meta, err := metaParam(TypeIDs, obj)
	if err != nil {
		return nil, err
	}
	return &IDs{Values: values, HasValues: hasValues, Excludes: excludes, M: meta}, nil
}

type termConstructor struct{}

func (termConstructor) Construct(b *Builder, params any) (Predicate, error) {
	field, spec, err := singleField(TypeTerm, params)
	if err != nil {
		return nil, err
	}
	var meta Meta
	raw := spec
	if obj, ok := asObject(spec); ok {
		if raw, ok = obj[ParamValue]; !ok {
			return nil, malformed(TypeTerm, "%q is required", ParamValue)
		}
		if meta, err = metaParam(TypeTerm, obj); err != nil {
			return nil, err
		}
	}
	value, ok := scalarString(raw)
	if !ok {
		return nil, malformed(TypeTerm, "%q must be a scalar", ParamValue)
	}
	if value, err = normalizeValue(TypeTerm, fieldInfo(b.Schema(), field), value); err != nil {
		return nil, err
	}
	return &Term{Field: field, Value: value, M: meta}, nil
}

type termSet struct {
	field    string
	values   []string
	excludes []string
	op       Operator
	obj      map[string]any
	meta     Meta
}

func parseTermSet(typ string, b *Builder, params any) (*termSet, error) {
	field, spec, err := singleField(typ, params)
	if err != nil {
		return nil, err
	}
	ts := &termSet{field: field}
	obj, ok := asObject(spec)
	if !ok {
		// {"terms": {"tags": ["a", "b"]}} shorthand.
		if ts.values, err = stringList(typ, ParamValues, spec); err != nil {
			return nil, err
		}
		obj = map[string]any{}
	} else {
		if ts.values, err = stringList(typ, ParamValues, obj[ParamValues]); err != nil {
			return nil, err
		}
		if ts.excludes, err = stringList(typ, ParamExcludes, obj[ParamExcludes]); err != nil {
			return nil, err
		}
		if ts.op, err = operatorParam(typ, obj); err != nil {
			return nil, err
		}
		if ts.meta, err = metaParam(typ, obj); err != nil {
			return nil, err
		}
	}
	if len(ts.values) == 0 && len(ts.excludes) == 0 {
		return nil, malformed(typ, "one of %q or %q must be non-empty", ParamValues, ParamExcludes)
	}
	fi := fieldInfo(b.Schema(), field)
	if ts.values, err = normalizeValues(typ, fi, ts.values); err != nil {
		return nil, err
	}
	if ts.excludes, err = normalizeValues(typ, fi, ts.excludes); err != nil {
		return nil, err
	}
	ts.obj = obj
	return ts, nil
}

type termsConstructor struct{}

func (termsConstructor) Construct(b *Builder, params any) (Predicate, error) {
	ts, err := parseTermSet(TypeTerms, b, params)
	if err != nil {
		return nil, err
	}
	return &Terms{Field: ts.field, Values: ts.values, Excludes: ts.excludes, Operator: ts.op, M: ts.meta}, nil
}

type selectionConstructor struct{}

func (selectionConstructor) Construct(b *Builder, params any) (Predicate, error) {
	ts, err := parseTermSet(TypeSelection, b, params)
	if err != nil {
		return nil, err
	}
	if raw, ok := ts.obj[ParamParams]; ok && raw != nil {
		p, ok := asObject(raw)
		if !ok {
			return nil, malformed(TypeSelection, "%q must be an object", ParamParams)
		}
		ts.meta.Params = ConvertParams(p)
	}
	return &Selection{Field: ts.field, Values: ts.values, Excludes: ts.excludes, Operator: ts.op, M: ts.meta}, nil
}

type rangeConstructor struct{}

func (rangeConstructor) Construct(b *Builder, params any) (Predicate, error) {
	field, spec, err := singleField(TypeRange, params)
	if err != nil {
		return nil, err
	}
	obj, ok := asObject(spec)
	if !ok {
		return nil, malformed(TypeRange, "field %q: expected an object", field)
	}
	numeric := fieldInfo(b.Schema(), field).Type == FieldNumeric

	lower, err := rangeBound(obj, ParamFrom, numeric)
	if err != nil {
		return nil, err
	}
	upper, err := rangeBound(obj, ParamTo, numeric)
	if err != nil {
		return nil, err
	}
	if !lower.Set && !upper.Set {
		return nil, malformed(TypeRange, "field %q: at least one of %q or %q is required", field, ParamFrom, ParamTo)
	}
	if lower.Inclusive, err = boolParam(TypeRange, obj, ParamIncludeLower, true); err != nil {
		return nil, err
	}
	if upper.Inclusive, err = boolParam(TypeRange, obj, ParamIncludeUpper, true); err != nil {
		return nil, err
	}
	meta, err := metaParam(TypeRange, obj)
	if err != nil {
		return nil, err
	}
	return &Range{Field: field, Lower: lower, Upper: upper, Numeric: numeric, M: meta}, nil
}

func rangeBound(obj map[string]any, name string, numeric bool) (Bound, error) {
	raw, ok := obj[name]
	if !ok || raw == nil {
		return Bound{}, nil
	}
	s, ok := scalarString(raw)
	if !ok {
		return Bound{}, malformed(TypeRange, "%q must be a scalar", name)
	}
	b := Bound{Set: true, Value: s}
	if numeric {
		f, err := parseNumber(s)
		if err != nil {
			return Bound{}, malformedCause(TypeRange, err, "%q bound %q is not numeric", name, s)
		}
		b.Num = f
		b.Value = FormatNumber(f)
	}
	return b, nil
}

type pathConstructor struct{}

func (pathConstructor) Construct(b *Builder, params any) (Predicate, error) {
	field, spec, err := singleField(TypePath, params)
	if err != nil {
		return nil, err
	}
	obj, ok := asObject(spec)
	if !ok {
		if s, isStr := spec.(string); isStr {
			obj = map[string]any{ParamValue: s}
		} else {
			return nil, malformed(TypePath, "field %q: expected an object or a path string", field)
		}
	}
	value, ok := obj[ParamValue].(string)
	if !ok || value == "" {
		return nil, malformed(TypePath, "field %q: %q must be a non-empty string", field, ParamValue)
	}
	strict, err := boolParam(TypePath, obj, ParamStrict, false)
	if err != nil {
		return nil, err
	}
	depth, err := intParam(TypePath, obj, ParamDepth)
	if err != nil {
		return nil, err
	}
	meta, err := metaParam(TypePath, obj)
	if err != nil {
		return nil, err
	}
	sep := DefaultPathSeparator
	if fi := fieldInfo(b.Schema(), field); fi.Type == FieldPath {
		sep = fi.Separator
	}
	return &Path{Field: field, Value: value, Separator: sep, Strict: strict, Depth: depth, M: meta}, nil
}
