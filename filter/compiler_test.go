package filter

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubParser understands "field:value" and nothing else.
type stubParser struct{}

func (stubParser) Parse(text string) (Predicate, error) {
	field, value, ok := strings.Cut(text, ":")
	if !ok {
		return nil, fmt.Errorf("expected field:value, got %q", text)
	}
	return &Term{Field: field, Value: value}, nil
}

func newTestCompiler() *Compiler {
	return NewCompiler(WithSchema(testSchema), WithQueryParser(stubParser{}))
}

func evalJSON(t *testing.T, c *Compiler, doc string) []uint32 {
	t.Helper()
	p, err := c.CompileJSON([]byte(doc))
	require.NoError(t, err)
	return docs(p.Eval(carsReader()))
}

func TestCompileLeaves(t *testing.T) {
	c := newTestCompiler()

	tests := []struct {
		name string
		doc  string
		want []uint32
	}{
		{"term", `{"term":{"color":"red"}}`, []uint32{0, 2}},
		{"term object", `{"term":{"color":{"value":"blue"}}}`, []uint32{1}},
		{"term numeric", `{"term":{"year":2001.0}}`, []uint32{1}},
		{"terms or", `{"terms":{"tags":{"values":["a","b"]}}}`, []uint32{0, 1, 3}},
		{"terms and", `{"terms":{"tags":{"values":["a","b"],"operator":"and"}}}`, []uint32{0}},
		{"terms shorthand", `{"terms":{"tags":["c"]}}`, []uint32{2}},
		{"terms excludes", `{"terms":{"tags":{"values":["a","b"],"excludes":["a"]}}}`, []uint32{1}},
		{"terms excludes only", `{"terms":{"tags":{"excludes":["a"]}}}`, []uint32{1, 2}},
		{"selection", `{"selection":{"color":{"values":["green","blue"]}}}`, []uint32{1, 3}},
		{"ids", `{"ids":{"values":[100,102,999]}}`, []uint32{0, 2}},
		{"ids excludes", `{"ids":{"excludes":[100]}}`, []uint32{1, 2, 3}},
		{"ids deleted", `{"ids":{"values":[104]}}`, nil},
		{"range numeric", `{"range":{"year":{"from":2000,"to":2004}}}`, []uint32{1, 2}},
		{"range exclusive", `{"range":{"year":{"from":2001,"to":2004,"include_lower":false,"include_upper":false}}}`, nil},
		{"range open upper", `{"range":{"year":{"from":"2001"}}}`, []uint32{1, 2, 3}},
		{"range lexicographic", `{"range":{"color":{"from":"b","to":"h"}}}`, []uint32{1, 3}},
		{"path", `{"path":{"category":"/cars"}}`, []uint32{0, 1, 2}},
		{"path strict", `{"path":{"category":{"value":"/cars/sedan","strict":true}}}`, []uint32{2}},
		{"path inclusive", `{"path":{"category":{"value":"/cars/sedan"}}}`, []uint32{0, 2}},
		{"path depth", `{"path":{"category":{"value":"/cars","depth":1}}}`, []uint32{0, 1}},
		{"query", `{"query":"color:green"}`, []uint32{3}},
		{"query object", `{"query":{"query":"color:blue"}}`, []uint32{1}},
		{"query empty", `{"query":""}`, []uint32{0, 1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalJSON(t, c, tt.doc)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileCombinators(t *testing.T) {
	c := newTestCompiler()

	tests := []struct {
		name string
		doc  string
		want []uint32
	}{
		{"and", `{"and":[{"term":{"color":"red"}},{"terms":{"tags":["a"]}}]}`, []uint32{0}},
		{"and empty", `{"and":[]}`, []uint32{0, 1, 2, 3}},
		{"and single object", `{"and":{"term":{"color":"blue"}}}`, []uint32{1}},
		{"or", `{"or":[{"term":{"color":"blue"}},{"term":{"color":"green"}}]}`, []uint32{1, 3}},
		{"or empty", `{"or":[]}`, nil},
		{"bool must and must_not", `{"bool":{"must":[{"term":{"color":"red"}}],"must_not":[{"ids":{"values":[102]}}]}}`, []uint32{0}},
		{"bool must_not only", `{"bool":{"must_not":[{"term":{"color":"red"}},{"term":{"color":"blue"}}]}}`, []uint32{3}},
		{"bool should only", `{"bool":{"should":[{"term":{"color":"blue"}},{"term":{"color":"green"}}]}}`, []uint32{1, 3}},
		{"bool should ignored with must", `{"bool":{"must":{"term":{"color":"red"}},"should":[{"term":{"color":"blue"}}]}}`, []uint32{0, 2}},
		{"bool empty", `{"bool":{}}`, []uint32{0, 1, 2, 3}},
		{"bool or", `{"bool":{"must":[{"term":{"color":"green"}}],"must_not":[{"term":{"color":"red"}}],"or":true}}`, []uint32{1, 3}},
		{"bool or admits outside must_not", `{"bool":{"must":[{"term":{"color":"red"}}],"must_not":[{"term":{"color":"red"}}],"or":true}}`, []uint32{0, 1, 2, 3}},
		{"nested", `{"and":[{"or":[{"term":{"color":"red"}},{"term":{"color":"green"}}]},{"bool":{"must_not":{"path":{"category":"/trucks"}}}}]}`, []uint32{0, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := evalJSON(t, c, tt.doc)
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCompileMap(t *testing.T) {
	c := newTestCompiler()

	p, err := c.Compile(map[string]any{
		"range": map[string]any{"year": map[string]any{"from": 1999, "to": int64(2001)}},
	})
	require.NoError(t, err)
	assert.Equal(t, KindRange, p.Kind())
	assert.Equal(t, []uint32{0, 1}, docs(p.Eval(carsReader())))

	p, err = c.Compile(map[string]any{"ids": map[string]any{"values": []any{101}}})
	require.NoError(t, err)
	assert.Equal(t, []uint32{1}, docs(p.Eval(carsReader())))
}

func TestCompileMalformed(t *testing.T) {
	c := newTestCompiler()

	tests := []struct {
		name string
		doc  string
	}{
		{"invalid json", `{"term":`},
		{"not an object", `[{"term":{"color":"red"}}]`},
		{"null", `null`},
		{"no key", `{}`},
		{"two keys", `{"term":{"color":"red"},"ids":{"values":[1]}}`},
		{"term two fields", `{"term":{"color":"red","year":1}}`},
		{"term value missing", `{"term":{"color":{}}}`},
		{"terms empty", `{"terms":{"tags":[]}}`},
		{"terms bad operator", `{"terms":{"tags":{"values":["a"],"operator":"xor"}}}`},
		{"ids empty", `{"ids":{}}`},
		{"ids not integer", `{"ids":{"values":["x"]}}`},
		{"range no bounds", `{"range":{"year":{}}}`},
		{"range not numeric", `{"range":{"year":{"from":"abc"}}}`},
		{"path without value", `{"path":{"category":{"strict":true}}}`},
		{"and child not object", `{"and":[1]}`},
		{"and not array", `{"and":"x"}`},
		{"bool unknown clause", `{"bool":{"filter":[]}}`},
		{"bool not object", `{"bool":[]}`},
		{"query bad syntax", `{"query":"no-colon"}`},
		{"query wrong type", `{"query":42}`},
		{"selection bad params", `{"selection":{"color":{"values":["red"],"params":"x"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.CompileJSON([]byte(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedFilter)

			var mfe *MalformedFilterError
			assert.True(t, errors.As(err, &mfe))
		})
	}

	_, err := c.Compile(nil)
	assert.ErrorIs(t, err, ErrMalformedFilter)

	_, err = c.CompileJSON(nil)
	assert.ErrorIs(t, err, ErrMalformedFilter)
}

func TestCompileUnsupportedType(t *testing.T) {
	c := newTestCompiler()

	_, err := c.CompileJSON([]byte(`{"and":[{"geo":{"lat":1}}]}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedFilterType)
	assert.NotErrorIs(t, err, ErrMalformedFilter)

	var ute *UnsupportedFilterTypeError
	require.True(t, errors.As(err, &ute))
	assert.Equal(t, "geo", ute.Type)
}

func TestCompileQueryWithoutParser(t *testing.T) {
	c := NewCompiler()

	_, err := c.CompileJSON([]byte(`{"query":"color:red"}`))
	assert.ErrorIs(t, err, ErrMalformedFilter)

	p, err := c.CompileJSON([]byte(`{"query":"  "}`))
	require.NoError(t, err)
	assert.Equal(t, KindQuery, p.Kind())
}

func TestCompileQueryParseErrorCause(t *testing.T) {
	c := newTestCompiler()

	_, err := c.CompileJSON([]byte(`{"query":"oops"}`))
	require.Error(t, err)

	var mfe *MalformedFilterError
	require.True(t, errors.As(err, &mfe))
	assert.Equal(t, TypeQuery, mfe.Type)
	assert.Error(t, errors.Unwrap(mfe))
}

func TestCompileDepthLimit(t *testing.T) {
	c := newTestCompiler()

	nest := func(levels int) string {
		return strings.Repeat(`{"and":[`, levels) + `{"term":{"color":"red"}}` + strings.Repeat(`]}`, levels)
	}

	p, err := c.CompileJSON([]byte(nest(10)))
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 2}, docs(p.Eval(carsReader())))

	_, err = c.CompileJSON([]byte(nest(MaxDepth + 5)))
	assert.ErrorIs(t, err, ErrMalformedFilter)
}

func TestCompileMeta(t *testing.T) {
	c := newTestCompiler()

	p, err := c.CompileJSON([]byte(`{"bool":{"must":[{"term":{"color":{"value":"red","_noOptimize":true}}}],"_noOptimize":true}}`))
	require.NoError(t, err)
	assert.True(t, p.Meta().NoOptimize)
	assert.True(t, p.(*Boolean).Must[0].Meta().NoOptimize)

	p, err = c.CompileJSON([]byte(`{"selection":{"color":{"values":["red"],"params":{"depth":2,"strict":true,"name":"x"}}}}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"depth": "2", "strict": "true", "name": "x"}, p.Meta().Params)
	assert.False(t, p.Meta().NoOptimize)
}

func TestCompileIsDeterministic(t *testing.T) {
	c := newTestCompiler()
	doc := `{"bool":{"must":[{"terms":{"tags":["a","b"]}}],"must_not":{"range":{"year":{"to":2000}}}}}`

	first, err := c.CompileJSON([]byte(doc))
	require.NoError(t, err)
	second, err := c.CompileJSON([]byte(doc))
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first.String(), second.String())
}

func TestCompilerConcurrentUse(t *testing.T) {
	c := newTestCompiler()
	r := carsReader()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := c.CompileJSON([]byte(`{"or":[{"query":"color:blue"},{"ids":{"values":[103]}}]}`))
			if assert.NoError(t, err) {
				assert.Equal(t, []uint32{1, 3}, docs(p.Eval(r)))
			}
		}()
	}
	wg.Wait()
}

func TestTypes(t *testing.T) {
	assert.Equal(t,
		[]string{"and", "bool", "ids", "or", "path", "query", "range", "selection", "term", "terms"},
		Types())
	assert.True(t, IsRegistered(TypeBool))
	assert.False(t, IsRegistered("geo"))
}

func TestConvertParams(t *testing.T) {
	got := ConvertParams(map[string]any{
		"a": "x",
		"b": 1.5,
		"c": true,
		"d": nil,
		"e": []any{"p", "q"},
	})
	assert.Equal(t, map[string]string{"a": "x", "b": "1.5", "c": "true", "e": `["p","q"]`}, got)
}
