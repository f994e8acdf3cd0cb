package codec

import (
	"testing"
)

type benchRequest struct {
	Query  string         `json:"query" msgpack:"query"`
	Filter map[string]any `json:"filter" msgpack:"filter"`
	Offset int            `json:"offset" msgpack:"offset"`
	Count  int            `json:"count" msgpack:"count"`
}

func benchPayload() benchRequest {
	return benchRequest{
		Query: "color:red AND make:(honda OR toyota)",
		Filter: map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{"term": map[string]any{"color": "red"}},
					map[string]any{"range": map[string]any{"year": map[string]any{"from": 1999, "to": 2004}}},
				},
				"must_not": []any{
					map[string]any{"ids": map[string]any{"values": []any{1, 2, 3}}},
				},
			},
		},
		Offset: 0,
		Count:  10,
	}
}

func benchmarkCodecMarshal(b *testing.B, c Codec, v any) {
	b.Helper()
	b.ReportAllocs()

	warm, err := c.Marshal(v)
	if err != nil {
		b.Fatal(err)
	}
	b.SetBytes(int64(len(warm)))

	var sink []byte
	b.ResetTimer()
	for b.Loop() {
		out, err := c.Marshal(v)
		if err != nil {
			b.Fatal(err)
		}
		sink = out
	}
	_ = sink
}

func benchmarkCodecUnmarshal(b *testing.B, c Codec, data []byte) {
	b.Helper()
	b.ReportAllocs()
	b.SetBytes(int64(len(data)))

	b.ResetTimer()
	for b.Loop() {
		var v benchRequest
		if err := c.Unmarshal(data, &v); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCodec_Marshal_Request(b *testing.B) {
	payload := benchPayload()

	b.Run("stdlib", func(b *testing.B) { benchmarkCodecMarshal(b, JSON{}, payload) })
	b.Run("go-json", func(b *testing.B) { benchmarkCodecMarshal(b, GoJSON{}, payload) })
	b.Run("msgpack", func(b *testing.B) { benchmarkCodecMarshal(b, Msgpack{}, payload) })
}

func BenchmarkCodec_Unmarshal_Request(b *testing.B) {
	payload := benchPayload()

	b.Run("stdlib", func(b *testing.B) { benchmarkCodecUnmarshal(b, JSON{}, MustMarshal(JSON{}, payload)) })
	b.Run("go-json", func(b *testing.B) { benchmarkCodecUnmarshal(b, GoJSON{}, MustMarshal(GoJSON{}, payload)) })
	b.Run("msgpack", func(b *testing.B) { benchmarkCodecUnmarshal(b, Msgpack{}, MustMarshal(Msgpack{}, payload)) })
}
