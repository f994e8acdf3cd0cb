package filter

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
)

type testDoc struct {
	uid     int64
	deleted bool
	fields  map[string][]string
}

// memReader is a Reader over a fixed set of documents.
type memReader struct {
	maxDoc   uint32
	live     *roaring.Bitmap
	postings map[string]map[string]*roaring.Bitmap
	uids     map[int64]uint32
}

func newMemReader(docs []testDoc) *memReader {
	r := &memReader{
		maxDoc:   uint32(len(docs)),
		live:     roaring.New(),
		postings: map[string]map[string]*roaring.Bitmap{},
		uids:     map[int64]uint32{},
	}
	for i, d := range docs {
		doc := uint32(i)
		r.uids[d.uid] = doc
		if !d.deleted {
			r.live.Add(doc)
		}
		for field, values := range d.fields {
			terms, ok := r.postings[field]
			if !ok {
				terms = map[string]*roaring.Bitmap{}
				r.postings[field] = terms
			}
			for _, v := range values {
				bm, ok := terms[v]
				if !ok {
					bm = roaring.New()
					terms[v] = bm
				}
				bm.Add(doc)
			}
		}
	}
	return r
}

func (r *memReader) MaxDoc() uint32        { return r.maxDoc }
func (r *memReader) Live() *roaring.Bitmap { return r.live }

func (r *memReader) Postings(field, term string) *roaring.Bitmap {
	return r.postings[field][term]
}

func (r *memReader) Terms(field string) []string {
	out := make([]string, 0, len(r.postings[field]))
	for t := range r.postings[field] {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (r *memReader) UIDs(uids []int64) *roaring.Bitmap {
	out := roaring.New()
	for _, u := range uids {
		if doc, ok := r.uids[u]; ok {
			out.Add(doc)
		}
	}
	return out
}

var testSchema = MapSchema{
	"year":     {Type: FieldNumeric},
	"category": {Type: FieldPath},
	"tags":     {Type: FieldString, Multi: true},
}

// Docs 0..3 are live, doc 4 is deleted.
func carsReader() *memReader {
	return newMemReader([]testDoc{
		{uid: 100, fields: map[string][]string{"color": {"red"}, "year": {"1999"}, "category": {"/cars/sedan"}, "tags": {"a", "b"}}},
		{uid: 101, fields: map[string][]string{"color": {"blue"}, "year": {"2001"}, "category": {"/cars/suv"}, "tags": {"b"}}},
		{uid: 102, fields: map[string][]string{"color": {"red"}, "year": {"2004"}, "category": {"/cars/sedan/compact"}, "tags": {"c"}}},
		{uid: 103, fields: map[string][]string{"color": {"green"}, "year": {"2010"}, "category": {"/trucks"}, "tags": {"a"}}},
		{uid: 104, deleted: true, fields: map[string][]string{"color": {"red"}, "year": {"2000"}}},
	})
}

func docs(bm *roaring.Bitmap) []uint32 {
	if bm == nil {
		return nil
	}
	return bm.ToArray()
}
