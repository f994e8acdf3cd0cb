package rtindex

import (
	"maps"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/strategist922/sensei/index"
)

// writer is the mutable side of an index. It is guarded by Index.mu.
//
// Document numbers are assigned in arrival order and never reused. An update
// deletes the old document and appends a new one. Postings of deleted
// documents stay behind and are masked by the live set.
type writer struct {
	docUIDs  []int64
	fields   []map[string][]string
	live     *roaring.Bitmap
	uids     map[int64]uint32
	postings map[string]map[string]*roaring.Bitmap
	version  uint64

	// Changes since the last publish.
	dirty    map[string]map[string]struct{}
	newTerms map[string]struct{}
}

func newWriter() *writer {
	return &writer{
		live:     roaring.New(),
		uids:     map[int64]uint32{},
		postings: map[string]map[string]*roaring.Bitmap{},
		dirty:    map[string]map[string]struct{}{},
		newTerms: map[string]struct{}{},
	}
}

// estimateSize approximates the memory events add to the index.
func estimateSize(events []index.Event) int64 {
	var n int64
	for _, e := range events {
		if e.Delete {
			continue
		}
		n += 16
		for _, values := range e.Fields {
			for _, v := range values {
				n += int64(len(v)) + 52
			}
		}
	}
	return n
}

// apply adds one event.
func (w *writer) apply(e index.Event) {
	if e.Version > w.version {
		w.version = e.Version
	}
	if doc, ok := w.uids[e.UID]; ok {
		w.live.Remove(doc)
		w.fields[doc] = nil
		delete(w.uids, e.UID)
	}
	if e.Delete {
		return
	}

	doc := uint32(len(w.docUIDs))
	w.docUIDs = append(w.docUIDs, e.UID)
	w.fields = append(w.fields, e.Fields)
	w.uids[e.UID] = doc
	w.live.Add(doc)

	for field, values := range e.Fields {
		terms, ok := w.postings[field]
		if !ok {
			terms = map[string]*roaring.Bitmap{}
			w.postings[field] = terms
		}
		touched, ok := w.dirty[field]
		if !ok {
			touched = map[string]struct{}{}
			w.dirty[field] = touched
		}
		for _, v := range values {
			bm, ok := terms[v]
			if !ok {
				bm = roaring.New()
				terms[v] = bm
				w.newTerms[field] = struct{}{}
			}
			bm.Add(doc)
			touched[v] = struct{}{}
		}
	}
}

// publish builds an immutable snapshot. Fields untouched since prev share
// their maps and bitmaps with prev.
func (w *writer) publish(prev *Snapshot) *Snapshot {
	maxDoc := len(w.docUIDs)
	s := &Snapshot{
		maxDoc:   uint32(maxDoc),
		live:     w.live.Clone(),
		version:  w.version,
		docUIDs:  w.docUIDs[:maxDoc:maxDoc],
		uids:     maps.Clone(w.uids),
		postings: make(map[string]map[string]*roaring.Bitmap, len(w.postings)),
		terms:    make(map[string][]string, len(w.postings)),
	}
	for field := range w.postings {
		touched, dirty := w.dirty[field]
		if !dirty {
			s.postings[field] = prev.postings[field]
			s.terms[field] = prev.terms[field]
			continue
		}
		pl := maps.Clone(prev.postings[field])
		if pl == nil {
			pl = make(map[string]*roaring.Bitmap, len(touched))
		}
		for term := range touched {
			pl[term] = w.postings[field][term].Clone()
		}
		s.postings[field] = pl
		if _, grew := w.newTerms[field]; grew {
			s.terms[field] = slices.Sorted(maps.Keys(w.postings[field]))
		} else {
			s.terms[field] = prev.terms[field]
		}
	}
	clear(w.dirty)
	clear(w.newTerms)
	return s
}

// liveDocs returns the stored documents of all live entries in document
// order.
func (w *writer) liveDocs() []storedDoc {
	out := make([]storedDoc, 0, w.live.GetCardinality())
	it := w.live.Iterator()
	for it.HasNext() {
		doc := it.Next()
		out = append(out, storedDoc{UID: w.docUIDs[doc], Fields: w.fields[doc]})
	}
	return out
}
