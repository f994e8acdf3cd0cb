package rtindex

import (
	"github.com/RoaringBitmap/roaring/v2"

	"github.com/strategist922/sensei/index"
)

// Snapshot is an immutable reader over the index at one point in time.
type Snapshot struct {
	maxDoc   uint32
	live     *roaring.Bitmap
	version  uint64
	docUIDs  []int64
	uids     map[int64]uint32
	postings map[string]map[string]*roaring.Bitmap
	terms    map[string][]string
}

var _ index.Reader = (*Snapshot)(nil)

func emptySnapshot() *Snapshot {
	return &Snapshot{
		live:     roaring.New(),
		uids:     map[int64]uint32{},
		postings: map[string]map[string]*roaring.Bitmap{},
		terms:    map[string][]string{},
	}
}

func (s *Snapshot) MaxDoc() uint32        { return s.maxDoc }
func (s *Snapshot) Live() *roaring.Bitmap { return s.live }
func (s *Snapshot) Version() uint64       { return s.version }
func (s *Snapshot) NumDocs() int          { return int(s.live.GetCardinality()) }

func (s *Snapshot) Postings(field, term string) *roaring.Bitmap {
	return s.postings[field][term]
}

func (s *Snapshot) Terms(field string) []string {
	return s.terms[field]
}

func (s *Snapshot) UIDs(uids []int64) *roaring.Bitmap {
	out := roaring.New()
	for _, uid := range uids {
		if doc, ok := s.uids[uid]; ok {
			out.Add(doc)
		}
	}
	return out
}

func (s *Snapshot) UID(doc uint32) (int64, bool) {
	if doc >= s.maxDoc || !s.live.Contains(doc) {
		return 0, false
	}
	return s.docUIDs[doc], true
}
