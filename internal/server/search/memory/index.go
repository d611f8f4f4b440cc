package memory

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/dmitrijs2005/fastsearch/internal/common"
	"github.com/dmitrijs2005/fastsearch/internal/server/search"
)

// allAttributes is the searchable set of a freshly created index.
var allAttributes = []string{
	"id", "name", "email", "phone", "date_of_birth", "age", "address", "city", "state",
	"direction", "country", "postal_code", "created_at", "updated_at", "deleted_at",
}

// index holds one named index. Documents get dense uint32 slots in insertion
// order; an upsert keeps the slot of the replaced document.
type index struct {
	primaryKey string
	settings   search.Settings

	docs  []search.Document
	slots map[string]uint32

	postings map[string]*roaring.Bitmap            // token -> slots
	filters  map[string]map[string]*roaring.Bitmap // attribute -> value -> slots
	live     *roaring.Bitmap

	terms      []string // sorted keys of postings
	termsDirty bool
}

func newIndex(primaryKey string) *index {
	return &index{
		primaryKey: primaryKey,
		settings: search.Settings{
			PaginationCeiling: search.DefaultPaginationCeiling,
		},
		slots:    make(map[string]uint32),
		postings: make(map[string]*roaring.Bitmap),
		filters:  make(map[string]map[string]*roaring.Bitmap),
		live:     roaring.New(),
	}
}

func (ix *index) searchable() []string {
	if len(ix.settings.Searchable) == 0 {
		return allAttributes
	}
	return ix.settings.Searchable
}

func (ix *index) upsert(d search.Document) error {
	if d.ID == "" {
		return fmt.Errorf("%w: document without %s", common.ErrInvalidArgument, ix.primaryKey)
	}
	d.Formatted = nil

	slot, ok := ix.slots[d.ID]
	if ok {
		ix.unindex(slot)
		ix.docs[slot] = d
	} else {
		slot = uint32(len(ix.docs))
		ix.docs = append(ix.docs, d)
		ix.slots[d.ID] = slot
	}
	ix.indexDoc(slot)
	return nil
}

func (ix *index) indexDoc(slot uint32) {
	d := ix.docs[slot]

	for _, attr := range ix.searchable() {
		v, _ := d.Field(attr)
		for _, tok := range tokenize(v) {
			bm, ok := ix.postings[tok]
			if !ok {
				bm = roaring.New()
				ix.postings[tok] = bm
				ix.termsDirty = true
			}
			bm.Add(slot)
		}
	}

	for _, attr := range ix.settings.Filterable {
		v, _ := d.Field(attr)
		values, ok := ix.filters[attr]
		if !ok {
			values = make(map[string]*roaring.Bitmap)
			ix.filters[attr] = values
		}
		bm, ok := values[v]
		if !ok {
			bm = roaring.New()
			values[v] = bm
		}
		bm.Add(slot)
	}

	if d.Live() {
		ix.live.Add(slot)
	}
}

func (ix *index) unindex(slot uint32) {
	d := ix.docs[slot]

	for _, attr := range ix.searchable() {
		v, _ := d.Field(attr)
		for _, tok := range tokenize(v) {
			if bm, ok := ix.postings[tok]; ok {
				bm.Remove(slot)
				if bm.IsEmpty() {
					delete(ix.postings, tok)
					ix.termsDirty = true
				}
			}
		}
	}

	for _, attr := range ix.settings.Filterable {
		v, _ := d.Field(attr)
		if bm, ok := ix.filters[attr][v]; ok {
			bm.Remove(slot)
		}
	}

	ix.live.Remove(slot)
}

// reindex rebuilds every posting list after a settings change.
func (ix *index) reindex() {
	ix.postings = make(map[string]*roaring.Bitmap)
	ix.filters = make(map[string]map[string]*roaring.Bitmap)
	ix.live = roaring.New()
	ix.termsDirty = true
	for slot := range ix.docs {
		ix.indexDoc(uint32(slot))
	}
}

func (ix *index) sortedTerms() []string {
	if ix.termsDirty {
		ix.terms = ix.terms[:0]
		for t := range ix.postings {
			ix.terms = append(ix.terms, t)
		}
		sort.Strings(ix.terms)
		ix.termsDirty = false
	}
	return ix.terms
}

// prefixPostings unions the postings of every term starting with prefix.
func (ix *index) prefixPostings(prefix string) *roaring.Bitmap {
	terms := ix.sortedTerms()
	out := roaring.New()
	for i := sort.SearchStrings(terms, prefix); i < len(terms) && strings.HasPrefix(terms[i], prefix); i++ {
		out.Or(ix.postings[terms[i]])
	}
	return out
}

// candidates returns live documents matching the filter and every query token.
func (ix *index) candidates(tokens []string, filter map[string]string) (*roaring.Bitmap, error) {
	set := ix.live.Clone()

	for attr, value := range filter {
		if !ix.settings.IsFilterable(attr) {
			return nil, fmt.Errorf("%w: attribute %q is not filterable", common.ErrInvalidArgument, attr)
		}
		bm, ok := ix.filters[attr][value]
		if !ok {
			return roaring.New(), nil
		}
		set.And(bm)
	}

	for i, tok := range tokens {
		if i == len(tokens)-1 {
			set.And(ix.prefixPostings(tok))
			continue
		}
		bm, ok := ix.postings[tok]
		if !ok {
			return roaring.New(), nil
		}
		set.And(bm)
	}

	return set, nil
}

// rank is the position of the first searchable attribute that matches; lower
// ranks sort first.
func (ix *index) rank(d search.Document, m matcher) int {
	for i, attr := range ix.searchable() {
		v, _ := d.Field(attr)
		if m.matches(v) {
			return i
		}
	}
	return len(ix.searchable())
}

func (ix *index) order(slots []uint32, m matcher, sortBy []string) error {
	type key struct {
		attr string
		desc bool
	}
	keys := make([]key, 0, len(sortBy))
	for _, s := range sortBy {
		attr, desc, err := search.SortKey(s)
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrInvalidArgument, err)
		}
		if !ix.settings.IsSortable(attr) {
			return fmt.Errorf("%w: attribute %q is not sortable", common.ErrInvalidArgument, attr)
		}
		keys = append(keys, key{attr, desc})
	}

	var ranks map[uint32]int
	if !m.empty() {
		ranks = make(map[uint32]int, len(slots))
		for _, s := range slots {
			ranks[s] = ix.rank(ix.docs[s], m)
		}
	}

	slices.SortStableFunc(slots, func(a, b uint32) int {
		for _, k := range keys {
			va, _ := ix.docs[a].Field(k.attr)
			vb, _ := ix.docs[b].Field(k.attr)
			c := compareValues(va, vb)
			if k.desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		if ranks != nil {
			if c := ranks[a] - ranks[b]; c != 0 {
				return c
			}
		}
		return int(a) - int(b)
	})
	return nil
}

// compareValues orders integers numerically and everything else
// case-insensitively.
func compareValues(a, b string) int {
	ia, errA := strconv.ParseInt(a, 10, 64)
	ib, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		switch {
		case ia < ib:
			return -1
		case ia > ib:
			return 1
		}
		return 0
	}
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

// formatted builds the _formatted map of a hit: string attributes with
// highlight tags, numeric attributes unchanged.
func (ix *index) formatted(d search.Document, m matcher) map[string]any {
	out := make(map[string]any, len(ix.searchable()))
	for _, attr := range ix.searchable() {
		switch attr {
		case "created_at":
			out[attr] = d.CreatedAt
		case "updated_at":
			out[attr] = d.UpdatedAt
		case "deleted_at":
			out[attr] = d.DeletedAt
		default:
			v, _ := d.Field(attr)
			h, _ := m.highlight(v, search.HighlightPreTag, search.HighlightPostTag)
			out[attr] = h
		}
	}
	return out
}
