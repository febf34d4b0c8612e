package profit

import ents "github.com/ritheshan/agri/internal/model/entities"

// Comparator owns one portfolio list. It has a single owner and is not safe
// for concurrent use; each mutation builds the next list before swapping it in.
type Comparator struct {
	entries []ents.CropEntry
	ids     IDSource
}

func NewComparator(ids IDSource) *Comparator {
	if ids == nil {
		ids = NewID
	}
	return &Comparator{ids: ids}
}

// Add validates and appends; on error the list is unchanged.
func (c *Comparator) Add(d CropDraft) (ents.CropEntry, error) {
	next, added, err := AddCrop(c.entries, d, c.ids)
	if err != nil {
		return ents.CropEntry{}, err
	}
	c.entries = next
	return added, nil
}

// Remove drops id and reports whether it was present.
func (c *Comparator) Remove(id string) bool {
	next := RemoveCrop(c.entries, id)
	removed := len(next) != len(c.entries)
	c.entries = next
	return removed
}

// Entries returns a copy in insertion order.
func (c *Comparator) Entries() []ents.CropEntry {
	out := make([]ents.CropEntry, len(c.entries))
	copy(out, c.entries)
	return out
}

func (c *Comparator) Len() int { return len(c.entries) }

func (c *Comparator) Portfolio() ([]CropMetrics, Summary) {
	return ComputePortfolio(c.entries)
}
