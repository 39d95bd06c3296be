package game

import (
	"time"
)

// Section is a bitset of the derived parts of a chart.
type Section uint8

const (
	SectionHeader Section = 1 << iota
	SectionBody
	SectionResourceHeader
	SectionResources
)

// Chart is a derived chart model. A committed chart is never mutated, reloads
// build a new one from Clone.
type Chart struct {
	Type FileType
	Path string

	Header    Header
	Events    []Event
	Measures  []Measure
	Resources ResourceTable

	// Valid records which sections have been derived since the last full
	// load. Sections without their bit hold zero values.
	Valid Section

	NoteCount int64
	LongCount int64
	MineCount int64
	Duration  time.Duration
}

func (c *Chart) Has(s Section) bool {
	return c.Valid&s == s
}

// Clone returns a shallow copy. Slices and maps are shared, which is safe
// because committed charts are read only.
func (c *Chart) Clone() *Chart {
	cc := *c
	return &cc
}

// Invalidate drops the given sections and resets their fields.
func (c *Chart) Invalidate(s Section) {
	if s&SectionHeader != 0 {
		c.Header = Header{}
	}
	if s&SectionBody != 0 {
		c.Events = nil
		c.Measures = nil
		c.NoteCount, c.LongCount, c.MineCount = 0, 0, 0
		c.Duration = 0
	}
	if s&SectionResourceHeader != 0 {
		c.Resources = ResourceTable{}
	}
	c.Valid &^= s
}

// Due returns the events starting at index from that fire at or before until,
// and the index of the first event still pending.
func (c *Chart) Due(from int, until time.Duration) ([]Event, int) {
	end := from
	for end < len(c.Events) && c.Events[end].Time <= until {
		end++
	}
	return c.Events[from:end], end
}
