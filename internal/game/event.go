package game

import (
	"math"
	"time"
)

// Unbounded is the slice end of an event that plays to the natural end of
// its asset.
const Unbounded = time.Duration(math.MaxInt64)

// NoResource marks an event that does not reference the resource table.
const NoResource = -1

type EventKind uint8

const (
	EventBGM EventKind = iota
	EventNote
	EventLongStart
	EventLongEnd
	EventInvisible
	EventMine
	EventBGA
	EventBGALayer
	EventBGAPoor
	EventBPM
	EventStop
)

var eventKindNames = [...]string{
	EventBGM:       "bgm",
	EventNote:      "note",
	EventLongStart: "long-start",
	EventLongEnd:   "long-end",
	EventInvisible: "invisible",
	EventMine:      "mine",
	EventBGA:       "bga",
	EventBGALayer:  "bga-layer",
	EventBGAPoor:   "bga-poor",
	EventBPM:       "bpm",
	EventStop:      "stop",
}

func (k EventKind) String() string {
	if int(k) < len(eventKindNames) {
		return eventKindNames[k]
	}
	return "unknown"
}

// Sounds reports whether events of this kind trigger an audio resource.
func (k EventKind) Sounds() bool {
	switch k {
	case EventBGM, EventNote, EventLongStart, EventInvisible:
		return true
	}
	return false
}

// Image reports whether events of this kind switch a BGA image.
func (k EventKind) Image() bool {
	return k == EventBGA || k == EventBGALayer || k == EventBGAPoor
}

type Event struct {
	Kind    EventKind
	Measure int
	Beat    float64       // Beats from the start of the chart, 4 per unscaled measure
	Time    time.Duration // The time the event fires
	Lane    int           // The chart channel, 0 for lane-less events

	Resource   int           // Index into the resource table, NoResource if unused
	SliceStart time.Duration // Offset into the asset to start playback at
	SliceEnd   time.Duration // Offset into the asset to stop at, Unbounded for natural end
	Continue   bool          // bmson continuation flag

	Value float64 // BPM for EventBPM, seconds for EventStop, damage for EventMine
}
