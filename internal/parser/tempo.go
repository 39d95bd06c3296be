package parser

import (
	"sort"
	"time"
)

// tempoPoint changes the tempo (bpm > 0) and/or pauses the scroll for a
// number of beats (stop > 0) at a beat position.
type tempoPoint struct {
	beat float64
	bpm  float64
	stop float64
}

type tempoSegment struct {
	beat      float64
	time      time.Duration
	bpm       float64
	afterStop bool
}

type tempoMap struct {
	segments []tempoSegment
}

func beatsToDuration(beats, bpm float64) time.Duration {
	if bpm <= 0 {
		return 0
	}
	return time.Duration(beats * 60 / bpm * float64(time.Second))
}

func newTempoMap(initial float64, points []tempoPoint) *tempoMap {
	sort.SliceStable(points, func(i, j int) bool {
		if points[i].beat != points[j].beat {
			return points[i].beat < points[j].beat
		}
		// tempo changes apply before a stop on the same beat
		return points[i].stop == 0 && points[j].stop > 0
	})
	cur := tempoSegment{bpm: initial}
	tm := &tempoMap{segments: []tempoSegment{cur}}
	for _, p := range points {
		if p.beat < 0 {
			continue
		}
		t := cur.time + beatsToDuration(p.beat-cur.beat, cur.bpm)
		if p.bpm > 0 {
			cur = tempoSegment{beat: p.beat, time: t, bpm: p.bpm}
			tm.segments = append(tm.segments, cur)
		}
		if p.stop > 0 {
			cur = tempoSegment{beat: p.beat, time: t + beatsToDuration(p.stop, cur.bpm), bpm: cur.bpm, afterStop: true}
			tm.segments = append(tm.segments, cur)
		}
	}
	return tm
}

// segmentAt finds the segment in effect at beat. Events on the beat of a stop
// fire before the stop.
func (tm *tempoMap) segmentAt(beat float64) tempoSegment {
	for i := len(tm.segments) - 1; i > 0; i-- {
		s := tm.segments[i]
		if s.beat < beat || (s.beat == beat && !s.afterStop) {
			return s
		}
	}
	return tm.segments[0]
}

func (tm *tempoMap) timeAt(beat float64) time.Duration {
	s := tm.segmentAt(beat)
	return s.time + beatsToDuration(beat-s.beat, s.bpm)
}

func (tm *tempoMap) bpmAt(beat float64) float64 {
	return tm.segmentAt(beat).bpm
}
