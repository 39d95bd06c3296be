package parser

import (
	"errors"
	"sort"
	"strings"
	"time"

	"git.lost.host/meutraa/bmsplay/internal/game"
)

var errNoDocument = errors.New("bmson document missing")

// Document is a bmson 1.0 chart.
type Document struct {
	Version       string         `json:"version"`
	Info          BmsonInfo      `json:"info"`
	Lines         []BarLine      `json:"lines"`
	BPMEvents     []BPMEvent     `json:"bpm_events"`
	StopEvents    []StopEvent    `json:"stop_events"`
	SoundChannels []SoundChannel `json:"sound_channels"`
	BGA           BGA            `json:"bga"`
}

type BmsonInfo struct {
	Title         string   `json:"title"`
	Subtitle      string   `json:"subtitle"`
	Artist        string   `json:"artist"`
	Subartists    []string `json:"subartists"`
	Genre         string   `json:"genre"`
	ModeHint      string   `json:"mode_hint"`
	ChartName     string   `json:"chart_name"`
	Level         int      `json:"level"`
	InitBPM       float64  `json:"init_bpm"`
	JudgeRank     float64  `json:"judge_rank"`
	Total         float64  `json:"total"`
	BackImage     string   `json:"back_image"`
	EyecatchImage string   `json:"eyecatch_image"`
	BannerImage   string   `json:"banner_image"`
	PreviewMusic  string   `json:"preview_music"`
	Resolution    int      `json:"resolution"`
}

type BarLine struct {
	Y int64 `json:"y"`
}

type BPMEvent struct {
	Y   int64   `json:"y"`
	BPM float64 `json:"bpm"`
}

type StopEvent struct {
	Y        int64 `json:"y"`
	Duration int64 `json:"duration"`
}

type SoundChannel struct {
	Name  string      `json:"name"`
	Notes []BmsonNote `json:"notes"`
}

type BmsonNote struct {
	X int   `json:"x"` // lane, 0 for BGM
	Y int64 `json:"y"`
	L int64 `json:"l"` // long note length in pulses
	C bool  `json:"c"` // continue instead of restarting the sound
}

type BGA struct {
	Header      []BGAHeader `json:"bga_header"`
	Events      []BGAEvent  `json:"bga_events"`
	LayerEvents []BGAEvent  `json:"layer_events"`
	PoorEvents  []BGAEvent  `json:"poor_events"`
}

type BGAHeader struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type BGAEvent struct {
	Y  int64 `json:"y"`
	ID int   `json:"id"`
}

// BmsonParser reads bmson documents. Sound channels become audio resources
// indexed by their position, and notes become slices of them.
type BmsonParser struct{}

func document(src *Source) (*Document, error) {
	if nil == src.Document {
		return nil, &FormatError{Path: src.Path, Err: errNoDocument}
	}
	return src.Document, nil
}

func resolution(doc *Document) float64 {
	if doc.Info.Resolution <= 0 {
		return 240
	}
	return float64(doc.Info.Resolution)
}

func (p *BmsonParser) Header(src *Source) (game.Header, error) {
	doc, err := document(src)
	if nil != err {
		return game.Header{}, err
	}
	info := doc.Info
	h := game.NewHeader()
	h.Title = info.Title
	h.Subtitle = info.Subtitle
	h.Artist = info.Artist
	h.Subartist = strings.Join(info.Subartists, " / ")
	h.Genre = info.Genre
	h.ModeHint = info.ModeHint
	h.ChartName = info.ChartName
	h.PlayLevel = info.Level
	h.Rank = int(info.JudgeRank)
	h.Total = info.Total
	if info.InitBPM > 0 {
		h.BPM = info.InitBPM
	}
	h.StageFile = info.EyecatchImage
	h.Banner = info.BannerImage
	h.BackBMP = info.BackImage
	h.Preview = info.PreviewMusic
	h.Resolution = int(resolution(doc))
	return h, nil
}

func (p *BmsonParser) Resources(src *Source) (game.ResourceTable, error) {
	doc, err := document(src)
	if nil != err {
		return game.ResourceTable{}, err
	}
	t := game.NewResourceTable()
	for i, ch := range doc.SoundChannels {
		t.Entries = append(t.Entries, game.Resource{Kind: game.ResourceAudio, Index: i, Path: ch.Name})
	}
	for _, h := range doc.BGA.Header {
		t.Entries = append(t.Entries, game.Resource{Kind: game.ImageKind(h.Name), Index: h.ID, Path: h.Name})
	}
	t.Sort()
	return t, nil
}

func (p *BmsonParser) Body(src *Source, header game.Header, res game.ResourceTable) (Body, error) {
	doc, err := document(src)
	if nil != err {
		return Body{}, err
	}
	ppb := resolution(doc)
	beatOf := func(y int64) float64 { return float64(y) / ppb }

	points := []tempoPoint{}
	for _, b := range doc.BPMEvents {
		if b.BPM > 0 {
			points = append(points, tempoPoint{beat: beatOf(b.Y), bpm: b.BPM})
		}
	}
	for _, s := range doc.StopEvents {
		if s.Duration > 0 {
			points = append(points, tempoPoint{beat: beatOf(s.Y), stop: beatOf(s.Duration)})
		}
	}
	tm := newTempoMap(header.BPM, points)

	events := []game.Event{}
	for _, b := range doc.BPMEvents {
		if b.BPM <= 0 {
			continue
		}
		beat := beatOf(b.Y)
		events = append(events, game.Event{Kind: game.EventBPM, Beat: beat, Time: tm.timeAt(beat), Resource: game.NoResource, Value: b.BPM})
	}
	for _, s := range doc.StopEvents {
		if s.Duration <= 0 {
			continue
		}
		beat := beatOf(s.Y)
		stop := beatsToDuration(beatOf(s.Duration), tm.bpmAt(beat))
		events = append(events, game.Event{Kind: game.EventStop, Beat: beat, Time: tm.timeAt(beat), Resource: game.NoResource, Value: stop.Seconds()})
	}
	for i, ch := range doc.SoundChannels {
		events = append(events, channelEvents(i, ch, tm, beatOf)...)
	}

	bgaKinds := []struct {
		kind   game.EventKind
		events []BGAEvent
	}{
		{game.EventBGA, doc.BGA.Events},
		{game.EventBGALayer, doc.BGA.LayerEvents},
		{game.EventBGAPoor, doc.BGA.PoorEvents},
	}
	for _, k := range bgaKinds {
		for _, e := range k.events {
			beat := beatOf(e.Y)
			events = append(events, game.Event{Kind: k.kind, Beat: beat, Time: tm.timeAt(beat), Resource: e.ID})
		}
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Beat < events[j].Beat })

	body := Body{}
	for i := range events {
		countEvent(&body, &events[i])
	}
	body.Events = events

	for i, l := range doc.Lines {
		body.Measures = append(body.Measures, game.Measure{
			Index: i,
			Scale: 1,
			Beat:  beatOf(l.Y),
			Time:  tm.timeAt(beatOf(l.Y)),
		})
	}
	for i := range body.Measures {
		if i+1 < len(body.Measures) {
			body.Measures[i].Scale = (body.Measures[i+1].Beat - body.Measures[i].Beat) / 4
		}
	}
	return body, nil
}

// channelEvents slices one sound channel. A note plays its channel from the
// offset reached since the last restarting note up to the next note of the
// channel. The last note plays to the end of the asset.
func channelEvents(index int, ch SoundChannel, tm *tempoMap, beatOf func(int64) float64) []game.Event {
	notes := make([]BmsonNote, len(ch.Notes))
	copy(notes, ch.Notes)
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].Y < notes[j].Y })

	events := make([]game.Event, 0, len(notes))
	var origin time.Duration
	for i, n := range notes {
		t := tm.timeAt(beatOf(n.Y))
		if i == 0 || !n.C {
			origin = t
		}
		ev := game.Event{
			Kind:       game.EventBGM,
			Beat:       beatOf(n.Y),
			Time:       t,
			Lane:       n.X,
			Resource:   index,
			SliceStart: t - origin,
			SliceEnd:   game.Unbounded,
			Continue:   n.C,
		}
		if i+1 < len(notes) {
			ev.SliceEnd = tm.timeAt(beatOf(notes[i+1].Y)) - origin
		}
		if n.X > 0 {
			ev.Kind = game.EventNote
			if n.L > 0 {
				ev.Kind = game.EventLongStart
			}
		}
		events = append(events, ev)
		if n.X > 0 && n.L > 0 {
			end := beatOf(n.Y + n.L)
			events = append(events, game.Event{
				Kind:     game.EventLongEnd,
				Beat:     end,
				Time:     tm.timeAt(end),
				Lane:     n.X,
				Resource: game.NoResource,
			})
		}
	}
	return events
}
