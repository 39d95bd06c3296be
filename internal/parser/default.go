package parser

import (
	"sort"
	"strconv"
	"strings"

	"git.lost.host/meutraa/bmsplay/internal/game"
)

// DefaultParser reads the #-directive dialects (bms, bme, bml, pms).
type DefaultParser struct{}

// 01 – BGM keysound
// 02 – Measure length
// 03 – BPM as hex
// 04 – BGA base image
// 06 – BGA poor image
// 07 – BGA layer image
// 08 – BPM from #BPMxx
// 09 – STOP from #STOPxx
// 1x/2x – Player 1/2 notes
// 3x/4x – Player 1/2 invisible notes
// 5x/6x – Player 1/2 long notes (LNTYPE 1)
// Dx/Ex – Player 1/2 mines

// ParseIndex reads a two character base-36 resource index.
func ParseIndex(s string) (int, bool) {
	if len(s) != 2 {
		return 0, false
	}
	v, err := strconv.ParseInt(s, 36, 32)
	if nil != err {
		return 0, false
	}
	return int(v), true
}

// isBodyLine matches #mmmcc:data.
func isBodyLine(l string) bool {
	if len(l) < 7 || l[6] != ':' {
		return false
	}
	for _, c := range l[1:4] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (p *DefaultParser) Header(src *Source) (game.Header, error) {
	h := game.NewHeader()
	for _, l := range src.Directives() {
		if isBodyLine(l) {
			continue
		}
		key, value := splitDirective(l)
		switch key {
		case "TITLE":
			h.Title = value
		case "SUBTITLE":
			h.Subtitle = value
		case "ARTIST":
			h.Artist = value
		case "SUBARTIST":
			h.Subartist = value
		case "GENRE":
			h.Genre = value
		case "PLAYER":
			setInt(&h.Player, value)
		case "PLAYLEVEL":
			setInt(&h.PlayLevel, value)
		case "DIFFICULTY":
			setInt(&h.Difficulty, value)
		case "RANK":
			setInt(&h.Rank, value)
		case "TOTAL":
			setFloat(&h.Total, value)
		case "BPM":
			setFloat(&h.BPM, value)
		case "VOLWAV":
			setInt(&h.VolWav, value)
		case "STAGEFILE":
			h.StageFile = value
		case "BANNER":
			h.Banner = value
		case "BACKBMP":
			h.BackBMP = value
		case "PREVIEW":
			h.Preview = value
		case "LNTYPE":
			setInt(&h.LNType, value)
		case "LNOBJ":
			if i, ok := ParseIndex(value); ok {
				h.LNObj = i
			}
		}
	}
	return h, nil
}

func (p *DefaultParser) Resources(src *Source) (game.ResourceTable, error) {
	t := game.NewResourceTable()
	for _, l := range src.Directives() {
		if isBodyLine(l) {
			continue
		}
		key, value := splitDirective(l)
		var prefix string
		switch {
		case strings.HasPrefix(key, "EXBPM"):
			prefix = "EXBPM"
		case strings.HasPrefix(key, "WAV"), strings.HasPrefix(key, "BMP"), strings.HasPrefix(key, "BPM"):
			prefix = key[:3]
		case strings.HasPrefix(key, "STOP"):
			prefix = "STOP"
		default:
			continue
		}
		index, ok := ParseIndex(key[len(prefix):])
		if !ok || value == "" {
			continue
		}
		switch prefix {
		case "WAV":
			t.Entries = append(t.Entries, game.Resource{Kind: game.ResourceAudio, Index: index, Path: value})
		case "BMP":
			t.Entries = append(t.Entries, game.Resource{Kind: game.ImageKind(value), Index: index, Path: value})
		case "BPM", "EXBPM":
			if v, err := strconv.ParseFloat(value, 64); nil == err {
				t.BPMs[index] = v
			}
		case "STOP":
			if v, err := strconv.ParseFloat(value, 64); nil == err {
				t.Stops[index] = v
			}
		}
	}
	t.Sort()
	return t, nil
}

type channelData struct {
	measure int
	channel string
	data    string
}

// laneOf folds the note, invisible, long and mine channels of a key onto one
// lane id, so 16, 36, 56 and D6 share a lane.
func laneOf(channel string) int {
	var player byte
	switch channel[0] {
	case '1', '3', '5', 'D':
		player = '1'
	case '2', '4', '6', 'E':
		player = '2'
	default:
		return 0
	}
	lane, _ := ParseIndex(string([]byte{player, channel[1]}))
	return lane
}

func (p *DefaultParser) Body(src *Source, header game.Header, res game.ResourceTable) (Body, error) {
	scales := map[int]float64{}
	blocks := []channelData{}
	maxMeasure := 0

	for _, l := range src.Directives() {
		if !isBodyLine(l) {
			continue
		}
		measure, _ := strconv.Atoi(l[1:4])
		channel := strings.ToUpper(l[4:6])
		data := strings.TrimSpace(l[7:])
		if measure > maxMeasure {
			maxMeasure = measure
		}
		if channel == "02" {
			if v, err := strconv.ParseFloat(data, 64); nil == err && v > 0 {
				scales[measure] = v
			}
			continue
		}
		blocks = append(blocks, channelData{measure: measure, channel: channel, data: data})
	}

	scaleOf := func(m int) float64 {
		if s, ok := scales[m]; ok {
			return s
		}
		return 1
	}
	// Beat count is 4 per unscaled measure
	measureBeats := make([]float64, maxMeasure+2)
	for m := 1; m < len(measureBeats); m++ {
		measureBeats[m] = measureBeats[m-1] + 4*scaleOf(m-1)
	}

	events := []game.Event{}
	points := []tempoPoint{}

	for _, b := range blocks {
		count := len(b.data) / 2
		for i := 0; i < count; i++ {
			pair := strings.ToUpper(b.data[i*2 : i*2+2])
			if pair == "00" {
				continue
			}
			beat := measureBeats[b.measure] + float64(i)/float64(count)*4*scaleOf(b.measure)
			ev := game.Event{Measure: b.measure, Beat: beat, Resource: game.NoResource}

			switch b.channel[0] {
			case '0':
				switch b.channel {
				case "01":
					ev.Kind = game.EventBGM
				case "03":
					v, err := strconv.ParseInt(pair, 16, 32)
					if nil != err || v <= 0 {
						continue
					}
					ev.Kind, ev.Value = game.EventBPM, float64(v)
					points = append(points, tempoPoint{beat: beat, bpm: ev.Value})
					events = append(events, ev)
					continue
				case "04":
					ev.Kind = game.EventBGA
				case "06":
					ev.Kind = game.EventBGAPoor
				case "07":
					ev.Kind = game.EventBGALayer
				case "08":
					index, ok := ParseIndex(pair)
					bpm, found := res.BPMs[index]
					if !ok || !found || bpm <= 0 {
						continue
					}
					ev.Kind, ev.Value = game.EventBPM, bpm
					points = append(points, tempoPoint{beat: beat, bpm: bpm})
					events = append(events, ev)
					continue
				case "09":
					index, ok := ParseIndex(pair)
					stop, found := res.Stops[index]
					if !ok || !found || stop <= 0 {
						continue
					}
					// 192 per whole note, 48 per beat
					ev.Kind, ev.Value = game.EventStop, stop/48
					points = append(points, tempoPoint{beat: beat, stop: ev.Value})
					events = append(events, ev)
					continue
				default:
					continue
				}
			case '1', '2':
				ev.Kind, ev.Lane = game.EventNote, laneOf(b.channel)
			case '3', '4':
				ev.Kind, ev.Lane = game.EventInvisible, laneOf(b.channel)
			case '5', '6':
				ev.Kind, ev.Lane = game.EventLongStart, laneOf(b.channel)
			case 'D', 'E':
				ev.Kind, ev.Lane = game.EventMine, laneOf(b.channel)
				if v, ok := ParseIndex(pair); ok {
					ev.Value = float64(v)
				}
				events = append(events, ev)
				continue
			default:
				continue
			}

			index, ok := ParseIndex(pair)
			if !ok {
				continue
			}
			ev.Resource = index
			ev.SliceEnd = game.Unbounded
			events = append(events, ev)
		}
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Beat < events[j].Beat })
	pairLongNotes(events, header.LNObj)

	tm := newTempoMap(header.BPM, points)
	body := Body{}
	for i := range events {
		ev := &events[i]
		ev.Time = tm.timeAt(ev.Beat)
		if ev.Kind == game.EventStop {
			// Value was in beats until the tempo is known
			ev.Value = beatsToDuration(ev.Value, tm.bpmAt(ev.Beat)).Seconds()
		}
		countEvent(&body, ev)
	}
	body.Events = events

	for m := 0; m <= maxMeasure; m++ {
		body.Measures = append(body.Measures, game.Measure{
			Index: m,
			Scale: scaleOf(m),
			Beat:  measureBeats[m],
			Time:  tm.timeAt(measureBeats[m]),
		})
	}
	return body, nil
}

// pairLongNotes turns alternating 5x/6x heads into start/end pairs and
// applies #LNOBJ endings to the previous note in the lane.
func pairLongNotes(events []game.Event, lnobj int) {
	open := map[int]bool{}
	last := map[int]int{}
	for i := range events {
		ev := &events[i]
		switch ev.Kind {
		case game.EventLongStart:
			if open[ev.Lane] {
				ev.Kind = game.EventLongEnd
			}
			open[ev.Lane] = !open[ev.Lane]
		case game.EventNote:
			if lnobj != game.NoResource && ev.Resource == lnobj {
				if j, ok := last[ev.Lane]; ok {
					events[j].Kind = game.EventLongStart
					ev.Kind = game.EventLongEnd
					delete(last, ev.Lane)
					continue
				}
			}
			last[ev.Lane] = i
		}
	}
}

func countEvent(body *Body, ev *game.Event) {
	switch ev.Kind {
	case game.EventNote:
		body.NoteCount++
	case game.EventLongStart:
		body.NoteCount++
		body.LongCount++
	case game.EventMine:
		body.MineCount++
	}
	if ev.Time > body.Duration {
		body.Duration = ev.Time
	}
}

func setInt(dst *int, value string) {
	if v, err := strconv.Atoi(value); nil == err {
		*dst = v
	}
}

func setFloat(dst *float64, value string) {
	if v, err := strconv.ParseFloat(value, 64); nil == err {
		*dst = v
	}
}
