package game

type Header struct {
	Title      string
	Subtitle   string
	Artist     string
	Subartist  string
	Genre      string
	ChartName  string
	ModeHint   string
	Player     int
	PlayLevel  int
	Difficulty int
	Rank       int
	Total      float64
	BPM        float64 // Initial BPM
	VolWav     int

	StageFile string
	Banner    string
	BackBMP   string
	Preview   string

	LNType     int
	LNObj      int // Resource index ending a long note, NoResource if unset
	Resolution int // Pulses per beat, bmson only
}

func NewHeader() Header {
	return Header{
		BPM:        130,
		Player:     1,
		VolWav:     100,
		LNType:     1,
		LNObj:      NoResource,
		Resolution: 240,
	}
}
