// Package fixture holds sample charts and fakes shared by tests.
package fixture

// BMS is a small chart with two keysounds, an image and a movie.
// At 120 BPM a measure lasts two seconds.
const BMS = `#PLAYER 1
#GENRE Fixture
#TITLE Fixture Song
#ARTIST fixture
#BPM 120
#PLAYLEVEL 1

#WAV01 kick.wav
#WAV02 snare.wav
#BMP01 back.bmp
#BMP02 intro.mpg

#00001:01
#00004:01
#00011:0102
#00112:02
`

// BMSRetitled is BMS with another title and a third keysound.
const BMSRetitled = `#PLAYER 1
#GENRE Fixture
#TITLE Other Song
#ARTIST fixture
#BPM 120
#PLAYLEVEL 1

#WAV01 kick.wav
#WAV02 snare.wav
#WAV03 hat.wav
#BMP01 back.bmp
#BMP02 intro.mpg

#00001:01
#00004:01
#00011:0102
#00112:02
#00113:03
`

// Bmson slices one piano track into two notes.
const Bmson = `{
  "version": "1.0.0",
  "info": {"title": "Fixture bmson", "artist": "fixture", "init_bpm": 60, "resolution": 240},
  "lines": [{"y": 0}, {"y": 960}],
  "sound_channels": [
    {"name": "piano.wav", "notes": [
      {"x": 1, "y": 0, "l": 0, "c": false},
      {"x": 2, "y": 240, "l": 0, "c": true}
    ]}
  ]
}`
