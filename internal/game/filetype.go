package game

import (
	"path/filepath"
	"strings"
)

type FileType uint8

const (
	Standard FileType = iota + 1
	Extended
	Long
	Popn
	Bmson
)

var FileTypeMap = map[string]FileType{
	".bms":   Standard,
	".bme":   Extended,
	".bml":   Long,
	".pms":   Popn,
	".bmson": Bmson,
}

func (t FileType) String() string {
	switch t {
	case Standard:
		return "bms"
	case Extended:
		return "bme"
	case Long:
		return "bml"
	case Popn:
		return "pms"
	case Bmson:
		return "bmson"
	}
	return "unknown"
}

// LineOriented reports whether the format is one of the #-directive dialects.
func (t FileType) LineOriented() bool {
	return t >= Standard && t <= Popn
}

// FileTypeFromPath maps a chart path to its format by extension.
func FileTypeFromPath(path string) (FileType, bool) {
	t, ok := FileTypeMap[strings.ToLower(filepath.Ext(path))]
	return t, ok
}
