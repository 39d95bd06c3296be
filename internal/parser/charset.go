package parser

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/japanese"
)

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// Charset looks up an encoding by its WHATWG label ("utf-8", "shift_jis",
// "euc-jp", ...). An empty name selects auto detection.
func Charset(name string) (encoding.Encoding, error) {
	if name == "" || name == "auto" {
		return nil, nil
	}
	enc, err := htmlindex.Get(name)
	if nil != err {
		return nil, fmt.Errorf("unknown charset %q: %w", name, err)
	}
	return enc, nil
}

// Decode converts raw chart bytes to text. With a nil encoding, valid UTF-8
// is taken as is and anything else is read as Shift_JIS, which is what most
// BMS files in the wild are written in.
func Decode(content []byte, enc encoding.Encoding) (string, error) {
	content = bytes.TrimPrefix(content, utf8BOM)
	if nil == enc {
		if utf8.Valid(content) {
			return string(content), nil
		}
		enc = japanese.ShiftJIS
	}
	out, err := enc.NewDecoder().Bytes(content)
	if nil != err {
		return "", err
	}
	return string(out), nil
}
