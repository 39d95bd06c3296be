package chart

import (
	"strings"
)

// ReloadOperation selects which sections of a loaded chart to derive again.
type ReloadOperation uint8

const (
	Header ReloadOperation = 1 << iota
	Body
	Resources
	ResourceHeader

	Full = Header | Body | Resources | ResourceHeader
)

func (op ReloadOperation) Has(o ReloadOperation) bool {
	return op&o == o
}

func (op ReloadOperation) String() string {
	if op == 0 {
		return "none"
	}
	var names []string
	for _, f := range []struct {
		op   ReloadOperation
		name string
	}{
		{Header, "header"},
		{Body, "body"},
		{Resources, "resources"},
		{ResourceHeader, "resource-header"},
	} {
		if op.Has(f.op) {
			names = append(names, f.name)
		}
	}
	return strings.Join(names, "|")
}
