package game

import (
	"path/filepath"
	"sort"
	"strings"
)

type ResourceKind uint8

const (
	ResourceAudio ResourceKind = iota + 1
	ResourceImage
	ResourceVideo
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceAudio:
		return "audio"
	case ResourceImage:
		return "image"
	case ResourceVideo:
		return "video"
	}
	return "unknown"
}

var videoExtensions = map[string]bool{
	".mpg": true, ".mpeg": true, ".avi": true, ".mp4": true,
	".wmv": true, ".webm": true, ".m4v": true, ".mkv": true,
}

// ImageKind tells image and movie BGA declarations apart by extension.
func ImageKind(path string) ResourceKind {
	if videoExtensions[strings.ToLower(filepath.Ext(path))] {
		return ResourceVideo
	}
	return ResourceImage
}

// ResourceKey identifies one declared asset. Audio and image indices live in
// separate namespaces (#WAV01 and #BMP01 are different assets).
type ResourceKey struct {
	Kind  ResourceKind
	Index int
}

type Resource struct {
	Kind  ResourceKind
	Index int
	Path  string
}

func (r Resource) Key() ResourceKey {
	k := r.Kind
	if k == ResourceVideo {
		k = ResourceImage
	}
	return ResourceKey{Kind: k, Index: r.Index}
}

// ResourceTable is the resource header of a chart: declared assets plus the
// indexed tempo tables the body refers to.
type ResourceTable struct {
	Entries []Resource
	BPMs    map[int]float64 // #BPMxx / #EXBPMxx
	Stops   map[int]float64 // #STOPxx, in 1/192 of a whole note
}

func NewResourceTable() ResourceTable {
	return ResourceTable{
		BPMs:  map[int]float64{},
		Stops: map[int]float64{},
	}
}

// Sort orders entries by kind then index, later declarations of the same key
// win.
func (t *ResourceTable) Sort() {
	seen := map[ResourceKey]int{}
	entries := make([]Resource, 0, len(t.Entries))
	for _, e := range t.Entries {
		if i, ok := seen[e.Key()]; ok {
			entries[i] = e
			continue
		}
		seen[e.Key()] = len(entries)
		entries = append(entries, e)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Key(), entries[j].Key()
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Index < b.Index
	})
	t.Entries = entries
}

func (t *ResourceTable) Lookup(key ResourceKey) (Resource, bool) {
	i := sort.Search(len(t.Entries), func(i int) bool {
		k := t.Entries[i].Key()
		return k.Kind > key.Kind || (k.Kind == key.Kind && k.Index >= key.Index)
	})
	if i < len(t.Entries) && t.Entries[i].Key() == key {
		return t.Entries[i], true
	}
	return Resource{}, false
}
