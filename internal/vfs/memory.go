package vfs

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Memory serves assets from a map, names compared case insensitively.
type Memory struct {
	mu    sync.Mutex
	files map[string][]byte
	Reads int
}

func NewMemory(files map[string][]byte) *Memory {
	m := &Memory{files: map[string][]byte{}}
	for name, data := range files {
		m.files[strings.ToLower(name)] = data
	}
	return m
}

func (m *Memory) Put(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[strings.ToLower(name)] = data
}

type memoryEntry struct {
	m    *Memory
	name string
	key  string
}

func (e *memoryEntry) Name() string     { return e.name }
func (e *memoryEntry) IsReal() bool     { return false }
func (e *memoryEntry) FullPath() string { return e.key }

func (e *memoryEntry) ReadAllBytes(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); nil != err {
		return nil, err
	}
	e.m.mu.Lock()
	defer e.m.mu.Unlock()
	data, ok := e.m.files[e.key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", e.name, ErrNotExist)
	}
	e.m.Reads++
	return data, nil
}

func (m *Memory) Open(ctx context.Context, name string) (Entry, error) {
	if err := checkName(name); nil != err {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range Candidates(name) {
		key := strings.ToLower(c)
		if _, ok := m.files[key]; ok {
			return &memoryEntry{m: m, name: name, key: key}, nil
		}
	}
	return nil, fmt.Errorf("%s: %w", name, ErrNotExist)
}

func (m *Memory) Close() error {
	return nil
}
