// Package library indexes charts on disk by the hash of their normalized
// content, so the same chart is recognised whatever its file is called.
package library

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"git.lost.host/meutraa/bmsplay/internal/game"
)

type Entry struct {
	Hash      string
	Path      string
	Type      game.FileType
	Title     string
	Artist    string
	Genre     string
	PlayLevel int
	Notes     int64
	Duration  time.Duration
	Indexed   time.Time
}

type Library struct {
	db  *sql.DB
	log *zap.Logger
}

const schema = `
create table if not exists charts
  (
	  path text not null primary key,
	  hash text not null,
	  type integer,
	  title text,
	  artist text,
	  genre text,
	  level integer,
	  notes integer,
	  duration integer,
	  indexed integer
  );
create index if not exists charts_hash on charts(hash);
`

func Open(path string, log *zap.Logger) (*Library, error) {
	db, err := sql.Open("sqlite3", path)
	if nil != err {
		return nil, fmt.Errorf("unable to open library %s: %w", path, err)
	}
	// sqlite serializes writers anyway
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); nil != err {
		db.Close()
		return nil, fmt.Errorf("unable to create library schema: %w", err)
	}
	return &Library{db: db, log: log}, nil
}

func (l *Library) Close() error {
	return l.db.Close()
}

// Put records a chart, replacing what was known about its path.
func (l *Library) Put(e Entry) error {
	if e.Indexed.IsZero() {
		e.Indexed = time.Now()
	}
	_, err := l.db.Exec(`insert or replace into charts
		(path, hash, type, title, artist, genre, level, notes, duration, indexed)
		values (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Path, e.Hash, int(e.Type), e.Title, e.Artist, e.Genre, e.PlayLevel,
		e.Notes, int64(e.Duration), e.Indexed.Unix(),
	)
	if nil != err {
		return fmt.Errorf("unable to save %s: %w", e.Path, err)
	}
	return nil
}

const columns = `path, hash, type, title, artist, genre, level, notes, duration, indexed`

func (l *Library) query(q string, args ...interface{}) ([]Entry, error) {
	rows, err := l.db.Query(q, args...)
	if nil != err {
		return nil, err
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var t int
		var duration, indexed int64
		if err := rows.Scan(&e.Path, &e.Hash, &t, &e.Title, &e.Artist, &e.Genre,
			&e.PlayLevel, &e.Notes, &duration, &indexed); nil != err {
			l.log.Warn("unable to read library row", zap.Error(err))
			continue
		}
		e.Type = game.FileType(t)
		e.Duration = time.Duration(duration)
		e.Indexed = time.Unix(indexed, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ByHash returns every path holding the chart with the given hash.
func (l *Library) ByHash(hash string) ([]Entry, error) {
	return l.query("select "+columns+" from charts where hash = ? order by path", hash)
}

// ByPath returns the entry of one file.
func (l *Library) ByPath(path string) (Entry, bool, error) {
	entries, err := l.query("select "+columns+" from charts where path = ?", path)
	if nil != err || len(entries) == 0 {
		return Entry{}, false, err
	}
	return entries[0], true, nil
}

func (l *Library) All() ([]Entry, error) {
	return l.query("select " + columns + " from charts order by title, path")
}

// Remove forgets a path.
func (l *Library) Remove(path string) error {
	_, err := l.db.Exec("delete from charts where path = ?", path)
	return err
}
