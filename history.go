// Copyright (C) 2022  Shanhu Tech Inc.
//
// This program is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published by the
// Free Software Foundation, either version 3 of the License, or (at your
// option) any later version.
//
// This program is distributed in the hope that it will be useful, but WITHOUT
// ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or
// FITNESS FOR A PARTICULAR PURPOSE.  See the GNU Affero General Public License
// for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package quarkmk

import (
	"strings"
	"time"

	"shanhu.io/misc/errcode"
	"shanhu.io/misc/sqlx"

	_ "modernc.org/sqlite" // sqlite driver
)

// HistoryEntry is the record of one build run.
type HistoryEntry struct {
	Start    time.Time
	Mode     string
	Targets  []string
	Failed   string // Target that failed to build, if any.
	Err      string
	Duration time.Duration
}

// OK tells if the run succeeded.
func (e *HistoryEntry) OK() bool { return e.Err == "" }

type history struct {
	db *sqlx.DB
}

const historySchema = `create table if not exists runs (
	id integer primary key autoincrement,
	start integer not null,
	mode text not null,
	targets text not null,
	failed text not null,
	err text not null,
	duration integer not null
)`

// openHistory opens the history database. The directory of f must exist.
func openHistory(f string) (*history, error) {
	db, err := sqlx.OpenSqlite3(f)
	if err != nil {
		return nil, errcode.Annotate(err, "open history db")
	}
	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, errcode.Annotate(err, "create runs table")
	}
	return &history{db: db}, nil
}

func (h *history) add(e *HistoryEntry) error {
	const q = `insert into runs
		(start, mode, targets, failed, err, duration)
		values (?, ?, ?, ?, ?, ?)`
	if _, err := h.db.Exec(
		q, e.Start.UnixNano(), e.Mode, strings.Join(e.Targets, " "),
		e.Failed, e.Err, int64(e.Duration),
	); err != nil {
		return errcode.Annotate(err, "insert run")
	}
	return nil
}

// recent returns the last n runs, the latest first.
func (h *history) recent(n int) ([]*HistoryEntry, error) {
	const q = `select start, mode, targets, failed, err, duration
		from runs order by id desc limit ?`
	rows, err := h.db.Query(q, n)
	if err != nil {
		return nil, errcode.Annotate(err, "query runs")
	}
	defer rows.Close()

	var entries []*HistoryEntry
	for rows.Next() {
		var (
			start, dur int64
			targets    string
		)
		e := new(HistoryEntry)
		if err := rows.Scan(
			&start, &e.Mode, &targets, &e.Failed, &e.Err, &dur,
		); err != nil {
			return nil, errcode.Annotate(err, "scan run")
		}
		e.Start = time.Unix(0, start)
		e.Duration = time.Duration(dur)
		e.Targets = strings.Fields(targets)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, errcode.Annotate(err, "iterate runs")
	}
	return entries, nil
}

func (h *history) Close() error { return h.db.Close() }
