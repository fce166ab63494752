package trace

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/xid"
	"github.com/sirupsen/logrus"
)

const (
	createEventsSQL = `CREATE TABLE IF NOT EXISTS events (
	run_id  TEXT,
	seq     INTEGER,
	time    REAL,
	process TEXT,
	wake    TEXT
);`
	createTransitionsSQL = `CREATE TABLE IF NOT EXISTS transitions (
	run_id   TEXT,
	machine  TEXT,
	time     REAL,
	from_state TEXT,
	to_state   TEXT,
	failures INTEGER
);`
	insertEventSQL      = `INSERT INTO events VALUES (?, ?, ?, ?, ?)`
	insertTransitionSQL = `INSERT INTO transitions VALUES (?, ?, ?, ?, ?, ?)`
)

// DefaultSQLitePath returns a fresh database file name for an unnamed export.
func DefaultSQLitePath() string {
	return "linesim_trace_" + xid.New().String() + ".sqlite3"
}

// WriteSQLite exports st into the SQLite database at path, creating the
// events and transitions tables when missing. Several runs may share one
// file; rows are told apart by run_id. All rows go in one transaction.
func WriteSQLite(path string, st *SimulationTrace) (err error) {
	if path == "" {
		path = DefaultSQLitePath()
	}
	if _, statErr := os.Stat(path); statErr != nil {
		logrus.Infof("Database created for trace export: %s", path)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("opening trace database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing trace database: %w", closeErr)
		}
	}()

	for _, stmt := range []string{createEventsSQL, createTransitionsSQL} {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("creating trace tables: %w", err)
		}
	}
	if st == nil {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning trace transaction: %w", err)
	}
	if err := insertAll(tx, st); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing trace: %w", err)
	}
	logrus.Debugf("Exported %d events and %d transitions to %s", len(st.Events), len(st.Transitions), path)
	return nil
}

func insertAll(tx *sql.Tx, st *SimulationTrace) error {
	evStmt, err := tx.Prepare(insertEventSQL)
	if err != nil {
		return fmt.Errorf("preparing event insert: %w", err)
	}
	defer evStmt.Close()
	for _, e := range st.Events {
		if _, err := evStmt.Exec(st.Config.RunID, int64(e.Seq), e.Time, e.Process, e.Wake); err != nil {
			return fmt.Errorf("inserting event %d: %w", e.Seq, err)
		}
	}

	trStmt, err := tx.Prepare(insertTransitionSQL)
	if err != nil {
		return fmt.Errorf("preparing transition insert: %w", err)
	}
	defer trStmt.Close()
	for _, tr := range st.Transitions {
		if _, err := trStmt.Exec(st.Config.RunID, tr.Machine, tr.Time, tr.From, tr.To, tr.Failures); err != nil {
			return fmt.Errorf("inserting transition of %s: %w", tr.Machine, err)
		}
	}
	return nil
}
