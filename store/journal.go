// Package store keeps a durable journal of counted crossings in SQLite so
// totals survive restarts and can be audited per session.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/swdee/go-depthcount/counter"
	"github.com/swdee/go-depthcount/tracker"
)

// ErrNoSession is returned when crossings are recorded before a session has
// been started
var ErrNoSession = errors.New("no journal session started")

const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id          TEXT PRIMARY KEY,
		started_at  TIMESTAMP NOT NULL,
		width       INTEGER,
		height      INTEGER,
		fps         INTEGER
	);
	CREATE TABLE IF NOT EXISTS crossings (
		session     TEXT NOT NULL,
		track_id    INTEGER NOT NULL,
		direction   TEXT NOT NULL,
		area        DOUBLE,
		increment   INTEGER NOT NULL,
		frame       BIGINT,
		recorded_at TIMESTAMP NOT NULL,
		FOREIGN KEY(session) REFERENCES sessions(id)
	);
	CREATE INDEX IF NOT EXISTS idx_crossings_session ON crossings(session);
`

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout=5000",
	"PRAGMA synchronous=NORMAL",
}

// Session describes one run of the pipeline
type Session struct {
	ID        uuid.UUID
	StartedAt time.Time
	Width     int
	Height    int
	FPS       int
}

// entry is a queued write, a non nil done channel marks a flush request
type entry struct {
	session  uuid.UUID
	crossing tracker.Crossing
	at       time.Time
	done     chan struct{}
}

// Journal records crossing events from a background goroutine
type Journal struct {
	db      *sql.DB
	log     logrus.FieldLogger
	queue   chan entry
	wg      sync.WaitGroup
	dropped atomic.Uint64

	mu      sync.Mutex
	session uuid.UUID
	closed  bool
}

// Open opens or creates the journal database at path.  depth is the size of
// the event queue.
func Open(path string, depth int, log logrus.FieldLogger) (*Journal, error) {

	if log == nil {
		log = logrus.StandardLogger()
	}

	db, err := sql.Open("sqlite", path)

	if err != nil {
		return nil, fmt.Errorf("error opening journal: %w", err)
	}

	// a single connection serializes writers and keeps in memory databases
	// alive
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("error applying %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating journal schema: %w", err)
	}

	j := &Journal{
		db:    db,
		log:   log,
		queue: make(chan entry, depth),
	}

	j.wg.Add(1)
	go j.run()

	return j, nil
}

// BeginSession starts a new session, subsequent crossings are recorded
// against it
func (j *Journal) BeginSession(width, height, fps int) (uuid.UUID, error) {

	id := uuid.New()

	_, err := j.db.Exec(`INSERT INTO sessions (id, started_at, width, height, fps)
		VALUES (?, ?, ?, ?, ?)`, id.String(), time.Now().UTC(), width, height, fps)

	if err != nil {
		return uuid.Nil, fmt.Errorf("error starting session: %w", err)
	}

	j.mu.Lock()
	j.session = id
	j.mu.Unlock()

	j.log.WithField("session", id.String()).Info("journal session started")

	return id, nil
}

// Session returns the current session id
func (j *Journal) Session() uuid.UUID {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.session
}

// Record queues a crossing for writing without blocking.  It returns an
// error if no session is active or the queue is full.
func (j *Journal) Record(c tracker.Crossing) error {

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.session == uuid.Nil || j.closed {
		return ErrNoSession
	}

	select {
	case j.queue <- entry{session: j.session, crossing: c, at: time.Now().UTC()}:
		return nil
	default:
		n := j.dropped.Add(1)
		return fmt.Errorf("journal queue full, %d events dropped", n)
	}
}

// Flush blocks until every crossing queued before the call is written
func (j *Journal) Flush() {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return
	}
	done := make(chan struct{})
	j.queue <- entry{done: done}
	j.mu.Unlock()

	<-done
}

func (j *Journal) run() {
	defer j.wg.Done()

	for e := range j.queue {
		if e.done != nil {
			close(e.done)
			continue
		}

		c := e.crossing

		_, err := j.db.Exec(`INSERT INTO crossings
			(session, track_id, direction, area, increment, frame, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.session.String(), c.TrackID, c.Direction.String(), c.Area,
			c.Increment, int64(c.Frame), e.at)

		if err != nil {
			j.log.WithFields(logrus.Fields{
				"track":     c.TrackID,
				"direction": c.Direction.String(),
			}).WithError(err).Warn("error writing crossing to journal")
		}
	}
}

// Totals sums the counted increments of a session
func (j *Journal) Totals(session uuid.UUID) (counter.State, error) {

	var s counter.State

	err := j.db.QueryRow(`SELECT
			COALESCE(SUM(CASE WHEN direction = 'in' THEN increment ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN direction = 'out' THEN increment ELSE 0 END), 0)
		FROM crossings WHERE session = ?`, session.String()).Scan(&s.In, &s.Out)

	if err != nil {
		return counter.State{}, fmt.Errorf("error reading session totals: %w", err)
	}

	return s, nil
}

// Sessions lists every session, most recent first
func (j *Journal) Sessions() ([]Session, error) {

	rows, err := j.db.Query(`SELECT id, started_at, width, height, fps
		FROM sessions ORDER BY started_at DESC`)

	if err != nil {
		return nil, fmt.Errorf("error listing sessions: %w", err)
	}
	defer rows.Close()

	var out []Session

	for rows.Next() {
		var s Session
		var id string

		if err := rows.Scan(&id, &s.StartedAt, &s.Width, &s.Height, &s.FPS); err != nil {
			return nil, fmt.Errorf("error scanning session: %w", err)
		}

		if s.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid session id %q: %w", id, err)
		}

		out = append(out, s)
	}

	return out, rows.Err()
}

// Dropped returns the number of crossings dropped because the queue was full
func (j *Journal) Dropped() uint64 {
	return j.dropped.Load()
}

// Close writes any queued crossings and closes the database
func (j *Journal) Close() error {
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	close(j.queue)
	j.mu.Unlock()

	j.wg.Wait()

	return j.db.Close()
}
