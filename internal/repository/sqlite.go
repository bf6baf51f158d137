package repository

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/abarreto/stagevote/internal/bus"
	"github.com/abarreto/stagevote/internal/models"
)

// Repository provides data access methods backed by SQLite. After every
// committed write it publishes a row snapshot on the change feed, which
// is how spectator clients learn about show-state transitions.
type Repository struct {
	db   *sql.DB
	feed bus.Feed
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// SQLite works best with a single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}

	if err := repo.migrate(); err != nil {
		return nil, err
	}

	return repo, nil
}

// SetFeed attaches the change feed. Writes before this is set are not
// announced, which only matters during startup.
func (r *Repository) SetFeed(feed bus.Feed) {
	r.feed = feed
}

// DB returns the underlying database connection
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS candidates (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT 'adult',
			photo_url TEXT,
			is_finalist BOOLEAN DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS live_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			event_type TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			current_candidate_id INTEGER,
			current_category TEXT,
			is_voting_open BOOLEAN DEFAULT 0,
			winner_candidate_id INTEGER,
			winner_revealed_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (current_candidate_id) REFERENCES candidates(id) ON DELETE SET NULL
		)`,
		`CREATE TABLE IF NOT EXISTS lineup (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			live_event_id INTEGER NOT NULL,
			candidate_id INTEGER NOT NULL,
			position INTEGER NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			started_at DATETIME,
			ended_at DATETIME,
			vote_opened_at DATETIME,
			vote_closed_at DATETIME,
			FOREIGN KEY (live_event_id) REFERENCES live_events(id),
			FOREIGN KEY (candidate_id) REFERENCES candidates(id),
			UNIQUE(live_event_id, position)
		)`,
		`CREATE TABLE IF NOT EXISTS live_votes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			live_event_id INTEGER NOT NULL,
			candidate_id INTEGER NOT NULL,
			fingerprint TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (live_event_id) REFERENCES live_events(id),
			FOREIGN KEY (candidate_id) REFERENCES candidates(id),
			UNIQUE(live_event_id, candidate_id, fingerprint)
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lineup_event ON lineup(live_event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_votes_event ON live_votes(live_event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_votes_candidate ON live_votes(live_event_id, candidate_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_session ON live_events(session_id)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}

// publishEvent announces the current live_events row on the change feed
func (r *Repository) publishEvent(ctx context.Context, eventID int) {
	if r.feed == nil {
		return
	}
	event, err := r.GetEvent(ctx, eventID)
	if err != nil {
		return // row gone (delete) or unreadable; nothing to announce
	}
	r.feed.Publish(bus.TableLiveEvents, eventID, event)
}

// ==================== Event Methods ====================

const eventColumns = `id, session_id, event_type, status, current_candidate_id,
	current_category, is_voting_open, winner_candidate_id, winner_revealed_at`

func scanEvent(row interface{ Scan(...interface{}) error }) (*models.LiveEvent, error) {
	var e models.LiveEvent
	var currentCandidate sql.NullInt64
	var currentCategory sql.NullString
	var winnerCandidate sql.NullInt64
	var revealedAt sql.NullTime

	err := row.Scan(&e.ID, &e.SessionID, &e.EventType, &e.Status, &currentCandidate,
		&currentCategory, &e.IsVotingOpen, &winnerCandidate, &revealedAt)
	if err != nil {
		return nil, err
	}

	if currentCandidate.Valid {
		id := int(currentCandidate.Int64)
		e.CurrentCandidateID = &id
	}
	if currentCategory.Valid {
		cat := models.Category(currentCategory.String)
		e.CurrentCategory = &cat
	}
	if winnerCandidate.Valid {
		id := int(winnerCandidate.Int64)
		e.WinnerCandidateID = &id
	}
	if revealedAt.Valid {
		t := revealedAt.Time
		e.WinnerRevealedAt = &t
	}
	return &e, nil
}

// CreateEvent inserts a new live event in status pending
func (r *Repository) CreateEvent(ctx context.Context, sessionID string, eventType models.EventType) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO live_events (session_id, event_type, status) VALUES (?, ?, 'pending')`,
		sessionID, string(eventType))
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	r.publishEvent(ctx, int(id))
	return id, nil
}

// GetEvent retrieves a live event by id
func (r *Repository) GetEvent(ctx context.Context, id int) (*models.LiveEvent, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM live_events WHERE id = ?`, id)
	event, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return event, err
}

// ListEvents returns events for a session, newest first
func (r *Repository) ListEvents(ctx context.Context, sessionID string) ([]models.LiveEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM live_events WHERE session_id = ? ORDER BY id DESC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.LiveEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

// SetOnStage puts a candidate on stage and marks the show live
func (r *Repository) SetOnStage(ctx context.Context, eventID, candidateID int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE live_events SET current_candidate_id = ?, status = 'live' WHERE id = ?`,
		candidateID, eventID)
	if err != nil {
		return err
	}
	r.publishEvent(ctx, eventID)
	return nil
}

// ClearStage removes the current performer and forces voting closed
func (r *Repository) ClearStage(ctx context.Context, eventID int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE live_events SET current_candidate_id = NULL, is_voting_open = 0 WHERE id = ?`,
		eventID)
	if err != nil {
		return err
	}
	r.publishEvent(ctx, eventID)
	return nil
}

// SetEventStatus updates the coarse show state
func (r *Repository) SetEventStatus(ctx context.Context, eventID int, status models.EventStatus) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE live_events SET status = ? WHERE id = ?`, string(status), eventID)
	if err != nil {
		return err
	}
	r.publishEvent(ctx, eventID)
	return nil
}

// SetCurrentCategory scopes the reveal candidate pool
func (r *Repository) SetCurrentCategory(ctx context.Context, eventID int, category *models.Category) error {
	var value interface{}
	if category != nil {
		value = string(*category)
	}
	_, err := r.db.ExecContext(ctx,
		`UPDATE live_events SET current_category = ? WHERE id = ?`, value, eventID)
	if err != nil {
		return err
	}
	r.publishEvent(ctx, eventID)
	return nil
}

// SetVotingOpen flips the vote window flag
func (r *Repository) SetVotingOpen(ctx context.Context, eventID int, open bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE live_events SET is_voting_open = ? WHERE id = ?`, open, eventID)
	if err != nil {
		return err
	}
	r.publishEvent(ctx, eventID)
	return nil
}

// SetWinner records the winner exactly once. Returns ErrNotFound if the
// event does not exist or a winner was already revealed.
func (r *Repository) SetWinner(ctx context.Context, eventID, candidateID int, revealedAt time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE live_events SET winner_candidate_id = ?, winner_revealed_at = ?
		 WHERE id = ? AND winner_candidate_id IS NULL`,
		candidateID, revealedAt, eventID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	r.publishEvent(ctx, eventID)
	return nil
}

// DeleteEvent removes the event row. Callers must delete votes and
// lineup rows first to satisfy referential constraints.
func (r *Repository) DeleteEvent(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM live_events WHERE id = ?`, id)
	return err
}

// ==================== Lineup Methods ====================

const lineupColumns = `l.id, l.live_event_id, l.candidate_id, l.position, l.status,
	l.started_at, l.ended_at, l.vote_opened_at, l.vote_closed_at,
	c.name, c.category, COALESCE(c.photo_url, '')`

func scanLineupItem(row interface{ Scan(...interface{}) error }) (*models.LineupItem, error) {
	var item models.LineupItem
	var startedAt, endedAt, voteOpenedAt, voteClosedAt sql.NullTime

	err := row.Scan(&item.ID, &item.LiveEventID, &item.CandidateID, &item.Position,
		&item.Status, &startedAt, &endedAt, &voteOpenedAt, &voteClosedAt,
		&item.CandidateName, &item.Category, &item.PhotoURL)
	if err != nil {
		return nil, err
	}

	if startedAt.Valid {
		item.StartedAt = &startedAt.Time
	}
	if endedAt.Valid {
		item.EndedAt = &endedAt.Time
	}
	if voteOpenedAt.Valid {
		item.VoteOpenedAt = &voteOpenedAt.Time
	}
	if voteClosedAt.Valid {
		item.VoteClosedAt = &voteClosedAt.Time
	}
	return &item, nil
}

// CreateLineupItem adds a candidate slot to an event's running order
func (r *Repository) CreateLineupItem(ctx context.Context, eventID, candidateID, position int) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO lineup (live_event_id, candidate_id, position) VALUES (?, ?, ?)`,
		eventID, candidateID, position)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetLineupItem retrieves a lineup slot with candidate details joined
func (r *Repository) GetLineupItem(ctx context.Context, id int) (*models.LineupItem, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+lineupColumns+` FROM lineup l JOIN candidates c ON c.id = l.candidate_id WHERE l.id = ?`, id)
	item, err := scanLineupItem(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return item, err
}

// ListLineup returns the running order for an event
func (r *Repository) ListLineup(ctx context.Context, eventID int) ([]models.LineupItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+lineupColumns+` FROM lineup l JOIN candidates c ON c.id = l.candidate_id
		 WHERE l.live_event_id = ? ORDER BY l.position`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.LineupItem
	for rows.Next() {
		item, err := scanLineupItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// GetPerformingItem returns the lineup row currently on stage, if any
func (r *Repository) GetPerformingItem(ctx context.Context, eventID int) (*models.LineupItem, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+lineupColumns+` FROM lineup l JOIN candidates c ON c.id = l.candidate_id
		 WHERE l.live_event_id = ? AND l.status = 'performing'`, eventID)
	item, err := scanLineupItem(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return item, err
}

// MarkPerforming resets a slot to a fresh performance: status performing,
// started_at stamped, all later timing cleared. Calling it again for the
// same slot repeats the reset, which is what the control room expects.
func (r *Repository) MarkPerforming(ctx context.Context, id int, startedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE lineup SET status = 'performing', started_at = ?,
		 ended_at = NULL, vote_opened_at = NULL, vote_closed_at = NULL WHERE id = ?`,
		startedAt, id)
	return err
}

// SetEnded stamps ended_at only if it was never set. An ended performance
// stays ended no matter how often the operator toggles the vote window.
func (r *Repository) SetEnded(ctx context.Context, id int, endedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE lineup SET ended_at = ? WHERE id = ? AND ended_at IS NULL`, endedAt, id)
	return err
}

// StampVoteOpened records when the vote window opened. Re-stamps on every
// call: the last open wins, matching the control room's toggle behavior.
func (r *Repository) StampVoteOpened(ctx context.Context, id int, openedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE lineup SET vote_opened_at = ? WHERE id = ?`, openedAt, id)
	return err
}

// StampVoteClosed records when the vote window closed
func (r *Repository) StampVoteClosed(ctx context.Context, id int, closedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE lineup SET vote_closed_at = ? WHERE id = ?`, closedAt, id)
	return err
}

// CompleteItem marks the slot completed and guarantees non-null timing:
// ended_at and vote_opened_at are backfilled if the operator skipped
// steps, vote_closed_at is stamped now.
func (r *Repository) CompleteItem(ctx context.Context, id int, closedAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE lineup SET status = 'completed',
		 ended_at = COALESCE(ended_at, ?),
		 vote_opened_at = COALESCE(vote_opened_at, ?),
		 vote_closed_at = ? WHERE id = ?`,
		closedAt, closedAt, closedAt, id)
	return err
}

// UpdateLineupPosition moves a slot in the running order
func (r *Repository) UpdateLineupPosition(ctx context.Context, id, position int) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE lineup SET position = ? WHERE id = ?`, position, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteLineup removes all lineup rows for an event
func (r *Repository) DeleteLineup(ctx context.Context, eventID int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM lineup WHERE live_event_id = ?`, eventID)
	return err
}

// ==================== Vote Methods ====================

// InsertVote appends one ledger row. A duplicate (event, candidate,
// fingerprint) triple is ignored and reported as inserted == false, never
// as an error: retried votes must look like success to the caller.
func (r *Repository) InsertVote(ctx context.Context, eventID, candidateID int, fingerprint string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO live_votes (live_event_id, candidate_id, fingerprint) VALUES (?, ?, ?)`,
		eventID, candidateID, fingerprint)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	inserted := affected > 0
	if inserted && r.feed != nil {
		r.feed.Publish(bus.TableLiveVotes, eventID, models.VoteNotice{
			LiveEventID: eventID,
			CandidateID: candidateID,
			Fingerprint: fingerprint,
		})
	}
	return inserted, nil
}

// HasVoted reports whether this device already voted for the candidate
func (r *Repository) HasVoted(ctx context.Context, eventID, candidateID int, fingerprint string) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM live_votes WHERE live_event_id = ? AND candidate_id = ? AND fingerprint = ?`,
		eventID, candidateID, fingerprint).Scan(&count)
	return count > 0, err
}

// CountVotes returns per-candidate tallies for an event
func (r *Repository) CountVotes(ctx context.Context, eventID int) (map[int]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT candidate_id, COUNT(*) FROM live_votes WHERE live_event_id = ? GROUP BY candidate_id`,
		eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tally := make(map[int]int)
	for rows.Next() {
		var candidateID, count int
		if err := rows.Scan(&candidateID, &count); err != nil {
			return nil, err
		}
		tally[candidateID] = count
	}
	return tally, rows.Err()
}

// CountVotesForCandidate returns one candidate's tally
func (r *Repository) CountVotesForCandidate(ctx context.Context, eventID, candidateID int) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM live_votes WHERE live_event_id = ? AND candidate_id = ?`,
		eventID, candidateID).Scan(&count)
	return count, err
}

// DeleteVotes removes all ledger rows for an event
func (r *Repository) DeleteVotes(ctx context.Context, eventID int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM live_votes WHERE live_event_id = ?`, eventID)
	return err
}

// ==================== Candidate Methods ====================

const candidateColumns = `id, name, category, COALESCE(photo_url, ''), is_finalist`

func scanCandidate(row interface{ Scan(...interface{}) error }) (*models.Candidate, error) {
	var c models.Candidate
	err := row.Scan(&c.ID, &c.Name, &c.Category, &c.PhotoURL, &c.IsFinalist)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) queryCandidates(ctx context.Context, query string, args ...interface{}) ([]models.Candidate, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []models.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, *c)
	}
	return candidates, rows.Err()
}

// ListCandidates returns all candidates ordered by name
func (r *Repository) ListCandidates(ctx context.Context) ([]models.Candidate, error) {
	return r.queryCandidates(ctx,
		`SELECT `+candidateColumns+` FROM candidates ORDER BY name`)
}

// ListCandidatesByCategory returns candidates in one category ordered by name
func (r *Repository) ListCandidatesByCategory(ctx context.Context, category models.Category) ([]models.Candidate, error) {
	return r.queryCandidates(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE category = ? ORDER BY name`,
		string(category))
}

// ListFinalists returns finalists in stage order: child, teen, adult,
// alphabetical within each group. This is the finale's default lineup.
func (r *Repository) ListFinalists(ctx context.Context) ([]models.Candidate, error) {
	return r.queryCandidates(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE is_finalist = 1
		 ORDER BY CASE category WHEN 'child' THEN 0 WHEN 'teen' THEN 1 ELSE 2 END, name`)
}

// GetCandidate retrieves a candidate by id
func (r *Repository) GetCandidate(ctx context.Context, id int) (*models.Candidate, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE id = ?`, id)
	c, err := scanCandidate(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return c, err
}

// CreateCandidate creates a new candidate
func (r *Repository) CreateCandidate(ctx context.Context, name string, category models.Category, photoURL string, finalist bool) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO candidates (name, category, photo_url, is_finalist) VALUES (?, ?, ?, ?)`,
		name, string(category), photoURL, finalist)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// UpdateCandidate updates all candidate fields
func (r *Repository) UpdateCandidate(ctx context.Context, id int, name string, category models.Category, photoURL string, finalist bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE candidates SET name = ?, category = ?, photo_url = ?, is_finalist = ? WHERE id = ?`,
		name, string(category), photoURL, finalist, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetFinalist flags a candidate as advancing to the finale
func (r *Repository) SetFinalist(ctx context.Context, id int, finalist bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE candidates SET is_finalist = ? WHERE id = ?`, finalist, id)
	return err
}

// DeleteCandidate removes a candidate
func (r *Repository) DeleteCandidate(ctx context.Context, id int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM candidates WHERE id = ?`, id)
	return err
}

// ==================== Settings Methods ====================

// GetSetting retrieves a setting value
func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// SetSetting saves a setting value
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}
