package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"ai-interview-engine/internal/models"
)

// SQLiteStore implements Repository using SQLite. Dynamically-shaped
// state (skill boundaries, progression, conversation memory) is stored
// as JSON blob columns.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, errors.Wrap(err, "create database directory")
	}

	// WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open database")
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "ping database")
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, errors.Wrap(err, "initialize schema")
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		interview_id TEXT NOT NULL UNIQUE,
		role_type TEXT NOT NULL,
		phase TEXT NOT NULL,
		questions_asked INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		skill_boundaries_json TEXT NOT NULL DEFAULT '{}',
		progression_json TEXT NOT NULL DEFAULT '{}',
		memory_json TEXT,
		last_activity_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sessions_interview ON sessions(interview_id);
	CREATE INDEX IF NOT EXISTS idx_sessions_activity ON sessions(last_activity_at) WHERE status = 'active';

	CREATE TABLE IF NOT EXISTS messages (
		session_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		type TEXT NOT NULL,
		content TEXT NOT NULL,
		metadata_json TEXT,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (session_id, seq)
	);
	`
	_, err := s.db.Exec(query)
	return err
}

// CreateSession stores a new session.
func (s *SQLiteStore) CreateSession(ctx context.Context, sess *models.InterviewSession) error {
	boundaries, progression, err := marshalSessionBlobs(sess)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, interview_id, role_type, phase, questions_asked, status,
			skill_boundaries_json, progression_json, memory_json,
			last_activity_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.InterviewID, sess.RoleType, string(sess.Phase), sess.QuestionsAsked,
		string(sess.Status), boundaries, progression, nullableBlob(sess.MemoryRecord),
		sess.LastActivityAt.UnixMilli(), sess.CreatedAt.UnixMilli(), sess.UpdatedAt.UnixMilli())
	return errors.Wrap(err, "insert session")
}

// GetSession loads a session by its ID.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*models.InterviewSession, error) {
	row := s.db.QueryRowContext(ctx, selectSession+" WHERE id = ?", sessionID)
	return scanSession(row)
}

// GetSessionByInterview loads the session for an interview.
func (s *SQLiteStore) GetSessionByInterview(ctx context.Context, interviewID string) (*models.InterviewSession, error) {
	row := s.db.QueryRowContext(ctx, selectSession+" WHERE interview_id = ?", interviewID)
	return scanSession(row)
}

// SaveSession persists the full session state.
func (s *SQLiteStore) SaveSession(ctx context.Context, sess *models.InterviewSession) error {
	boundaries, progression, err := marshalSessionBlobs(sess)
	if err != nil {
		return err
	}
	sess.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE sessions SET phase = ?, questions_asked = ?, status = ?,
			skill_boundaries_json = ?, progression_json = ?, memory_json = ?,
			last_activity_at = ?, updated_at = ?
		WHERE id = ?`,
		string(sess.Phase), sess.QuestionsAsked, string(sess.Status),
		boundaries, progression, nullableBlob(sess.MemoryRecord),
		sess.LastActivityAt.UnixMilli(), sess.UpdatedAt.UnixMilli(), sess.ID)
	if err != nil {
		return errors.Wrap(err, "update session")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AppendMessage writes a message at the next sequence number.
func (s *SQLiteStore) AppendMessage(ctx context.Context, sessionID string, msgType models.MessageType, content string, meta *models.MessageMetadata) (*models.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin tx")
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM sessions WHERE id = ?`, sessionID).Scan(&status)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "select session status")
	}
	if models.SessionStatus(status) != models.StatusActive {
		return nil, ErrInterviewClosed
	}

	var seq int
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE session_id = ?`, sessionID).Scan(&seq); err != nil {
		return nil, errors.Wrap(err, "next sequence")
	}

	msg := &models.Message{
		Sequence:  seq,
		Type:      msgType,
		Content:   content,
		Metadata:  meta,
		CreatedAt: time.Now().UTC(),
	}

	var metaJSON any
	if meta != nil {
		b, err := json.Marshal(meta)
		if err != nil {
			return nil, errors.Wrap(err, "marshal metadata")
		}
		metaJSON = string(b)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (session_id, seq, type, content, metadata_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, seq, string(msgType), content, metaJSON, msg.CreatedAt.UnixMilli())
	if err != nil {
		return nil, errors.Wrap(err, "insert message")
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "commit")
	}
	return msg, nil
}

// AttachEvaluation attaches evaluation metadata to the most recent
// candidate message.
func (s *SQLiteStore) AttachEvaluation(ctx context.Context, sessionID string, meta *models.MessageMetadata) error {
	b, err := json.Marshal(meta)
	if err != nil {
		return errors.Wrap(err, "marshal metadata")
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE messages SET metadata_json = ?
		WHERE session_id = ? AND type = ? AND seq = (
			SELECT MAX(seq) FROM messages WHERE session_id = ? AND type = ?
		)`,
		string(b), sessionID, string(models.MessageCandidateResponse),
		sessionID, string(models.MessageCandidateResponse))
	if err != nil {
		return errors.Wrap(err, "attach evaluation")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListMessages returns up to limit most recent messages in sequence order.
func (s *SQLiteStore) ListMessages(ctx context.Context, sessionID string, limit int) ([]models.Message, error) {
	query := `SELECT seq, type, content, metadata_json, created_at FROM messages WHERE session_id = ? ORDER BY seq`
	args := []any{sessionID}
	if limit > 0 {
		query = `SELECT seq, type, content, metadata_json, created_at FROM (
			SELECT seq, type, content, metadata_json, created_at FROM messages
			WHERE session_id = ? ORDER BY seq DESC LIMIT ?
		) ORDER BY seq`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query messages")
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var (
			msg       models.Message
			msgType   string
			metaJSON  sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&msg.Sequence, &msgType, &msg.Content, &metaJSON, &createdAt); err != nil {
			return nil, errors.Wrap(err, "scan message")
		}
		msg.Type = models.MessageType(msgType)
		msg.CreatedAt = time.UnixMilli(createdAt).UTC()
		if metaJSON.Valid && metaJSON.String != "" {
			var meta models.MessageMetadata
			if err := json.Unmarshal([]byte(metaJSON.String), &meta); err != nil {
				return nil, errors.Wrap(err, "unmarshal metadata")
			}
			msg.Metadata = &meta
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const selectSession = `
	SELECT id, interview_id, role_type, phase, questions_asked, status,
		skill_boundaries_json, progression_json, memory_json,
		last_activity_at, created_at, updated_at
	FROM sessions`

func scanSession(row *sql.Row) (*models.InterviewSession, error) {
	var (
		sess                    models.InterviewSession
		phase, status           string
		boundaries, progression string
		memory                  sql.NullString
		lastActivity, created   int64
		updated                 int64
	)
	err := row.Scan(&sess.ID, &sess.InterviewID, &sess.RoleType, &phase, &sess.QuestionsAsked,
		&status, &boundaries, &progression, &memory, &lastActivity, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan session")
	}

	sess.Phase = models.Phase(phase)
	sess.Status = models.SessionStatus(status)
	sess.LastActivityAt = time.UnixMilli(lastActivity).UTC()
	sess.CreatedAt = time.UnixMilli(created).UTC()
	sess.UpdatedAt = time.UnixMilli(updated).UTC()

	if err := json.Unmarshal([]byte(boundaries), &sess.SkillBoundaries); err != nil {
		return nil, errors.Wrap(err, "unmarshal skill boundaries")
	}
	if sess.SkillBoundaries == nil {
		sess.SkillBoundaries = make(map[string]models.ProficiencyLevel)
	}
	if err := json.Unmarshal([]byte(progression), &sess.Progression); err != nil {
		return nil, errors.Wrap(err, "unmarshal progression")
	}
	if memory.Valid && memory.String != "" {
		sess.MemoryRecord = json.RawMessage(memory.String)
	}
	return &sess, nil
}

func marshalSessionBlobs(sess *models.InterviewSession) (string, string, error) {
	boundaries, err := json.Marshal(sess.SkillBoundaries)
	if err != nil {
		return "", "", errors.Wrap(err, "marshal skill boundaries")
	}
	progression, err := json.Marshal(sess.Progression)
	if err != nil {
		return "", "", errors.Wrap(err, "marshal progression")
	}
	return string(boundaries), string(progression), nil
}

func nullableBlob(b json.RawMessage) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
