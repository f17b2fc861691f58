// Package session is the session/message CRUD layer (spec §4.2, component
// C4): append-only conversation history keyed by name, with the usual
// open/rename/delete/most-recent resolution a terminal chat client needs.
package session

import (
	"context"
	"database/sql"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kyco/termai/internal/coreerr"
	"github.com/kyco/termai/internal/logging"
	"github.com/kyco/termai/internal/store"
)

// Role is one of the three message roles the store accepts.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Session is a named (or, while temporary, unnamed) conversation history.
// A temporary session exists only in memory until Rename persists it,
// per spec §4.2's open_temporary contract.
type Session struct {
	ID           string
	Name         string
	CreatedAt    time.Time
	LastActivity time.Time
	Current      bool
	Temporary    bool
	ActiveBranchID string // empty means root/no branch selected

	pending []*Message // buffered messages for a not-yet-persisted temporary session
}

// Message is one turn in a session's history.
type Message struct {
	ID        string
	SessionID string
	Role      Role
	Content   string
	Seq       int
}

// SortOrder selects the ordering List returns.
type SortOrder int

const (
	SortChronological SortOrder = iota // by last_activity, most recent first
	SortLexical                        // by name
	SortMessageCount                   // by number of messages, descending
)

// Manager is the CRUD surface over sessions and their messages.
type Manager struct {
	store *store.Store
}

// New wraps a store.Store as a session Manager.
func New(s *store.Store) *Manager {
	return &Manager{store: s}
}

// OpenOrCreate returns the existing non-temporary session named name, or
// creates one if none exists. Idempotent.
func (m *Manager) OpenOrCreate(ctx context.Context, name string) (*Session, error) {
	sess, err := m.fetchByName(ctx, name)
	if err == nil {
		return sess, nil
	}
	if !coreerr.Of(err, coreerr.KindNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	sess = &Session{
		ID:           uuid.NewString(),
		Name:         name,
		CreatedAt:    now,
		LastActivity: now,
	}
	err = store.WithBusyRetry(ctx, func() error {
		_, execErr := m.store.DB().ExecContext(ctx, `
			INSERT INTO sessions(id, name, created_at, last_activity, current, temporary)
			VALUES (?, ?, ?, ?, 0, 0)
		`, sess.ID, sess.Name, sess.CreatedAt.Unix(), sess.LastActivity.Unix())
		return execErr
	})
	if err != nil {
		wrapped := coreerr.Wrap(coreerr.KindBusy, "create session", err)
		logging.Warn(ctx, "open or create session: insert failed", slog.String("err", wrapped.Error()))
		return nil, wrapped
	}
	return sess, nil
}

// OpenTemporary returns a new unnamed session that is not persisted until
// the caller renames it (spec §4.2).
func (m *Manager) OpenTemporary(ctx context.Context) (*Session, error) {
	now := time.Now().UTC()
	return &Session{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		LastActivity: now,
		Temporary:    true,
	}, nil
}

func (m *Manager) fetchByName(ctx context.Context, name string) (*Session, error) {
	var sess Session
	var createdAt, lastActivity int64
	var current, temporary int
	var activeBranchID sql.NullString
	err := store.WithBusyRetry(ctx, func() error {
		return m.store.DB().QueryRowContext(ctx, `
			SELECT id, name, created_at, last_activity, current, temporary, active_branch_id
			FROM sessions WHERE name = ?
		`, name).Scan(&sess.ID, &sess.Name, &createdAt, &lastActivity, &current, &temporary, &activeBranchID)
	})
	switch {
	case err == sql.ErrNoRows:
		return nil, coreerr.New(coreerr.KindNotFound, "no session named "+name)
	case err != nil:
		wrapped := coreerr.Wrap(coreerr.KindBusy, "fetch session by name", err)
		logging.Warn(ctx, "fetch session by name failed", slog.String("err", wrapped.Error()))
		return nil, wrapped
	}
	sess.CreatedAt = time.Unix(createdAt, 0).UTC()
	sess.LastActivity = time.Unix(lastActivity, 0).UTC()
	sess.Current = current != 0
	sess.Temporary = temporary != 0
	sess.ActiveBranchID = activeBranchID.String
	return &sess, nil
}

// SetActiveBranch rebinds the session's active-branch pointer, used by the
// Branch Manager's switch operation. Clearing it (branchID == "") returns
// the session view to its root history.
func (m *Manager) SetActiveBranch(ctx context.Context, sess *Session, branchID string) error {
	var arg any
	if branchID != "" {
		arg = branchID
	}
	err := store.WithBusyRetry(ctx, func() error {
		_, execErr := m.store.DB().ExecContext(ctx, `UPDATE sessions SET active_branch_id = ? WHERE id = ?`, arg, sess.ID)
		return execErr
	})
	if err != nil {
		wrapped := coreerr.Wrap(coreerr.KindBusy, "set active branch", err)
		logging.Warn(ctx, "set active branch failed", slog.String("err", wrapped.Error()))
		return wrapped
	}
	sess.ActiveBranchID = branchID
	return nil
}

// FetchByName looks up a persisted session by name.
func (m *Manager) FetchByName(ctx context.Context, name string) (*Session, error) {
	return m.fetchByName(ctx, name)
}

// MostRecent returns the persisted session with the latest last_activity.
// Temporary sessions that have not yet been persisted are never visible
// here, matching spec §4.2.
func (m *Manager) MostRecent(ctx context.Context) (*Session, error) {
	var name string
	err := store.WithBusyRetry(ctx, func() error {
		return m.store.DB().QueryRowContext(ctx, `
			SELECT name FROM sessions ORDER BY last_activity DESC LIMIT 1
		`).Scan(&name)
	})
	switch {
	case err == sql.ErrNoRows:
		return nil, coreerr.New(coreerr.KindNotFound, "no sessions exist yet")
	case err != nil:
		wrapped := coreerr.Wrap(coreerr.KindBusy, "fetch most recent session", err)
		logging.Warn(ctx, "fetch most recent session failed", slog.String("err", wrapped.Error()))
		return nil, wrapped
	}
	return m.fetchByName(ctx, name)
}

// List returns every persisted session in the requested order.
func (m *Manager) List(ctx context.Context, order SortOrder) ([]*Session, error) {
	rows, err := m.store.DB().QueryContext(ctx, `
		SELECT s.id, s.name, s.created_at, s.last_activity, s.current, s.temporary,
		       (SELECT COUNT(*) FROM messages WHERE session_id = s.id) AS msg_count
		FROM sessions s
	`)
	if err != nil {
		wrapped := coreerr.Wrap(coreerr.KindBusy, "list sessions", err)
		logging.Warn(ctx, "list sessions: query failed", slog.String("err", wrapped.Error()))
		return nil, wrapped
	}
	defer rows.Close()

	type row struct {
		sess      Session
		msgCount  int
	}
	var all []row
	for rows.Next() {
		var r row
		var createdAt, lastActivity int64
		var current, temporary int
		if err := rows.Scan(&r.sess.ID, &r.sess.Name, &createdAt, &lastActivity, &current, &temporary, &r.msgCount); err != nil {
			wrapped := coreerr.Wrap(coreerr.KindIntegrityError, "scan session row", err)
			logging.Error(ctx, "list sessions: scan failed", slog.String("err", wrapped.Error()))
			return nil, wrapped
		}
		r.sess.CreatedAt = time.Unix(createdAt, 0).UTC()
		r.sess.LastActivity = time.Unix(lastActivity, 0).UTC()
		r.sess.Current = current != 0
		r.sess.Temporary = temporary != 0
		all = append(all, r)
	}

	switch order {
	case SortLexical:
		sort.Slice(all, func(i, j int) bool { return all[i].sess.Name < all[j].sess.Name })
	case SortMessageCount:
		sort.Slice(all, func(i, j int) bool { return all[i].msgCount > all[j].msgCount })
	default: // SortChronological
		sort.Slice(all, func(i, j int) bool { return all[i].sess.LastActivity.After(all[j].sess.LastActivity) })
	}

	out := make([]*Session, len(all))
	for i, r := range all {
		sess := r.sess
		out[i] = &sess
	}
	return out, nil
}

// Delete removes a persisted session and, by FK cascade, its messages and
// any branches rooted at it.
func (m *Manager) Delete(ctx context.Context, name string) error {
	res, err := m.store.DB().ExecContext(ctx, `DELETE FROM sessions WHERE name = ?`, name)
	if err != nil {
		wrapped := coreerr.Wrap(coreerr.KindBusy, "delete session", err)
		logging.Warn(ctx, "delete session failed", slog.String("err", wrapped.Error()))
		return wrapped
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return coreerr.New(coreerr.KindNotFound, "no session named "+name)
	}
	return nil
}

// Rename changes a session's name. For a temporary session this is also
// the point of first persistence: the session row and every buffered
// message are written in a single transaction. Fails with coreerr.KindConflict
// if newName is already taken by another session.
func (m *Manager) Rename(ctx context.Context, sess *Session, newName string) error {
	if _, err := m.fetchByName(ctx, newName); err == nil {
		return coreerr.New(coreerr.KindConflict, "session name already in use: "+newName)
	} else if !coreerr.Of(err, coreerr.KindNotFound) {
		return err
	}

	if sess.Temporary {
		return m.persistTemporary(ctx, sess, newName)
	}

	err := store.WithBusyRetry(ctx, func() error {
		_, execErr := m.store.DB().ExecContext(ctx, `UPDATE sessions SET name = ? WHERE id = ?`, newName, sess.ID)
		return execErr
	})
	if err != nil {
		wrapped := coreerr.Wrap(coreerr.KindBusy, "rename session", err)
		logging.Warn(ctx, "rename session failed", slog.String("err", wrapped.Error()))
		return wrapped
	}
	sess.Name = newName
	return nil
}

func (m *Manager) persistTemporary(ctx context.Context, sess *Session, newName string) error {
	tx, err := m.store.DB().BeginTx(ctx, nil)
	if err != nil {
		wrapped := coreerr.Wrap(coreerr.KindBusy, "begin session persist", err)
		logging.Warn(ctx, "persist temporary session: begin tx failed", slog.String("err", wrapped.Error()))
		return wrapped
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO sessions(id, name, created_at, last_activity, current, temporary)
		VALUES (?, ?, ?, ?, 0, 0)
	`, sess.ID, newName, sess.CreatedAt.Unix(), sess.LastActivity.Unix()); err != nil {
		wrapped := coreerr.Wrap(coreerr.KindIntegrityError, "insert persisted session", err)
		logging.Error(ctx, "persist temporary session: insert session failed", slog.String("err", wrapped.Error()))
		return wrapped
	}

	for _, msg := range sess.pending {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO messages(id, session_id, role, content, seq) VALUES (?, ?, ?, ?, ?)
		`, msg.ID, sess.ID, string(msg.Role), msg.Content, msg.Seq); err != nil {
			wrapped := coreerr.Wrap(coreerr.KindIntegrityError, "insert buffered message", err)
			logging.Error(ctx, "persist temporary session: insert message failed", slog.String("err", wrapped.Error()))
			return wrapped
		}
	}

	if err := tx.Commit(); err != nil {
		wrapped := coreerr.Wrap(coreerr.KindBusy, "commit session persist", err)
		logging.Warn(ctx, "persist temporary session: commit failed", slog.String("err", wrapped.Error()))
		return wrapped
	}

	sess.Name = newName
	sess.Temporary = false
	sess.pending = nil
	return nil
}

// Append writes one message, advancing the session's sequence and updating
// last_activity. A temporary session buffers the message in memory until
// Rename persists it.
func (m *Manager) Append(ctx context.Context, sess *Session, role Role, content string) (*Message, error) {
	now := time.Now().UTC()
	sess.LastActivity = now

	if sess.Temporary {
		msg := &Message{ID: uuid.NewString(), SessionID: sess.ID, Role: role, Content: content, Seq: len(sess.pending)}
		sess.pending = append(sess.pending, msg)
		return msg, nil
	}

	var nextSeq int
	err := store.WithBusyRetry(ctx, func() error {
		return m.store.DB().QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq), -1) + 1 FROM messages WHERE session_id = ?`, sess.ID).Scan(&nextSeq)
	})
	if err != nil {
		wrapped := coreerr.Wrap(coreerr.KindBusy, "compute next sequence", err)
		logging.Warn(ctx, "append message: sequence query failed", slog.String("err", wrapped.Error()))
		return nil, wrapped
	}

	msg := &Message{ID: uuid.NewString(), SessionID: sess.ID, Role: role, Content: content, Seq: nextSeq}
	err = store.WithBusyRetry(ctx, func() error {
		_, execErr := m.store.DB().ExecContext(ctx, `
			INSERT INTO messages(id, session_id, role, content, seq) VALUES (?, ?, ?, ?, ?)
		`, msg.ID, msg.SessionID, string(msg.Role), msg.Content, msg.Seq)
		return execErr
	})
	if err != nil {
		wrapped := coreerr.Wrap(coreerr.KindBusy, "append message", err)
		logging.Warn(ctx, "append message: insert failed", slog.String("err", wrapped.Error()))
		return nil, wrapped
	}

	_, _ = m.store.DB().ExecContext(ctx, `UPDATE sessions SET last_activity = ? WHERE id = ?`, now.Unix(), sess.ID)
	return msg, nil
}

// LoadMessages returns a session's messages in insertion order.
func (m *Manager) LoadMessages(ctx context.Context, sess *Session) ([]*Message, error) {
	if sess.Temporary {
		out := make([]*Message, len(sess.pending))
		copy(out, sess.pending)
		return out, nil
	}

	rows, err := m.store.DB().QueryContext(ctx, `
		SELECT id, session_id, role, content, seq FROM messages
		WHERE session_id = ? ORDER BY seq ASC
	`, sess.ID)
	if err != nil {
		wrapped := coreerr.Wrap(coreerr.KindBusy, "load messages", err)
		logging.Warn(ctx, "load messages: query failed", slog.String("err", wrapped.Error()))
		return nil, wrapped
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		var msg Message
		var role string
		if err := rows.Scan(&msg.ID, &msg.SessionID, &role, &msg.Content, &msg.Seq); err != nil {
			wrapped := coreerr.Wrap(coreerr.KindIntegrityError, "scan message row", err)
			logging.Error(ctx, "load messages: scan failed", slog.String("err", wrapped.Error()))
			return nil, wrapped
		}
		msg.Role = Role(role)
		out = append(out, &msg)
	}
	return out, nil
}

// RetryLast removes the trailing assistant message so the caller can
// regenerate it. Errors with coreerr.KindNothingToRetry if the trailing
// message is a user message (or the session is empty).
func (m *Manager) RetryLast(ctx context.Context, sess *Session) error {
	msgs, err := m.LoadMessages(ctx, sess)
	if err != nil {
		return err
	}
	if len(msgs) == 0 || msgs[len(msgs)-1].Role != RoleAssistant {
		return coreerr.New(coreerr.KindNothingToRetry, "trailing message is not from the assistant")
	}
	last := msgs[len(msgs)-1]

	if sess.Temporary {
		sess.pending = sess.pending[:len(sess.pending)-1]
		return nil
	}

	_, err = m.store.DB().ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, last.ID)
	if err != nil {
		wrapped := coreerr.Wrap(coreerr.KindBusy, "remove trailing assistant message", err)
		logging.Warn(ctx, "retry last: delete failed", slog.String("err", wrapped.Error()))
		return wrapped
	}
	return nil
}
