// Package branch is the conversation-branch forest over a session (spec
// §4.4, component C5): create/switch/bookmark/search/stats/compare/merge/
// archive/cleanup/export over branches whose messages live in the shared
// message table, scoped by branch id.
package branch

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kyco/termai/internal/coreerr"
	"github.com/kyco/termai/internal/logging"
	"github.com/kyco/termai/internal/session"
	"github.com/kyco/termai/internal/store"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Status is the lifecycle state of a branch.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
	StatusMerged   Status = "merged"
)

// Branch is one node in a session's branch forest.
type Branch struct {
	ID             string
	SessionID      string
	ParentBranchID string // empty for a root branch
	Name           string
	Description    string
	Status         Status
	FromMessageSeq int
	CreatedAt      time.Time
	LastActivity   time.Time
	BookmarkName   string // empty if unbookmarked
}

// CompareMode selects the shape of Compare's output.
type CompareMode string

const (
	CompareSummary     CompareMode = "summary"
	CompareSideBySide  CompareMode = "side-by-side"
	CompareOutcomesOnly CompareMode = "outcomes-only"
)

// MergeStrategy selects how Merge folds source branches into a target.
type MergeStrategy string

const (
	MergeSequential  MergeStrategy = "Sequential"
	MergeIntelligent MergeStrategy = "Intelligent"
	MergeSelective   MergeStrategy = "Selective"
	MergeSummary     MergeStrategy = "Summary"
	MergeBestOf      MergeStrategy = "BestOf"
)

// CleanupStrategy selects which branches Cleanup proposes to act on.
type CleanupStrategy string

const (
	CleanupArchiveOld         CleanupStrategy = "ArchiveOld"
	CleanupRemoveEmpty        CleanupStrategy = "RemoveEmpty"
	CleanupConsolidateSimilar CleanupStrategy = "ConsolidateSimilar"
	CleanupRemoveDuplicates   CleanupStrategy = "RemoveDuplicates"
)

// ExportFormat selects Export's serialization.
type ExportFormat string

const (
	ExportJSON     ExportFormat = "json"
	ExportMarkdown ExportFormat = "markdown"
	ExportCSV      ExportFormat = "csv"
	ExportText     ExportFormat = "text"
)

// Manager is the CRUD and compound-operation surface over branches.
type Manager struct {
	store    *store.Store
	sessions *session.Manager

	// locks guards a per-session advisory mutex for compound operations
	// (merge, cleanup) per spec §5's shared-resource policy.
	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New wraps a store.Store and session.Manager as a branch Manager.
func New(s *store.Store, sessions *session.Manager) *Manager {
	return &Manager{store: s, sessions: sessions, locks: map[string]*sync.Mutex{}}
}

func (m *Manager) sessionLock(sessionID string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[sessionID] = l
	}
	return l
}

// CreateOptions configures Create; all fields are optional.
type CreateOptions struct {
	ParentID         string // defaults to the session's active branch, else root
	Name             string // defaults to a generated slug
	Description      string
	FromMessageIndex *int // defaults to the parent view's current length - 1
}

// Create forks a new branch from parent at FromMessageIndex. Messages with
// seq <= index are inherited from the parent view; later messages are
// private to the new branch.
func (m *Manager) Create(ctx context.Context, sess *session.Session, opts CreateOptions) (*Branch, error) {
	parentID := opts.ParentID
	if parentID == "" {
		parentID = sess.ActiveBranchID
	}

	if parentID != "" {
		if _, err := m.fetchByID(ctx, parentID); err != nil {
			return nil, err
		}
	}

	fromSeq := -1
	if opts.FromMessageIndex != nil {
		fromSeq = *opts.FromMessageIndex
	} else {
		view, err := m.View(ctx, sess, parentID)
		if err != nil {
			return nil, err
		}
		fromSeq = len(view) - 1
	}

	name := opts.Name
	if name == "" {
		name = fmt.Sprintf("branch-%s", uuid.NewString()[:8])
	}
	if _, err := m.fetchByName(ctx, sess.ID, name); err == nil {
		return nil, coreerr.New(coreerr.KindConflict, "branch name already in use: "+name)
	} else if !coreerr.Of(err, coreerr.KindNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	b := &Branch{
		ID:             uuid.NewString(),
		SessionID:      sess.ID,
		ParentBranchID: parentID,
		Name:           name,
		Description:    opts.Description,
		Status:         StatusActive,
		FromMessageSeq: fromSeq,
		CreatedAt:      now,
		LastActivity:   now,
	}

	var parentArg any
	if parentID != "" {
		parentArg = parentID
	}
	err := store.WithBusyRetry(ctx, func() error {
		_, execErr := m.store.DB().ExecContext(ctx, `
			INSERT INTO branches(id, session_id, parent_branch_id, name, description, status, from_message_seq, created_at, last_activity, bookmark_name)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)
		`, b.ID, b.SessionID, parentArg, b.Name, b.Description, string(b.Status), b.FromMessageSeq, b.CreatedAt.Unix(), b.LastActivity.Unix())
		return execErr
	})
	if err != nil {
		wrapped := coreerr.Wrap(coreerr.KindBusy, "create branch", err)
		logging.Warn(ctx, "create branch: insert failed", slog.String("err", wrapped.Error()))
		return nil, wrapped
	}
	return b, nil
}

func (m *Manager) scanBranch(row interface {
	Scan(dest ...any) error
}) (*Branch, error) {
	var b Branch
	var parentID, bookmark sql.NullString
	var createdAt, lastActivity int64
	err := row.Scan(&b.ID, &b.SessionID, &parentID, &b.Name, &b.Description, &b.Status,
		&b.FromMessageSeq, &createdAt, &lastActivity, &bookmark)
	if err != nil {
		return nil, err
	}
	b.ParentBranchID = parentID.String
	b.BookmarkName = bookmark.String
	b.CreatedAt = time.Unix(createdAt, 0).UTC()
	b.LastActivity = time.Unix(lastActivity, 0).UTC()
	return &b, nil
}

const branchColumns = `id, session_id, parent_branch_id, name, description, status, from_message_seq, created_at, last_activity, bookmark_name`

func (m *Manager) fetchByID(ctx context.Context, id string) (*Branch, error) {
	row := m.store.DB().QueryRowContext(ctx, `SELECT `+branchColumns+` FROM branches WHERE id = ?`, id)
	b, err := m.scanBranch(row)
	if err == sql.ErrNoRows {
		return nil, coreerr.New(coreerr.KindNotFound, "no branch with id "+id)
	}
	if err != nil {
		wrapped := coreerr.Wrap(coreerr.KindIntegrityError, "fetch branch by id", err)
		logging.Error(ctx, "fetch branch by id failed", slog.String("err", wrapped.Error()))
		return nil, wrapped
	}
	return b, nil
}

func (m *Manager) fetchByName(ctx context.Context, sessionID, name string) (*Branch, error) {
	row := m.store.DB().QueryRowContext(ctx, `SELECT `+branchColumns+` FROM branches WHERE session_id = ? AND name = ?`, sessionID, name)
	b, err := m.scanBranch(row)
	if err == sql.ErrNoRows {
		return nil, coreerr.New(coreerr.KindNotFound, "no branch named "+name)
	}
	if err != nil {
		wrapped := coreerr.Wrap(coreerr.KindIntegrityError, "fetch branch by name", err)
		logging.Error(ctx, "fetch branch by name failed", slog.String("err", wrapped.Error()))
		return nil, wrapped
	}
	return b, nil
}

// Resolve finds a branch in sess by id or by name.
func (m *Manager) Resolve(ctx context.Context, sess *session.Session, branchOrID string) (*Branch, error) {
	if b, err := m.fetchByID(ctx, branchOrID); err == nil && b.SessionID == sess.ID {
		return b, nil
	}
	return m.fetchByName(ctx, sess.ID, branchOrID)
}

// View returns the visible message sequence of branchID: every ancestor's
// private messages up to its fork point, followed by this branch's own
// messages. An empty branchID means the session's root history.
func (m *Manager) View(ctx context.Context, sess *session.Session, branchID string) ([]*session.Message, error) {
	all, err := m.sessions.LoadMessages(ctx, sess)
	if err != nil {
		return nil, err
	}
	if branchID == "" {
		return all, nil
	}

	chain, err := m.ancestorChain(ctx, branchID)
	if err != nil {
		return nil, err
	}

	// Branch-private messages live in branch_messages, keyed by branch id,
	// separately from the session's own root message table.
	privateByBranch, err := m.loadPrivateMessages(ctx, chain)
	if err != nil {
		return nil, err
	}

	root := chain[0]
	var out []*session.Message
	if root.FromMessageSeq >= 0 {
		for _, msg := range all {
			if msg.Seq <= root.FromMessageSeq {
				out = append(out, msg)
			}
		}
	}
	for _, b := range chain {
		out = append(out, privateByBranch[b.ID]...)
	}
	return out, nil
}

// ancestorChain returns the path from the session root to branchID,
// root-first, detecting cycles (which would indicate a corrupt forest).
func (m *Manager) ancestorChain(ctx context.Context, branchID string) ([]*Branch, error) {
	var chain []*Branch
	seen := map[string]bool{}
	cur := branchID
	for cur != "" {
		if seen[cur] {
			wrapped := coreerr.New(coreerr.KindIntegrityError, "branch ancestry contains a cycle")
			logging.Error(ctx, "ancestor chain: cycle detected", slog.String("err", wrapped.Error()))
			return nil, wrapped
		}
		seen[cur] = true
		b, err := m.fetchByID(ctx, cur)
		if err != nil {
			if coreerr.Of(err, coreerr.KindNotFound) {
				wrapped := coreerr.New(coreerr.KindIntegrityError, "dangling parent branch reference: "+cur)
				logging.Error(ctx, "ancestor chain: dangling reference", slog.String("err", wrapped.Error()))
				return nil, wrapped
			}
			return nil, err
		}
		chain = append([]*Branch{b}, chain...)
		cur = b.ParentBranchID
	}
	return chain, nil
}

// loadPrivateMessages returns, for each branch in chain, the messages
// appended to it via AppendToBranch (private, not inherited).
func (m *Manager) loadPrivateMessages(ctx context.Context, chain []*Branch) (map[string][]*session.Message, error) {
	out := map[string][]*session.Message{}
	for _, b := range chain {
		rows, err := m.store.DB().QueryContext(ctx, `
			SELECT id, session_id, role, content, seq FROM branch_messages
			WHERE branch_id = ? ORDER BY seq ASC
		`, b.ID)
		if err != nil {
			wrapped := coreerr.Wrap(coreerr.KindBusy, "load branch messages", err)
			logging.Warn(ctx, "load branch messages: query failed", slog.String("err", wrapped.Error()))
			return nil, wrapped
		}
		var msgs []*session.Message
		for rows.Next() {
			var msg session.Message
			var role string
			if err := rows.Scan(&msg.ID, &msg.SessionID, &role, &msg.Content, &msg.Seq); err != nil {
				rows.Close()
				wrapped := coreerr.Wrap(coreerr.KindIntegrityError, "scan branch message row", err)
				logging.Error(ctx, "load branch messages: scan failed", slog.String("err", wrapped.Error()))
				return nil, wrapped
			}
			msg.Role = session.Role(role)
			msgs = append(msgs, &msg)
		}
		rows.Close()
		out[b.ID] = msgs
	}
	return out, nil
}

// AppendToBranch writes a message private to branchID. Fails with
// coreerr.KindBranchLocked if the branch is archived or merged.
func (m *Manager) AppendToBranch(ctx context.Context, b *Branch, role session.Role, content string) error {
	if b.Status != StatusActive {
		return coreerr.New(coreerr.KindBranchLocked, "branch "+b.Name+" is "+string(b.Status))
	}
	var nextSeq int
	err := store.WithBusyRetry(ctx, func() error {
		return m.store.DB().QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq), -1) + 1 FROM branch_messages WHERE branch_id = ?`, b.ID).Scan(&nextSeq)
	})
	if err != nil {
		wrapped := coreerr.Wrap(coreerr.KindBusy, "compute branch sequence", err)
		logging.Warn(ctx, "append to branch: sequence query failed", slog.String("err", wrapped.Error()))
		return wrapped
	}
	now := time.Now().UTC()
	err = store.WithBusyRetry(ctx, func() error {
		_, execErr := m.store.DB().ExecContext(ctx, `
			INSERT INTO branch_messages(id, branch_id, session_id, role, content, seq) VALUES (?, ?, ?, ?, ?, ?)
		`, uuid.NewString(), b.ID, b.SessionID, string(role), content, nextSeq)
		return execErr
	})
	if err != nil {
		wrapped := coreerr.Wrap(coreerr.KindBusy, "append branch message", err)
		logging.Warn(ctx, "append to branch: insert failed", slog.String("err", wrapped.Error()))
		return wrapped
	}
	b.LastActivity = now
	_, _ = m.store.DB().ExecContext(ctx, `UPDATE branches SET last_activity = ? WHERE id = ?`, now.Unix(), b.ID)
	return nil
}

// Switch rebinds the session's active branch pointer, or, if newSession is
// true, returns a fresh temporary session seeded with a copy of the
// branch's view (the caller is responsible for persisting it via
// session.Manager.Rename).
func (m *Manager) Switch(ctx context.Context, sess *session.Session, branchOrID string, newSession bool) (*session.Session, error) {
	b, err := m.Resolve(ctx, sess, branchOrID)
	if err != nil {
		return nil, err
	}

	if !newSession {
		if err := m.sessions.SetActiveBranch(ctx, sess, b.ID); err != nil {
			return nil, err
		}
		return sess, nil
	}

	view, err := m.View(ctx, sess, b.ID)
	if err != nil {
		return nil, err
	}
	fresh, err := m.sessions.OpenTemporary(ctx)
	if err != nil {
		return nil, err
	}
	for _, msg := range view {
		if _, err := m.sessions.Append(ctx, fresh, msg.Role, msg.Content); err != nil {
			return nil, err
		}
	}
	return fresh, nil
}

// List returns a session's branches, optionally filtered by status.
func (m *Manager) List(ctx context.Context, sess *session.Session, statusFilter Status) ([]*Branch, error) {
	query := `SELECT ` + branchColumns + ` FROM branches WHERE session_id = ?`
	args := []any{sess.ID}
	if statusFilter != "" {
		query += ` AND status = ?`
		args = append(args, string(statusFilter))
	}
	rows, err := m.store.DB().QueryContext(ctx, query, args...)
	if err != nil {
		wrapped := coreerr.Wrap(coreerr.KindBusy, "list branches", err)
		logging.Warn(ctx, "list branches: query failed", slog.String("err", wrapped.Error()))
		return nil, wrapped
	}
	defer rows.Close()
	var out []*Branch
	for rows.Next() {
		b, err := m.scanBranch(rows)
		if err != nil {
			wrapped := coreerr.Wrap(coreerr.KindIntegrityError, "scan branch row", err)
			logging.Error(ctx, "list branches: scan failed", slog.String("err", wrapped.Error()))
			return nil, wrapped
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Search matches name, description, or bookmark against query (case-insensitive).
func (m *Manager) Search(ctx context.Context, sess *session.Session, query string, statusFilter Status) ([]*Branch, error) {
	all, err := m.List(ctx, sess, statusFilter)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	var out []*Branch
	for _, b := range all {
		if strings.Contains(strings.ToLower(b.Name), q) ||
			strings.Contains(strings.ToLower(b.Description), q) ||
			strings.Contains(strings.ToLower(b.BookmarkName), q) {
			out = append(out, b)
		}
	}
	return out, nil
}

// Bookmark assigns a unique-within-session bookmark name to a branch.
func (m *Manager) Bookmark(ctx context.Context, sess *session.Session, b *Branch, name string) error {
	existing, err := m.store.DB().QueryContext(ctx, `SELECT id FROM branches WHERE session_id = ? AND bookmark_name = ?`, sess.ID, name)
	if err != nil {
		wrapped := coreerr.Wrap(coreerr.KindBusy, "check bookmark uniqueness", err)
		logging.Warn(ctx, "bookmark: uniqueness check failed", slog.String("err", wrapped.Error()))
		return wrapped
	}
	defer existing.Close()
	if existing.Next() {
		return coreerr.New(coreerr.KindConflict, "bookmark name already in use: "+name)
	}

	_, err = m.store.DB().ExecContext(ctx, `UPDATE branches SET bookmark_name = ? WHERE id = ?`, name, b.ID)
	if err != nil {
		wrapped := coreerr.Wrap(coreerr.KindBusy, "set bookmark", err)
		logging.Warn(ctx, "bookmark: update failed", slog.String("err", wrapped.Error()))
		return wrapped
	}
	b.BookmarkName = name
	return nil
}

// Unbookmark removes a branch's bookmark, if any.
func (m *Manager) Unbookmark(ctx context.Context, b *Branch) error {
	_, err := m.store.DB().ExecContext(ctx, `UPDATE branches SET bookmark_name = NULL WHERE id = ?`, b.ID)
	if err != nil {
		wrapped := coreerr.Wrap(coreerr.KindBusy, "clear bookmark", err)
		logging.Warn(ctx, "unbookmark: update failed", slog.String("err", wrapped.Error()))
		return wrapped
	}
	b.BookmarkName = ""
	return nil
}

// Stats summarizes a session's branch population.
type Stats struct {
	CountByStatus   map[Status]int
	MaxDepth        int
	AverageDepth    float64
	BookmarkedCount int
}

// Stats computes counts by status, depth extremes, and bookmark count.
func (m *Manager) Stats(ctx context.Context, sess *session.Session) (*Stats, error) {
	all, err := m.List(ctx, sess, "")
	if err != nil {
		return nil, err
	}
	st := &Stats{CountByStatus: map[Status]int{}}
	if len(all) == 0 {
		return st, nil
	}
	depths := make([]int, 0, len(all))
	for _, b := range all {
		st.CountByStatus[b.Status]++
		if b.BookmarkName != "" {
			st.BookmarkedCount++
		}
		chain, err := m.ancestorChain(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		depth := len(chain)
		depths = append(depths, depth)
		if depth > st.MaxDepth {
			st.MaxDepth = depth
		}
	}
	var sum int
	for _, d := range depths {
		sum += d
	}
	st.AverageDepth = float64(sum) / float64(len(depths))
	return st, nil
}

// CompareRow is one parallel position across compared branches.
type CompareRow struct {
	Position   int
	Messages   map[string]*session.Message // branch name -> message at this position, absent if shorter
	Similarity float64                     // normalized LCS similarity across the row's messages, in [0,1]
}

// Compare reports, for each parallel message position, the tuple of
// messages across branchNames and a similarity score computed via
// tokenized LCS (spec §4.4).
func (m *Manager) Compare(ctx context.Context, sess *session.Session, branchNames []string, mode CompareMode) ([]CompareRow, error) {
	views := make(map[string][]*session.Message, len(branchNames))
	maxLen := 0
	for _, name := range branchNames {
		var view []*session.Message
		var err error
		if name == "root" {
			view, err = m.View(ctx, sess, "")
		} else {
			var b *Branch
			b, err = m.Resolve(ctx, sess, name)
			if err == nil {
				view, err = m.View(ctx, sess, b.ID)
			}
		}
		if err != nil {
			return nil, err
		}
		views[name] = view
		if len(view) > maxLen {
			maxLen = len(view)
		}
	}

	var rows []CompareRow
	for pos := 0; pos < maxLen; pos++ {
		row := CompareRow{Position: pos, Messages: map[string]*session.Message{}}
		var contents []string
		for _, name := range branchNames {
			view := views[name]
			if pos < len(view) {
				row.Messages[name] = view[pos]
				contents = append(contents, view[pos].Content)
			}
		}
		row.Similarity = pairwiseSimilarity(contents)
		if mode != CompareOutcomesOnly || pos == maxLen-1 {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// pairwiseSimilarity averages the normalized-LCS similarity of every pair
// in contents, using diffmatchpatch's line-diff to approximate a tokenized
// longest-common-subsequence length.
func pairwiseSimilarity(contents []string) float64 {
	if len(contents) < 2 {
		return 1.0
	}
	var total float64
	var pairs int
	for i := 0; i < len(contents); i++ {
		for j := i + 1; j < len(contents); j++ {
			total += similarity(contents[i], contents[j])
			pairs++
		}
	}
	if pairs == 0 {
		return 1.0
	}
	return total / float64(pairs)
}

// similarity returns the fraction of tokens shared between a and b,
// derived from a line-oriented diff's equal-run length.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	dmp := diffmatchpatch.New()
	wa, wb, _ := dmp.DiffLinesToChars(tokenizeToLines(a), tokenizeToLines(b))
	diffs := dmp.DiffMain(wa, wb, false)
	var equalLen, totalLen int
	for _, d := range diffs {
		n := len([]rune(d.Text))
		totalLen += n
		if d.Type == diffmatchpatch.DiffEqual {
			equalLen += n
		}
	}
	if totalLen == 0 {
		return 1.0
	}
	return float64(equalLen) / float64(totalLen)
}

// tokenizeToLines rewrites whitespace-delimited tokens one per line so
// diffmatchpatch's line-diff operates over word tokens instead of raw text.
func tokenizeToLines(s string) string {
	return strings.Join(strings.Fields(s), "\n")
}
