package branch

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/kyco/termai/internal/coreerr"
	"github.com/kyco/termai/internal/logging"
	"github.com/kyco/termai/internal/session"
)

// Archive transitions branchIDs to archived. Monotonic toward terminal
// states: archiving an already-merged branch is a no-op, not an error,
// since merged is also terminal.
func (m *Manager) Archive(ctx context.Context, branchIDs []string, reason string) error {
	for _, id := range branchIDs {
		b, err := m.fetchByID(ctx, id)
		if err != nil {
			return err
		}
		if b.Status == StatusMerged {
			continue
		}
		_, execErr := m.store.DB().ExecContext(ctx, `UPDATE branches SET status = ? WHERE id = ?`, string(StatusArchived), id)
		if execErr != nil {
			wrapped := coreerr.Wrap(coreerr.KindBusy, "archive branch", execErr)
			logging.Warn(ctx, "archive branch failed", slog.String("err", wrapped.Error()))
			return wrapped
		}
	}
	return nil
}

// CleanupProposal is the preview half of Cleanup's preview-then-commit
// contract: the proposed action set, returned without being applied.
type CleanupProposal struct {
	Strategy     CleanupStrategy
	ToArchive    []string // branch ids
	ToRemove     []string // branch ids, hard removal
	ToConsolidate [][]string // groups of branch ids judged similar
}

// Cleanup computes (but does not apply) a CleanupProposal for the given
// strategy. Call Commit with the same proposal to apply it.
func (m *Manager) Cleanup(ctx context.Context, sess *session.Session, strategy CleanupStrategy, days int) (*CleanupProposal, error) {
	all, err := m.List(ctx, sess, "")
	if err != nil {
		return nil, err
	}
	proposal := &CleanupProposal{Strategy: strategy}

	switch strategy {
	case CleanupArchiveOld:
		cutoff := time.Now().UTC().AddDate(0, 0, -days)
		for _, b := range all {
			if b.Status == StatusActive && b.LastActivity.Before(cutoff) {
				proposal.ToArchive = append(proposal.ToArchive, b.ID)
			}
		}
	case CleanupRemoveEmpty:
		for _, b := range all {
			view, err := m.View(ctx, sess, b.ID)
			if err != nil {
				return nil, err
			}
			if len(view) == 0 {
				proposal.ToRemove = append(proposal.ToRemove, b.ID)
			}
		}
	case CleanupConsolidateSimilar:
		proposal.ToConsolidate = groupSimilarBranches(ctx, m, sess, all)
	case CleanupRemoveDuplicates:
		proposal.ToRemove = findDuplicateBranches(ctx, m, sess, all)
	default:
		return nil, coreerr.New(coreerr.KindValidation, "unknown cleanup strategy: "+string(strategy))
	}
	return proposal, nil
}

// Commit applies a previously computed CleanupProposal.
func (m *Manager) Commit(ctx context.Context, proposal *CleanupProposal) error {
	if len(proposal.ToArchive) > 0 {
		if err := m.Archive(ctx, proposal.ToArchive, "cleanup: "+string(proposal.Strategy)); err != nil {
			return err
		}
	}
	for _, id := range proposal.ToRemove {
		if _, err := m.store.DB().ExecContext(ctx, `DELETE FROM branches WHERE id = ?`, id); err != nil {
			wrapped := coreerr.Wrap(coreerr.KindBusy, "hard-remove branch", err)
			logging.Warn(ctx, "commit cleanup: remove branch failed", slog.String("err", wrapped.Error()))
			return wrapped
		}
	}
	return nil
}

func groupSimilarBranches(ctx context.Context, m *Manager, sess *session.Session, all []*Branch) [][]string {
	const similarityThreshold = 0.85
	visited := map[string]bool{}
	var groups [][]string
	for i, a := range all {
		if visited[a.ID] || a.Status != StatusActive {
			continue
		}
		viewA, err := m.View(ctx, sess, a.ID)
		if err != nil {
			continue
		}
		group := []string{a.ID}
		for j := i + 1; j < len(all); j++ {
			b := all[j]
			if visited[b.ID] || b.Status != StatusActive {
				continue
			}
			viewB, err := m.View(ctx, sess, b.ID)
			if err != nil {
				continue
			}
			if branchViewSimilarity(viewA, viewB) >= similarityThreshold {
				group = append(group, b.ID)
				visited[b.ID] = true
			}
		}
		if len(group) > 1 {
			groups = append(groups, group)
		}
		visited[a.ID] = true
	}
	return groups
}

func findDuplicateBranches(ctx context.Context, m *Manager, sess *session.Session, all []*Branch) []string {
	seen := map[string]string{} // content fingerprint -> first branch id kept
	var dupes []string
	for _, b := range all {
		view, err := m.View(ctx, sess, b.ID)
		if err != nil {
			continue
		}
		var parts []string
		for _, msg := range view {
			parts = append(parts, msg.Content)
		}
		fingerprint := strings.Join(parts, "\x00")
		if _, ok := seen[fingerprint]; ok {
			dupes = append(dupes, b.ID)
		} else {
			seen[fingerprint] = b.ID
		}
	}
	return dupes
}

func branchViewSimilarity(a, b []*session.Message) float64 {
	var contentsA, contentsB []string
	for _, m := range a {
		contentsA = append(contentsA, m.Content)
	}
	for _, m := range b {
		contentsB = append(contentsB, m.Content)
	}
	return similarity(strings.Join(contentsA, "\n"), strings.Join(contentsB, "\n"))
}

// Export serializes branchIDs' views to the requested format.
func (m *Manager) Export(ctx context.Context, sess *session.Session, branchIDs []string, format ExportFormat) ([]byte, error) {
	type exportedBranch struct {
		Name     string              `json:"name"`
		Status   Status              `json:"status"`
		Messages []*session.Message  `json:"messages"`
	}
	var branches []exportedBranch
	for _, id := range branchIDs {
		b, err := m.fetchByID(ctx, id)
		if err != nil {
			return nil, err
		}
		view, err := m.View(ctx, sess, id)
		if err != nil {
			return nil, err
		}
		branches = append(branches, exportedBranch{Name: b.Name, Status: b.Status, Messages: view})
	}

	switch format {
	case ExportJSON:
		return json.MarshalIndent(branches, "", "  ")
	case ExportMarkdown:
		var b strings.Builder
		for _, br := range branches {
			b.WriteString("# " + br.Name + " (" + string(br.Status) + ")\n\n")
			for _, msg := range br.Messages {
				b.WriteString("**" + string(msg.Role) + ":** " + msg.Content + "\n\n")
			}
		}
		return []byte(b.String()), nil
	case ExportCSV:
		var b strings.Builder
		w := csv.NewWriter(&b)
		_ = w.Write([]string{"branch", "status", "seq", "role", "content"})
		for _, br := range branches {
			for _, msg := range br.Messages {
				_ = w.Write([]string{br.Name, string(br.Status), strconv.Itoa(msg.Seq), string(msg.Role), msg.Content})
			}
		}
		w.Flush()
		return []byte(b.String()), w.Error()
	case ExportText:
		var b strings.Builder
		for _, br := range branches {
			b.WriteString(br.Name + " [" + string(br.Status) + "]\n")
			for _, msg := range br.Messages {
				b.WriteString("  " + string(msg.Role) + ": " + msg.Content + "\n")
			}
		}
		return []byte(b.String()), nil
	default:
		return nil, coreerr.New(coreerr.KindValidation, "unknown export format: "+string(format))
	}
}
