package branch

import (
	"context"
	"log/slog"
	"sort"

	"github.com/kyco/termai/internal/coreerr"
	"github.com/kyco/termai/internal/logging"
	"github.com/kyco/termai/internal/session"
)

// Merge folds sourceIDs' private messages into targetID per strategy.
// Merge never rewrites target's existing messages; it only appends (spec
// §4.4's append-only invariant). Fails with coreerr.KindBranchLocked if
// target is archived or merged, and coreerr.KindInvalidTopology if target
// is also a source.
func (m *Manager) Merge(ctx context.Context, sess *session.Session, sourceIDs []string, targetID string, strategy MergeStrategy) error {
	lock := m.sessionLock(sess.ID)
	lock.Lock()
	defer lock.Unlock()

	for _, src := range sourceIDs {
		if src == targetID {
			return coreerr.New(coreerr.KindInvalidTopology, "merge target cannot also be a source")
		}
	}

	target, err := m.fetchByID(ctx, targetID)
	if err != nil {
		return err
	}
	if target.Status != StatusActive {
		return coreerr.New(coreerr.KindBranchLocked, "merge target "+target.Name+" is "+string(target.Status))
	}

	sources := make([]*Branch, 0, len(sourceIDs))
	sourceMsgs := make(map[string][]*session.Message, len(sourceIDs))
	for _, id := range sourceIDs {
		b, err := m.fetchByID(ctx, id)
		if err != nil {
			return err
		}
		sources = append(sources, b)
		msgs, err := m.loadPrivateMessages(ctx, []*Branch{b})
		if err != nil {
			return err
		}
		sourceMsgs[id] = msgs[id]
	}

	switch strategy {
	case MergeSequential:
		for _, src := range sources {
			for _, msg := range sourceMsgs[src.ID] {
				if err := m.AppendToBranch(ctx, target, msg.Role, msg.Content); err != nil {
					return err
				}
			}
		}
	case MergeIntelligent:
		interleaved := interleaveByPosition(sources, sourceMsgs)
		var lastContent string
		for _, msg := range interleaved {
			if msg.Content == lastContent {
				continue // suppress exact-duplicate consecutive messages
			}
			if err := m.AppendToBranch(ctx, target, msg.Role, msg.Content); err != nil {
				return err
			}
			lastContent = msg.Content
		}
	case MergeSelective:
		for _, src := range sources {
			all := sourceMsgs[src.ID]
			indices := make([]int, len(all))
			for i := range all {
				indices[i] = i
			}
			if err := m.SelectiveMerge(ctx, src.ID, targetID, indices); err != nil {
				return err
			}
		}
	case MergeSummary:
		for _, src := range sources {
			summary := summarizeOutcome(src, sourceMsgs[src.ID])
			if err := m.AppendToBranch(ctx, target, session.RoleAssistant, summary); err != nil {
				return err
			}
		}
	case MergeBestOf:
		targetView, err := m.View(ctx, sess, targetID)
		if err != nil {
			return err
		}
		best := bestOfPerPosition(sources, sourceMsgs, targetView)
		for _, msg := range best {
			if err := m.AppendToBranch(ctx, target, msg.Role, msg.Content); err != nil {
				return err
			}
		}
	default:
		return coreerr.New(coreerr.KindValidation, "unknown merge strategy: "+string(strategy))
	}

	target.Status = StatusMerged
	_, execErr := m.store.DB().ExecContext(ctx, `UPDATE branches SET status = ? WHERE id = ?`, string(StatusMerged), target.ID)
	if execErr != nil {
		wrapped := coreerr.Wrap(coreerr.KindBusy, "mark target merged", execErr)
		logging.Warn(ctx, "merge: mark target merged failed", slog.String("err", wrapped.Error()))
		return wrapped
	}
	return nil
}

// interleaveByPosition orders each source's messages by their original
// per-branch sequence position, per spec's sequence-index fallback for
// Intelligent merge (message timestamps are not always available).
func interleaveByPosition(sources []*Branch, msgs map[string][]*session.Message) []*session.Message {
	type tagged struct {
		pos int
		msg *session.Message
	}
	var all []tagged
	for _, src := range sources {
		for _, msg := range msgs[src.ID] {
			all = append(all, tagged{pos: msg.Seq, msg: msg})
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].pos < all[j].pos })
	out := make([]*session.Message, len(all))
	for i, t := range all {
		out[i] = t.msg
	}
	return out
}

// summarizeOutcome produces the shape the Summary strategy's contract
// requires; actual summary generation is outside the core (spec §4.4).
func summarizeOutcome(src *Branch, msgs []*session.Message) string {
	return "Summary of branch " + src.Name + ": " + lastContentOrEmpty(msgs)
}

func lastContentOrEmpty(msgs []*session.Message) string {
	if len(msgs) == 0 {
		return "(no messages)"
	}
	return msgs[len(msgs)-1].Content
}

// bestOfPerPosition chooses, for each parallel position, the source
// message whose similarity to the target's corresponding message is
// lowest, maximizing information gain per spec's BestOf contract.
func bestOfPerPosition(sources []*Branch, msgs map[string][]*session.Message, targetView []*session.Message) []*session.Message {
	maxLen := 0
	for _, src := range sources {
		if n := len(msgs[src.ID]); n > maxLen {
			maxLen = n
		}
	}

	var out []*session.Message
	for pos := 0; pos < maxLen; pos++ {
		var targetContent string
		if pos < len(targetView) {
			targetContent = targetView[pos].Content
		}
		var best *session.Message
		bestSim := 2.0 // above any valid similarity, so the first candidate always wins
		for _, src := range sources {
			candidates := msgs[src.ID]
			if pos >= len(candidates) {
				continue
			}
			sim := similarity(candidates[pos].Content, targetContent)
			if sim < bestSim {
				bestSim = sim
				best = candidates[pos]
			}
		}
		if best != nil {
			out = append(out, best)
		}
	}
	return out
}

// SelectiveMerge cherry-picks messageIndices (positions within sourceID's
// private message list) into targetID, preserving order.
func (m *Manager) SelectiveMerge(ctx context.Context, sourceID, targetID string, messageIndices []int) error {
	target, err := m.fetchByID(ctx, targetID)
	if err != nil {
		return err
	}
	if target.Status != StatusActive {
		return coreerr.New(coreerr.KindBranchLocked, "merge target "+target.Name+" is "+string(target.Status))
	}

	src, err := m.fetchByID(ctx, sourceID)
	if err != nil {
		return err
	}
	msgs, err := m.loadPrivateMessages(ctx, []*Branch{src})
	if err != nil {
		return err
	}
	all := msgs[sourceID]

	sorted := append([]int(nil), messageIndices...)
	sort.Ints(sorted)
	for _, idx := range sorted {
		if idx < 0 || idx >= len(all) {
			return coreerr.New(coreerr.KindValidation, "message index out of range for selective merge")
		}
		if err := m.AppendToBranch(ctx, target, all[idx].Role, all[idx].Content); err != nil {
			return err
		}
	}
	return nil
}
