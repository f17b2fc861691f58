package redact

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"
)

// suggestPattern matches high-entropy byte runs that may be secrets, used as
// the entropy leg of Suggest's layered detection.
var suggestPattern = regexp.MustCompile(`[A-Za-z0-9/+_=-]{10,}`)

// entropyThreshold is the minimum Shannon entropy for a run to be flagged.
// 4.5 keeps common words and identifiers out while still catching typical
// API keys and tokens, which run well above 5.0.
const entropyThreshold = 4.5

var (
	gitleaksDetector     *detect.Detector
	gitleaksDetectorOnce sync.Once
)

func getDetector() *detect.Detector {
	gitleaksDetectorOnce.Do(func() {
		d, err := detect.NewDetectorDefaultConfig()
		if err != nil {
			return
		}
		gitleaksDetector = d
	})
	return gitleaksDetector
}

// Candidate is a substring Suggest believes may be a secret, paired with the
// detector that flagged it, so the caller can present it to the user before
// adding it to the live redaction list (spec §4.3's "suggest" affordance:
// detection never redacts automatically, only the configured list does).
type Candidate struct {
	Token  string
	Reason string // "entropy" or "pattern:<gitleaks-rule-id>"
}

// Suggest scans text with the two detectors the pack's secret-scrubber used
// (Shannon entropy and gitleaks' rule set) and returns distinct candidate
// tokens an operator may want to add to their redaction list. It never
// mutates text and never writes to config; wiring a candidate into the live
// list is a separate, explicit config.Registry.AddRedaction call.
func Suggest(text string) []Candidate {
	seen := map[string]string{} // token -> reason, first detector wins

	for _, loc := range suggestPattern.FindAllStringIndex(text, -1) {
		token := text[loc[0]:loc[1]]
		if shannonEntropy(token) > entropyThreshold {
			if _, ok := seen[token]; !ok {
				seen[token] = "entropy"
			}
		}
	}

	if d := getDetector(); d != nil {
		for _, f := range d.DetectString(text) {
			if f.Secret == "" {
				continue
			}
			if _, ok := seen[f.Secret]; !ok {
				seen[f.Secret] = "pattern:" + f.RuleID
			}
		}
	}

	candidates := make([]Candidate, 0, len(seen))
	for token, reason := range seen {
		candidates = append(candidates, Candidate{Token: token, Reason: reason})
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Token < candidates[j].Token })
	return candidates
}

func shannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	freq := make(map[byte]int)
	for i := range len(s) {
		freq[s[i]]++
	}
	length := float64(len(s))
	var entropy float64
	for _, count := range freq {
		p := float64(count) / length
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// SuggestFromMessages runs Suggest across a whole message list, used by the
// `redact suggest` command to scan outbound chat history in one pass.
func SuggestFromMessages(messages []Message) []Candidate {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(m.Content)
		b.WriteByte('\n')
	}
	return Suggest(b.String())
}
