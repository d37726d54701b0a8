package checkpoint

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"anycode/internal/logging"
)

// Known engine identifiers.
const (
	EngineClaude = "claude"
	EngineCodex  = "codex"
	EngineGemini = "gemini"
)

// Engine commit markers. Attribution is substring matching over the commit
// subject - no author fields or trailers are consulted. The markers are fixed;
// they must match what each engine embeds in its commit messages.
const (
	markerClaude    = "[Claude"
	markerCodex     = "[Codex]"
	markerGemini    = "[Gemini]"
	markerWorkbench = "[Claude Workbench]" // legacy alias, owned by claude
)

// MarkerFor returns the commit marker for an engine, suitable as a
// message prefix so the resulting commit classifies back to that engine.
func MarkerFor(engine string) string {
	switch engine {
	case EngineClaude:
		return "[Claude]"
	case EngineCodex:
		return markerCodex
	case EngineGemini:
		return markerGemini
	default:
		return "[" + engine + "]"
	}
}

// safeDepthLimit is the largest rollback that is auto-safe when every
// discarded commit belongs to the requesting engine.
const safeDepthLimit = 5

// summaryLimit caps the commit summaries carried in a verdict.
const summaryLimit = 10

// ResetSafety is the structured verdict for a prospective rollback.
// Produced fresh on every check, never cached.
type ResetSafety struct {
	// CommitsToLose is how many commits a reset to the target would discard.
	CommitsToLose int `json:"commitsToLose"`

	// HasOtherEngineCommits is true when any discarded commit carries a
	// marker of an engine other than the requesting one.
	HasOtherEngineCommits bool `json:"hasOtherEngineCommits"`

	// HasUserCommits is true when any discarded commit has no engine marker
	// and is not a merge.
	HasUserCommits bool `json:"hasUserCommits"`

	// CommitsSummary lists subjects of discarded commits, capped at 10.
	CommitsSummary []string `json:"commitsSummary"`

	// SafeToProceed is true when the rollback may run without confirmation.
	SafeToProceed bool `json:"safeToProceed"`

	// Warning explains why the rollback is unsafe; empty when safe.
	Warning string `json:"warning,omitempty"`
}

// subjectClass is the attribution of a single commit subject.
type subjectClass struct {
	anyEngine     bool
	currentEngine bool
	isMerge       bool
}

// classifySubject attributes a commit subject to an actor class by marker
// substrings. Deliberately heuristic: a user message containing a marker
// string will misclassify, and that is accepted behavior.
func classifySubject(subject, currentEngine string) subjectClass {
	isClaude := strings.Contains(subject, markerClaude)
	isCodex := strings.Contains(subject, markerCodex)
	isGemini := strings.Contains(subject, markerGemini)
	isWorkbench := strings.Contains(subject, markerWorkbench)

	var isCurrent bool
	switch currentEngine {
	case EngineClaude:
		isCurrent = isClaude || isWorkbench
	case EngineCodex:
		isCurrent = isCodex
	case EngineGemini:
		isCurrent = isGemini
	}

	return subjectClass{
		anyEngine:     isClaude || isCodex || isGemini || isWorkbench,
		currentEngine: isCurrent,
		isMerge:       strings.Contains(strings.ToLower(subject), "merge"),
	}
}

// shortRef abbreviates a revision for log lines. Truncation counts runes,
// not bytes, so a symbolic ref with multi-byte characters never gets cut
// mid-rune.
func shortRef(rev string) string {
	runes := []rune(rev)
	if len(runes) > 8 {
		return string(runes[:8])
	}
	return rev
}

// commitCountBetween counts commits in the open-ended range (from, to].
func (s *Service) commitCountBetween(ctx context.Context, projectPath, from, to string) (int, error) {
	rangeArg := fmt.Sprintf("%s..%s", from, to)
	res, err := s.git(ctx, projectPath, "rev-list", "--count", rangeArg)
	if err != nil {
		return 0, fmt.Errorf("failed to count commits: %w", err)
	}
	if !res.Success {
		return 0, &CommandError{Args: []string{"rev-list", "--count", rangeArg}, Stderr: stderrText(res.Stderr)}
	}
	if !utf8.Valid(res.Stdout) {
		return 0, &DecodeError{What: "commit count"}
	}

	countStr := strings.TrimSpace(string(res.Stdout))
	count, err := strconv.Atoi(countStr)
	if err != nil {
		return 0, &ParseError{What: "commit count", Output: countStr, Err: err}
	}
	return count, nil
}

// logBetween returns the commit subjects in the range (from, to], newest first.
func (s *Service) logBetween(ctx context.Context, projectPath, from, to string) ([]string, error) {
	rangeArg := fmt.Sprintf("%s..%s", from, to)
	res, err := s.git(ctx, projectPath, "log", "--oneline", "--format=%s", rangeArg)
	if err != nil {
		return nil, fmt.Errorf("failed to get git log: %w", err)
	}
	if !res.Success {
		return nil, &CommandError{Args: []string{"log", rangeArg}, Stderr: stderrText(res.Stderr)}
	}
	if !utf8.Valid(res.Stdout) {
		return nil, &DecodeError{What: "commit log"}
	}

	var subjects []string
	for _, line := range strings.Split(string(res.Stdout), "\n") {
		if strings.TrimSpace(line) != "" {
			subjects = append(subjects, line)
		}
	}
	return subjects, nil
}

// CheckResetSafety classifies a prospective rollback to targetCommit requested
// by currentEngine. It never silently returns a verdict it cannot justify:
// any failure to resolve head, count the range, or fetch the log propagates.
func (s *Service) CheckResetSafety(ctx context.Context, projectPath, targetCommit, currentEngine string) (*ResetSafety, error) {
	logging.Safety("Checking reset safety for %s (engine: %s)", shortRef(targetCommit), currentEngine)

	currentHead, err := s.CurrentCommit(ctx, projectPath)
	if err != nil {
		return nil, err
	}

	// Resetting to HEAD loses nothing; always safe.
	if currentHead == targetCommit {
		return &ResetSafety{
			CommitsSummary: []string{},
			SafeToProceed:  true,
		}, nil
	}

	commitsToLose, err := s.commitCountBetween(ctx, projectPath, targetCommit, currentHead)
	if err != nil {
		return nil, err
	}

	subjects, err := s.logBetween(ctx, projectPath, targetCommit, currentHead)
	if err != nil {
		return nil, err
	}

	var (
		hasOtherEngine, hasUser     bool
		otherEngineCount, userCount int
	)
	for _, subject := range subjects {
		class := classifySubject(subject, currentEngine)
		if class.anyEngine && !class.currentEngine {
			hasOtherEngine = true
			otherEngineCount++
		}
		if !class.anyEngine && !class.isMerge {
			hasUser = true
			userCount++
		}
	}

	safe := !hasOtherEngine && !hasUser && commitsToLose <= safeDepthLimit

	var warning string
	if !safe {
		var warnings []string
		if hasOtherEngine {
			warnings = append(warnings, fmt.Sprintf("%d commit(s) from other engines will be lost", otherEngineCount))
		}
		if hasUser {
			warnings = append(warnings, fmt.Sprintf("%d manual user commit(s) will be lost", userCount))
		}
		if commitsToLose > safeDepthLimit && !hasOtherEngine && !hasUser {
			warnings = append(warnings, fmt.Sprintf("%d commits will be rolled back, which may revert substantial changes", commitsToLose))
		}
		warning = strings.Join(warnings, "; ")
	}

	logging.Safety("Result: commitsToLose=%d, otherEngine=%v, userCommits=%v, safe=%v",
		commitsToLose, hasOtherEngine, hasUser, safe)

	summary := subjects
	if len(summary) > summaryLimit {
		summary = summary[:summaryLimit]
	}
	if summary == nil {
		summary = []string{}
	}

	return &ResetSafety{
		CommitsToLose:         commitsToLose,
		HasOtherEngineCommits: hasOtherEngine,
		HasUserCommits:        hasUser,
		CommitsSummary:        summary,
		SafeToProceed:         safe,
		Warning:               warning,
	}, nil
}
