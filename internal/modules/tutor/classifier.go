package tutor

import (
	"regexp"
	"strings"
)

// patternGroup binds one mode to its trigger patterns. Groups are evaluated
// in the order of classifyOrder; the first group with a match wins.
type patternGroup struct {
	mode     LearningMode
	patterns []*regexp.Regexp
}

// classifyOrder is the priority table for rule-based mode detection. The
// order is product behavior, not style: a message matching both the
// explanation and practice groups resolves to explanation because that group
// is checked first. Reordering this slice changes classification outcomes.
var classifyOrder = []patternGroup{
	{
		mode: ModeExplanation,
		patterns: compile(
			`^why\b`,
			`\bwhy (do|does|did|is|are|was|were)\b`,
			`\bhow (does|do|did) .{0,60}\bwork\b`,
			`\bexplain\b`,
			`\bwhat does .{0,40}\bmean\b`,
			`\bhelp me understand\b`,
			`\bi don'?t (get|understand)\b`,
		),
	},
	{
		mode: ModePractice,
		patterns: compile(
			`\bhomework\b`,
			`\bassignment\b`,
			`\bworksheet\b`,
			`\bsolve\b`,
			`\bwhat('?s| is) [-+]?\d`,
			`\bcalculate\b`,
			`\bcompute\b`,
			`\bcheck my (answer|work)\b`,
			`\bis (this|that|my answer) (right|correct)\b`,
			`\bpractice (problem|question)`,
			`\bhelp me (with|do) (this|my) (problem|question|exercise)\b`,
		),
	},
	{
		mode: ModeChallenge,
		patterns: compile(
			`\bharder\b`,
			`\bchallenge( me)?\b`,
			`\bquiz me\b`,
			`\btest me\b`,
			`\bgive me a (hard|tough|difficult)\b`,
			`\bsomething more (difficult|advanced)\b`,
		),
	},
	{
		mode: ModeReview,
		patterns: compile(
			`\breview\b`,
			`\brecap\b`,
			`\bgo over\b`,
			`\bsummarize what\b`,
			`\bstudy(ing)? for\b`,
			`\brefresher\b`,
			`\bwhat (did|have) (i|we) learn`,
		),
	},
	{
		mode: ModeDiscovery,
		patterns: compile(
			`\bwhat if\b`,
			`\bcurious\b`,
			`\btell me about\b`,
			`\bexplore\b`,
			`\bi wonder\b`,
			`\blearn (more )?about\b`,
			`\bteach me\b`,
		),
	},
}

var (
	bareAnswerRe = regexp.MustCompile(`^[-+]?\d+([.,/]\d+)?$`)
	yesNoRe      = regexp.MustCompile(`^(yes|no|yeah|yep|nope|true|false)[.!]?$`)
)

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(`(?i)`+e))
	}
	return out
}

// Classify maps a raw learner message plus thin conversation context to
// exactly one LearningMode. It is deterministic, side-effect free, and total:
// every input, including empty text, yields a mode and never an error.
//
// Evaluation order: answer-verification detection first (short bare answers
// directly after an assistant question), then the pattern groups in
// classifyOrder, then the context fallback.
func Classify(message string, history []Turn, level Level) LearningMode {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return DefaultMode
	}

	// Unambiguous answers ("6", "3/4", "yes") short-circuit the pattern
	// groups entirely when the tutor just asked something.
	if isBareAnswer(msg) && assistantAskedQuestion(history) {
		return ModeAnswerCheck
	}

	for _, group := range classifyOrder {
		for _, re := range group.patterns {
			if re.MatchString(msg) {
				return group.mode
			}
		}
	}

	if assistantAskedQuestion(history) {
		// A short unmatched reply after a tutor question is still an answer
		// attempt; anything longer is continued exploration.
		if len(strings.Fields(msg)) <= 3 && !strings.Contains(msg, "?") {
			return ModeAnswerCheck
		}
		return ModeDiscovery
	}
	return DefaultMode
}

// isBareAnswer recognizes inputs like "6", "3/4", "yes": the learner is
// answering, not asking.
func isBareAnswer(msg string) bool {
	return bareAnswerRe.MatchString(msg) || yesNoRe.MatchString(msg)
}

// assistantAskedQuestion reports whether the most recent assistant turn in
// the last few messages ended with a question.
func assistantAskedQuestion(history []Turn) bool {
	start := len(history) - 4
	if start < 0 {
		start = 0
	}
	for i := len(history) - 1; i >= start; i-- {
		if history[i].Role != "assistant" {
			continue
		}
		return strings.HasSuffix(strings.TrimSpace(history[i].Content), "?")
	}
	return false
}
