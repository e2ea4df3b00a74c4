package tutor

import "testing"

func TestClassifyPatternGroups(t *testing.T) {
	cases := []struct {
		name    string
		message string
		want    LearningMode
	}{
		{"why question", "Why does it rain?", ModeExplanation},
		{"how does work", "how does a battery work", ModeExplanation},
		{"explain", "Can you explain fractions to me", ModeExplanation},
		{"dont get it", "I don't get it at all", ModeExplanation},

		{"homework", "I need help with my homework", ModePractice},
		{"arithmetic question", "What is 4+2?", ModePractice},
		{"solve", "solve 3x + 1 = 10", ModePractice},
		{"check my work", "can you check my work", ModePractice},
		{"is this right", "is this right: 14?", ModePractice},

		{"harder", "give me a harder one", ModeChallenge},
		{"quiz me", "quiz me on state capitals", ModeChallenge},

		{"review", "let's review yesterday's lesson", ModeReview},
		{"studying for", "I'm studying for a test on Friday", ModeReview},

		{"what if", "what if the moon disappeared", ModeDiscovery},
		{"tell me about", "tell me about volcanoes", ModeDiscovery},

		{"no match defaults", "the mitochondria and stuff I guess", DefaultMode},
		{"empty", "", DefaultMode},
		{"whitespace", "   \t  ", DefaultMode},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.message, nil, LevelMiddle)
			if got != tc.want {
				t.Fatalf("Classify(%q) = %q, want %q", tc.message, got, tc.want)
			}
		})
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	// A message matching both the explanation and practice groups must
	// resolve to explanation: those patterns are checked first, and the
	// order is product behavior.
	got := Classify("why is this my homework", nil, LevelMiddle)
	if got != ModeExplanation {
		t.Fatalf("Classify mixed explanation/practice message = %q, want %q", got, ModeExplanation)
	}
}

func TestClassifyAnswerCheck(t *testing.T) {
	asked := []Turn{
		{Role: "user", Content: "help me with addition"},
		{Role: "assistant", Content: "Sure! What is 4 + 2?"},
	}

	for _, msg := range []string{"6", "yes", "3/4", "-12", "7.5"} {
		if got := Classify(msg, asked, LevelElementary); got != ModeAnswerCheck {
			t.Fatalf("Classify(%q) after assistant question = %q, want %q", msg, got, ModeAnswerCheck)
		}
	}

	// Without a pending assistant question, a bare number is not an answer.
	if got := Classify("6", nil, LevelElementary); got != DefaultMode {
		t.Fatalf("Classify(%q) with no history = %q, want %q", "6", got, DefaultMode)
	}

	// A short unmatched reply after a question still counts as an attempt.
	if got := Classify("maybe twelve", asked, LevelElementary); got != ModeAnswerCheck {
		t.Fatalf("Classify short reply after question = %q, want %q", got, ModeAnswerCheck)
	}
}

func TestClassifyContextFallback(t *testing.T) {
	asked := []Turn{
		{Role: "assistant", Content: "Interesting! What do you think happens to the water after that?"},
	}
	got := Classify("hmm I think it goes somewhere into the ground and comes back later", asked, LevelMiddle)
	if got != ModeDiscovery {
		t.Fatalf("Classify unmatched reply after question = %q, want %q", got, ModeDiscovery)
	}

	// The fallback only scans the last few turns for an assistant question.
	stale := []Turn{
		{Role: "assistant", Content: "What is 2+2?"},
		{Role: "user", Content: "4"},
		{Role: "assistant", Content: "Correct, well done."},
		{Role: "user", Content: "thanks"},
	}
	if got := Classify("something unclassifiable entirely", stale, LevelMiddle); got != DefaultMode {
		t.Fatalf("Classify with answered history = %q, want %q", got, DefaultMode)
	}
}

func TestClassifyDeterministicAndTotal(t *testing.T) {
	inputs := []string{
		"Why does it rain?", "what is 9*9", "??", "ok", "x", "quiz me", "",
		"tell me about black holes please", "1/0", "yes no maybe",
	}
	history := []Turn{{Role: "assistant", Content: "Ready for the next one?"}}
	for _, msg := range inputs {
		first := Classify(msg, history, LevelHigh)
		if !first.Valid() {
			t.Fatalf("Classify(%q) returned invalid mode %q", msg, first)
		}
		for i := 0; i < 5; i++ {
			if got := Classify(msg, history, LevelHigh); got != first {
				t.Fatalf("Classify(%q) not deterministic: %q then %q", msg, first, got)
			}
		}
	}
}
