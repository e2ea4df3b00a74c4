package tutor

// cannedResponses are served when every provider fails or none is
// configured. Keyed by mode so the degraded reply still matches what the
// learner was doing; the raw upstream error never reaches them.
var cannedResponses = map[LearningMode]string{
	ModeDiscovery: "I'm having trouble reaching my thinking tools right now. While I recover, " +
		"what part of this topic are you most curious about? Jot it down and ask me again in a moment.",
	ModePractice: "I can't work through the problem with you right now, but don't lose your place. " +
		"Try writing out what the question is asking in your own words, then ask me again shortly.",
	ModeExplanation: "I'm not able to put together a good explanation right now. " +
		"Give me a moment and ask again; in the meantime, try noting what you think the answer might be.",
	ModeChallenge: "I can't set up a challenge right now. Take a short break and ask me again " +
		"in a minute; I'll have something tough waiting for you.",
	ModeReview: "I can't run a review right now. Try listing the two or three ideas you remember " +
		"best from this topic, and we'll go over them together when you ask again.",
	ModeAnswerCheck: "I can't check your answer right now. Hold on to it and ask me again in a " +
		"moment; meanwhile, see if you can verify it a second way.",
}

// CannedResponse returns the degraded-mode reply for a mode. Always
// non-empty, even for an unknown mode.
func CannedResponse(mode LearningMode) string {
	if text, ok := cannedResponses[mode]; ok {
		return text
	}
	return cannedResponses[DefaultMode]
}
