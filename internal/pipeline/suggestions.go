package pipeline

var suggestedQuestions = []string{
	"What are the main escalation patterns?",
	"Which departments have the highest response times?",
	"What causes low customer sentiment?",
	"Show me root causes for technical issues",
	"Analyze escalation trends by industry",
}

// SuggestedQuestions returns the canned starter questions.
func SuggestedQuestions() []string {
	out := make([]string, len(suggestedQuestions))
	copy(out, suggestedQuestions)
	return out
}

// Suggestion returns the n-th (1-based) suggested question.
func Suggestion(n int) (string, bool) {
	if n < 1 || n > len(suggestedQuestions) {
		return "", false
	}
	return suggestedQuestions[n-1], true
}
