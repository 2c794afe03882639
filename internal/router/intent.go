package router

import "strings"

// Keyword heuristics for landlord intent. Isolated here so a
// classifier-backed implementation can replace them behind the same
// functions.

var draftRequestVocabulary = []string{
	"draft",
	"write a reply",
	"write back",
	"respond to",
	"what should i say",
	"what should i tell",
	"suggest a reply",
	"prepare a reply",
}

var approvalVocabulary = []string{
	"send it",
	"send that",
	"approve",
	"approved",
	"looks good",
	"go ahead",
	"ship it",
	"yes send",
}

// isDraftRequest reports whether a landlord message asks the assistant to
// produce a tenant-facing draft.
func isDraftRequest(text string) bool {
	return matchesAny(text, draftRequestVocabulary)
}

// isApproval reports whether a landlord message approves sending the
// current candidate draft.
func isApproval(text string) bool {
	return matchesAny(text, approvalVocabulary)
}

func matchesAny(text string, vocabulary []string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range vocabulary {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
