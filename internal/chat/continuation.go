package chat

import (
	"regexp"
	"strings"

	"modelmux/internal/adapters"
)

// continuationVendor is the vendor whose API supports resuming generation
// from a supplied assistant prefix.
const continuationVendor = adapters.VendorDeepSeek

// continuationPhrases are exact matches after trimming and case folding.
var continuationPhrases = []string{
	"continue",
	"go on",
	"keep going",
	"more",
	"继续",
	"继续说",
	"接着说",
	"接着写",
	"继续生成",
}

// continuationPattern allows an optional politeness prefix and one trailing
// punctuation mark around the same phrases.
var continuationPattern = regexp.MustCompile(
	`^(?:please |请)?(?:continue|go on|keep going|继续|继续说|接着说|接着写|继续生成)[.!?。！？~]?$`)

// continuationIntent reports whether the message asks the model to keep
// generating. Static classification only; erring towards true on common
// phrasings beats precision here.
func continuationIntent(message string) bool {
	m := strings.ToLower(strings.TrimSpace(message))
	if m == "" {
		return false
	}
	for _, phrase := range continuationPhrases {
		if m == phrase {
			return true
		}
	}
	return continuationPattern.MatchString(m)
}

// eligibleForContinuation holds when the turn targets an existing
// conversation, the resolved vendor supports prefix continuation, and the
// message reads as a continue request.
func eligibleForContinuation(tc *turnContext, message string) bool {
	return !tc.IsNew && tc.ProviderCode == continuationVendor && continuationIntent(message)
}
