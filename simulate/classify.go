package simulate

import (
	"strings"

	"github.com/dotbot/transfer-lib/common/types"
)

// trapPatterns mark runtime panics: the transaction shape is not valid for the
// chain at all, regardless of account state.
var trapPatterns = []string{
	"wasm trap",
	"unreachable",
	"panicked",
	"wasm `unreachable` instruction executed",
}

// rejectionMarkers identify declared simulation rejections whose message is
// worth surfacing once internal prefixes are stripped.
var rejectionMarkers = []string{
	"rejected",
	"invalid transaction",
	"dispatch error",
}

// internalPrefixes are tooling prefixes stripped from surfaced messages.
var internalPrefixes = []string{
	"execution failed: ",
	"dry run failed: ",
	"simulation rejected: ",
	"rpc error: ",
}

// classify pattern-matches a fork-path failure into a failure class and a
// user-facing message. Every class is fatal; the ignore policy for the fee
// estimation phase is applied before classification, never here.
func classify(message string) (types.FailureClass, string) {
	lower := strings.ToLower(message)

	for _, pattern := range trapPatterns {
		if strings.Contains(lower, pattern) {
			return types.FailureInvalidShape, "transaction shape is not valid for this chain"
		}
	}

	for _, marker := range rejectionMarkers {
		if strings.Contains(lower, marker) {
			return types.FailureRejected, cleanMessage(message)
		}
	}

	return types.FailureUnclassified, "transaction failed simulation against current chain state"
}

// cleanMessage strips internal tool prefixes from a rejection message.
func cleanMessage(message string) string {
	cleaned := message
	for changed := true; changed; {
		changed = false
		for _, prefix := range internalPrefixes {
			if len(cleaned) >= len(prefix) && strings.EqualFold(cleaned[:len(prefix)], prefix) {
				cleaned = cleaned[len(prefix):]
				changed = true
			}
		}
	}
	return strings.TrimSpace(cleaned)
}
