package render

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/brokersim/internal/model"
)

// acronyms keep their capitals after title casing.
var acronyms = map[string]string{"Dlq": "DLQ"}

// EventLabel turns an event type into a display label,
// e.g. "message_dlq" becomes "Message DLQ".
func EventLabel(t model.EventType) string {
	words := strings.Fields(cases.Title(language.English).String(strings.ReplaceAll(string(t), "_", " ")))
	for i, w := range words {
		if a, ok := acronyms[w]; ok {
			words[i] = a
		}
	}
	return strings.Join(words, " ")
}

// isFailure reports whether an event describes a message that did not
// reach a consumer, or an operation that was refused.
func isFailure(t model.EventType) bool {
	switch t {
	case model.EventMessageRejected, model.EventMessageDLQ, model.EventError:
		return true
	}
	return false
}
