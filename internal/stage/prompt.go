package stage

import "strings"

// Prompter is the interaction capability stages use for confirmations.
// Implementations live in the UI layer; tests use Auto.
type Prompter interface {
	// Confirm asks a yes/no question and reports whether the answer was affirmative
	Confirm(question string) bool
	// Pause blocks until the user is ready to continue
	Pause()
}

// Auto answers every question with Yes and never blocks
type Auto struct {
	Yes bool
}

func (a Auto) Confirm(string) bool { return a.Yes }
func (Auto) Pause()                {}

var affirmative = map[string]struct{}{
	"s":   {},
	"si":  {},
	"sí":  {},
	"y":   {},
	"yes": {},
}

// IsAffirmative reports whether the leading token of answer is a yes.
// Matching is case-insensitive.
func IsAffirmative(answer string) bool {
	fields := strings.Fields(strings.ToLower(answer))
	if len(fields) == 0 {
		return false
	}
	_, ok := affirmative[fields[0]]
	return ok
}
