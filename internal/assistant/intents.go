package assistant

import "strings"

// Intent is a control request handled without consulting the model.
type Intent int

const (
	IntentNone Intent = iota
	IntentToggleSafety
	IntentSystemInfo
	IntentHistory
	IntentExit
)

func (i Intent) String() string {
	switch i {
	case IntentToggleSafety:
		return "toggle_safety"
	case IntentSystemInfo:
		return "system_info"
	case IntentHistory:
		return "history"
	case IntentExit:
		return "exit"
	default:
		return "none"
	}
}

type intentRule struct {
	intent  Intent
	phrases []string
	// whole requires the trimmed input to equal a phrase; otherwise a
	// substring match is enough.
	whole bool
}

// Checked in order; the first matching rule wins.
var intentRules = []intentRule{
	{intent: IntentToggleSafety, phrases: []string{"toggle safety"}},
	{intent: IntentSystemInfo, phrases: []string{"system information"}},
	{intent: IntentHistory, phrases: []string{"conversation history"}},
	// "how do I exit vim" must reach the model, so exit is whole-input only.
	{intent: IntentExit, phrases: []string{"exit", "quit", "/exit", "/quit"}, whole: true},
}

// DetectIntent matches input against the control phrases, ignoring case.
func DetectIntent(input string) Intent {
	text := strings.ToLower(strings.TrimSpace(input))
	for _, rule := range intentRules {
		for _, phrase := range rule.phrases {
			if rule.whole && text == phrase {
				return rule.intent
			}
			if !rule.whole && strings.Contains(text, phrase) {
				return rule.intent
			}
		}
	}
	return IntentNone
}
