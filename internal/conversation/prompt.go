package conversation

import (
	"fmt"
	"strings"
	"time"
)

// PromptContext is what the system prompt says about the session and persona.
type PromptContext struct {
	User      string
	Platform  string
	Start     time.Time
	Name      string
	Tone      string
	Verbosity string
}

// SystemPrompt builds the pinned system turn.
func SystemPrompt(pc PromptContext) string {
	var b strings.Builder

	name := pc.Name
	if name == "" {
		name = "an advanced AI assistant"
	}
	fmt.Fprintf(&b, "You are %s running in Kali Linux. Today is %s. ", name, pc.Start.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "User: %s. System: %s. ", pc.User, pc.Platform)
	b.WriteString("You can help with security testing, Linux administration, coding, and general questions. ")
	b.WriteString("When appropriate, generate and execute commands by putting exactly one command in a ```bash fenced block. ")

	tone := pc.Tone
	if tone == "" {
		tone = "professional"
	}
	fmt.Fprintf(&b, "Always maintain a helpful, %s tone. ", tone)
	switch strings.ToLower(pc.Verbosity) {
	case "concise", "brief", "terse":
		b.WriteString("Keep answers short. ")
	case "detailed", "verbose":
		b.WriteString("Give thorough explanations. ")
	}
	b.WriteString("For security tools, provide context and explanations.")
	return b.String()
}
