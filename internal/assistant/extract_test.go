package assistant

import "testing"

func TestExtractCommand(t *testing.T) {
	tests := []struct {
		name   string
		reply  string
		want   string
		wantOK bool
	}{
		{"bash block", "Try this:\n```bash\necho hi\n```", "echo hi", true},
		{"sh block", "```sh\nls -la\n```", "ls -la", true},
		{"shell block", "```shell\nuname -a\n```", "uname -a", true},
		{"zsh block", "```zsh\npwd\n```", "pwd", true},
		{"tag case", "```Bash\nid\n```", "id", true},
		{"trims body", "```bash\n\n  whoami  \n\n```", "whoami", true},
		{"multi-line body", "```bash\ncd /tmp\nls\n```", "cd /tmp\nls", true},
		{"first shell block wins", "```bash\nfirst\n```\n```bash\nsecond\n```", "first", true},
		{"skips other languages", "```python\nprint(1)\n```\n```bash\necho ok\n```", "echo ok", true},
		{"untagged block ignored", "```\nls\n```", "", false},
		{"prompt line", "$ nmap -sV 10.0.0.1", "nmap -sV 10.0.0.1", true},
		{"prompt line later", "Run:\n  $ ip a\nthen check", "ip a", true},
		{"block beats prompt line", "$ first\n```bash\nsecond\n```", "second", true},
		{"dollar without space", "$HOME is set", "", false},
		{"empty block", "```bash\n\n```", "", false},
		{"empty block falls back to prompt line", "```bash\n```\n$ ls", "ls", true},
		{"empty block then shell block", "```sh\n  \n```\n```bash\nid\n```", "id", true},
		{"plain prose", "Nmap is a network scanner.", "", false},
		{"empty", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractCommand(tt.reply)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ExtractCommand(%q) = %q, %v; want %q, %v", tt.reply, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestDetectIntent(t *testing.T) {
	tests := []struct {
		input string
		want  Intent
	}{
		{"toggle safety", IntentToggleSafety},
		{"please TOGGLE SAFETY now", IntentToggleSafety},
		{"show system information", IntentSystemInfo},
		{"conversation history", IntentHistory},
		{"exit", IntentExit},
		{"  QUIT  ", IntentExit},
		{"/exit", IntentExit},
		{"/quit", IntentExit},
		{"how do I exit vim", IntentNone},
		{"quit smoking tips", IntentNone},
		{"scan my network", IntentNone},
		{"", IntentNone},
	}
	for _, tt := range tests {
		if got := DetectIntent(tt.input); got != tt.want {
			t.Errorf("DetectIntent(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
