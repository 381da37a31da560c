package assistant

import (
	"regexp"
	"strings"
)

// promptMarker prefixes a bare command line in a model reply.
const promptMarker = "$ "

var fencedShellBlock = regexp.MustCompile("(?is)```(?:bash|sh|shell|zsh)[ \t]*\r?\n(.*?)```")

// ExtractCommand finds the command embedded in a model reply: the first fenced
// block tagged as shell script, else the first line starting with "$ ".
// A blank fenced block is skipped.
func ExtractCommand(reply string) (string, bool) {
	for _, m := range fencedShellBlock.FindAllStringSubmatch(reply, -1) {
		if cmd := strings.TrimSpace(m[1]); cmd != "" {
			return cmd, true
		}
	}
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimLeft(line, " \t")
		if strings.HasPrefix(line, promptMarker) {
			cmd := strings.TrimSpace(strings.TrimPrefix(line, promptMarker))
			return cmd, cmd != ""
		}
	}
	return "", false
}
