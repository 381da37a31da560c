//go:build windows

package core

import (
	"os"
	"os/exec"
)

func defaultShell() (string, []string) {
	if comspec := os.Getenv("COMSPEC"); comspec != "" {
		return comspec, []string{"/C"}
	}
	return "cmd.exe", []string{"/C"}
}

func configureProcess(cmd *exec.Cmd) {}
