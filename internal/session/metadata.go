// Package session holds the per-REPL state: who is running kassist, where,
// since when, and the conversation being carried.
package session

import (
	"fmt"
	"os"
	"os/user"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
)

// fallbackUser is reported when no username can be determined.
const fallbackUser = "kali-user"

// Metadata is captured once at startup and never changes.
type Metadata struct {
	ID        string    `json:"id" yaml:"id"`
	User      string    `json:"user" yaml:"user"`
	Platform  string    `json:"platform" yaml:"platform"`
	OS        string    `json:"os" yaml:"os"`
	Arch      string    `json:"arch" yaml:"arch"`
	Kernel    string    `json:"kernel,omitempty" yaml:"kernel,omitempty"`
	StartTime time.Time `json:"start_time" yaml:"start_time"`
	Root      bool      `json:"root" yaml:"root"`
	WSL       bool      `json:"wsl" yaml:"wsl"`
}

// Detect captures metadata for the current process.
func Detect() Metadata {
	kernel := kernelRelease()
	return Metadata{
		ID:        uuid.NewString(),
		User:      detectUser(),
		Platform:  describePlatform(runtime.GOOS, kernel, runtime.GOARCH),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		Kernel:    kernel,
		StartTime: time.Now(),
		Root:      isRoot(),
		WSL:       isWSL(kernel),
	}
}

// detectUser tries the account database first, then $USER.
func detectUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		// Windows reports DOMAIN\name.
		if i := strings.LastIndex(u.Username, `\`); i >= 0 {
			return u.Username[i+1:]
		}
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return fallbackUser
}

func describePlatform(goos, kernel, arch string) string {
	if kernel == "" {
		return fmt.Sprintf("%s-%s", goos, arch)
	}
	return fmt.Sprintf("%s-%s-%s", goos, kernel, arch)
}

// isWSL reports whether the kernel release is a WSL kernel.
func isWSL(kernel string) bool {
	return strings.Contains(strings.ToLower(kernel), "microsoft")
}
