//go:build unix

package session

import (
	"os"

	"golang.org/x/sys/unix"
)

func kernelRelease() string {
	var u unix.Utsname
	if err := unix.Uname(&u); err != nil {
		return ""
	}
	return unix.ByteSliceToString(u.Release[:])
}

func isRoot() bool {
	return os.Geteuid() == 0
}
