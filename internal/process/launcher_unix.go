//go:build !windows

package process

import "syscall"

// detachedAttr puts the child in its own process group so terminal
// signals sent to streamdeckx do not reach it.
func detachedAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
