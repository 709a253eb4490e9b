//go:build windows

package process

import "syscall"

const createNewProcessGroup = 0x00000200

// detachedAttr starts the child in a new process group so console control
// events sent to streamdeckx do not reach it.
func detachedAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: createNewProcessGroup}
}
