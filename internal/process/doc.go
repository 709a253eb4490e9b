// Package process starts the external programs bound to application
// actions. Programs are started detached: streamdeckx never waits for
// them, never reads their output and does not stop them on exit.
package process
