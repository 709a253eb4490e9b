// Package discovery binds attached hardware to Deck instances.
//
// Hardware sessions are transient: every replug or restart yields a new
// session id. The Reconciler resolves each session to the deck's durable
// serial once, finds the Deck for that serial (registry, then repository,
// then a newly created and persisted deck) and binds the session's handle
// to it. Unknown device types are skipped without affecting the others.
//
// The Scanner is the only goroutine that drives reconciliation. It runs a
// pass at start-up, on every tick and whenever Rescan is called, then
// opens newly bound decks, installs their key callbacks and pushes faces.
package discovery
