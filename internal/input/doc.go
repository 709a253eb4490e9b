// Package input provides the keystroke injectors used by key actions.
//
// Synthesising OS keyboard events is platform specific and lives outside
// streamdeckx. The injectors here either log each event (a dry run) or
// forward it over MQTT to an input agent on the target machine. Package
// inputtest records events in memory for tests.
package input
