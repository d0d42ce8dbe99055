// Package focus is the session lifecycle and derived statistics engine.
//
// A Timer turns start, pause, reset and complete requests into a single
// validated FocusSession, which the Recorder persists through a Gateway.
// Every persisted session and every task toggle is published on the Bus;
// the Stats aggregator and the Achievements cascade subscribe to it and
// refresh their caches. Core wires the pieces together and owns their
// lifecycle.
package focus
