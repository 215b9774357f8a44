// Package supervisor runs the launcher's update loop: print the startup
// banner, run the update action once, print the readiness banner, then run the
// action again after every fixed interval until the context is cancelled.
//
// The action, the clock, the sleep primitive and the output writer are all
// injected so the loop can be driven in tests without real delays.
package supervisor
