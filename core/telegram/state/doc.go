// Package state routes conversation steps to handlers and serializes updates
// per user. State persistence lives with the caller; this package only asks
// a Getter for the current step.
package state
