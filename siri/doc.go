// Package siri defines the object model for the SIRI data kinds served by
// the hub: vehicle monitoring (VM), estimated timetables (ET), situation
// exchange (SX) and production timetables (PT), together with the helpers
// the repositories need to reason about journey timing.
package siri
