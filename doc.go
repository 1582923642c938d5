// Package sirihub is the incremental real-time SIRI object store: it
// ingests vehicle monitoring, estimated timetable, situation exchange
// and production timetable data from many producers and re-serves it to
// polling consumers as full snapshots or per-consumer deltas. The HTTP
// surface lives here; the store itself is in the repository package.
package sirihub
