// Package storage provides the keyed TTL-map contract the repositories
// store their state in, with an in-process backend for single-node
// deployments and a Badger-backed durable backend. The contract is kept
// narrow so a clustered map implementation can be substituted without
// touching repository code.
package storage
