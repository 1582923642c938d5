// Package repository implements the incremental real-time object store:
// content-addressed deduplication, per-kind TTL expiry, per-consumer
// change tracking with pagination and dataset multi-tenancy, shared by
// the four SIRI data kinds through a single generic repository
// parameterized by a per-kind strategy.
package repository
