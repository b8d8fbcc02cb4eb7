// Package schedstore persists schedule definitions, trigger audit events and
// backfill tasks. The layout is a durable key-value contract: one record per
// schedule keyed by id, events appended per schedule and never overwritten,
// backfill tasks recorded per backfill id. Implementations enforce
// single-writer-per-key discipline; concurrent reads are always safe.
package schedstore
