// Package store provides SQLite-backed storage for events, catalogues and
// their memberships.
//
// # Layout
//
//   - events, catalogues: fixed attributes, keyed by an AUTOINCREMENT seq
//   - event_fields, catalogue_fields: dynamic fields, one typed row per name
//   - event_tags, catalogue_tags: one row per tag
//   - memberships: catalogue/event links
//
// Every side table references its owner with ON DELETE CASCADE.
//
// # Critical Patterns
//
// Atomic batches
//   - Apply runs a whole []model.Mutation in one transaction
//   - Any failure rolls the batch back (defer tx.Rollback())
//
// Deterministic ordering
//   - Every listing is ORDER BY seq ASC, i.e. creation order
//   - seq values are never reused, even after DeleteAll
//
// Predicate push-down
//   - Filters are compiled by package querysql
//   - Inexact SQL (regular expressions, negated supersets) is re-checked
//     in memory with filter.Apply
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes (file databases)
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
