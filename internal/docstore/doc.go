// Package docstore is an embedded, file-backed document store emulating a
// document-database query dialect: named collections of schema-less
// documents, dotted-path field matching, operator-based filters, and
// generated identifiers, with no database server.
//
// Each collection is persisted as one JSON file and mutated through a
// read-modify-write cycle under a per-collection lock. Saves are atomic
// (temp write + rename), so the on-disk state after any successful operation
// is exactly the in-memory result of that operation. The store is meant for
// single-process embedding; it does not coordinate across processes.
package docstore
