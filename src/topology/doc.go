// Package topology defines the fixed undirected graph of nodes over which a
// wave runs, and the validation rules it must satisfy before any wave logic
// is allowed to touch it.
package topology
