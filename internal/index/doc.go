// Package index exposes a uniform search contract over the pre-embedded
// passage corpus. Two backends implement it: a local backend that loads the
// full record set from a SQLite index file at construction, and a remote
// backend that queries a Postgres/pgvector database. The concrete variant is
// chosen once at construction and never branched on at call sites.
//
// Backends return oversized, scored candidate pools with their vectors;
// Index applies the lexical boost, the minimum-score threshold and MMR
// diversity selection on top.
package index
