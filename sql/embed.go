// Package sql provides the embedded SQL schema for the hazel engine.
package sql

import _ "embed"

// SchemaSQL contains the hazel_entities/hazel_edges/hazel_closure/hazel_rules
// table definitions and indexes. Applied via CREATE TABLE IF NOT EXISTS for
// idempotence, so it is safe to run on every process start.
//
//go:embed schema.sql
var SchemaSQL string
