// Package db provides the embedded database schema and seed catalog.
package db

import _ "embed"

// Schema contains the DDL for the products, orders and order_items tables.
// Every statement is idempotent so it can be applied on each start.
//
//go:embed migrations/001_schema.sql
var Schema string

// SeedProducts is the default product catalog in JSON form.
//
//go:embed seed/products.json
var SeedProducts []byte
