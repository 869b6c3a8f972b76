// SPDX-License-Identifier: Apache-2.0

// Package migration implements the Migration Generator and Migration
// Manager: rendering a schema Difference into a versioned up/down program
// in the Schema Builder DSL, and executing those programs transactionally
// with history tracking.
package migration

import "github.com/ormkit/ormkit/pkg/builder"

// Migration is a versioned pair of schema-transforming programs. Generated
// migration files implement this interface; Up/Down receive a Builder
// bound to the target dialect and return the SQL statements to execute in
// order.
type Migration interface {
	Version() string
	Up(b *builder.Builder) []string
	Down(b *builder.Builder) []string
}
