// Package cbtcdb holds all the migrations for the cbtc results database
package cbtcdb

import (
	"github.com/uptrace/bun/migrate"
)

// Migrations is the collection of all migrations for the cbtc results database
var Migrations = migrate.NewMigrations()
