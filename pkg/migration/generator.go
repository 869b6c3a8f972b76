// SPDX-License-Identifier: Apache-2.0

package migration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/ormkit/ormkit/pkg/comparer"
	"github.com/ormkit/ormkit/pkg/db"
	"github.com/ormkit/ormkit/pkg/metadata"
	"github.com/ormkit/ormkit/pkg/schemainfo"
)

var datetimePattern = regexp.MustCompile(`^\d{12}$`)

// Generator computes the structural difference between a live database and
// an entity metadata registry and renders it into a versioned migration file.
type Generator struct {
	db       db.DB
	registry *metadata.Registry
	dbName   string
	dir      string
	pkgName  string
}

// NewGenerator builds a Generator that writes into dir, which must already
// exist.
func NewGenerator(database db.DB, registry *metadata.Registry, dbName, dir, pkgName string) (*Generator, error) {
	if _, err := os.Stat(dir); err != nil {
		return nil, DirectoryMissingError{Dir: dir}
	}
	return &Generator{db: database, registry: registry, dbName: dbName, dir: dir, pkgName: pkgName}, nil
}

// Generate diffs the live schema against the target derived from the
// registry and, if there is any difference, writes a new migration file
// stamped with datetime (or returns ok=false if nothing changed).
func (g *Generator) Generate(ctx context.Context, datetime string) (path string, ok bool, err error) {
	if !datetimePattern.MatchString(datetime) {
		return "", false, InvalidDatetimeError{Datetime: datetime}
	}
	if _, err := time.Parse("200601021504", datetime); err != nil {
		return "", false, InvalidDatetimeError{Datetime: datetime}
	}

	reader := schemainfo.New(g.db)
	live, err := reader.Snapshot(ctx, g.dbName)
	if err != nil {
		return "", false, err
	}

	target, classNames := comparer.Target(g.registry)
	diff := comparer.Compare(live, target, classNames)
	if diff.Empty() {
		return "", false, nil
	}

	if err := validate(diff, target); err != nil {
		return "", false, err
	}

	className := fmt.Sprintf("Migration%s", datetime)
	source := renderSource(g.pkgName, className, datetime, diff, target)

	path = filepath.Join(g.dir, className+".go")
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		return "", false, err
	}

	return path, true, nil
}
