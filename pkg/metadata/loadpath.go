// SPDX-License-Identifier: Apache-2.0

package metadata

import (
	"go/ast"
	"go/parser"
	"go/token"
	"io/fs"
	"reflect"
	"strings"
)

// LoadFromPath walks dir (an fs.FS rooted at the entities' source
// directory) and registers every struct type, exported or not, carrying at
// least one `orm` struct tag. This is the static, file-scan equivalent of Register: it
// reads the same tag syntax Register reads via reflection, but without
// requiring the entities to be compiled into the calling binary first — the
// decorator-based parser some ORMs treat as an external collaborator
// is, for ormkit, this file-scan plus Go's own struct-tag syntax, not a new
// annotation language.
func (r *Registry) LoadFromPath(dir fs.FS) error {
	fset := token.NewFileSet()

	return fs.WalkDir(dir, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}

		src, err := fs.ReadFile(dir, path)
		if err != nil {
			return err
		}

		file, err := parser.ParseFile(fset, path, src, parser.ParseComments)
		if err != nil {
			return err
		}

		for _, decl := range file.Decls {
			gen, ok := decl.(*ast.GenDecl)
			if !ok || gen.Tok != token.TYPE {
				continue
			}
			for _, spec := range gen.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				st, ok := ts.Type.(*ast.StructType)
				if !ok {
					continue
				}

				m, ok, err := metadataFromStructAST(ts.Name.Name, st)
				if err != nil {
					return err
				}
				if !ok {
					continue
				}
				if err := r.put(m); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// metadataFromStructAST builds an EntityMetadata from a parsed struct type.
// ok is false when the struct carries no `orm` tags at all (not an entity).
func metadataFromStructAST(className string, st *ast.StructType) (*EntityMetadata, bool, error) {
	m := &EntityMetadata{ClassName: className, Table: toSnakeCasePlural(className)}

	found := false
	for _, field := range st.Fields.List {
		if field.Tag == nil || len(field.Names) == 0 {
			continue
		}

		tagValue, ok := reflect.StructTag(strings.Trim(field.Tag.Value, "`")).Lookup(tagKey)
		if !ok {
			continue
		}
		found = true

		fieldName := field.Names[0].Name
		dirs := parseTag(tagValue)

		if dirs.isRelation() {
			rel, err := relationFromTag(className, fieldName, dirs)
			if err != nil {
				return nil, false, err
			}
			m.Relations = append(m.Relations, *rel)
			continue
		}

		col, err := columnFromTag(className, fieldName, dirs)
		if err != nil {
			return nil, false, err
		}
		m.Columns = append(m.Columns, *col)
	}

	if !found {
		return nil, false, nil
	}
	return m, true, nil
}
