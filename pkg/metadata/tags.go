// SPDX-License-Identifier: Apache-2.0

package metadata

import (
	"fmt"
	"strconv"
	"strings"
)

// tag directives, colon-separated key:value pairs (or bare flags) joined
// with semicolons, e.g.:
//
//	`orm:"column:username;type:varchar(255);unique;not_null"`
//	`orm:"relation:many_to_one;target:Unit;column:unit_id;on_delete:cascade"`
//
// This is the struct-tag equivalent of the source's attribute/decorator
// annotations.
const tagKey = "orm"

type tagDirectives map[string]string

func parseTag(tag string) tagDirectives {
	out := make(tagDirectives)
	for _, part := range strings.Split(tag, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if i := strings.IndexByte(part, ':'); i >= 0 {
			out[part[:i]] = part[i+1:]
		} else {
			out[part] = ""
		}
	}
	return out
}

func (d tagDirectives) has(key string) bool {
	_, ok := d[key]
	return ok
}

func (d tagDirectives) String(key, fallback string) string {
	if v, ok := d[key]; ok {
		return v
	}
	return fallback
}

func (d tagDirectives) isRelation() bool {
	return d.has("relation")
}

func (d tagDirectives) relationKind() (RelationKind, error) {
	switch d["relation"] {
	case "one_to_one":
		return OneToOne, nil
	case "one_to_many":
		return OneToMany, nil
	case "many_to_one":
		return ManyToOne, nil
	case "many_to_many":
		return ManyToMany, nil
	default:
		return 0, fmt.Errorf("unknown relation kind %q", d["relation"])
	}
}

func (d tagDirectives) referentialRule(key string) ReferentialRule {
	switch strings.ToLower(d[key]) {
	case "cascade":
		return Cascade
	case "set_null":
		return SetNull
	case "no_action":
		return NoAction
	default:
		return Restrict
	}
}

// parseColumnType parses a `type:` directive value such as "varchar(255)" or
// "decimal(10,2)" into a ColumnType plus its length/precision/scale.
func parseColumnType(spec string) (ColumnType, int, int, int, []string, error) {
	name := spec
	args := ""
	if i := strings.IndexByte(spec, '('); i >= 0 && strings.HasSuffix(spec, ")") {
		name = spec[:i]
		args = spec[i+1 : len(spec)-1]
	}

	var ct ColumnType
	switch strings.ToLower(name) {
	case "int", "integer":
		ct = Int
	case "bigint":
		ct = BigInt
	case "smallint":
		ct = SmallInt
	case "tinyint":
		ct = TinyInt
	case "varchar":
		ct = Varchar
	case "char":
		ct = Char
	case "text":
		ct = Text
	case "blob":
		ct = Blob
	case "decimal", "numeric":
		ct = Decimal
	case "float":
		ct = Float
	case "double":
		ct = Double
	case "boolean", "bool":
		ct = Boolean
	case "date":
		ct = Date
	case "datetime":
		ct = DateTime
	case "timestamp":
		ct = Timestamp
	case "json":
		ct = JSON
	case "enum":
		ct = Enum
	case "set":
		ct = Set
	case "geometry":
		ct = Geometry
	default:
		return Unknown, 0, 0, 0, nil, fmt.Errorf("unknown column type %q", name)
	}

	var length, precision, scale int
	var enumValues []string
	switch ct {
	case Varchar, Char:
		if args != "" {
			n, err := strconv.Atoi(args)
			if err != nil {
				return Unknown, 0, 0, 0, nil, fmt.Errorf("invalid length %q for %s", args, name)
			}
			length = n
		}
	case Decimal:
		if args != "" {
			parts := strings.Split(args, ",")
			p, err := strconv.Atoi(strings.TrimSpace(parts[0]))
			if err != nil {
				return Unknown, 0, 0, 0, nil, fmt.Errorf("invalid precision %q for decimal", parts[0])
			}
			precision = p
			if len(parts) > 1 {
				s, err := strconv.Atoi(strings.TrimSpace(parts[1]))
				if err != nil {
					return Unknown, 0, 0, 0, nil, fmt.Errorf("invalid scale %q for decimal", parts[1])
				}
				scale = s
			}
		}
	case Enum, Set:
		for _, v := range strings.Split(args, ",") {
			v = strings.TrimSpace(v)
			v = strings.Trim(v, "'\"")
			if v != "" {
				enumValues = append(enumValues, v)
			}
		}
	}

	return ct, length, precision, scale, enumValues, nil
}

func (d tagDirectives) keyKind() KeyKind {
	switch {
	case d.has("pk"):
		return KeyPrimary
	case d.has("unique"):
		return KeyUnique
	case d.has("index"):
		return KeyIndex
	default:
		return KeyNone
	}
}
