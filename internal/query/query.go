// package query assembles catalog search expressions from optional filter fields.
//
// Each present field contributes a `key:"value"` clause. Values are escaped so user input cannot
// terminate the quoted phrase and inject clauses of its own.
package query

import (
	"strings"

	"github.com/desertthunder/tcgx/internal/models"
)

// Catalog field keys. The set criterion matches on the set's display name, so it is sent as set.name.
const (
	KeyName   = "name"
	KeySet    = "set.name"
	KeyRarity = "rarity"
	KeyArtist = "artist"
)

var escaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Escape backslash-escapes quotes and backslashes in v.
func Escape(v string) string {
	return escaper.Replace(v)
}

// Clause renders a single `key:"value"` term.
func Clause(key, value string) string {
	return key + `:"` + Escape(value) + `"`
}

// Build returns the search expression for f with clauses in the order name, set, rarity, artist.
// The set field is emitted under the catalog key set.name ([KeySet]).
//
// Absent fields are omitted; an empty filter yields "".
func Build(f models.SearchFilter) string {
	return join(
		term{KeyName, f.Name},
		term{KeySet, f.Set},
		term{KeyRarity, f.Rarity},
		term{KeyArtist, f.Artist},
	)
}

// Investment returns the lookup expression for a single printing in the order set, name, rarity.
//
// Callers validate that all three values are present; blank values are still omitted here.
func Investment(set, name, rarity string) string {
	return join(
		term{KeySet, models.FieldFrom(set)},
		term{KeyName, models.FieldFrom(name)},
		term{KeyRarity, models.FieldFrom(rarity)},
	)
}

type term struct {
	key   string
	value models.Field
}

func join(terms ...term) string {
	clauses := make([]string, 0, len(terms))
	for _, t := range terms {
		if v, ok := t.value.Get(); ok {
			clauses = append(clauses, Clause(t.key, v))
		}
	}
	return strings.Join(clauses, " ")
}
