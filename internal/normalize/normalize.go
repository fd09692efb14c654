// Package normalize maps raw form keys onto the canonical claim attributes.
package normalize

import (
	"path"
	"strings"

	"github.com/rs/zerolog"

	"intake/internal/logger"
	"intake/pkg/models"
)

// Triggers maps upper-cased raw keys to canonical attributes.
var Triggers = map[string]models.Attribute{
	"INSURED":          models.AttrPolicyHolder,
	"CLAIM #":          models.AttrClaimNumber,
	"POLICY #":         models.AttrPolicyID,
	"DATE OF ACCIDENT": models.AttrDate,
	"DEDUCTIBLE":       models.AttrDeductible,
}

// Collision records a canonical attribute that more than one raw key mapped to.
type Collision struct {
	Attribute models.Attribute
	// RawKeys lists the competing keys in scan order; the last one won.
	RawKeys []string
}

// Result is the outcome of normalizing one document.
type Result struct {
	Record     models.CanonicalRecord
	Collisions []Collision
}

// Persistable reports whether the record carries anything beyond its identity.
func (r Result) Persistable() bool {
	return r.Record.HasAttributes()
}

// Normalizer maps key/value mappings to canonical records.
type Normalizer struct {
	log zerolog.Logger
}

func NewNormalizer() *Normalizer {
	return &Normalizer{log: logger.WithComponent("normalizer")}
}

// Normalize walks the raw keys in scan order. A key matches a trigger when it
// equals the trigger after trimming and upper-casing. The first value of the
// key is trimmed and assigned; empty values are ignored. When several raw keys
// reach the same attribute, the last one in scan order wins.
func (n *Normalizer) Normalize(fileName string, kvs *models.KeyValueMapping) Result {
	res := Result{Record: models.CanonicalRecord{FileName: fileName}}
	winners := make(map[models.Attribute][]string)

	for _, rawKey := range kvs.Keys() {
		attr, ok := Triggers[strings.ToUpper(strings.TrimSpace(rawKey))]
		if !ok {
			continue
		}
		values := kvs.Values(rawKey)
		if len(values) == 0 {
			continue
		}
		value := strings.TrimSpace(values[0])
		if value == "" {
			continue
		}

		res.Record.Set(attr, value)
		winners[attr] = append(winners[attr], rawKey)
	}

	for _, attr := range append([]models.Attribute{models.AttrClaimNumber}, models.RecordAttributes...) {
		keys := winners[attr]
		if len(keys) < 2 {
			continue
		}
		res.Collisions = append(res.Collisions, Collision{Attribute: attr, RawKeys: keys})
		n.log.Warn().
			Str("file_name", fileName).
			Str("attribute", string(attr)).
			Strs("raw_keys", keys).
			Str("winner", keys[len(keys)-1]).
			Msg("Several keys map to the same attribute")
	}

	return res
}

// Normalize is a convenience wrapper around a default Normalizer.
func Normalize(fileName string, kvs *models.KeyValueMapping) Result {
	return NewNormalizer().Normalize(fileName, kvs)
}

// FileNameFor derives the record's file name from an object key: the base
// name up to the first ".pdf".
func FileNameFor(key string) string {
	base := path.Base(key)
	name, _, _ := strings.Cut(base, ".pdf")
	return name
}
