package extraction

import (
	"github.com/rs/zerolog"

	"intake/internal/logger"
	"intake/pkg/models"
)

// Resolver pairs KEY blocks with their VALUE blocks.
type Resolver struct {
	log zerolog.Logger
}

// NewResolver creates a resolver that logs skipped pairs at debug level.
func NewResolver() *Resolver {
	return &Resolver{log: logger.WithComponent("kv-resolver")}
}

// Resolve walks the key blocks of idx in detection order and returns the
// key/value mapping of the document. A key without a VALUE relationship, a
// VALUE id that is not a value block, and pairs where either side has no text
// are skipped. Repeated keys collect every value in scan order.
func (r *Resolver) Resolve(idx *Index) *models.KeyValueMapping {
	kvs := models.NewKeyValueMapping()

	for _, keyBlock := range idx.keys {
		valueBlock, ok := idx.findValueBlock(keyBlock)
		if !ok {
			r.log.Debug().
				Str("key_block", keyBlock.ID).
				Msg("No value block for key")
			continue
		}

		key := idx.Text(keyBlock)
		value := idx.Text(valueBlock)
		if key == "" || value == "" {
			r.log.Debug().
				Str("key_block", keyBlock.ID).
				Str("value_block", valueBlock.ID).
				Msg("Skipping pair with empty text")
			continue
		}
		kvs.Add(key, value)
	}

	return kvs
}

// Resolve is a convenience wrapper that indexes blocks and resolves them.
func Resolve(blocks []models.Block) *models.KeyValueMapping {
	return NewResolver().Resolve(NewIndex(blocks))
}

// findValueBlock takes the first id of the first VALUE relationship that has
// any ids.
func (idx *Index) findValueBlock(keyBlock *models.Block) (*models.Block, bool) {
	for _, rel := range keyBlock.Relationships {
		if rel.Type != models.RelationshipValue || len(rel.IDs) == 0 {
			continue
		}
		return idx.ValueBlock(rel.IDs[0])
	}
	return nil, false
}
