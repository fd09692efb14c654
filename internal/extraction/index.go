// Package extraction rebuilds text and key/value pairs from an OCR block graph.
//
// An Index is built once per document from the blocks returned by the OCR
// provider, in detection order. It is never mutated afterwards, so resolution
// for different documents can run concurrently without locking.
package extraction

import "intake/pkg/models"

// Index gives id lookup over one document's blocks and partitions the
// KEY_VALUE_SET blocks into key and value roles.
type Index struct {
	blocks map[string]*models.Block
	order  []string

	keys   []*models.Block
	values map[string]*models.Block
}

// NewIndex builds an index over blocks. The slice order is taken as detection
// order. A later block with an id already seen replaces the earlier one but
// keeps its position.
func NewIndex(blocks []models.Block) *Index {
	idx := &Index{
		blocks: make(map[string]*models.Block, len(blocks)),
		values: make(map[string]*models.Block),
	}

	for i := range blocks {
		b := blocks[i]
		if _, seen := idx.blocks[b.ID]; !seen {
			idx.order = append(idx.order, b.ID)
		}
		idx.blocks[b.ID] = &b
	}

	for _, id := range idx.order {
		b := idx.blocks[id]
		if b.BlockType != models.BlockTypeKeyValueSet {
			continue
		}
		switch {
		case b.HasEntityType(models.EntityTypeKey):
			idx.keys = append(idx.keys, b)
		case b.HasEntityType(models.EntityTypeValue):
			idx.values[id] = b
		}
	}

	return idx
}

// Block returns the block with the given id.
func (idx *Index) Block(id string) (*models.Block, bool) {
	b, ok := idx.blocks[id]
	return b, ok
}

// Len returns the number of distinct blocks.
func (idx *Index) Len() int {
	return len(idx.order)
}

// KeyBlocks returns the KEY role blocks in detection order.
func (idx *Index) KeyBlocks() []*models.Block {
	return append([]*models.Block(nil), idx.keys...)
}

// ValueBlock returns the VALUE role block with the given id. Ids of blocks that
// exist but play another role are reported as missing.
func (idx *Index) ValueBlock(id string) (*models.Block, bool) {
	b, ok := idx.values[id]
	return b, ok
}

// Blocks returns every block in detection order.
func (idx *Index) Blocks() []*models.Block {
	out := make([]*models.Block, 0, len(idx.order))
	for _, id := range idx.order {
		out = append(out, idx.blocks[id])
	}
	return out
}
