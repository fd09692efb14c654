package extraction

import "intake/pkg/models"

func word(id, text string) models.Block {
	return models.Block{ID: id, BlockType: models.BlockTypeWord, Text: text}
}

func line(id, text string, children ...string) models.Block {
	return models.Block{
		ID:            id,
		BlockType:     models.BlockTypeLine,
		Text:          text,
		Relationships: []models.Relationship{{Type: models.RelationshipChild, IDs: children}},
	}
}

func checkbox(id string, status models.SelectionStatus) models.Block {
	return models.Block{ID: id, BlockType: models.BlockTypeSelectionElement, SelectionStatus: status}
}

func keyBlock(id, valueID string, children ...string) models.Block {
	b := models.Block{
		ID:          id,
		BlockType:   models.BlockTypeKeyValueSet,
		EntityTypes: []models.EntityType{models.EntityTypeKey},
		Relationships: []models.Relationship{
			{Type: models.RelationshipChild, IDs: children},
		},
	}
	if valueID != "" {
		b.Relationships = append(b.Relationships, models.Relationship{Type: models.RelationshipValue, IDs: []string{valueID}})
	}
	return b
}

func valueBlock(id string, children ...string) models.Block {
	return models.Block{
		ID:            id,
		BlockType:     models.BlockTypeKeyValueSet,
		EntityTypes:   []models.EntityType{models.EntityTypeValue},
		Relationships: []models.Relationship{{Type: models.RelationshipChild, IDs: children}},
	}
}

// claimFormBlocks is a small claim form: INSURED, CLAIM # and DEDUCTIBLE fields.
func claimFormBlocks() []models.Block {
	return []models.Block{
		line("l1", "INSURED: Jane Doe", "w1", "w2", "w3"),
		word("w1", "INSURED"),
		word("w2", "Jane"),
		word("w3", "Doe"),
		keyBlock("k1", "v1", "w1"),
		valueBlock("v1", "w2", "w3"),

		line("l2", "CLAIM # 12345", "w4", "w5", "w6"),
		word("w4", "CLAIM"),
		word("w5", "#"),
		word("w6", "12345"),
		keyBlock("k2", "v2", "w4", "w5"),
		valueBlock("v2", "w6"),

		line("l3", "DEDUCTIBLE 500", "w7", "w8"),
		word("w7", "DEDUCTIBLE"),
		word("w8", "500"),
		keyBlock("k3", "v3", "w7"),
		valueBlock("v3", "w8"),
	}
}
