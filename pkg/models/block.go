package models

// BlockType discriminates the kind of region an OCR engine detected.
type BlockType string

const (
	BlockTypePage             BlockType = "PAGE"
	BlockTypeLine             BlockType = "LINE"
	BlockTypeWord             BlockType = "WORD"
	BlockTypeSelectionElement BlockType = "SELECTION_ELEMENT"
	BlockTypeKeyValueSet      BlockType = "KEY_VALUE_SET"
)

// RelationshipType describes how a block relates to the blocks it references.
type RelationshipType string

const (
	// RelationshipChild links a container to its constituent blocks (a line to its words).
	RelationshipChild RelationshipType = "CHILD"

	// RelationshipValue links a KEY role block to its paired VALUE role block.
	RelationshipValue RelationshipType = "VALUE"
)

// EntityType is the role a KEY_VALUE_SET block plays in a form field.
type EntityType string

const (
	EntityTypeKey   EntityType = "KEY"
	EntityTypeValue EntityType = "VALUE"
)

// SelectionStatus is the state of a checkbox or radio element.
type SelectionStatus string

const (
	SelectionSelected    SelectionStatus = "SELECTED"
	SelectionNotSelected SelectionStatus = "NOT_SELECTED"
)

// Block is a single detected OCR region. Which optional fields are set depends on
// BlockType: Text for WORD and LINE, SelectionStatus for SELECTION_ELEMENT and
// EntityTypes for KEY_VALUE_SET.
//
// JSON field names follow the OCR analysis wire format so that raw analysis
// pages can be decoded directly.
type Block struct {
	ID              string          `json:"Id"`
	BlockType       BlockType       `json:"BlockType"`
	Text            string          `json:"Text,omitempty"`
	SelectionStatus SelectionStatus `json:"SelectionStatus,omitempty"`
	EntityTypes     []EntityType    `json:"EntityTypes,omitempty"`
	Relationships   []Relationship  `json:"Relationships,omitempty"`
}

// Relationship references other blocks of the same document by id, in order.
type Relationship struct {
	Type RelationshipType `json:"Type"`
	IDs  []string         `json:"Ids"`
}

// HasEntityType reports whether the block is tagged with the given role.
func (b *Block) HasEntityType(t EntityType) bool {
	for _, et := range b.EntityTypes {
		if et == t {
			return true
		}
	}
	return false
}
