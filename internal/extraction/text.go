package extraction

import (
	"strings"

	"intake/pkg/models"
)

// selectedMark is the token a checked selection element contributes to text.
const selectedMark = "X"

// Text reconstructs the text of a block from its CHILD references. Children are
// visited in relationship declaration order and then target order; ids that do
// not resolve are skipped. WORD children contribute their text, SELECTED
// selection elements contribute "X", everything else is ignored.
func (idx *Index) Text(b *models.Block) string {
	if b == nil {
		return ""
	}

	var sb strings.Builder
	for _, rel := range b.Relationships {
		if rel.Type != models.RelationshipChild {
			continue
		}
		for _, id := range rel.IDs {
			child, ok := idx.blocks[id]
			if !ok {
				continue
			}
			switch child.BlockType {
			case models.BlockTypeWord:
				sb.WriteString(child.Text)
				sb.WriteByte(' ')
			case models.BlockTypeSelectionElement:
				if child.SelectionStatus == models.SelectionSelected {
					sb.WriteString(selectedMark)
					sb.WriteByte(' ')
				}
			}
		}
	}

	return strings.TrimSpace(sb.String())
}

// PageText joins the text of every LINE block with single spaces, in detection
// order. This is the plain-text artifact written next to each document.
func PageText(blocks []models.Block) string {
	lines := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if b.BlockType != models.BlockTypeLine {
			continue
		}
		text := strings.Join(strings.Fields(b.Text), " ")
		if text == "" {
			continue
		}
		lines = append(lines, text)
	}
	return strings.Join(lines, " ")
}
