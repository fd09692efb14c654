package ocr

import (
	"fmt"
	"strings"

	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"golang.org/x/text/unicode/norm"

	"intake/pkg/models"
)

// Checkbox value types reported by the form parser.
const (
	filledCheckbox   = "filled_checkbox"
	unfilledCheckbox = "unfilled_checkbox"
)

type span struct{ start, end int }

// anchor resolves text anchors of one shard against its text.
type anchor struct {
	runes  []rune
	offset int
}

func newAnchor(doc *documentaipb.Document) anchor {
	return anchor{
		runes:  []rune(doc.GetText()),
		offset: int(doc.GetShardInfo().GetTextOffset()),
	}
}

func (a anchor) spans(layout *documentaipb.Document_Page_Layout) []span {
	var out []span
	for _, seg := range layout.GetTextAnchor().GetTextSegments() {
		start := int(seg.GetStartIndex()) - a.offset
		end := int(seg.GetEndIndex()) - a.offset
		if start < 0 {
			start = 0
		}
		if end > len(a.runes) {
			end = len(a.runes)
		}
		if start >= end {
			continue
		}
		out = append(out, span{start, end})
	}
	return out
}

func (a anchor) text(layout *documentaipb.Document_Page_Layout) string {
	var b strings.Builder
	for _, s := range a.spans(layout) {
		b.WriteString(string(a.runes[s.start:s.end]))
	}
	return cleanText(b.String())
}

// cleanText composes the text to NFC and collapses whitespace.
func cleanText(s string) string {
	return strings.Join(strings.Fields(norm.NFC.String(s)), " ")
}

type pageToken struct {
	id   string
	span span
}

// tokensWithin returns the ids of tokens fully inside any of the spans.
func tokensWithin(tokens []pageToken, spans []span) []string {
	var ids []string
	for _, tok := range tokens {
		for _, s := range spans {
			if tok.span.start >= s.start && tok.span.end <= s.end {
				ids = append(ids, tok.id)
				break
			}
		}
	}
	return ids
}

// documentBlocks converts one output shard into blocks. Ids are unique
// across shards and pages. Per page the order is PAGE, LINE, WORD and then
// the KEY/VALUE pairs in form field order.
func documentBlocks(doc *documentaipb.Document, shard int) []models.Block {
	a := newAnchor(doc)
	var blocks []models.Block

	for pi, page := range doc.GetPages() {
		prefix := fmt.Sprintf("s%d-p%d", shard, pi)

		tokens := make([]pageToken, 0, len(page.GetTokens()))
		var words []models.Block
		for ti, tok := range page.GetTokens() {
			text := a.text(tok.GetLayout())
			spans := a.spans(tok.GetLayout())
			if text == "" || len(spans) == 0 {
				continue
			}
			id := fmt.Sprintf("%s-w%d", prefix, ti)
			tokens = append(tokens, pageToken{id: id, span: span{spans[0].start, spans[len(spans)-1].end}})
			words = append(words, models.Block{ID: id, BlockType: models.BlockTypeWord, Text: text})
		}

		var lines []models.Block
		var lineIDs []string
		for li, line := range page.GetLines() {
			id := fmt.Sprintf("%s-l%d", prefix, li)
			b := models.Block{ID: id, BlockType: models.BlockTypeLine, Text: a.text(line.GetLayout())}
			if children := tokensWithin(tokens, a.spans(line.GetLayout())); len(children) > 0 {
				b.Relationships = []models.Relationship{{Type: models.RelationshipChild, IDs: children}}
			}
			lines = append(lines, b)
			lineIDs = append(lineIDs, id)
		}

		pageBlock := models.Block{ID: prefix, BlockType: models.BlockTypePage}
		if len(lineIDs) > 0 {
			pageBlock.Relationships = []models.Relationship{{Type: models.RelationshipChild, IDs: lineIDs}}
		}

		blocks = append(blocks, pageBlock)
		blocks = append(blocks, lines...)
		blocks = append(blocks, words...)

		for fi, field := range page.GetFormFields() {
			blocks = append(blocks, formFieldBlocks(a, tokens, field, fmt.Sprintf("%s-f%d", prefix, fi))...)
		}
	}
	return blocks
}

// formFieldBlocks builds the KEY block, the VALUE block and any synthetic
// children for one form field. When no token falls inside an anchor the
// anchor text itself becomes a WORD child.
func formFieldBlocks(a anchor, tokens []pageToken, field *documentaipb.Document_Page_FormField, id string) []models.Block {
	keyID, valueID := id+"-k", id+"-v"
	var extra []models.Block

	keyChildren := tokensWithin(tokens, a.spans(field.GetFieldName()))
	if len(keyChildren) == 0 {
		if text := a.text(field.GetFieldName()); text != "" {
			extra = append(extra, models.Block{ID: keyID + "w", BlockType: models.BlockTypeWord, Text: text})
			keyChildren = []string{keyID + "w"}
		}
	}

	var valueChildren []string
	switch field.GetValueType() {
	case filledCheckbox, unfilledCheckbox:
		status := models.SelectionNotSelected
		if field.GetValueType() == filledCheckbox {
			status = models.SelectionSelected
		}
		extra = append(extra, models.Block{ID: valueID + "c", BlockType: models.BlockTypeSelectionElement, SelectionStatus: status})
		valueChildren = []string{valueID + "c"}
	default:
		valueChildren = tokensWithin(tokens, a.spans(field.GetFieldValue()))
		if len(valueChildren) == 0 {
			if text := a.text(field.GetFieldValue()); text != "" {
				extra = append(extra, models.Block{ID: valueID + "w", BlockType: models.BlockTypeWord, Text: text})
				valueChildren = []string{valueID + "w"}
			}
		}
	}

	key := models.Block{
		ID:          keyID,
		BlockType:   models.BlockTypeKeyValueSet,
		EntityTypes: []models.EntityType{models.EntityTypeKey},
		Relationships: []models.Relationship{
			{Type: models.RelationshipValue, IDs: []string{valueID}},
		},
	}
	if len(keyChildren) > 0 {
		key.Relationships = append(key.Relationships, models.Relationship{Type: models.RelationshipChild, IDs: keyChildren})
	}

	value := models.Block{
		ID:          valueID,
		BlockType:   models.BlockTypeKeyValueSet,
		EntityTypes: []models.EntityType{models.EntityTypeValue},
	}
	if len(valueChildren) > 0 {
		value.Relationships = []models.Relationship{{Type: models.RelationshipChild, IDs: valueChildren}}
	}

	return append(extra, key, value)
}
