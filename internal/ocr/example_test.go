package ocr_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"intake/internal/extraction"
	"intake/internal/ocr"
	"intake/internal/storage"
	"intake/pkg/models"
)

// Example runs a precomputed analysis through the provider contract.
func Example() {
	dir, err := os.MkdirTemp("", "ocr-example")
	if err != nil {
		log.Fatal(err)
	}
	defer os.RemoveAll(dir)

	ctx := context.Background()
	store := storage.NewLocalStore(dir)
	doc := storage.Location{Bucket: "staging", Key: "claims/form.pdf"}

	page := ocr.BlockPage{Blocks: []models.Block{
		{ID: "k", BlockType: models.BlockTypeKeyValueSet, EntityTypes: []models.EntityType{models.EntityTypeKey},
			Relationships: []models.Relationship{{Type: models.RelationshipValue, IDs: []string{"v"}}, {Type: models.RelationshipChild, IDs: []string{"w1"}}}},
		{ID: "v", BlockType: models.BlockTypeKeyValueSet, EntityTypes: []models.EntityType{models.EntityTypeValue},
			Relationships: []models.Relationship{{Type: models.RelationshipChild, IDs: []string{"w2"}}}},
		{ID: "w1", BlockType: models.BlockTypeWord, Text: "DEDUCTIBLE"},
		{ID: "w2", BlockType: models.BlockTypeWord, Text: "500"},
	}}
	data, _ := json.Marshal(page)
	if err := store.Put(ctx, ocr.PageLocation(doc, ""), data); err != nil {
		log.Fatal(err)
	}

	blocks, err := ocr.Analyze(ctx, ocr.NewBlockFileProvider(store), doc, ocr.DefaultPollConfig())
	if err != nil {
		log.Fatal(err)
	}

	kvs := extraction.Resolve(blocks)
	fmt.Println(kvs.Values("DEDUCTIBLE"))
	// Output: [500]
}
