package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"intake/internal/storage"
	"intake/pkg/models"
)

func putPage(t *testing.T, store storage.ObjectStore, loc storage.Location, page BlockPage) {
	t.Helper()
	data, err := json.Marshal(page)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(context.Background(), loc, data); err != nil {
		t.Fatal(err)
	}
}

func TestBlockFileProviderDrainsPages(t *testing.T) {
	ctx := context.Background()
	store := storage.NewLocalStore(t.TempDir())
	doc := storage.Location{Bucket: "staging", Key: "claims/doc.pdf"}

	putPage(t, store, PageLocation(doc, ""), BlockPage{
		Blocks:    []models.Block{{ID: "1", BlockType: models.BlockTypePage}},
		NextToken: "t2",
	})
	putPage(t, store, PageLocation(doc, "t2"), BlockPage{
		Blocks:    []models.Block{{ID: "2", BlockType: models.BlockTypeWord, Text: "a"}},
		NextToken: "t3",
	})
	putPage(t, store, PageLocation(doc, "t3"), BlockPage{
		Blocks: []models.Block{{ID: "3", BlockType: models.BlockTypeWord, Text: "b"}},
	})

	p := NewBlockFileProvider(store)
	blocks, err := Analyze(ctx, p, doc, PollConfig{MaxAttempts: 1})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	var ids []string
	for _, b := range blocks {
		ids = append(ids, b.ID)
	}
	if len(ids) != 3 || ids[0] != "1" || ids[1] != "2" || ids[2] != "3" {
		t.Fatalf("block ids = %v, want [1 2 3]", ids)
	}
}

func TestBlockFileProviderMissingDocument(t *testing.T) {
	p := NewBlockFileProvider(storage.NewLocalStore(t.TempDir()))

	_, err := p.Submit(context.Background(), storage.Location{Bucket: "staging", Key: "none.pdf"})
	if !errors.Is(err, ErrJobNotFound) {
		t.Fatalf("Submit() error = %v, want ErrJobNotFound", err)
	}
}

func TestBlockFileProviderPaginationLoop(t *testing.T) {
	ctx := context.Background()
	store := storage.NewLocalStore(t.TempDir())
	doc := storage.Location{Bucket: "staging", Key: "loop.pdf"}

	putPage(t, store, PageLocation(doc, ""), BlockPage{NextToken: "a"})
	putPage(t, store, PageLocation(doc, "a"), BlockPage{NextToken: "a"})

	_, err := NewBlockFileProvider(store).Fetch(ctx, doc.String())
	if !errors.Is(err, ErrMalformedOutput) {
		t.Fatalf("Fetch() error = %v, want ErrMalformedOutput", err)
	}
}

func TestPageLocation(t *testing.T) {
	doc := storage.Location{Bucket: "b", Key: "x/doc.pdf"}

	if got := PageLocation(doc, "").Key; got != "x/doc.pdf.blocks.json" {
		t.Errorf("first page key = %q", got)
	}
	if got := PageLocation(doc, "abc").Key; got != "x/doc.pdf.blocks.abc.json" {
		t.Errorf("next page key = %q", got)
	}
}

func TestIsBlockFile(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"x/doc.pdf.blocks.json", true},
		{"x/doc.pdf.blocks.abc.json", true},
		{"x/doc.pdf", false},
		{"x/doc.pdf.json", false},
		{"x/notes.txt", false},
	}
	for _, tt := range tests {
		if got := IsBlockFile(tt.key); got != tt.want {
			t.Errorf("IsBlockFile(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}
