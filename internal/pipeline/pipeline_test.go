package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"intake/internal/config"
	"intake/internal/ocr"
	"intake/internal/records"
	"intake/internal/routing"
	"intake/internal/storage"
	"intake/pkg/models"
)

const testPrefix = "claims/batch1/"

var testBuckets = Buckets{
	Staging: "staging",
	Text:    "text",
	Review:  "review",
	Archive: "archive",
}

// verdictFunc answers classification requests from the document text.
type verdictFunc func(text string) (string, error)

func (f verdictFunc) Classify(ctx context.Context, documentText, prompt string) (string, error) {
	return f(documentText)
}

func alwaysTrue(string) (string, error) { return "True", nil }

type harness struct {
	t       *testing.T
	ctx     context.Context
	store   *storage.LocalStore
	records *records.SQLiteStore
	opts    Options
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	ctx := context.Background()

	recs, err := records.NewSQLiteStore(ctx, filepath.Join(dir, "claims.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { recs.Close() })

	return &harness{
		t:       t,
		ctx:     ctx,
		store:   storage.NewLocalStore(filepath.Join(dir, "buckets")),
		records: recs,
		opts: Options{
			Buckets:       testBuckets,
			ReviewPrefix:  "review_docs",
			ArchivePrefix: "archived_docs",
			SkippedPrefix: "skipped",
			Poll:          ocr.PollConfig{MaxAttempts: 1},
			NoDataPolicy:  routing.NoDataArchive,
			Workers:       3,
		},
	}
}

func (h *harness) pipeline(classifier verdictFunc) *Pipeline {
	deps := Deps{
		Objects: h.store,
		OCR:     ocr.NewBlockFileProvider(h.store),
		Records: h.records,
	}
	if classifier != nil {
		deps.Classifier = classifier
	}
	return New(deps, h.opts)
}

func (h *harness) put(bucket, key string, data []byte) {
	h.t.Helper()
	if err := h.store.Put(h.ctx, storage.Location{Bucket: bucket, Key: key}, data); err != nil {
		h.t.Fatalf("Put(%s/%s) error = %v", bucket, key, err)
	}
}

// putDocument stages a PDF together with its precomputed OCR blocks.
func (h *harness) putDocument(key string, blocks []models.Block) {
	h.t.Helper()
	h.put(testBuckets.Staging, key, []byte("%PDF-1.4 test"))

	data, err := json.Marshal(ocr.BlockPage{Blocks: blocks})
	if err != nil {
		h.t.Fatal(err)
	}
	page := ocr.PageLocation(storage.Location{Bucket: testBuckets.Staging, Key: key}, "")
	h.put(page.Bucket, page.Key, data)
}

func (h *harness) exists(bucket, key string) bool {
	h.t.Helper()
	_, err := h.store.Get(h.ctx, storage.Location{Bucket: bucket, Key: key})
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.t.Fatalf("Get(%s/%s) error = %v", bucket, key, err)
	}
	return err == nil
}

func (h *harness) markerExists(bucket, key string) bool {
	h.t.Helper()
	objects, err := h.store.List(h.ctx, bucket, key)
	if err != nil {
		h.t.Fatal(err)
	}
	for _, obj := range objects {
		if obj.Key == key {
			return true
		}
	}
	return false
}

func field(prefix string, n int, key, value string) []models.Block {
	id := fmt.Sprintf("%s%d", prefix, n)
	var blocks []models.Block
	var keyWords, valueWords, lineWords []string

	for i, w := range strings.Fields(key) {
		wid := fmt.Sprintf("%s-kw%d", id, i)
		blocks = append(blocks, models.Block{ID: wid, BlockType: models.BlockTypeWord, Text: w})
		keyWords = append(keyWords, wid)
	}
	for i, w := range strings.Fields(value) {
		wid := fmt.Sprintf("%s-vw%d", id, i)
		blocks = append(blocks, models.Block{ID: wid, BlockType: models.BlockTypeWord, Text: w})
		valueWords = append(valueWords, wid)
	}
	lineWords = append(append(lineWords, keyWords...), valueWords...)

	blocks = append(blocks,
		models.Block{
			ID:            id + "-line",
			BlockType:     models.BlockTypeLine,
			Text:          key + " " + value,
			Relationships: []models.Relationship{{Type: models.RelationshipChild, IDs: lineWords}},
		},
		models.Block{
			ID:          id + "-key",
			BlockType:   models.BlockTypeKeyValueSet,
			EntityTypes: []models.EntityType{models.EntityTypeKey},
			Relationships: []models.Relationship{
				{Type: models.RelationshipChild, IDs: keyWords},
				{Type: models.RelationshipValue, IDs: []string{id + "-value"}},
			},
		},
		models.Block{
			ID:            id + "-value",
			BlockType:     models.BlockTypeKeyValueSet,
			EntityTypes:   []models.EntityType{models.EntityTypeValue},
			Relationships: []models.Relationship{{Type: models.RelationshipChild, IDs: valueWords}},
		},
	)
	return blocks
}

// formBlocks builds a one-page form from key/value pairs in order.
func formBlocks(pairs ...string) []models.Block {
	blocks := []models.Block{{ID: "page-1", BlockType: models.BlockTypePage}}
	for i := 0; i+1 < len(pairs); i += 2 {
		blocks = append(blocks, field("f", i/2, pairs[i], pairs[i+1])...)
	}
	return blocks
}

func claimForm(claimNumber string) []models.Block {
	return formBlocks(
		"INSURED", "Jane Doe",
		"CLAIM #", claimNumber,
		"DEDUCTIBLE", "500",
	)
}

func findDocument(t *testing.T, report *Report, key string) DocumentResult {
	t.Helper()
	for _, d := range report.Documents {
		if d.Key == key {
			return d
		}
	}
	t.Fatalf("document %s not in report %+v", key, report.Documents)
	return DocumentResult{}
}

func TestRunArchivesClaimDocument(t *testing.T) {
	h := newHarness(t)
	h.put(testBuckets.Staging, testPrefix, nil)
	key := testPrefix + "claim.pdf"
	h.putDocument(key, claimForm("12345"))

	report, err := h.pipeline(alwaysTrue).Run(h.ctx, testPrefix)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.RunID == "" {
		t.Error("report has no run id")
	}

	doc := findDocument(t, report, key)
	if doc.Err != nil {
		t.Fatalf("document error = %v", doc.Err)
	}
	if doc.Outcome != routing.SucceededWithData || doc.Decision.Source != routing.Archive {
		t.Fatalf("outcome = %v, decision = %+v", doc.Outcome, doc.Decision)
	}
	if !doc.Persisted {
		t.Error("record was not persisted")
	}

	recs, err := h.records.List(h.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("stored %d records, want 1", len(recs))
	}
	rec := recs[0]
	if rec.ClaimNumber != "12345" || rec.FileName != "claim" {
		t.Errorf("identity = (%q, %q), want (12345, claim)", rec.ClaimNumber, rec.FileName)
	}
	if rec.Get(models.AttrPolicyHolder) != "Jane Doe" || rec.Get(models.AttrDeductible) != "500" {
		t.Errorf("attributes = %v", rec.Attributes)
	}
	if rec.Get(models.AttrPolicyID) != "" || rec.Get(models.AttrDate) != "" {
		t.Errorf("unexpected unmapped attributes %v", rec.Attributes)
	}

	if !h.exists(testBuckets.Archive, "archived_docs/"+key) {
		t.Error("document not in archive bucket")
	}
	if h.exists(testBuckets.Staging, key) {
		t.Error("document still in staging")
	}
	for _, artifact := range []string{key + ".txt", key + ".json"} {
		if h.exists(testBuckets.Text, artifact) {
			t.Errorf("artifact %s not deleted", artifact)
		}
	}
	if !h.markerExists(testBuckets.Text, testPrefix) {
		t.Error("folder marker not mirrored into the text bucket")
	}
}

func TestExtractWritesArtifacts(t *testing.T) {
	h := newHarness(t)
	key := testPrefix + "claim.pdf"

	// The POLICY # key points at a value block that does not exist.
	blocks := claimForm("12345")
	blocks = append(blocks,
		models.Block{ID: "pk-w", BlockType: models.BlockTypeWord, Text: "POLICY #"},
		models.Block{
			ID:          "pk",
			BlockType:   models.BlockTypeKeyValueSet,
			EntityTypes: []models.EntityType{models.EntityTypeKey},
			Relationships: []models.Relationship{
				{Type: models.RelationshipChild, IDs: []string{"pk-w"}},
				{Type: models.RelationshipValue, IDs: []string{"missing"}},
			},
		},
	)
	h.putDocument(key, blocks)

	p := h.pipeline(alwaysTrue)
	result, err := p.Extract(h.ctx, testPrefix)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if len(result.Extracted) != 1 || result.Extracted[0] != key {
		t.Fatalf("Extracted = %v", result.Extracted)
	}
	if len(result.Skipped) != 0 || len(result.Failed) != 0 {
		t.Fatalf("Skipped = %v, Failed = %v", result.Skipped, result.Failed)
	}

	text, err := p.artifacts.ReadText(h.ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if text != "INSURED Jane Doe CLAIM # 12345 DEDUCTIBLE 500" {
		t.Errorf("text artifact = %q", text)
	}

	kvs, err := p.artifacts.ReadKeyValues(h.ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if got := kvs.Keys(); len(got) != 3 || got[0] != "INSURED" || got[1] != "CLAIM #" || got[2] != "DEDUCTIBLE" {
		t.Errorf("keys = %v", got)
	}
	if vals := kvs.Values("POLICY #"); len(vals) != 0 {
		t.Errorf("dangling key produced values %v", vals)
	}
}

func TestRunSkipsNonPDF(t *testing.T) {
	h := newHarness(t)
	h.put(testBuckets.Staging, testPrefix, nil)
	h.put(testBuckets.Staging, testPrefix+"notes.txt", []byte("hello"))
	h.putDocument(testPrefix+"claim.pdf", claimForm("12345"))

	report, err := h.pipeline(alwaysTrue).Run(h.ctx, testPrefix)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	skipped := findDocument(t, report, testPrefix+"notes.txt")
	if skipped.Outcome != routing.UnsupportedFormat || skipped.Err != nil {
		t.Fatalf("skipped = %+v", skipped)
	}
	if !h.exists(testBuckets.Review, "skipped/"+testPrefix+"notes.txt") {
		t.Error("non-PDF not moved to skipped/ in the review bucket")
	}
	if h.exists(testBuckets.Staging, testPrefix+"notes.txt") {
		t.Error("non-PDF still in staging")
	}
	if h.markerExists(testBuckets.Text, testPrefix) {
		t.Error("text bucket folder marker not deleted")
	}
	if h.markerExists(testBuckets.Staging, testPrefix) {
		t.Error("staging folder marker not deleted")
	}
	if report.Count(routing.SucceededWithData) != 1 {
		t.Errorf("archived with data = %d, want 1", report.Count(routing.SucceededWithData))
	}
}

func TestRunNoDocuments(t *testing.T) {
	h := newHarness(t)
	h.put(testBuckets.Staging, testPrefix+"photo.jpg", []byte("jpeg"))

	report, err := h.pipeline(alwaysTrue).Run(h.ctx, testPrefix)
	if !errors.Is(err, ErrNoDocuments) {
		t.Fatalf("Run() error = %v, want ErrNoDocuments", err)
	}
	if report == nil || len(report.Documents) != 1 {
		t.Fatalf("report = %+v", report)
	}
	if !h.exists(testBuckets.Review, "skipped/"+testPrefix+"photo.jpg") {
		t.Error("skipped file not moved before reporting no documents")
	}
}

func TestRunRoutesByClassification(t *testing.T) {
	tests := []struct {
		name         string
		classifier   verdictFunc
		wantOutcome  routing.Outcome
		wantBucket   string
		wantKey      string
		keepsStaging bool
	}{
		{
			name:        "target",
			classifier:  alwaysTrue,
			wantOutcome: routing.SucceededWithData,
			wantBucket:  testBuckets.Archive,
			wantKey:     "archived_docs/" + testPrefix + "claim.pdf",
		},
		{
			name:        "non-target",
			classifier:  func(string) (string, error) { return "False, this is not a match", nil },
			wantOutcome: routing.ClassifiedNonTarget,
			wantBucket:  testBuckets.Review,
			wantKey:     "review_docs/" + testPrefix + "claim.pdf",
		},
		{
			name:         "classifier failure",
			classifier:   func(string) (string, error) { return "", errors.New("model unavailable") },
			wantOutcome:  routing.ProcessingError,
			wantBucket:   testBuckets.Staging,
			wantKey:      testPrefix + "claim.pdf",
			keepsStaging: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			key := testPrefix + "claim.pdf"
			h.putDocument(key, claimForm("12345"))

			report, err := h.pipeline(tt.classifier).Run(h.ctx, testPrefix)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			doc := findDocument(t, report, key)
			if doc.Outcome != tt.wantOutcome {
				t.Fatalf("outcome = %v, want %v", doc.Outcome, tt.wantOutcome)
			}
			if !h.exists(tt.wantBucket, tt.wantKey) {
				t.Errorf("document not at %s/%s", tt.wantBucket, tt.wantKey)
			}
			if got := h.exists(testBuckets.Text, key+".txt"); got != tt.keepsStaging {
				t.Errorf("text artifact present = %v, want %v", got, tt.keepsStaging)
			}
			if tt.keepsStaging && doc.Err == nil {
				t.Error("processing error not reported")
			}
		})
	}
}

func TestRunBlankDocumentGoesToReview(t *testing.T) {
	h := newHarness(t)
	key := testPrefix + "blank.pdf"
	h.putDocument(key, []models.Block{
		{ID: "page-1", BlockType: models.BlockTypePage},
		{ID: "w1", BlockType: models.BlockTypeWord, Text: "smudge"},
	})

	calls := 0
	classifier := func(string) (string, error) {
		calls++
		return "True", nil
	}

	report, err := h.pipeline(classifier).Run(h.ctx, testPrefix)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	doc := findDocument(t, report, key)
	if doc.Err != nil {
		t.Fatalf("document error = %v", doc.Err)
	}
	if doc.Outcome != routing.ClassifiedNonTarget || doc.Decision.Source != routing.Review {
		t.Fatalf("outcome = %v, decision = %+v", doc.Outcome, doc.Decision)
	}
	if calls != 0 {
		t.Errorf("classifier called %d times for a document without text", calls)
	}
	if !h.exists(testBuckets.Review, "review_docs/"+key) {
		t.Error("document not moved to review")
	}
	if h.exists(testBuckets.Staging, key) {
		t.Error("document still in staging")
	}
	for _, artifact := range []string{key + ".txt", key + ".json"} {
		if h.exists(testBuckets.Text, artifact) {
			t.Errorf("artifact %s not deleted", artifact)
		}
	}
}

func TestRunNoDataPolicy(t *testing.T) {
	tests := []struct {
		policy     routing.NoDataPolicy
		wantBucket string
		wantKey    string
	}{
		{routing.NoDataArchive, testBuckets.Archive, "archived_docs/" + testPrefix + "memo.pdf"},
		{routing.NoDataReview, testBuckets.Review, "review_docs/" + testPrefix + "memo.pdf"},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			h := newHarness(t)
			h.opts.NoDataPolicy = tt.policy
			key := testPrefix + "memo.pdf"
			h.putDocument(key, formBlocks("SUBJECT", "Towing", "CLAIM #", "777"))

			report, err := h.pipeline(alwaysTrue).Run(h.ctx, testPrefix)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}

			doc := findDocument(t, report, key)
			if doc.Outcome != routing.SucceededNoData || doc.Persisted {
				t.Fatalf("doc = %+v", doc)
			}
			if !h.exists(tt.wantBucket, tt.wantKey) {
				t.Errorf("document not at %s/%s", tt.wantBucket, tt.wantKey)
			}

			recs, err := h.records.List(h.ctx)
			if err != nil {
				t.Fatal(err)
			}
			if len(recs) != 0 {
				t.Errorf("identity-only record was persisted: %+v", recs)
			}
		})
	}
}

func TestRunOCRFailureStaysInStaging(t *testing.T) {
	h := newHarness(t)
	key := testPrefix + "unreadable.pdf"
	h.put(testBuckets.Staging, key, []byte("%PDF-1.4"))
	h.putDocument(testPrefix+"claim.pdf", claimForm("12345"))

	report, err := h.pipeline(alwaysTrue).Run(h.ctx, testPrefix)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	doc := findDocument(t, report, key)
	if doc.Outcome != routing.ProcessingError || !errors.Is(doc.Err, ocr.ErrJobNotFound) {
		t.Fatalf("doc = %+v", doc)
	}
	if !h.exists(testBuckets.Staging, key) {
		t.Error("failed document left staging")
	}
	if report.Count(routing.SucceededWithData) != 1 {
		t.Error("the other document was not processed")
	}
}

func TestRunPersistFailureStillArchives(t *testing.T) {
	h := newHarness(t)
	key := testPrefix + "nokey.pdf"
	h.putDocument(key, formBlocks("INSURED", "Jane Doe"))

	report, err := h.pipeline(alwaysTrue).Run(h.ctx, testPrefix)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	doc := findDocument(t, report, key)
	if doc.Outcome != routing.SucceededWithData || doc.Persisted {
		t.Fatalf("doc = %+v", doc)
	}
	if !h.exists(testBuckets.Archive, "archived_docs/"+key) {
		t.Error("document not archived after the store rejected its record")
	}
}

func TestRunManyDocuments(t *testing.T) {
	h := newHarness(t)
	const n = 8
	for i := 0; i < n; i++ {
		h.putDocument(fmt.Sprintf("%sclaim-%02d.pdf", testPrefix, i), claimForm(fmt.Sprintf("C-%d", i)))
	}

	report, err := h.pipeline(alwaysTrue).Run(h.ctx, testPrefix)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(report.Documents) != n {
		t.Fatalf("report has %d documents, want %d", len(report.Documents), n)
	}
	for i, d := range report.Documents {
		want := fmt.Sprintf("%sclaim-%02d.pdf", testPrefix, i)
		if d.Key != want {
			t.Errorf("Documents[%d] = %s, want %s", i, d.Key, want)
		}
	}

	recs, err := h.records.List(h.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != n {
		t.Errorf("stored %d records, want %d", len(recs), n)
	}
}

func TestClassifySkipsMarkersAndKeyValues(t *testing.T) {
	h := newHarness(t)
	h.put(testBuckets.Text, testPrefix, nil)
	h.put(testBuckets.Text, testPrefix+"a.pdf.txt", []byte("AUTO CLAIM"))
	h.put(testBuckets.Text, testPrefix+"a.pdf.json", []byte("{}"))
	h.put(testBuckets.Text, testPrefix+"b.pdf.txt", []byte("RECIPE"))

	classifier := func(text string) (string, error) {
		if strings.Contains(text, "CLAIM") {
			return "The document IS a TRUE positive case.", nil
		}
		return "false", nil
	}

	got, err := h.pipeline(classifier).Classify(h.ctx, testPrefix)
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Classify() = %+v, want 2 results", got)
	}
	if got[0].File != testPrefix+"a.pdf" || !got[0].IsTarget {
		t.Errorf("got[0] = %+v", got[0])
	}
	if got[1].File != testPrefix+"b.pdf" || got[1].IsTarget {
		t.Errorf("got[1] = %+v", got[1])
	}
}

func TestClassifyMissingTextArtifact(t *testing.T) {
	h := newHarness(t)
	p := h.pipeline(alwaysTrue)

	got, err := p.classifyDocuments(h.ctx, []string{testPrefix + "gone.pdf"})
	if err != nil {
		t.Fatalf("classifyDocuments() error = %v", err)
	}
	if len(got) != 1 || got[0].Err == nil || got[0].IsTarget {
		t.Fatalf("classifyDocuments() = %+v, want one failed non-target", got)
	}
	if !errors.Is(got[0].Err, storage.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", got[0].Err)
	}
}

func TestArchiveAcceptsArtifactKey(t *testing.T) {
	h := newHarness(t)
	key := testPrefix + "claim.pdf"
	h.put(testBuckets.Staging, key, []byte("%PDF"))
	h.put(testBuckets.Text, key+".txt", []byte("text"))
	h.put(testBuckets.Text, key+".json", []byte(`{"CLAIM #": ["42"], "INSURED": ["  John Roe "]}`))

	res, err := h.pipeline(nil).Archive(h.ctx, key+".txt")
	if err != nil {
		t.Fatalf("Archive() error = %v", err)
	}
	if res.Key != key || !res.Persisted {
		t.Fatalf("Archive() = %+v", res)
	}
	if res.Record.Get(models.AttrPolicyHolder) != "John Roe" {
		t.Errorf("policyHolder = %q", res.Record.Get(models.AttrPolicyHolder))
	}
	if h.exists(testBuckets.Text, key+".json") {
		t.Error("key/value artifact not deleted")
	}
}

func TestInputValidation(t *testing.T) {
	h := newHarness(t)
	p := h.pipeline(alwaysTrue)

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"extract without prefix", func() error { _, err := p.Extract(h.ctx, ""); return err }, ErrMissingPrefix},
		{"classify without prefix", func() error { _, err := p.Classify(h.ctx, ""); return err }, ErrMissingPrefix},
		{"move folder without prefix", func() error { _, err := p.MoveFolder(h.ctx, "", "a", "b", ""); return err }, ErrMissingPrefix},
		{"archive without file", func() error { _, err := p.Archive(h.ctx, ""); return err }, ErrMissingFile},
		{"review without file", func() error { _, err := p.Review(h.ctx, ""); return err }, ErrMissingFile},
		{"review of missing file", func() error { _, err := p.Review(h.ctx, testPrefix+"gone.pdf"); return err }, ErrMissingFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestExtractWithoutOCRProvider(t *testing.T) {
	h := newHarness(t)
	p := New(Deps{Objects: h.store}, h.opts)

	if _, err := p.Extract(h.ctx, testPrefix); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Extract() error = %v, want ErrNotConfigured", err)
	}
}

func TestMoveFolder(t *testing.T) {
	h := newHarness(t)
	h.put(testBuckets.Staging, testPrefix, nil)
	h.put(testBuckets.Staging, testPrefix+"a.pdf", []byte("a"))
	h.put(testBuckets.Staging, testPrefix+"b.pdf", []byte("b"))
	h.put(testBuckets.Staging, "other/c.pdf", []byte("c"))
	h.put(testBuckets.Text, testPrefix+"a.pdf.txt", []byte("a"))

	moved, err := h.pipeline(nil).MoveFolder(h.ctx, testPrefix, testBuckets.Staging, testBuckets.Review, testBuckets.Text)
	if err != nil {
		t.Fatalf("MoveFolder() error = %v", err)
	}
	if moved != 3 {
		t.Errorf("moved = %d, want 3", moved)
	}
	if !h.exists(testBuckets.Review, testPrefix+"b.pdf") || h.exists(testBuckets.Staging, testPrefix+"b.pdf") {
		t.Error("b.pdf not moved")
	}
	if !h.exists(testBuckets.Staging, "other/c.pdf") {
		t.Error("object outside the prefix was moved")
	}
	if h.exists(testBuckets.Text, testPrefix+"a.pdf.txt") {
		t.Error("purge bucket not cleared")
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.StagingBucket = "scanning-in-process"
	cfg.ReviewBucket = "human-review"
	cfg.NoDataPolicy = "Review"
	cfg.BatchWorkers = 6

	opts, err := OptionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("OptionsFromConfig() error = %v", err)
	}
	if opts.Staging != "scanning-in-process" || opts.Review != "human-review" {
		t.Errorf("buckets = %+v", opts.Buckets)
	}
	if opts.NoDataPolicy != routing.NoDataReview || opts.Workers != 6 {
		t.Errorf("policy = %q, workers = %d", opts.NoDataPolicy, opts.Workers)
	}
	if opts.Poll.MaxAttempts != 30 || opts.ArchivePrefix != "archived_docs" {
		t.Errorf("poll = %+v, archive prefix = %q", opts.Poll, opts.ArchivePrefix)
	}

	cfg.NoDataPolicy = "discard"
	if _, err := OptionsFromConfig(cfg); err == nil {
		t.Error("OptionsFromConfig() accepted an unknown no-data policy")
	}
}
