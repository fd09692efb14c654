package records

import (
	"context"
	"os"
	"testing"

	"intake/pkg/models"
)

func TestPostgresStoreUpsert(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	store, err := NewPostgresStore(ctx, DefaultPostgresConfig(dsn))
	if err != nil {
		t.Fatalf("NewPostgresStore() error = %v", err)
	}
	defer store.Close()

	claim := "test-" + t.Name()
	t.Cleanup(func() {
		_, _ = store.pool.Exec(context.Background(), "DELETE FROM claim_records WHERE claim_number = $1", claim)
	})

	for _, holder := range []string{"Jane Doe", "Jane Q. Doe"} {
		rec := claimRecord(claim, "doc", map[models.Attribute]string{models.AttrPolicyHolder: holder})
		if err := store.Put(ctx, rec); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	recs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	found := 0
	for _, rec := range recs {
		if rec.ClaimNumber == claim {
			found++
			if rec.Get(models.AttrPolicyHolder) != "Jane Q. Doe" {
				t.Errorf("policyHolder = %q", rec.Get(models.AttrPolicyHolder))
			}
		}
	}
	if found != 1 {
		t.Fatalf("found %d rows for %s, want 1", found, claim)
	}
}
