package migrations

import (
	"strings"
	"testing"
)

func TestNamesOrdered(t *testing.T) {
	names, err := Names()
	if err != nil {
		t.Fatalf("names: %v", err)
	}
	if len(names) < 3 {
		t.Fatalf("expected at least 3 migrations, got %d", len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Fatalf("migrations out of order: %s before %s", names[i-1], names[i])
		}
	}
}

func TestSchemaCarriesInvariants(t *testing.T) {
	body, err := files.ReadFile("001_accounts.sql")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, want := range []string{"balance >= 0", "referred_by <> id"} {
		if !strings.Contains(string(body), want) {
			t.Fatalf("accounts schema missing constraint %q", want)
		}
	}

	body, err = files.ReadFile("002_referral_attempts.sql")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(body), "UNIQUE (referrer_id, referred_id)") {
		t.Fatalf("referral_attempts must be unique per pair")
	}
}
