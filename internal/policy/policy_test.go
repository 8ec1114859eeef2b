package policy

import (
	"testing"

	clierr "github.com/ggonzalez94/swap-bridge-relayer/internal/errors"
)

func TestCheckCommandAllowed(t *testing.T) {
	if err := CheckCommandAllowed(nil, "run send"); err != nil {
		t.Fatalf("unexpected error with empty allowlist: %v", err)
	}
	if err := CheckCommandAllowed([]string{"plan", "run"}, "run send"); err != nil {
		t.Fatalf("expected parent entry to allow subpath: %v", err)
	}
	if err := CheckCommandAllowed([]string{"Run  Dry-Run"}, "run dry-run"); err != nil {
		t.Fatalf("expected normalized entry to match: %v", err)
	}
	err := CheckCommandAllowed([]string{"plan", "run dry-run"}, "run send")
	if !clierr.Is(err, clierr.CodeBlocked) {
		t.Fatalf("expected blocked error, got %v", err)
	}
	if err := CheckCommandAllowed([]string{"run dry-run"}, "run"); err == nil {
		t.Fatal("expected a narrower entry not to allow its parent")
	}
	if err := CheckCommandAllowed([]string{" "}, "plan"); err == nil {
		t.Fatal("expected blank entry to allow nothing")
	}
}
