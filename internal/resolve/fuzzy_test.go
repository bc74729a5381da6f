package resolve_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/chatwoot/inboxq/internal/resolve"
)

var filters = []resolve.Named{
	{ID: "0190f0a4-7c11-7a2b-9c3e-111111111111", Name: "Refund requests"},
	{ID: "0190f0a4-9d22-7b3c-8d4f-222222222222", Name: "Angry customers"},
	{ID: "0190f0b5-0e33-7c4d-9e50-333333333333", Name: "Handoffs"},
}

func TestRef_ExactID(t *testing.T) {
	id, err := resolve.Ref("0190f0a4-9d22-7b3c-8d4f-222222222222", filters)
	if err != nil {
		t.Fatal(err)
	}
	if id != filters[1].ID {
		t.Fatalf("expected %s, got %s", filters[1].ID, id)
	}
}

func TestRef_UniquePrefix(t *testing.T) {
	id, err := resolve.Ref("0190f0b5", filters)
	if err != nil {
		t.Fatal(err)
	}
	if id != filters[2].ID {
		t.Fatalf("expected %s, got %s", filters[2].ID, id)
	}
}

func TestRef_AmbiguousPrefix(t *testing.T) {
	_, err := resolve.Ref("0190f0a4", filters)
	var ae *resolve.AmbiguousError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AmbiguousError, got %T: %v", err, err)
	}
	if len(ae.Matches) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(ae.Matches))
	}
}

func TestRef_FallsBackToName(t *testing.T) {
	id, err := resolve.Ref("handoffs", filters)
	if err != nil {
		t.Fatal(err)
	}
	if id != filters[2].ID {
		t.Fatalf("expected %s, got %s", filters[2].ID, id)
	}
}

func TestRef_Empty(t *testing.T) {
	if _, err := resolve.Ref(" ", filters); !errors.Is(err, resolve.ErrEmptyQuery) {
		t.Fatalf("expected ErrEmptyQuery, got %v", err)
	}
	if _, err := resolve.Ref("x", nil); !errors.Is(err, resolve.ErrEmptyItems) {
		t.Fatalf("expected ErrEmptyItems, got %v", err)
	}
}

func TestFuzzyMatch_PartialHit(t *testing.T) {
	id, err := resolve.FuzzyMatch("refu", filters)
	if err != nil {
		t.Fatal(err)
	}
	if id != filters[0].ID {
		t.Fatalf("expected %s, got %s", filters[0].ID, id)
	}
}

func TestFuzzyMatch_CaseInsensitive(t *testing.T) {
	id, err := resolve.FuzzyMatch("ANGRY CUSTOMERS", filters)
	if err != nil {
		t.Fatal(err)
	}
	if id != filters[1].ID {
		t.Fatalf("expected %s, got %s", filters[1].ID, id)
	}
}

func TestFuzzyMatch_NoMatch(t *testing.T) {
	_, err := resolve.FuzzyMatch("billing", filters)
	var nf *resolve.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %T: %v", err, err)
	}
}

func TestFuzzyMatch_Ambiguous(t *testing.T) {
	items := []resolve.Named{
		{ID: "a", Name: "Refunds US"},
		{ID: "b", Name: "Refunds EU"},
	}
	_, err := resolve.FuzzyMatch("refunds", items)
	var ae *resolve.AmbiguousError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AmbiguousError, got %T: %v", err, err)
	}
	if len(ae.Matches) == 0 {
		t.Fatalf("expected candidates in ambiguity error: %+v", ae)
	}
}

func TestFuzzyMatch_DuplicateExactNames(t *testing.T) {
	items := []resolve.Named{
		{ID: "a", Name: "Mine"},
		{ID: "b", Name: "mine"},
	}
	_, err := resolve.FuzzyMatch("mine", items)
	var ae *resolve.AmbiguousError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AmbiguousError, got %T: %v", err, err)
	}
}

func TestFuzzyMatch_PrefersExactOverFuzzy(t *testing.T) {
	items := []resolve.Named{
		{ID: "a", Name: "Sales"},
		{ID: "b", Name: "Sales leads"},
	}
	id, err := resolve.FuzzyMatch("Sales", items)
	if err != nil {
		t.Fatal(err)
	}
	if id != "a" {
		t.Fatalf("expected exact match a, got %s", id)
	}
}

func TestFuzzyMatchAll_ReturnsRanked(t *testing.T) {
	matches := resolve.FuzzyMatchAll("s", filters, 10)
	if len(matches) == 0 {
		t.Fatal("expected at least one match")
	}
	for _, m := range matches {
		if m.ID == "" {
			t.Fatal("match should have an ID")
		}
	}
}

func TestAmbiguousErrorString(t *testing.T) {
	err := &resolve.AmbiguousError{
		Query: "refunds",
		Matches: []resolve.Match{
			{ID: "a", Name: "Refunds US"},
			{ID: "b", Name: "Refunds EU"},
		},
	}

	msg := err.Error()
	if !strings.Contains(msg, `ambiguous match for "refunds"`) {
		t.Fatalf("missing query in error message: %q", msg)
	}
	if !strings.Contains(msg, "a: Refunds US") || !strings.Contains(msg, "b: Refunds EU") {
		t.Fatalf("missing candidates in error message: %q", msg)
	}
}
