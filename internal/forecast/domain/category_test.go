package domain

import "testing"

func float64Ptr(v float64) *float64 { return &v }

func TestResolveOpportunityCategory(t *testing.T) {
	bands := []OpportunityCategory{
		{CategoryBand: CategoryBand{ID: 1, Name: "Sub $5M", MinTCV: 0, MaxTCV: float64Ptr(5)}},
		{CategoryBand: CategoryBand{ID: 2, Name: "Cat B", MinTCV: 5, MaxTCV: float64Ptr(50)}},
		{CategoryBand: CategoryBand{ID: 3, Name: "Cat C", MinTCV: 50}},
	}

	tests := []struct {
		name     string
		tcv      float64
		wantName string
		wantOK   bool
	}{
		{"zero falls in the first band", 0, "Sub $5M", true},
		{"inside first band", 3, "Sub $5M", true},
		{"inside second band", 30, "Cat B", true},
		{"inside unbounded band", 50, "Cat C", true},
		{"negative is uncategorized", -2, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveOpportunityCategory(bands, tt.tcv)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.wantName {
				t.Errorf("name = %q, want %q", got, tt.wantName)
			}
		})
	}
}

func TestResolveOpportunityCategoryFallsBackToUnbounded(t *testing.T) {
	// The chosen candidate (largest MinTCV <= tcv) has a finite MaxTCV that
	// tcv does not satisfy; resolution must fall through to the unbounded
	// band rather than trying the next-highest candidate.
	bands := []OpportunityCategory{
		{CategoryBand: CategoryBand{ID: 1, Name: "narrow", MinTCV: 10, MaxTCV: float64Ptr(12)}},
		{CategoryBand: CategoryBand{ID: 2, Name: "open", MinTCV: 0}},
	}
	got, ok := ResolveOpportunityCategory(bands, 20)
	if !ok || got != "open" {
		t.Fatalf("got (%q, %v), want (\"open\", true)", got, ok)
	}
}

func TestResolveServiceLineCategory(t *testing.T) {
	bands := []ServiceLineCategory{
		{CategoryBand: CategoryBand{ID: 1, Name: "Sub $5M", MinTCV: 0, MaxTCV: float64Ptr(5)}, ServiceLine: ServiceLineMW},
		{CategoryBand: CategoryBand{ID: 2, Name: "Cat B", MinTCV: 5}, ServiceLine: ServiceLineMW},
		{CategoryBand: CategoryBand{ID: 3, Name: "Other Line", MinTCV: 0}, ServiceLine: ServiceLineITOC},
	}

	if name, ok := ResolveServiceLineCategory(bands, ServiceLineMW, 0); ok || name != "" {
		t.Errorf("tcv <= 0 should not resolve, got (%q, %v)", name, ok)
	}
	if name, ok := ResolveServiceLineCategory(bands, ServiceLineMW, 3); !ok || name != "Sub $5M" {
		t.Errorf("got (%q, %v), want (\"Sub $5M\", true)", name, ok)
	}
	if name, ok := ResolveServiceLineCategory(bands, ServiceLineMW, 30); !ok || name != "Cat B" {
		t.Errorf("got (%q, %v), want (\"Cat B\", true)", name, ok)
	}
	if _, ok := ResolveServiceLineCategory(bands, ServiceLineCES, 3); ok {
		t.Error("service line with no bands should not resolve")
	}
}

func TestResolveCategoryTieBreakByID(t *testing.T) {
	bands := []OpportunityCategory{
		{CategoryBand: CategoryBand{ID: 1, Name: "first", MinTCV: 5}},
		{CategoryBand: CategoryBand{ID: 2, Name: "second", MinTCV: 5}},
	}
	got, ok := ResolveOpportunityCategory(bands, 10)
	if !ok || got != "second" {
		t.Fatalf("got (%q, %v), want (\"second\", true)", got, ok)
	}
}
