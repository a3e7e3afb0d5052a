package rules

import (
	"math"
	"testing"

	"PricePulse/internal/domain/models"
)

func product() *models.Product {
	return &models.Product{
		ProductID:       "P1",
		BasePrice:       100,
		CostPrice:       50,
		Inventory:       20,
		CurrentPrice:    100,
		SalesLast30Days: 40,
		AverageRating:   3.5,
	}
}

func TestApplyBounds(t *testing.T) {
	p := product()
	for _, ml := range []float64{1, 40, 55, 100, 150, 400} {
		got, _ := Apply(ml, p, 0)
		floor := p.CostPrice * 1.1
		cap := p.BasePrice * 1.5
		if got < math.Round(floor*100)/100 || got > math.Round(cap*100)/100 {
			t.Fatalf("ml=%v: final %v outside [%v, %v]", ml, got, floor, cap)
		}
	}
}

func TestApplyInventoryScarcity(t *testing.T) {
	p := product()
	p.Inventory = 4
	got, applied := Apply(80, p, 0)
	if got != 104 { // 80*1.3, under the 150 cap
		t.Fatalf("expected 104, got %v", got)
	}
	if len(applied) != 1 || applied[0] != RuleInventoryScarcity {
		t.Fatalf("expected scarcity rule, got %v", applied)
	}

	// boundary: inventory 5 does not fire
	p.Inventory = 5
	got, applied = Apply(80, p, 0)
	if got != 80 || len(applied) != 0 {
		t.Fatalf("expected untouched price at inventory 5, got %v %v", got, applied)
	}
}

func TestApplyScarcityCapped(t *testing.T) {
	p := product()
	p.Inventory = 2
	got, _ := Apply(140, p, 0)
	if got != 150 { // min(140*1.3, 100*1.5)
		t.Fatalf("expected cap 150, got %v", got)
	}
}

func TestApplyCompetitorUndercut(t *testing.T) {
	p := product()
	// (100-70)/100 = 0.3 > 0.2
	got, applied := Apply(100, p, 70)
	if got != 80 {
		t.Fatalf("expected 80, got %v", got)
	}
	if len(applied) != 1 || applied[0] != RuleCompetitorUndercut {
		t.Fatalf("expected undercut rule, got %v", applied)
	}

	// exactly 20% gap does not fire
	got, applied = Apply(100, p, 80)
	if got != 100 || len(applied) != 0 {
		t.Fatalf("expected untouched price at 20%% gap, got %v %v", got, applied)
	}
}

func TestApplyUnknownCompetitorDisablesUndercut(t *testing.T) {
	p := product()
	got, applied := Apply(100, p, 0)
	if got != 100 || len(applied) != 0 {
		t.Fatalf("expected no rules with unknown competitor, got %v %v", got, applied)
	}
}

func TestApplyUndercutFloored(t *testing.T) {
	p := product()
	p.CostPrice = 90
	got, applied := Apply(100, p, 70)
	if got != 99 { // max(100*0.8, 90*1.1)
		t.Fatalf("expected 99, got %v", got)
	}
	found := false
	for _, r := range applied {
		if r == RuleCompetitorUndercut {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected undercut in %v", applied)
	}
}

func TestApplyClampRules(t *testing.T) {
	p := product()
	got, applied := Apply(10, p, 0)
	if got != 55 {
		t.Fatalf("expected floor 55, got %v", got)
	}
	if len(applied) != 1 || applied[0] != RuleMinMarginClamp {
		t.Fatalf("expected margin clamp, got %v", applied)
	}

	got, applied = Apply(500, p, 0)
	if got != 150 {
		t.Fatalf("expected cap 150, got %v", got)
	}
	if len(applied) != 1 || applied[0] != RuleMaxPriceCap {
		t.Fatalf("expected price cap, got %v", applied)
	}
}

func TestApplyDeterministic(t *testing.T) {
	p := product()
	p.Inventory = 3
	a, ra := Apply(77.77, p, 65)
	b, rb := Apply(77.77, p, 65)
	if a != b || len(ra) != len(rb) {
		t.Fatalf("expected identical output, got %v/%v and %v/%v", a, ra, b, rb)
	}
}

func TestApplyRounding(t *testing.T) {
	p := product()
	got, _ := Apply(99.999, p, 0)
	if got != 100 {
		t.Fatalf("expected 100.00, got %v", got)
	}
}

func TestFallbackPrice(t *testing.T) {
	p := product()
	p.Inventory = 5
	p.AverageRating = 4.5
	got := FallbackPrice(p)
	// 100 * 1.2 * 1.1
	if math.Abs(got-132) > 1e-9 {
		t.Fatalf("expected 132, got %v", got)
	}

	p.Inventory = 10
	p.AverageRating = 2.5
	got = FallbackPrice(p)
	// 100 * 0.9 * 0.9
	if math.Abs(got-81) > 1e-9 {
		t.Fatalf("expected 81, got %v", got)
	}
}
