package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"

	"posdesk/internal/domain"
)

func TestCompareClassifiesRows(t *testing.T) {
	book := []BookItem{
		{ProductID: "p1", SKU: "SKU-1", Name: "Coffee", Qty: 10, Cost: decimal.NewFromInt(5)},
		{ProductID: "p2", SKU: "SKU-2", Name: "Tea", Qty: 4, Cost: decimal.NewFromInt(3)},
	}
	counted := []CountItem{
		{ProductID: "p1", Qty: 7, Cost: decimal.NewFromInt(5)},
		{Barcode: "890123", Name: "Mystery Snack", Qty: 2, Cost: decimal.NewFromInt(1)},
	}

	rows := Compare(book, counted)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}

	byName := map[string]domain.ComparisonItem{}
	for _, row := range rows {
		byName[row.Name] = row
	}

	coffee := byName["Coffee"]
	if coffee.Status != domain.CountStatusCounted {
		t.Fatalf("coffee status = %s", coffee.Status)
	}
	if coffee.Variance != -3 {
		t.Fatalf("coffee variance = %d, want -3", coffee.Variance)
	}
	if !coffee.VarianceValue.Equal(decimal.NewFromInt(-15)) {
		t.Fatalf("coffee variance value = %s, want -15", coffee.VarianceValue)
	}

	tea := byName["Tea"]
	if tea.Status != domain.CountStatusMissing {
		t.Fatalf("tea status = %s", tea.Status)
	}
	if tea.Variance != -4 {
		t.Fatalf("tea variance = %d, want -4", tea.Variance)
	}

	snack := byName["Mystery Snack"]
	if snack.Status != domain.CountStatusExtra {
		t.Fatalf("snack status = %s", snack.Status)
	}
	if snack.Variance != 2 {
		t.Fatalf("snack variance = %d, want 2", snack.Variance)
	}
}

func TestCompareMergesDuplicateCounts(t *testing.T) {
	book := []BookItem{{ProductID: "p1", Name: "Coffee", Qty: 10, Cost: decimal.NewFromInt(5)}}
	counted := []CountItem{
		{ProductID: "p1", Qty: 4},
		{ProductID: "p1", Qty: 3},
	}

	rows := Compare(book, counted)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].CountedQty != 7 {
		t.Fatalf("counted qty = %d, want 7", rows[0].CountedQty)
	}
}

func TestCompareMatchesUncatalogedLineByBarcode(t *testing.T) {
	// A count line with no product id still reconciles against a book
	// item that carries the same barcode, e.g. a product created after
	// the count was recorded.
	book := []BookItem{
		{ProductID: "p9", Barcode: "890123", Name: "Mystery Snack", Qty: 2, Cost: decimal.NewFromInt(1)},
	}
	counted := []CountItem{
		{Barcode: "890123", Name: "Mystery Snack", Qty: 2, Cost: decimal.NewFromInt(1)},
	}

	rows := Compare(book, counted)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Status != domain.CountStatusCounted {
		t.Fatalf("status = %s, want counted", rows[0].Status)
	}
	if rows[0].Variance != 0 {
		t.Fatalf("variance = %d, want 0", rows[0].Variance)
	}
}

func TestSummarize(t *testing.T) {
	rows := []domain.ComparisonItem{
		{Status: domain.CountStatusCounted, VarianceValue: decimal.NewFromInt(-15)},
		{Status: domain.CountStatusMissing, VarianceValue: decimal.NewFromInt(-12)},
		{Status: domain.CountStatusExtra, VarianceValue: decimal.NewFromInt(2)},
	}
	s := Summarize(rows)
	if s.Counted != 1 || s.Missing != 1 || s.Extra != 1 {
		t.Fatalf("unexpected counts: %+v", s)
	}
	if !s.TotalVariance.Equal(decimal.NewFromInt(-25)) {
		t.Fatalf("total variance = %s, want -25", s.TotalVariance)
	}
}

func TestParsePolicy(t *testing.T) {
	if p, ok := ParsePolicy(" Extra_As_New "); !ok || p != PolicyExtraAsNew {
		t.Fatalf("parse extra_as_new failed: %v %v", p, ok)
	}
	if _, ok := ParsePolicy("nonsense"); ok {
		t.Fatal("expected parse failure")
	}
}
