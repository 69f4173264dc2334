// Package reconcile compares physical stock counts against book stock and
// produces the variance rows a stock-taking commit is built from.
package reconcile

import (
	"strings"

	"github.com/shopspring/decimal"

	"posdesk/internal/domain"
)

// Policy controls how counted items with no catalog match are treated
// when a comparison is committed.
type Policy string

const (
	// PolicyExtraAsNew creates a product for every uncataloged item and
	// sets its stock to the counted quantity.
	PolicyExtraAsNew Policy = "extra_as_new"
	// PolicyExtraAsVariance reports uncataloged items as variance rows
	// only and leaves the catalog untouched.
	PolicyExtraAsVariance Policy = "extra_as_variance"
)

func ParsePolicy(raw string) (Policy, bool) {
	switch Policy(strings.ToLower(strings.TrimSpace(raw))) {
	case PolicyExtraAsNew:
		return PolicyExtraAsNew, true
	case PolicyExtraAsVariance:
		return PolicyExtraAsVariance, true
	}
	return "", false
}

// BookItem is a catalog product with its current system stock.
type BookItem struct {
	ProductID string
	SKU       string
	Barcode   string
	Name      string
	Qty       int
	Cost      decimal.Decimal
}

// CountItem is one physically counted line. ProductID is empty when the
// item had no catalog match at count time.
type CountItem struct {
	ProductID string
	SKU       string
	Barcode   string
	Name      string
	Qty       int
	Cost      decimal.Decimal
}

// Compare classifies every book and counted item into counted, missing
// or extra rows. Variance is counted minus system, so shrinkage comes
// out negative, and variance value prices the gap at unit cost.
func Compare(book []BookItem, counted []CountItem) []domain.ComparisonItem {
	countedByID := make(map[string]CountItem, len(counted))
	var extras []CountItem
	for _, item := range counted {
		if item.ProductID == "" {
			extras = append(extras, item)
			continue
		}
		if existing, ok := countedByID[item.ProductID]; ok {
			existing.Qty += item.Qty
			countedByID[item.ProductID] = existing
			continue
		}
		countedByID[item.ProductID] = item
	}

	// Uncataloged lines can still hit a book item by barcode or SKU,
	// which happens when a product was created between count and commit.
	extraByBarcode := make(map[string]int)
	extraBySKU := make(map[string]int)
	for i, e := range extras {
		if e.Barcode != "" {
			extraByBarcode[e.Barcode] = i
		}
		if e.SKU != "" {
			extraBySKU[e.SKU] = i
		}
	}
	consumed := make(map[int]bool)

	result := make([]domain.ComparisonItem, 0, len(book)+len(extras))
	for _, b := range book {
		row := domain.ComparisonItem{
			ProductID: b.ProductID,
			SKU:       b.SKU,
			Barcode:   b.Barcode,
			Name:      b.Name,
			SystemQty: b.Qty,
			CostPrice: b.Cost,
		}
		if c, ok := countedByID[b.ProductID]; ok {
			row.CountedQty = c.Qty
			row.Status = domain.CountStatusCounted
		} else if i, ok := matchExtra(b, extraByBarcode, extraBySKU, consumed); ok {
			consumed[i] = true
			row.CountedQty = extras[i].Qty
			row.Status = domain.CountStatusCounted
		} else {
			row.Status = domain.CountStatusMissing
		}
		row.Variance = row.CountedQty - row.SystemQty
		row.VarianceValue = decimal.NewFromInt(int64(row.Variance)).Mul(b.Cost)
		result = append(result, row)
	}

	for i, e := range extras {
		if consumed[i] {
			continue
		}
		variance := e.Qty
		result = append(result, domain.ComparisonItem{
			SKU:           e.SKU,
			Barcode:       e.Barcode,
			Name:          e.Name,
			CountedQty:    e.Qty,
			Variance:      variance,
			CostPrice:     e.Cost,
			VarianceValue: decimal.NewFromInt(int64(variance)).Mul(e.Cost),
			Status:        domain.CountStatusExtra,
		})
	}

	return result
}

func matchExtra(b BookItem, byBarcode map[string]int, bySKU map[string]int, consumed map[int]bool) (int, bool) {
	if b.Barcode != "" {
		if i, ok := byBarcode[b.Barcode]; ok && !consumed[i] {
			return i, true
		}
	}
	if b.SKU != "" {
		if i, ok := bySKU[b.SKU]; ok && !consumed[i] {
			return i, true
		}
	}
	return 0, false
}

// Summary totals a comparison for reporting.
type Summary struct {
	Counted       int             `json:"counted"`
	Missing       int             `json:"missing"`
	Extra         int             `json:"extra"`
	TotalVariance decimal.Decimal `json:"total_variance_value"`
}

func Summarize(items []domain.ComparisonItem) Summary {
	s := Summary{TotalVariance: decimal.Zero}
	for _, item := range items {
		switch item.Status {
		case domain.CountStatusCounted:
			s.Counted++
		case domain.CountStatusMissing:
			s.Missing++
		case domain.CountStatusExtra:
			s.Extra++
		}
		s.TotalVariance = s.TotalVariance.Add(item.VarianceValue)
	}
	return s
}
