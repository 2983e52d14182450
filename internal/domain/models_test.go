package domain

import (
	"testing"
	"time"
)

func TestBuildOrderNumber(t *testing.T) {
	createdAt := time.Date(2026, time.January, 5, 10, 0, 0, 0, time.UTC)

	if got := BuildOrderNumber("ord-1756540800-abc123", createdAt); got != "ORD-20260105-abc123" {
		t.Fatalf("unexpected order number %q", got)
	}
	if got := BuildOrderNumber("x1", createdAt); got != "ORD-20260105-x1" {
		t.Fatalf("expected short ids to be used whole, got %q", got)
	}
}

func TestOrderLineSubtotalRounds(t *testing.T) {
	cases := []struct {
		price int64
		qty   float64
		want  int64
	}{
		{15000, 2, 30000},
		{5000, 2.5, 12500},
		{3333, 1.5, 5000},
		{7000, 0.33, 2310},
	}
	for _, tc := range cases {
		line := OrderLine{Price: tc.price, Quantity: tc.qty}
		if got := line.Subtotal(); got != tc.want {
			t.Fatalf("Subtotal(%d x %g) = %d, want %d", tc.price, tc.qty, got, tc.want)
		}
	}
}

func TestItemClassification(t *testing.T) {
	wash := Item{Type: ItemTypeSatuan}
	kiloan := Item{Type: ItemTypeKiloan}
	soap := Item{Type: ItemTypeProduct}
	token := Item{Type: ItemTypeProduct, PriceEditable: true}

	if !wash.IsService() || !kiloan.IsService() || soap.IsService() {
		t.Fatalf("service classification broken")
	}
	if !soap.IsExpenseGood() || !token.IsExpenseGood() || wash.IsExpenseGood() {
		t.Fatalf("expense classification broken")
	}
}
