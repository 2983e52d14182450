package report

import (
	"context"
	"reflect"
	"testing"
	"time"

	"laundrydesk/backend/internal/domain"
)

func mkOrder(id string, status string, createdAt time.Time, lines ...domain.OrderLine) domain.Order {
	total := int64(0)
	for _, line := range lines {
		total += line.Subtotal()
	}
	return domain.Order{
		ID:          id,
		OrderNumber: domain.BuildOrderNumber(id, createdAt),
		CustomerID:  "cus-1",
		Items:       lines,
		TotalPrice:  total,
		Status:      status,
		CreatedAt:   createdAt,
	}
}

func TestDashboardStatsCountsAndRevenue(t *testing.T) {
	now := time.Date(2026, time.March, 15, 14, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	lastMonth := now.AddDate(0, -1, 0)

	orders := []domain.Order{
		mkOrder("ord-1", domain.OrderStatusActive, now,
			domain.OrderLine{ItemID: "item-k", Name: "Kiloan Wash", Type: domain.ItemTypeKiloan, Price: 5000, Quantity: 3.5}),
		mkOrder("ord-2", domain.OrderStatusActive, yesterday,
			domain.OrderLine{ItemID: "item-s", Name: "Regular Wash", Type: domain.ItemTypeSatuan, Price: 15000, Quantity: 2}),
		mkOrder("ord-3", domain.OrderStatusCompleted, lastMonth,
			domain.OrderLine{ItemID: "item-s", Name: "Regular Wash", Type: domain.ItemTypeSatuan, Price: 15000, Quantity: 1}),
	}

	stats := DashboardStats(orders, now)

	if stats.ActiveOrdersCount != 2 {
		t.Fatalf("expected 2 active orders, got %d", stats.ActiveOrdersCount)
	}
	if stats.TodayRevenue != 17500 {
		t.Fatalf("expected today revenue 17500, got %d", stats.TodayRevenue)
	}
	if stats.MonthRevenue != 47500 {
		t.Fatalf("expected month revenue 47500, got %d", stats.MonthRevenue)
	}
	if stats.TotalKilos != 3.5 {
		t.Fatalf("expected 3.5 kilos today, got %g", stats.TotalKilos)
	}
}

func TestFinanceSummaryAlwaysSevenEntries(t *testing.T) {
	now := time.Date(2026, time.March, 15, 9, 0, 0, 0, time.UTC)

	summary := FinanceSummary(nil, nil, now)

	if len(summary.Last7Days) != 7 {
		t.Fatalf("expected 7 entries, got %d", len(summary.Last7Days))
	}
	for i, flow := range summary.Last7Days {
		want := now.AddDate(0, 0, i-6).Format("2006-01-02")
		if flow.Date != want {
			t.Fatalf("entry %d: expected date %s, got %s", i, want, flow.Date)
		}
		if flow.Income != 0 || flow.Expense != 0 {
			t.Fatalf("entry %d: expected zero flows, got %+v", i, flow)
		}
	}
	if summary.Balance != 0 {
		t.Fatalf("expected zero balance, got %d", summary.Balance)
	}
}

func TestFinanceSummaryBucketsFlows(t *testing.T) {
	now := time.Date(2026, time.March, 15, 20, 0, 0, 0, time.UTC)
	threeDaysAgo := now.AddDate(0, 0, -3)
	tenDaysAgo := now.AddDate(0, 0, -10)

	transactions := []domain.Transaction{
		{ID: "tx-1", Type: domain.TxTypeIncome, Amount: 30000, CreatedAt: threeDaysAgo},
		{ID: "tx-2", Type: domain.TxTypeExpense, Amount: 12000, CreatedAt: now},
		{ID: "tx-3", Type: domain.TxTypeIncome, Amount: 99000, CreatedAt: tenDaysAgo},
	}
	orders := []domain.Order{
		mkOrder("ord-1", domain.OrderStatusPending, now,
			domain.OrderLine{ItemID: "item-s", Name: "Regular Wash", Type: domain.ItemTypeSatuan, Price: 15000, Quantity: 1}),
	}

	summary := FinanceSummary(transactions, orders, now)

	if summary.TotalIncome != 129000 {
		t.Fatalf("expected total income 129000, got %d", summary.TotalIncome)
	}
	if summary.TotalExpense != 12000 {
		t.Fatalf("expected total expense 12000, got %d", summary.TotalExpense)
	}
	if summary.OrdersRevenue != 15000 {
		t.Fatalf("expected orders revenue 15000, got %d", summary.OrdersRevenue)
	}
	if summary.Balance != 117000 {
		t.Fatalf("expected balance 117000, got %d", summary.Balance)
	}

	if got := summary.Last7Days[3].Income; got != 30000 {
		t.Fatalf("expected 30000 income three days ago, got %d", got)
	}
	today := summary.Last7Days[6]
	if today.Expense != 12000 {
		t.Fatalf("expected 12000 expense today, got %d", today.Expense)
	}
	// Today's order revenue shows in the series even without its
	// derived income transaction.
	if today.Income != 15000 {
		t.Fatalf("expected 15000 income today, got %d", today.Income)
	}
}

func TestFinanceSummaryIsIdempotent(t *testing.T) {
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	transactions := []domain.Transaction{
		{ID: "tx-1", Type: domain.TxTypeIncome, Amount: 20000, CreatedAt: now},
		{ID: "tx-2", Type: domain.TxTypeExpense, Amount: 5000, CreatedAt: now.AddDate(0, 0, -2)},
	}
	orders := []domain.Order{
		mkOrder("ord-1", domain.OrderStatusActive, now.AddDate(0, 0, -1),
			domain.OrderLine{ItemID: "item-k", Name: "Kiloan Wash", Type: domain.ItemTypeKiloan, Price: 5000, Quantity: 4}),
	}

	first := FinanceSummary(transactions, orders, now)
	second := FinanceSummary(transactions, orders, now)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical summaries, got %+v vs %+v", first, second)
	}

	firstStats := DashboardStats(orders, now)
	secondStats := DashboardStats(orders, now)
	if !reflect.DeepEqual(firstStats, secondStats) {
		t.Fatalf("expected identical stats, got %+v vs %+v", firstStats, secondStats)
	}
}

func TestSnapshotRefreshesWhenCollectionsChange(t *testing.T) {
	engine := NewEngine(nil, time.Minute, time.UTC)
	ctx := context.Background()
	now := time.Now().UTC()

	orders := []domain.Order{
		mkOrder("ord-1", domain.OrderStatusActive, now,
			domain.OrderLine{ItemID: "item-s", Name: "Regular Wash", Type: domain.ItemTypeSatuan, Price: 15000, Quantity: 1}),
	}

	first := engine.Snapshot(ctx, orders, nil)
	if first.Dashboard.ActiveOrdersCount != 1 {
		t.Fatalf("expected 1 active order, got %d", first.Dashboard.ActiveOrdersCount)
	}

	orders = append(orders, mkOrder("ord-2", domain.OrderStatusActive, now,
		domain.OrderLine{ItemID: "item-s", Name: "Regular Wash", Type: domain.ItemTypeSatuan, Price: 15000, Quantity: 2}))

	second := engine.Snapshot(ctx, orders, nil)
	if second.Dashboard.ActiveOrdersCount != 2 {
		t.Fatalf("expected 2 active orders after mutation, got %d", second.Dashboard.ActiveOrdersCount)
	}
}
