package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"laundrydesk/backend/internal/cache"
	"laundrydesk/backend/internal/domain"
	"laundrydesk/backend/internal/report"
	"laundrydesk/backend/internal/store"
	"laundrydesk/backend/internal/store/memory"
)

func newTestService() *Service {
	repo := memory.NewSeeded()
	reports := report.NewEngine(cache.NoopReportCache{}, 5*time.Second, time.UTC)
	return New(repo, reports)
}

func ownerContext() context.Context {
	return WithActor(context.Background(), domain.Actor{
		Username: "owner",
		Role:     "owner",
	})
}

func findItem(t *testing.T, svc *Service, name string) domain.Item {
	t.Helper()
	items, err := svc.ListItems(context.Background(), "")
	if err != nil {
		t.Fatalf("list items: %v", err)
	}
	for _, item := range items {
		if item.Name == name {
			return item
		}
	}
	t.Fatalf("seeded item %q not found", name)
	return domain.Item{}
}

func findCustomer(t *testing.T, svc *Service, name string) domain.Customer {
	t.Helper()
	customers, err := svc.ListCustomers(context.Background(), "")
	if err != nil {
		t.Fatalf("list customers: %v", err)
	}
	for _, customer := range customers {
		if customer.Name == name {
			return customer
		}
	}
	t.Fatalf("seeded customer %q not found", name)
	return domain.Customer{}
}

func TestSubmitOrderComputesExactTotal(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	customer := findCustomer(t, svc, "John Doe")
	regular := findItem(t, svc, "Regular Wash")
	kiloan := findItem(t, svc, "Kiloan Wash")

	resp, err := svc.SubmitOrder(ctx, domain.OrderSubmitRequest{
		CustomerID: customer.ID,
		Items: []domain.OrderLinePick{
			{ItemID: regular.ID, Quantity: 2},
			{ItemID: kiloan.ID, Quantity: 2.5},
		},
	})
	if err != nil {
		t.Fatalf("submit order failed: %v", err)
	}

	// 2 x 15000 + 2.5kg x 5000
	if resp.Order.TotalPrice != 42500 {
		t.Fatalf("expected total 42500, got %d", resp.Order.TotalPrice)
	}
	if resp.Order.Status != domain.OrderStatusPending {
		t.Fatalf("expected pending status, got %s", resp.Order.Status)
	}
	wantPrefix := "ORD-" + time.Now().UTC().Format("20060102") + "-"
	if !strings.HasPrefix(resp.Order.OrderNumber, wantPrefix) {
		t.Fatalf("expected order number prefix %s, got %s", wantPrefix, resp.Order.OrderNumber)
	}
}

func TestSubmitOrderCreatesIncomeTransaction(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	customer := findCustomer(t, svc, "John Doe")
	regular := findItem(t, svc, "Regular Wash")

	resp, err := svc.SubmitOrder(ctx, domain.OrderSubmitRequest{
		CustomerID: customer.ID,
		Items: []domain.OrderLinePick{
			{ItemID: regular.ID, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("submit order failed: %v", err)
	}
	if resp.Transaction == nil {
		t.Fatalf("expected derived income transaction")
	}
	if resp.Transaction.Type != domain.TxTypeIncome {
		t.Fatalf("expected income transaction, got %s", resp.Transaction.Type)
	}
	if resp.Transaction.Amount != resp.Order.TotalPrice {
		t.Fatalf("expected amount %d, got %d", resp.Order.TotalPrice, resp.Transaction.Amount)
	}
	if resp.Transaction.Description != "Order from John Doe" {
		t.Fatalf("unexpected description %q", resp.Transaction.Description)
	}
	if resp.Transaction.OrderID != resp.Order.ID {
		t.Fatalf("expected transaction linked to order %s, got %s", resp.Order.ID, resp.Transaction.OrderID)
	}

	stats, err := svc.DashboardStats(ctx)
	if err != nil {
		t.Fatalf("dashboard stats failed: %v", err)
	}
	if stats.TodayRevenue != 15000 {
		t.Fatalf("expected today revenue 15000, got %d", stats.TodayRevenue)
	}

	summary, err := svc.FinanceSummary(ctx)
	if err != nil {
		t.Fatalf("finance summary failed: %v", err)
	}
	if summary.TotalIncome != 15000 {
		t.Fatalf("expected total income 15000, got %d", summary.TotalIncome)
	}
	if summary.OrdersRevenue != 15000 {
		t.Fatalf("expected orders revenue 15000, got %d", summary.OrdersRevenue)
	}
}

func TestOrderKeepsSnapshotPriceAfterCatalogChange(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	customer := findCustomer(t, svc, "John Doe")
	regular := findItem(t, svc, "Regular Wash")

	resp, err := svc.SubmitOrder(ctx, domain.OrderSubmitRequest{
		CustomerID: customer.ID,
		Items: []domain.OrderLinePick{
			{ItemID: regular.ID, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("submit order failed: %v", err)
	}

	newPrice := int64(99000)
	if _, err := svc.UpdateItem(ownerContext(), regular.ID, domain.ItemUpdateRequest{Price: &newPrice}); err != nil {
		t.Fatalf("update item failed: %v", err)
	}

	order, err := svc.GetOrder(ctx, resp.Order.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if order.Items[0].Price != 15000 {
		t.Fatalf("expected snapshot price 15000, got %d", order.Items[0].Price)
	}
	if order.TotalPrice != 15000 {
		t.Fatalf("expected total 15000, got %d", order.TotalPrice)
	}
}

func TestSubmitOrderRejectsProductItems(t *testing.T) {
	svc := newTestService()

	customer := findCustomer(t, svc, "John Doe")
	soap := findItem(t, svc, "Sabun")

	_, err := svc.SubmitOrder(context.Background(), domain.OrderSubmitRequest{
		CustomerID: customer.ID,
		Items: []domain.OrderLinePick{
			{ItemID: soap.ID, Quantity: 1},
		},
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestSubmitOrderRejectsEmptyItems(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	customer := findCustomer(t, svc, "John Doe")

	_, err := svc.SubmitOrder(ctx, domain.OrderSubmitRequest{
		CustomerID: customer.ID,
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}

	orders, err := svc.ListOrders(ctx, "")
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("expected no persisted orders, got %d", len(orders))
	}
	transactions, err := svc.ListTransactions(ctx, "")
	if err != nil {
		t.Fatalf("list transactions: %v", err)
	}
	if len(transactions) != 0 {
		t.Fatalf("expected no transactions, got %d", len(transactions))
	}
}

func TestSubmitOrderRequiresCustomer(t *testing.T) {
	svc := newTestService()
	regular := findItem(t, svc, "Regular Wash")

	_, err := svc.SubmitOrder(context.Background(), domain.OrderSubmitRequest{
		Items: []domain.OrderLinePick{
			{ItemID: regular.ID, Quantity: 1},
		},
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestSubmitOrderWithInlineNewCustomer(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	regular := findItem(t, svc, "Regular Wash")

	resp, err := svc.SubmitOrder(ctx, domain.OrderSubmitRequest{
		NewCustomer: &domain.CustomerCreateRequest{
			Name:  "Walk In",
			Phone: "0811111111",
		},
		Items: []domain.OrderLinePick{
			{ItemID: regular.ID, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("submit order failed: %v", err)
	}

	customer, err := svc.GetCustomer(ctx, resp.Order.CustomerID)
	if err != nil {
		t.Fatalf("inline customer not stored: %v", err)
	}
	if customer.Name != "Walk In" {
		t.Fatalf("expected inline customer name, got %q", customer.Name)
	}
}

func TestSubmitOrderRequiresWholeQuantityForPerUnitService(t *testing.T) {
	svc := newTestService()

	customer := findCustomer(t, svc, "John Doe")
	regular := findItem(t, svc, "Regular Wash")

	_, err := svc.SubmitOrder(context.Background(), domain.OrderSubmitRequest{
		CustomerID: customer.ID,
		Items: []domain.OrderLinePick{
			{ItemID: regular.ID, Quantity: 1.5},
		},
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestRecordExpenseWithCustomAmount(t *testing.T) {
	svc := newTestService()
	soap := findItem(t, svc, "Sabun")

	tx, err := svc.RecordTransaction(context.Background(), domain.TransactionCreateRequest{
		Type:   domain.TxTypeExpense,
		ItemID: soap.ID,
		Amount: 50000,
	})
	if err != nil {
		t.Fatalf("record expense failed: %v", err)
	}
	if tx.Amount != 50000 {
		t.Fatalf("expected amount 50000, got %d", tx.Amount)
	}
	if tx.Description != "Sabun (custom amount)" {
		t.Fatalf("unexpected description %q", tx.Description)
	}
}

func TestRecordExpenseWithFixedPriceDerivesAmount(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	bag, err := svc.CreateItem(ownerContext(), domain.ItemCreateRequest{
		Name:  "Plastic Bag",
		Type:  domain.ItemTypeProduct,
		Price: 2000,
	})
	if err != nil {
		t.Fatalf("create item failed: %v", err)
	}

	tx, err := svc.RecordTransaction(ctx, domain.TransactionCreateRequest{
		Type:     domain.TxTypeExpense,
		ItemID:   bag.ID,
		Quantity: 3,
	})
	if err != nil {
		t.Fatalf("record expense failed: %v", err)
	}
	if tx.Amount != 6000 {
		t.Fatalf("expected amount 6000, got %d", tx.Amount)
	}
	if tx.Description != "Plastic Bag (3x @ Rp2.000)" {
		t.Fatalf("unexpected description %q", tx.Description)
	}
}

func TestRecordExpenseRejectsServiceItems(t *testing.T) {
	svc := newTestService()
	regular := findItem(t, svc, "Regular Wash")

	_, err := svc.RecordTransaction(context.Background(), domain.TransactionCreateRequest{
		Type:     domain.TxTypeExpense,
		ItemID:   regular.ID,
		Quantity: 1,
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestRecordIncomeRequiresDescription(t *testing.T) {
	svc := newTestService()

	_, err := svc.RecordTransaction(context.Background(), domain.TransactionCreateRequest{
		Type:   domain.TxTypeIncome,
		Amount: 10000,
	})
	if !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestUpdateOrderStatusValidatesValue(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	customer := findCustomer(t, svc, "John Doe")
	regular := findItem(t, svc, "Regular Wash")

	resp, err := svc.SubmitOrder(ctx, domain.OrderSubmitRequest{
		CustomerID: customer.ID,
		Items: []domain.OrderLinePick{
			{ItemID: regular.ID, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("submit order failed: %v", err)
	}

	if _, err := svc.UpdateOrderStatus(ctx, resp.Order.ID, "shipped"); !errors.Is(err, store.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}

	order, err := svc.UpdateOrderStatus(ctx, resp.Order.ID, domain.OrderStatusActive)
	if err != nil {
		t.Fatalf("update status failed: %v", err)
	}
	if order.Status != domain.OrderStatusActive {
		t.Fatalf("expected active status, got %s", order.Status)
	}
}

func TestUpdateOrderStatusMissingOrder(t *testing.T) {
	svc := newTestService()

	_, err := svc.UpdateOrderStatus(context.Background(), "ord-missing", domain.OrderStatusActive)
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestDeleteCustomerKeepsOrders(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	customer := findCustomer(t, svc, "Jane Smith")
	regular := findItem(t, svc, "Regular Wash")

	resp, err := svc.SubmitOrder(ctx, domain.OrderSubmitRequest{
		CustomerID: customer.ID,
		Items: []domain.OrderLinePick{
			{ItemID: regular.ID, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("submit order failed: %v", err)
	}

	if err := svc.DeleteCustomer(ownerContext(), customer.ID); err != nil {
		t.Fatalf("delete customer failed: %v", err)
	}

	order, err := svc.GetOrder(ctx, resp.Order.ID)
	if err != nil {
		t.Fatalf("order should survive customer deletion: %v", err)
	}
	if order.CustomerID != customer.ID {
		t.Fatalf("expected dangling customer reference to remain, got %q", order.CustomerID)
	}
}

func TestCatalogMutationRequiresOwnerRole(t *testing.T) {
	svc := newTestService()
	staffCtx := WithActor(context.Background(), domain.Actor{
		Username: "staff",
		Role:     "staff",
	})

	_, err := svc.CreateItem(staffCtx, domain.ItemCreateRequest{
		Name:  "Express Wash",
		Type:  domain.ItemTypeSatuan,
		Price: 25000,
	})
	if err == nil || !strings.Contains(err.Error(), "owner role required") {
		t.Fatalf("expected owner role error, got %v", err)
	}
}

func TestSearchCustomersByNameAndPhone(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	byName, err := svc.ListCustomers(ctx, "jane")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(byName) != 1 || byName[0].Name != "Jane Smith" {
		t.Fatalf("expected Jane Smith, got %v", byName)
	}

	byPhone, err := svc.ListCustomers(ctx, "08123")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(byPhone) != 1 || byPhone[0].Name != "John Doe" {
		t.Fatalf("expected John Doe, got %v", byPhone)
	}
}

func TestListOrdersFiltersByQuery(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	customer := findCustomer(t, svc, "John Doe")
	regular := findItem(t, svc, "Regular Wash")

	resp, err := svc.SubmitOrder(ctx, domain.OrderSubmitRequest{
		CustomerID: customer.ID,
		Items: []domain.OrderLinePick{
			{ItemID: regular.ID, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("submit order failed: %v", err)
	}

	matches, err := svc.ListOrders(ctx, "john")
	if err != nil {
		t.Fatalf("list orders failed: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != resp.Order.ID {
		t.Fatalf("expected the submitted order, got %v", matches)
	}

	none, err := svc.ListOrders(ctx, "nobody")
	if err != nil {
		t.Fatalf("list orders failed: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no matches, got %d", len(none))
	}
}

type failingCustomerRepo struct {
	store.Repository
}

func (failingCustomerRepo) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return nil, errors.New("customer backend unavailable")
}

func TestListOrdersSearchSurvivesCustomerLookupFailure(t *testing.T) {
	repo := memory.NewSeeded()
	reports := report.NewEngine(cache.NoopReportCache{}, 5*time.Second, time.UTC)
	seeded := New(repo, reports)
	ctx := context.Background()

	customer := findCustomer(t, seeded, "John Doe")
	regular := findItem(t, seeded, "Regular Wash")
	resp, err := seeded.SubmitOrder(ctx, domain.OrderSubmitRequest{
		CustomerID: customer.ID,
		Items: []domain.OrderLinePick{
			{ItemID: regular.ID, Quantity: 1},
		},
	})
	if err != nil {
		t.Fatalf("submit order failed: %v", err)
	}

	svc := New(failingCustomerRepo{Repository: repo}, reports)

	matches, err := svc.ListOrders(ctx, strings.ToLower(resp.Order.OrderNumber))
	if err != nil {
		t.Fatalf("list orders failed: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != resp.Order.ID {
		t.Fatalf("expected match by order number, got %v", matches)
	}

	// Name search degrades to no matches but must not error.
	byName, err := svc.ListOrders(ctx, "john")
	if err != nil {
		t.Fatalf("list orders failed: %v", err)
	}
	if len(byName) != 0 {
		t.Fatalf("expected no name matches without customer data, got %d", len(byName))
	}
}

func TestFormatRupiah(t *testing.T) {
	cases := map[int64]string{
		0:       "Rp0",
		500:     "Rp500",
		2000:    "Rp2.000",
		15000:   "Rp15.000",
		1250000: "Rp1.250.000",
	}
	for amount, want := range cases {
		if got := formatRupiah(amount); got != want {
			t.Fatalf("formatRupiah(%d) = %q, want %q", amount, got, want)
		}
	}
}
