package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"laundrydesk/backend/internal/cache"
	"laundrydesk/backend/internal/domain"
	"laundrydesk/backend/internal/report"
	"laundrydesk/backend/internal/store"
	"laundrydesk/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo    store.Repository
	reports *report.Engine
}

func New(repo store.Repository, reports *report.Engine) *Service {
	return &Service{
		repo:    repo,
		reports: reports,
	}
}

func (s *Service) ListCustomers(ctx context.Context, query string) ([]domain.Customer, error) {
	if strings.TrimSpace(query) != "" {
		return s.repo.SearchCustomers(ctx, query)
	}
	return s.repo.ListCustomers(ctx)
}

func (s *Service) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	customer, err := s.repo.GetCustomerByID(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}
	return *customer, nil
}

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if req.Name == "" || req.Phone == "" {
		return domain.Customer{}, fmt.Errorf("%w: customer name and phone are required", store.ErrInvalidInput)
	}

	created, err := s.repo.CreateCustomer(ctx, domain.Customer{
		ID:        xid.New("cus"),
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     strings.TrimSpace(req.Email),
		Address:   strings.TrimSpace(req.Address),
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return domain.Customer{}, err
	}
	return *created, nil
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	existing, err := s.repo.GetCustomerByID(ctx, id)
	if err != nil {
		return domain.Customer{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Customer{}, fmt.Errorf("%w: customer name must not be empty", store.ErrInvalidInput)
		}
		updated.Name = name
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		if phone == "" {
			return domain.Customer{}, fmt.Errorf("%w: customer phone must not be empty", store.ErrInvalidInput)
		}
		updated.Phone = phone
	}
	if req.Email != nil {
		updated.Email = strings.TrimSpace(*req.Email)
	}
	if req.Address != nil {
		updated.Address = strings.TrimSpace(*req.Address)
	}

	saved, err := s.repo.UpdateCustomer(ctx, updated)
	if err != nil {
		return domain.Customer{}, err
	}
	return *saved, nil
}

// DeleteCustomer removes the customer record only. Orders referencing
// the customer keep their customer_id; the reference simply dangles.
func (s *Service) DeleteCustomer(ctx context.Context, id string) error {
	if err := requireOwner(ctx); err != nil {
		return err
	}

	orders, err := s.repo.ListOrdersByCustomer(ctx, id)
	if err == nil && len(orders) > 0 {
		log.Printf("[service] WARN: deleting customer %s with %d existing orders; orders are kept", id, len(orders))
	}
	return s.repo.DeleteCustomer(ctx, id)
}

func (s *Service) ListItems(ctx context.Context, itemType string) ([]domain.Item, error) {
	itemType = strings.TrimSpace(itemType)
	if itemType != "" {
		return s.repo.ListItemsByType(ctx, itemType)
	}
	return s.repo.ListItems(ctx)
}

func (s *Service) GetItem(ctx context.Context, id string) (domain.Item, error) {
	item, err := s.repo.GetItemByID(ctx, id)
	if err != nil {
		return domain.Item{}, err
	}
	return *item, nil
}

func (s *Service) CreateItem(ctx context.Context, req domain.ItemCreateRequest) (domain.Item, error) {
	if err := requireOwner(ctx); err != nil {
		return domain.Item{}, err
	}

	item := domain.Item{
		ID:            xid.New("item"),
		Name:          strings.TrimSpace(req.Name),
		Type:          strings.ToLower(strings.TrimSpace(req.Type)),
		Price:         req.Price,
		PriceEditable: req.PriceEditable,
		Description:   strings.TrimSpace(req.Description),
		CreatedAt:     time.Now().UTC(),
	}
	if item.PriceEditable {
		// Price-editable goods have no catalog price.
		item.Price = 0
	}

	created, err := s.repo.CreateItem(ctx, item)
	if err != nil {
		return domain.Item{}, err
	}
	return *created, nil
}

func (s *Service) UpdateItem(ctx context.Context, id string, req domain.ItemUpdateRequest) (domain.Item, error) {
	if err := requireOwner(ctx); err != nil {
		return domain.Item{}, err
	}

	existing, err := s.repo.GetItemByID(ctx, id)
	if err != nil {
		return domain.Item{}, err
	}

	updated := *existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Item{}, fmt.Errorf("%w: item name must not be empty", store.ErrInvalidInput)
		}
		updated.Name = name
	}
	if req.Type != nil {
		updated.Type = strings.ToLower(strings.TrimSpace(*req.Type))
	}
	if req.Price != nil {
		updated.Price = *req.Price
	}
	if req.PriceEditable != nil {
		updated.PriceEditable = *req.PriceEditable
	}
	if req.Description != nil {
		updated.Description = strings.TrimSpace(*req.Description)
	}

	saved, err := s.repo.UpdateItem(ctx, updated)
	if err != nil {
		return domain.Item{}, err
	}
	return *saved, nil
}

func (s *Service) DeleteItem(ctx context.Context, id string) error {
	if err := requireOwner(ctx); err != nil {
		return err
	}
	return s.repo.DeleteItem(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context, query string) ([]domain.Order, error) {
	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return orders, nil
	}

	customerNames := make(map[string]string, 16)
	if customers, err := s.repo.ListCustomers(ctx); err != nil {
		log.Printf("[service] WARN: customer lookup for order search failed: %v", err)
	} else {
		for _, c := range customers {
			customerNames[c.ID] = strings.ToLower(c.Name)
		}
	}

	filtered := make([]domain.Order, 0, len(orders))
	for _, order := range orders {
		if strings.Contains(strings.ToLower(order.OrderNumber), q) ||
			strings.Contains(strings.ToLower(order.ID), q) ||
			strings.Contains(customerNames[order.CustomerID], q) {
			filtered = append(filtered, order)
		}
	}
	return filtered, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	order, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	return *order, nil
}

func (s *Service) ListOrdersByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	return s.repo.ListOrdersByCustomer(ctx, customerID)
}

// SubmitOrder assembles and stores an order from UI selections, then
// derives the matching income transaction. Validation runs before any
// mutation except inline new-customer creation, which the original flow
// performs first and keeps even if the order itself is rejected.
func (s *Service) SubmitOrder(ctx context.Context, req domain.OrderSubmitRequest) (domain.OrderSubmitResponse, error) {
	customer, err := s.resolveCustomer(ctx, req)
	if err != nil {
		return domain.OrderSubmitResponse{}, err
	}

	if len(req.Items) == 0 {
		return domain.OrderSubmitResponse{}, fmt.Errorf("%w: order has no items", store.ErrInvalidInput)
	}

	lines := make([]domain.OrderLine, 0, len(req.Items))
	total := int64(0)
	for _, pick := range req.Items {
		if pick.Quantity <= 0 {
			return domain.OrderSubmitResponse{}, fmt.Errorf("%w: quantity must be positive", store.ErrInvalidInput)
		}

		item, err := s.repo.GetItemByID(ctx, pick.ItemID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return domain.OrderSubmitResponse{}, fmt.Errorf("%w: unknown item %s", store.ErrInvalidInput, pick.ItemID)
			}
			return domain.OrderSubmitResponse{}, err
		}
		if !item.IsService() {
			return domain.OrderSubmitResponse{}, fmt.Errorf("%w: item %s is not an orderable service", store.ErrInvalidInput, item.Name)
		}
		if item.Type == domain.ItemTypeSatuan && pick.Quantity != math.Trunc(pick.Quantity) {
			return domain.OrderSubmitResponse{}, fmt.Errorf("%w: per-unit service requires a whole quantity", store.ErrInvalidInput)
		}

		line := domain.OrderLine{
			ItemID:   item.ID,
			Name:     item.Name,
			Type:     item.Type,
			Price:    item.Price,
			Quantity: pick.Quantity,
		}
		lines = append(lines, line)
		total += line.Subtotal()
	}

	now := time.Now().UTC()
	orderID := xid.New("ord")
	order := domain.Order{
		ID:          orderID,
		OrderNumber: domain.BuildOrderNumber(orderID, now),
		CustomerID:  customer.ID,
		Items:       lines,
		TotalPrice:  total,
		Notes:       strings.TrimSpace(req.Notes),
		Status:      domain.OrderStatusPending,
		CreatedAt:   now,
	}

	created, err := s.repo.CreateOrder(ctx, order)
	if err != nil {
		return domain.OrderSubmitResponse{}, err
	}

	// Best effort: a failed income record never rolls the order back.
	tx := s.syncOrderIncome(ctx, *created, customer.Name)

	return domain.OrderSubmitResponse{Order: *created, Transaction: tx}, nil
}

func (s *Service) resolveCustomer(ctx context.Context, req domain.OrderSubmitRequest) (domain.Customer, error) {
	if req.NewCustomer != nil {
		customer, err := s.CreateCustomer(ctx, *req.NewCustomer)
		if err != nil {
			return domain.Customer{}, fmt.Errorf("%w: missing customer", store.ErrInvalidInput)
		}
		return customer, nil
	}

	if strings.TrimSpace(req.CustomerID) == "" {
		return domain.Customer{}, fmt.Errorf("%w: missing customer", store.ErrInvalidInput)
	}
	customer, err := s.repo.GetCustomerByID(ctx, req.CustomerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Customer{}, fmt.Errorf("%w: missing customer", store.ErrInvalidInput)
		}
		return domain.Customer{}, err
	}
	return *customer, nil
}

// syncOrderIncome keeps the "one order, one income transaction"
// invariant. There is no dedup key: callers invoke it at most once per
// order.
func (s *Service) syncOrderIncome(ctx context.Context, order domain.Order, customerName string) *domain.Transaction {
	tx, err := s.repo.CreateTransaction(ctx, domain.Transaction{
		ID:          xid.New("tx"),
		Type:        domain.TxTypeIncome,
		Amount:      order.TotalPrice,
		Description: fmt.Sprintf("Order from %s", customerName),
		OrderID:     order.ID,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		log.Printf("[service] WARN: failed to record income for order %s: %v", order.ID, err)
		return nil
	}
	return tx
}

func (s *Service) UpdateOrderStatus(ctx context.Context, id string, status string) (domain.Order, error) {
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case domain.OrderStatusPending, domain.OrderStatusActive, domain.OrderStatusCompleted:
	default:
		return domain.Order{}, fmt.Errorf("%w: unknown order status %q", store.ErrInvalidInput, status)
	}

	updated, err := s.repo.UpdateOrderStatus(ctx, id, status)
	if err != nil {
		return domain.Order{}, err
	}
	return *updated, nil
}

func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	if err := requireOwner(ctx); err != nil {
		return err
	}
	return s.repo.DeleteOrder(ctx, id)
}

func (s *Service) ListTransactions(ctx context.Context, txType string) ([]domain.Transaction, error) {
	txType = strings.TrimSpace(txType)
	if txType != "" {
		return s.repo.ListTransactionsByType(ctx, txType)
	}
	return s.repo.ListTransactions(ctx)
}

func (s *Service) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	tx, err := s.repo.GetTransactionByID(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	return *tx, nil
}

// RecordTransaction stores a manual income or an itemized expense.
// Expenses always go through a catalog item: a price-editable item
// takes the supplied amount, a fixed-price item derives the amount from
// price x quantity.
func (s *Service) RecordTransaction(ctx context.Context, req domain.TransactionCreateRequest) (domain.Transaction, error) {
	switch req.Type {
	case domain.TxTypeIncome:
		return s.recordIncome(ctx, req)
	case domain.TxTypeExpense:
		return s.recordExpense(ctx, req)
	default:
		return domain.Transaction{}, fmt.Errorf("%w: unknown transaction type %q", store.ErrInvalidInput, req.Type)
	}
}

func (s *Service) recordIncome(ctx context.Context, req domain.TransactionCreateRequest) (domain.Transaction, error) {
	description := strings.TrimSpace(req.Description)
	if req.Amount < 1 || description == "" {
		return domain.Transaction{}, fmt.Errorf("%w: income requires a positive amount and a description", store.ErrInvalidInput)
	}

	created, err := s.repo.CreateTransaction(ctx, domain.Transaction{
		ID:          xid.New("tx"),
		Type:        domain.TxTypeIncome,
		Amount:      req.Amount,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	return *created, nil
}

func (s *Service) recordExpense(ctx context.Context, req domain.TransactionCreateRequest) (domain.Transaction, error) {
	if strings.TrimSpace(req.ItemID) == "" {
		return domain.Transaction{}, fmt.Errorf("%w: expense requires an item", store.ErrInvalidInput)
	}

	item, err := s.repo.GetItemByID(ctx, req.ItemID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Transaction{}, fmt.Errorf("%w: unknown item %s", store.ErrInvalidInput, req.ItemID)
		}
		return domain.Transaction{}, err
	}
	if !item.IsExpenseGood() {
		return domain.Transaction{}, fmt.Errorf("%w: item %s is a service, not an expense good", store.ErrInvalidInput, item.Name)
	}

	var amount int64
	var description string
	if item.PriceEditable {
		if req.Amount < 1 {
			return domain.Transaction{}, fmt.Errorf("%w: item %s requires an amount", store.ErrInvalidInput, item.Name)
		}
		amount = req.Amount
		description = fmt.Sprintf("%s (custom amount)", item.Name)
	} else {
		if req.Quantity <= 0 {
			return domain.Transaction{}, fmt.Errorf("%w: item %s requires a quantity", store.ErrInvalidInput, item.Name)
		}
		amount = int64(math.Round(float64(item.Price) * req.Quantity))
		description = fmt.Sprintf("%s (%gx @ %s)", item.Name, req.Quantity, formatRupiah(item.Price))
	}

	created, err := s.repo.CreateTransaction(ctx, domain.Transaction{
		ID:          xid.New("tx"),
		Type:        domain.TxTypeExpense,
		Amount:      amount,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return domain.Transaction{}, err
	}
	return *created, nil
}

func (s *Service) DeleteTransaction(ctx context.Context, id string) error {
	if err := requireOwner(ctx); err != nil {
		return err
	}
	return s.repo.DeleteTransaction(ctx, id)
}

func (s *Service) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	snapshot, err := s.reportSnapshot(ctx)
	if err != nil {
		return domain.DashboardStats{}, err
	}
	return snapshot.Dashboard, nil
}

func (s *Service) FinanceSummary(ctx context.Context) (domain.FinanceSummary, error) {
	snapshot, err := s.reportSnapshot(ctx)
	if err != nil {
		return domain.FinanceSummary{}, err
	}
	return snapshot.Finance, nil
}

func (s *Service) reportSnapshot(ctx context.Context) (cache.ReportSnapshot, error) {
	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		return cache.ReportSnapshot{}, err
	}
	transactions, err := s.repo.ListTransactions(ctx)
	if err != nil {
		return cache.ReportSnapshot{}, err
	}
	return s.reports.Snapshot(ctx, orders, transactions), nil
}

func requireOwner(ctx context.Context) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "owner" {
		return fmt.Errorf("owner role required")
	}
	return nil
}
