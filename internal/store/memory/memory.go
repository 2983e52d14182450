package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"laundrydesk/backend/internal/domain"
	"laundrydesk/backend/internal/store"
	"laundrydesk/backend/internal/xid"
)

type Store struct {
	mu               sync.RWMutex
	customersByID    map[string]domain.Customer
	itemsByID        map[string]domain.Item
	ordersByID       map[string]domain.Order
	transactionsByID map[string]domain.Transaction
	usersByUsername  map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_OWNER_PASSWORD and SEED_STAFF_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	ownerPwd := envOr("SEED_OWNER_PASSWORD", "owner123")
	staffPwd := envOr("SEED_STAFF_PASSWORD", "staff123")
	if os.Getenv("SEED_OWNER_PASSWORD") == "" || os.Getenv("SEED_STAFF_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_OWNER_PASSWORD and SEED_STAFF_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"owner", ownerPwd, "owner"},
		{"staff", staffPwd, "staff"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func New() *Store {
	return &Store{
		customersByID:    make(map[string]domain.Customer),
		itemsByID:        make(map[string]domain.Item),
		ordersByID:       make(map[string]domain.Order),
		transactionsByID: make(map[string]domain.Transaction),
		usersByUsername:  seedUsers(),
	}
}

// NewSeeded returns a store preloaded with a small laundry catalog and
// a couple of customers, matching what a fresh demo deployment shows.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	for _, c := range []domain.Customer{
		{ID: xid.New("cus"), Name: "John Doe", Phone: "08123456789", Email: "john@example.com", Address: "123 Main St", CreatedAt: now},
		{ID: xid.New("cus"), Name: "Jane Smith", Phone: "08987654321", Email: "jane@example.com", Address: "456 Oak Ave", CreatedAt: now},
	} {
		s.customersByID[c.ID] = c
	}

	for _, it := range []domain.Item{
		{ID: xid.New("item"), Name: "Regular Wash", Type: domain.ItemTypeSatuan, Price: 15000, Description: "Regular washing service", CreatedAt: now},
		{ID: xid.New("item"), Name: "Kiloan Wash", Type: domain.ItemTypeKiloan, Price: 5000, Description: "Washing per kilogram", CreatedAt: now},
		{ID: xid.New("item"), Name: "Sabun", Type: domain.ItemTypeProduct, PriceEditable: true, Description: "Laundry soap / detergent", CreatedAt: now},
		{ID: xid.New("item"), Name: "Electrical Token", Type: domain.ItemTypeProduct, PriceEditable: true, Description: "Prepaid electricity token (enter custom amount)", CreatedAt: now},
	} {
		s.itemsByID[it.ID] = it
	}

	return s
}

func (s *Store) ListCustomers(_ context.Context) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customers := make([]domain.Customer, 0, len(s.customersByID))
	for _, c := range s.customersByID {
		customers = append(customers, c)
	}
	sortByCreated(customers, func(c domain.Customer) (time.Time, string) { return c.CreatedAt, c.ID })
	return customers, nil
}

func (s *Store) GetCustomerByID(_ context.Context, id string) (*domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	customer, exists := s.customersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := customer
	return &found, nil
}

func (s *Store) CreateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" || strings.TrimSpace(customer.Phone) == "" {
		return nil, store.ErrInvalidInput
	}
	if customer.ID == "" {
		customer.ID = xid.New("cus")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.customersByID[customer.ID] = customer
	created := customer
	return &created, nil
}

func (s *Store) UpdateCustomer(_ context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" || strings.TrimSpace(customer.Phone) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.customersByID[customer.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	customer.CreatedAt = existing.CreatedAt
	s.customersByID[customer.ID] = customer
	updated := customer
	return &updated, nil
}

func (s *Store) DeleteCustomer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customersByID[id]; !exists {
		log.Printf("[memory-store] WARN: delete of missing customer %s ignored", id)
		return nil
	}
	delete(s.customersByID, id)
	return nil
}

func (s *Store) SearchCustomers(_ context.Context, query string) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	result := make([]domain.Customer, 0, 16)
	for _, c := range s.customersByID {
		if q == "" || customerMatches(c, q) {
			result = append(result, c)
		}
	}
	sortByCreated(result, func(c domain.Customer) (time.Time, string) { return c.CreatedAt, c.ID })
	return result, nil
}

func customerMatches(c domain.Customer, q string) bool {
	return strings.Contains(strings.ToLower(c.Name), q) ||
		strings.Contains(strings.ToLower(c.Phone), q) ||
		strings.Contains(strings.ToLower(c.Email), q) ||
		strings.Contains(strings.ToLower(c.Address), q)
}

func (s *Store) ListItems(_ context.Context) ([]domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.Item, 0, len(s.itemsByID))
	for _, it := range s.itemsByID {
		items = append(items, it)
	}
	sortByCreated(items, func(it domain.Item) (time.Time, string) { return it.CreatedAt, it.ID })
	return items, nil
}

func (s *Store) GetItemByID(_ context.Context, id string) (*domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.itemsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := item
	return &found, nil
}

func (s *Store) CreateItem(_ context.Context, item domain.Item) (*domain.Item, error) {
	if err := validateItem(item); err != nil {
		return nil, err
	}
	if item.ID == "" {
		item.ID = xid.New("item")
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.itemsByID[item.ID] = item
	created := item
	return &created, nil
}

func (s *Store) UpdateItem(_ context.Context, item domain.Item) (*domain.Item, error) {
	if err := validateItem(item); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.itemsByID[item.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	item.CreatedAt = existing.CreatedAt
	s.itemsByID[item.ID] = item
	updated := item
	return &updated, nil
}

func (s *Store) DeleteItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.itemsByID[id]; !exists {
		log.Printf("[memory-store] WARN: delete of missing item %s ignored", id)
		return nil
	}
	delete(s.itemsByID, id)
	return nil
}

func (s *Store) ListItemsByType(_ context.Context, itemType string) ([]domain.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]domain.Item, 0, 16)
	for _, it := range s.itemsByID {
		if it.Type == itemType {
			items = append(items, it)
		}
	}
	sortByCreated(items, func(it domain.Item) (time.Time, string) { return it.CreatedAt, it.ID })
	return items, nil
}

func validateItem(item domain.Item) error {
	if strings.TrimSpace(item.Name) == "" || item.Price < 0 {
		return store.ErrInvalidInput
	}
	switch item.Type {
	case domain.ItemTypeSatuan, domain.ItemTypeKiloan:
		// Services must have a fixed positive price.
		if item.PriceEditable || item.Price < 1 {
			return store.ErrInvalidInput
		}
	case domain.ItemTypeProduct:
	default:
		return store.ErrInvalidInput
	}
	return nil
}

func (s *Store) ListOrders(_ context.Context) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]domain.Order, 0, len(s.ordersByID))
	for _, o := range s.ordersByID {
		orders = append(orders, cloneOrder(o))
	}
	sortByCreated(orders, func(o domain.Order) (time.Time, string) { return o.CreatedAt, o.ID })
	return orders, nil
}

func (s *Store) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order, exists := s.ordersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := cloneOrder(order)
	return &found, nil
}

func (s *Store) CreateOrder(_ context.Context, order domain.Order) (*domain.Order, error) {
	if len(order.Items) == 0 {
		return nil, store.ErrInvalidInput
	}
	if order.ID == "" {
		order.ID = xid.New("ord")
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	if order.Status == "" {
		order.Status = domain.OrderStatusPending
	}
	if order.OrderNumber == "" {
		order.OrderNumber = domain.BuildOrderNumber(order.ID, order.CreatedAt)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.ordersByID[order.ID] = cloneOrder(order)
	created := cloneOrder(order)
	return &created, nil
}

func (s *Store) UpdateOrderStatus(_ context.Context, id string, status string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, exists := s.ordersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	order.Status = status
	s.ordersByID[id] = order
	updated := cloneOrder(order)
	return &updated, nil
}

func (s *Store) DeleteOrder(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ordersByID[id]; !exists {
		log.Printf("[memory-store] WARN: delete of missing order %s ignored", id)
		return nil
	}
	delete(s.ordersByID, id)
	return nil
}

func (s *Store) ListOrdersByCustomer(_ context.Context, customerID string) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders := make([]domain.Order, 0, 8)
	for _, o := range s.ordersByID {
		if o.CustomerID == customerID {
			orders = append(orders, cloneOrder(o))
		}
	}
	sortByCreated(orders, func(o domain.Order) (time.Time, string) { return o.CreatedAt, o.ID })
	return orders, nil
}

func (s *Store) ListTransactions(_ context.Context) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	transactions := make([]domain.Transaction, 0, len(s.transactionsByID))
	for _, tx := range s.transactionsByID {
		transactions = append(transactions, tx)
	}
	sortByCreated(transactions, func(tx domain.Transaction) (time.Time, string) { return tx.CreatedAt, tx.ID })
	return transactions, nil
}

func (s *Store) GetTransactionByID(_ context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, exists := s.transactionsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	found := tx
	return &found, nil
}

func (s *Store) CreateTransaction(_ context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if tx.Amount < 1 || (tx.Type != domain.TxTypeIncome && tx.Type != domain.TxTypeExpense) {
		return nil, store.ErrInvalidInput
	}
	if tx.ID == "" {
		tx.ID = xid.New("tx")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.transactionsByID[tx.ID] = tx
	created := tx
	return &created, nil
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactionsByID[id]; !exists {
		log.Printf("[memory-store] WARN: delete of missing transaction %s ignored", id)
		return nil
	}
	delete(s.transactionsByID, id)
	return nil
}

func (s *Store) ListTransactionsByType(_ context.Context, txType string) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	transactions := make([]domain.Transaction, 0, 16)
	for _, tx := range s.transactionsByID {
		if tx.Type == txType {
			transactions = append(transactions, tx)
		}
	}
	sortByCreated(transactions, func(tx domain.Transaction) (time.Time, string) { return tx.CreatedAt, tx.ID })
	return transactions, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidInput
	}
	user.Username = username
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cloneOrder(o domain.Order) domain.Order {
	copied := o
	copied.Items = slices.Clone(o.Items)
	return copied
}

// sortByCreated orders records oldest first, breaking timestamp ties by
// id so repeated calls always return the same sequence.
func sortByCreated[T any](records []T, key func(T) (time.Time, string)) {
	slices.SortFunc(records, func(a, b T) int {
		at, aid := key(a)
		bt, bid := key(b)
		if at.Equal(bt) {
			return strings.Compare(aid, bid)
		}
		if at.Before(bt) {
			return -1
		}
		return 1
	})
}
