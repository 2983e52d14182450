package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"laundrydesk/backend/internal/domain"
	"laundrydesk/backend/internal/store"
	"laundrydesk/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	return s.queryCustomers(ctx, `
		SELECT id, name, phone, email, address, created_at
		FROM customers
		ORDER BY created_at, id
	`)
}

func (s *Store) GetCustomerByID(ctx context.Context, id string) (*domain.Customer, error) {
	var c domain.Customer
	var email, address sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, phone, email, address, created_at
		FROM customers
		WHERE id = $1
	`, id).Scan(&c.ID, &c.Name, &c.Phone, &email, &address, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	c.Email = email.String
	c.Address = address.String
	c.CreatedAt = c.CreatedAt.UTC()
	return &c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" || strings.TrimSpace(customer.Phone) == "" {
		return nil, store.ErrInvalidInput
	}
	if customer.ID == "" {
		customer.ID = xid.New("cus")
	}
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (id, name, phone, email, address, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, customer.ID, customer.Name, customer.Phone, nullIfEmpty(customer.Email), nullIfEmpty(customer.Address), customer.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}

	created := customer
	return &created, nil
}

func (s *Store) UpdateCustomer(ctx context.Context, customer domain.Customer) (*domain.Customer, error) {
	if strings.TrimSpace(customer.Name) == "" || strings.TrimSpace(customer.Phone) == "" {
		return nil, store.ErrInvalidInput
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET name = $2, phone = $3, email = $4, address = $5
		WHERE id = $1
	`, customer.ID, customer.Name, customer.Phone, nullIfEmpty(customer.Email), nullIfEmpty(customer.Address))
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	return s.GetCustomerByID(ctx, customer.ID)
}

func (s *Store) DeleteCustomer(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		log.Printf("[pg-store] WARN: delete of missing customer %s ignored", id)
	}
	return nil
}

func (s *Store) SearchCustomers(ctx context.Context, query string) ([]domain.Customer, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return s.ListCustomers(ctx)
	}
	pattern := "%" + strings.ToLower(q) + "%"
	return s.queryCustomers(ctx, `
		SELECT id, name, phone, email, address, created_at
		FROM customers
		WHERE lower(name) LIKE $1
		   OR lower(phone) LIKE $1
		   OR lower(coalesce(email, '')) LIKE $1
		   OR lower(coalesce(address, '')) LIKE $1
		ORDER BY created_at, id
	`, pattern)
}

func (s *Store) queryCustomers(ctx context.Context, query string, args ...any) ([]domain.Customer, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := make([]domain.Customer, 0, 64)
	for rows.Next() {
		var c domain.Customer
		var email, address sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &c.Phone, &email, &address, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Email = email.String
		c.Address = address.String
		c.CreatedAt = c.CreatedAt.UTC()
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return customers, nil
}

func (s *Store) ListItems(ctx context.Context) ([]domain.Item, error) {
	return s.queryItems(ctx, `
		SELECT id, name, type, price, price_editable, description, created_at
		FROM items
		ORDER BY created_at, id
	`)
}

func (s *Store) GetItemByID(ctx context.Context, id string) (*domain.Item, error) {
	var item domain.Item
	var description sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, type, price, price_editable, description, created_at
		FROM items
		WHERE id = $1
	`, id).Scan(&item.ID, &item.Name, &item.Type, &item.Price, &item.PriceEditable, &description, &item.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	item.Description = description.String
	item.CreatedAt = item.CreatedAt.UTC()
	return &item, nil
}

func (s *Store) CreateItem(ctx context.Context, item domain.Item) (*domain.Item, error) {
	if err := validateItem(item); err != nil {
		return nil, err
	}
	if item.ID == "" {
		item.ID = xid.New("item")
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, name, type, price, price_editable, description, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, item.ID, item.Name, item.Type, item.Price, item.PriceEditable, nullIfEmpty(item.Description), item.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}

	created := item
	return &created, nil
}

func (s *Store) UpdateItem(ctx context.Context, item domain.Item) (*domain.Item, error) {
	if err := validateItem(item); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE items
		SET name = $2, type = $3, price = $4, price_editable = $5, description = $6
		WHERE id = $1
	`, item.ID, item.Name, item.Type, item.Price, item.PriceEditable, nullIfEmpty(item.Description))
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	return s.GetItemByID(ctx, item.ID)
}

func (s *Store) DeleteItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		log.Printf("[pg-store] WARN: delete of missing item %s ignored", id)
	}
	return nil
}

func (s *Store) ListItemsByType(ctx context.Context, itemType string) ([]domain.Item, error) {
	return s.queryItems(ctx, `
		SELECT id, name, type, price, price_editable, description, created_at
		FROM items
		WHERE type = $1
		ORDER BY created_at, id
	`, itemType)
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]domain.Item, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.Item, 0, 64)
	for rows.Next() {
		var item domain.Item
		var description sql.NullString
		if err := rows.Scan(&item.ID, &item.Name, &item.Type, &item.Price, &item.PriceEditable, &description, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.Description = description.String
		item.CreatedAt = item.CreatedAt.UTC()
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func validateItem(item domain.Item) error {
	if strings.TrimSpace(item.Name) == "" || item.Price < 0 {
		return store.ErrInvalidInput
	}
	switch item.Type {
	case domain.ItemTypeSatuan, domain.ItemTypeKiloan:
		if item.PriceEditable || item.Price < 1 {
			return store.ErrInvalidInput
		}
	case domain.ItemTypeProduct:
	default:
		return store.ErrInvalidInput
	}
	return nil
}

func (s *Store) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.queryOrders(ctx, `
		SELECT id, order_number, customer_id, total_price, notes, status, created_at
		FROM orders
		ORDER BY created_at, id
	`)
}

func (s *Store) GetOrderByID(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	var notes sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, order_number, customer_id, total_price, notes, status, created_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.OrderNumber, &order.CustomerID, &order.TotalPrice, &notes, &order.Status, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	order.Notes = notes.String
	order.CreatedAt = order.CreatedAt.UTC()

	lines, err := s.orderLines(ctx, []string{order.ID})
	if err != nil {
		return nil, err
	}
	order.Items = lines[order.ID]
	return &order, nil
}

func (s *Store) CreateOrder(ctx context.Context, order domain.Order) (*domain.Order, error) {
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

	pgTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO orders (id, order_number, customer_id, total_price, notes, status, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, order.ID, order.OrderNumber, order.CustomerID, order.TotalPrice, nullIfEmpty(order.Notes), order.Status, order.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}

	for _, line := range order.Items {
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, item_id, name, type, price, quantity)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, order.ID, line.ItemID, line.Name, line.Type, line.Price, line.Quantity)
		if err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	created := order
	return &created, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status string) (*domain.Order, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE orders SET status = $2 WHERE id = $1
	`, id, status)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetOrderByID(ctx, id)
}

func (s *Store) DeleteOrder(ctx context.Context, id string) error {
	pgTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = pgTx.Rollback() }()

	// Lines go first so the parent row never outlives them.
	if _, err := pgTx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
		return err
	}
	res, err := pgTx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		log.Printf("[pg-store] WARN: delete of missing order %s ignored", id)
	}

	return pgTx.Commit()
}

func (s *Store) ListOrdersByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	return s.queryOrders(ctx, `
		SELECT id, order_number, customer_id, total_price, notes, status, created_at
		FROM orders
		WHERE customer_id = $1
		ORDER BY created_at, id
	`, customerID)
}

func (s *Store) queryOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0, 64)
	ids := make([]string, 0, 64)
	for rows.Next() {
		var order domain.Order
		var notes sql.NullString
		if err := rows.Scan(&order.ID, &order.OrderNumber, &order.CustomerID, &order.TotalPrice, &notes, &order.Status, &order.CreatedAt); err != nil {
			return nil, err
		}
		order.Notes = notes.String
		order.CreatedAt = order.CreatedAt.UTC()
		orders = append(orders, order)
		ids = append(ids, order.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lines, err := s.orderLines(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Items = lines[orders[i].ID]
	}
	return orders, nil
}

func (s *Store) orderLines(ctx context.Context, orderIDs []string) (map[string][]domain.OrderLine, error) {
	result := make(map[string][]domain.OrderLine, len(orderIDs))
	if len(orderIDs) == 0 {
		return result, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, item_id, name, type, price, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY id
	`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var orderID string
		var line domain.OrderLine
		if err := rows.Scan(&orderID, &line.ItemID, &line.Name, &line.Type, &line.Price, &line.Quantity); err != nil {
			return nil, err
		}
		result[orderID] = append(result[orderID], line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	return s.queryTransactions(ctx, `
		SELECT id, type, amount, description, order_id, created_at
		FROM transactions
		ORDER BY created_at, id
	`)
}

func (s *Store) GetTransactionByID(ctx context.Context, id string) (*domain.Transaction, error) {
	var tx domain.Transaction
	var orderID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, type, amount, description, order_id, created_at
		FROM transactions
		WHERE id = $1
	`, id).Scan(&tx.ID, &tx.Type, &tx.Amount, &tx.Description, &orderID, &tx.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	tx.OrderID = orderID.String
	tx.CreatedAt = tx.CreatedAt.UTC()
	return &tx, nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx domain.Transaction) (*domain.Transaction, error) {
	if tx.Amount < 1 || (tx.Type != domain.TxTypeIncome && tx.Type != domain.TxTypeExpense) {
		return nil, store.ErrInvalidInput
	}
	if tx.ID == "" {
		tx.ID = xid.New("tx")
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transactions (id, type, amount, description, order_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, tx.ID, tx.Type, tx.Amount, tx.Description, nullIfEmpty(tx.OrderID), tx.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}

	created := tx
	return &created, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		log.Printf("[pg-store] WARN: delete of missing transaction %s ignored", id)
	}
	return nil
}

func (s *Store) ListTransactionsByType(ctx context.Context, txType string) ([]domain.Transaction, error) {
	return s.queryTransactions(ctx, `
		SELECT id, type, amount, description, order_id, created_at
		FROM transactions
		WHERE type = $1
		ORDER BY created_at, id
	`, txType)
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transactions := make([]domain.Transaction, 0, 64)
	for rows.Next() {
		var tx domain.Transaction
		var orderID sql.NullString
		if err := rows.Scan(&tx.ID, &tx.Type, &tx.Amount, &tx.Description, &orderID, &tx.CreatedAt); err != nil {
			return nil, err
		}
		tx.OrderID = orderID.String
		tx.CreatedAt = tx.CreatedAt.UTC()
		transactions = append(transactions, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return transactions, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return store.ErrInvalidInput
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func nullIfEmpty(val string) any {
	if val == "" {
		return nil
	}
	return val
}
