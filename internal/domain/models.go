package domain

import (
	"fmt"
	"math"
	"time"
)

type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type CustomerCreateRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

type CustomerUpdateRequest struct {
	Name    *string `json:"name,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Email   *string `json:"email,omitempty"`
	Address *string `json:"address,omitempty"`
}

// Item is a catalog entry. Services (satuan/kiloan) carry a fixed
// positive price. Expense goods (type product, or price_editable) have
// their effective price supplied when the expense is recorded.
type Item struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Type          string    `json:"type"`
	Price         int64     `json:"price"`
	PriceEditable bool      `json:"price_editable"`
	Description   string    `json:"description,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// IsService reports whether the item can appear on an order.
func (i Item) IsService() bool {
	return i.Type == ItemTypeSatuan || i.Type == ItemTypeKiloan
}

// IsExpenseGood reports whether the item can back an expense transaction.
func (i Item) IsExpenseGood() bool {
	return i.Type == ItemTypeProduct || i.PriceEditable
}

type ItemCreateRequest struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	Price         int64  `json:"price"`
	PriceEditable bool   `json:"price_editable"`
	Description   string `json:"description"`
}

type ItemUpdateRequest struct {
	Name          *string `json:"name,omitempty"`
	Type          *string `json:"type,omitempty"`
	Price         *int64  `json:"price,omitempty"`
	PriceEditable *bool   `json:"price_editable,omitempty"`
	Description   *string `json:"description,omitempty"`
}

// OrderLine is a snapshot of a catalog item at the moment it was added
// to an order. Later catalog edits never alter historical orders.
type OrderLine struct {
	ItemID   string  `json:"item_id"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Price    int64   `json:"price"`
	Quantity float64 `json:"quantity"`
}

// Subtotal is the line amount in whole rupiah. Kiloan quantities are
// fractional, so the product is rounded to the nearest rupiah.
func (l OrderLine) Subtotal() int64 {
	return int64(math.Round(float64(l.Price) * l.Quantity))
}

type Order struct {
	ID          string      `json:"id"`
	OrderNumber string      `json:"order_number"`
	CustomerID  string      `json:"customer_id"`
	Items       []OrderLine `json:"items"`
	TotalPrice  int64       `json:"total_price"`
	Notes       string      `json:"notes,omitempty"`
	Status      string      `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
}

// BuildOrderNumber derives the immutable human-facing order number,
// ORD-YYYYMMDD-<last 6 characters of the id>.
func BuildOrderNumber(id string, createdAt time.Time) string {
	tail := id
	if len(tail) > 6 {
		tail = tail[len(tail)-6:]
	}
	return fmt.Sprintf("ORD-%s-%s", createdAt.Format("20060102"), tail)
}

// OrderLinePick is one (item, quantity) selection in a submit request.
type OrderLinePick struct {
	ItemID   string  `json:"item_id"`
	Quantity float64 `json:"quantity"`
}

// OrderSubmitRequest carries either an existing customer id or an
// inline new-customer payload (name and phone required).
type OrderSubmitRequest struct {
	CustomerID  string                 `json:"customer_id,omitempty"`
	NewCustomer *CustomerCreateRequest `json:"new_customer,omitempty"`
	Items       []OrderLinePick        `json:"items"`
	Notes       string                 `json:"notes"`
}

type OrderSubmitResponse struct {
	Order       Order        `json:"order"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

type OrderStatusRequest struct {
	Status string `json:"status"`
}

type Transaction struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	OrderID     string    `json:"order_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// TransactionCreateRequest records an income or an itemized expense.
// For expenses the item determines the amount: fixed-price items use
// price x quantity, price-editable items take the supplied amount.
type TransactionCreateRequest struct {
	Type        string  `json:"type"`
	Amount      int64   `json:"amount"`
	Description string  `json:"description"`
	ItemID      string  `json:"item_id,omitempty"`
	Quantity    float64 `json:"quantity,omitempty"`
}

type DashboardStats struct {
	ActiveOrdersCount int     `json:"active_orders_count"`
	TodayRevenue      int64   `json:"today_revenue"`
	MonthRevenue      int64   `json:"month_revenue"`
	TotalKilos        float64 `json:"total_kilos"`
}

type DailyFlow struct {
	Date    string `json:"date"`
	Income  int64  `json:"income"`
	Expense int64  `json:"expense"`
}

type FinanceSummary struct {
	TotalIncome   int64       `json:"total_income"`
	TotalExpense  int64       `json:"total_expense"`
	OrdersRevenue int64       `json:"orders_revenue"`
	Balance       int64       `json:"balance"`
	Last7Days     []DailyFlow `json:"last_7_days"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

type StaffCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type StaffUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	ItemTypeSatuan  = "satuan"
	ItemTypeKiloan  = "kiloan"
	ItemTypeProduct = "product"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusActive    = "active"
	OrderStatusCompleted = "completed"
)

const (
	TxTypeIncome  = "income"
	TxTypeExpense = "expense"
)
