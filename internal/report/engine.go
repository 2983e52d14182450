package report

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"laundrydesk/backend/internal/cache"
	"laundrydesk/backend/internal/domain"
)

// Engine computes the dashboard and finance views. The computations are
// pure functions over repository snapshots; the cache is a short-TTL
// render cache keyed by a fingerprint of the input collections, so any
// mutation produces a fresh key and staleness is bounded by the TTL.
type Engine struct {
	cache    cache.ReportCache
	cacheTTL time.Duration
	loc      *time.Location
}

func NewEngine(cacheStore cache.ReportCache, cacheTTL time.Duration, loc *time.Location) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopReportCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Second
	}
	if loc == nil {
		loc = time.Local
	}

	return &Engine{
		cache:    cacheStore,
		cacheTTL: cacheTTL,
		loc:      loc,
	}
}

func (e *Engine) Snapshot(ctx context.Context, orders []domain.Order, transactions []domain.Transaction) cache.ReportSnapshot {
	now := time.Now().In(e.loc)
	key := buildCacheKey(orders, transactions, now)
	if cached, ok, err := e.cache.Get(ctx, key); err == nil && ok {
		return *cached
	}

	snapshot := cache.ReportSnapshot{
		Dashboard: DashboardStats(orders, now),
		Finance:   FinanceSummary(transactions, orders, now),
	}
	_ = e.cache.Set(ctx, key, &snapshot, e.cacheTTL)
	return snapshot
}

// DashboardStats derives the landing-page counters from the order
// collection. Day and month boundaries are calendar boundaries in now's
// location.
func DashboardStats(orders []domain.Order, now time.Time) domain.DashboardStats {
	stats := domain.DashboardStats{}

	for _, order := range orders {
		if order.Status == domain.OrderStatusActive {
			stats.ActiveOrdersCount++
		}

		createdAt := order.CreatedAt.In(now.Location())
		inMonth := createdAt.Year() == now.Year() && createdAt.Month() == now.Month()
		inDay := inMonth && createdAt.Day() == now.Day()

		if !inMonth {
			continue
		}

		revenue := int64(0)
		for _, line := range order.Items {
			revenue += line.Subtotal()
			if inDay && line.Type == domain.ItemTypeKiloan {
				stats.TotalKilos += line.Quantity
			}
		}
		stats.MonthRevenue += revenue
		if inDay {
			stats.TodayRevenue += revenue
		}
	}

	return stats
}

// FinanceSummary rolls the transaction and order collections into the
// finance page totals and the 7-day income/expense series. Orders
// contribute to OrdersRevenue separately from TotalIncome: the income
// transaction derived from an order may lag or be missing, so the two
// figures are reported side by side rather than merged.
func FinanceSummary(transactions []domain.Transaction, orders []domain.Order, now time.Time) domain.FinanceSummary {
	summary := domain.FinanceSummary{
		Last7Days: make([]domain.DailyFlow, 7),
	}

	dayIndex := make(map[string]int, 7)
	for i := 0; i < 7; i++ {
		day := now.AddDate(0, 0, i-6)
		date := day.Format("2006-01-02")
		summary.Last7Days[i] = domain.DailyFlow{Date: date}
		dayIndex[date] = i
	}

	for _, tx := range transactions {
		switch tx.Type {
		case domain.TxTypeIncome:
			summary.TotalIncome += tx.Amount
		case domain.TxTypeExpense:
			summary.TotalExpense += tx.Amount
		default:
			continue
		}

		if i, ok := dayIndex[tx.CreatedAt.In(now.Location()).Format("2006-01-02")]; ok {
			if tx.Type == domain.TxTypeIncome {
				summary.Last7Days[i].Income += tx.Amount
			} else {
				summary.Last7Days[i].Expense += tx.Amount
			}
		}
	}

	today := now.Format("2006-01-02")
	for _, order := range orders {
		revenue := int64(0)
		for _, line := range order.Items {
			revenue += line.Subtotal()
		}
		summary.OrdersRevenue += revenue

		// Today's order revenue shows in the series even before its
		// derived income transaction lands.
		if order.CreatedAt.In(now.Location()).Format("2006-01-02") == today {
			summary.Last7Days[dayIndex[today]].Income += revenue
		}
	}

	summary.Balance = summary.TotalIncome - summary.TotalExpense
	return summary
}

func buildCacheKey(orders []domain.Order, transactions []domain.Transaction, now time.Time) string {
	parts := make([]string, 0, len(orders)+len(transactions)+1)
	parts = append(parts, now.Format("2006-01-02"))
	for _, order := range orders {
		parts = append(parts, fmt.Sprintf("o:%s:%s", order.ID, order.Status))
	}
	for _, tx := range transactions {
		parts = append(parts, "t:"+tx.ID)
	}

	hash := sha1.Sum([]byte(strings.Join(parts, "|")))
	return "laundry:report:" + hex.EncodeToString(hash[:])
}
