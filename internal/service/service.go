package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"warungpos/backend/internal/cache"
	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/posting"
	"warungpos/backend/internal/store"
	"warungpos/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

const summaryCacheKey = "dashboard:summary"

// expireSoonDays is the remaining-days cutoff below which a batch is flagged
// as expiring soon regardless of the requested window.
const expireSoonDays = 3

type Config struct {
	FallbackCostPercent    int
	LowStockThreshold      int
	CriticalStockThreshold int
	SummaryTTLSeconds      int
}

type Service struct {
	repo                   store.Repository
	summaryCache           cache.SummaryCache
	fallbackCostPercent    int
	lowStockThreshold      int
	criticalStockThreshold int
	summaryTTL             time.Duration
}

func New(repo store.Repository, summaryCache cache.SummaryCache, cfg Config) *Service {
	if summaryCache == nil {
		summaryCache = cache.NoopSummaryCache{}
	}
	if cfg.FallbackCostPercent < 1 || cfg.FallbackCostPercent > 100 {
		cfg.FallbackCostPercent = 70
	}
	if cfg.LowStockThreshold < 1 {
		cfg.LowStockThreshold = 10
	}
	if cfg.CriticalStockThreshold < 1 {
		cfg.CriticalStockThreshold = 5
	}
	if cfg.SummaryTTLSeconds < 1 {
		cfg.SummaryTTLSeconds = 20
	}

	return &Service{
		repo:                   repo,
		summaryCache:           summaryCache,
		fallbackCostPercent:    cfg.FallbackCostPercent,
		lowStockThreshold:      cfg.LowStockThreshold,
		criticalStockThreshold: cfg.CriticalStockThreshold,
		summaryTTL:             time.Duration(cfg.SummaryTTLSeconds) * time.Second,
	}
}

// PostTransaction validates and posts a sale. Validation is fail-fast and
// happens before any state changes; the store applies all effects atomically
// so a rejected cart leaves no trace.
func (s *Service) PostTransaction(ctx context.Context, req domain.SaleRequest) (domain.Receipt, error) {
	req.PaymentType = strings.ToUpper(strings.TrimSpace(req.PaymentType))
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.ClientTransactionID = strings.TrimSpace(req.ClientTransactionID)

	if req.PaymentType != domain.PaymentCash && req.PaymentType != domain.PaymentDebt {
		return domain.Receipt{}, fmt.Errorf("%w: payment_type must be CASH or DEBT", store.ErrInvalidRequest)
	}
	if len(req.Items) == 0 {
		return domain.Receipt{}, fmt.Errorf("%w: items must not be empty", store.ErrInvalidRequest)
	}
	if req.PaymentType == domain.PaymentDebt && req.CustomerName == "" {
		return domain.Receipt{}, fmt.Errorf("%w: customer_name is required for DEBT payment", store.ErrInvalidRequest)
	}
	for _, item := range req.Items {
		if strings.TrimSpace(item.ProductID) == "" {
			return domain.Receipt{}, fmt.Errorf("%w: product_id is required", store.ErrInvalidRequest)
		}
		if item.Qty < 1 {
			return domain.Receipt{}, fmt.Errorf("%w: qty must be greater than 0", store.ErrInvalidRequest)
		}
	}

	// Fast path for retried submissions. The unique constraint inside
	// CreateSale closes the race between this check and the insert.
	if req.ClientTransactionID != "" {
		if _, err := s.repo.FindTransactionByClientID(ctx, req.ClientTransactionID); err == nil {
			return domain.Receipt{}, store.ErrDuplicateSubmission
		} else if !errors.Is(err, store.ErrNotFound) {
			return domain.Receipt{}, err
		}
	}

	posted, err := s.repo.CreateSale(ctx, domain.SaleDraft{
		ID:                  xid.New("trx"),
		PaymentType:         req.PaymentType,
		CustomerName:        req.CustomerName,
		ClientTransactionID: req.ClientTransactionID,
		Items:               req.Items,
		FallbackCostPercent: s.fallbackCostPercent,
		CreatedAt:           time.Now().UTC(),
	})
	if err != nil {
		return domain.Receipt{}, err
	}

	return domain.Receipt{
		Success:             true,
		TransactionID:       posted.Transaction.ID,
		TotalAmount:         posted.Transaction.TotalAmount,
		TotalProfit:         posted.TotalProfit,
		ItemCount:           len(posted.Transaction.Items),
		ClientTransactionID: posted.Transaction.ClientTransactionID,
	}, nil
}

func (s *Service) GetTransaction(ctx context.Context, id string) (domain.Transaction, error) {
	tx, err := s.repo.FindTransactionByID(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	return *tx, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.Product{}, fmt.Errorf("admin role required")
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	req.OwnershipType = strings.ToUpper(strings.TrimSpace(req.OwnershipType))
	req.PartnerID = strings.TrimSpace(req.PartnerID)

	if req.Name == "" || req.SellPrice < 1 || req.Stock < 0 {
		return domain.Product{}, store.ErrInvalidRequest
	}
	if req.OwnershipType == "" {
		req.OwnershipType = domain.OwnershipOwn
	}

	product := domain.Product{
		Name:          req.Name,
		Category:      req.Category,
		SellPrice:     req.SellPrice,
		Stock:         req.Stock,
		OwnershipType: req.OwnershipType,
	}

	var batch *domain.ProductBatch
	switch req.OwnershipType {
	case domain.OwnershipConsignment:
		if req.PartnerID == "" {
			return domain.Product{}, fmt.Errorf("%w: partner_id is required for consignment products", store.ErrInvalidRequest)
		}
		product.PartnerID = req.PartnerID
	case domain.OwnershipOwn:
		buyPrice := posting.FallbackCost(req.SellPrice, s.fallbackCostPercent)
		if req.BuyPrice != nil {
			buyPrice = *req.BuyPrice
		}
		if buyPrice < 1 || buyPrice >= req.SellPrice {
			return domain.Product{}, fmt.Errorf("%w: buy_price must be positive and below sell_price", store.ErrInvalidRequest)
		}
		product.BuyPrice = &buyPrice

		if req.Stock > 0 {
			batch = &domain.ProductBatch{BuyPrice: buyPrice, Stock: req.Stock}
			if req.ExpiredAt != "" {
				expiredAt, err := time.Parse("2006-01-02", req.ExpiredAt)
				if err != nil {
					return domain.Product{}, fmt.Errorf("%w: expired_at must be YYYY-MM-DD", store.ErrInvalidRequest)
				}
				batch.ExpiredAt = &expiredAt
			}
		}
	default:
		return domain.Product{}, fmt.Errorf("%w: ownership_type must be OWN or CONSIGNMENT", store.ErrInvalidRequest)
	}

	created, err := s.repo.CreateProduct(ctx, product, batch)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "CREATE_PRODUCT", "Product", created.ID,
		fmt.Sprintf(`{"name":%q,"sell_price":%d,"stock":%d,"ownership_type":%q}`,
			created.Name, created.SellPrice, created.Stock, created.OwnershipType))

	return *created, nil
}

func (s *Service) CreatePartner(ctx context.Context, req domain.PartnerCreateRequest) (domain.ConsignmentPartner, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return domain.ConsignmentPartner{}, fmt.Errorf("admin role required")
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.ConsignmentPartner{}, store.ErrInvalidRequest
	}

	created, err := s.repo.CreatePartner(ctx, domain.ConsignmentPartner{Name: name})
	if err != nil {
		return domain.ConsignmentPartner{}, err
	}

	s.logAudit(ctx, "CREATE_PARTNER", "ConsignmentPartner", created.ID, fmt.Sprintf(`{"name":%q}`, created.Name))

	return *created, nil
}

func (s *Service) ListPartners(ctx context.Context) ([]domain.ConsignmentPartner, error) {
	return s.repo.ListPartners(ctx)
}

func (s *Service) ListDebts(ctx context.Context, status string) ([]domain.Debt, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status != "" && status != domain.DebtStatusUnpaid && status != domain.DebtStatusPaid {
		return nil, fmt.Errorf("%w: status must be UNPAID or PAID", store.ErrInvalidRequest)
	}
	return s.repo.ListDebts(ctx, status)
}

func (s *Service) SettleDebt(ctx context.Context, debtID string) (domain.Debt, error) {
	debtID = strings.TrimSpace(debtID)
	if debtID == "" {
		return domain.Debt{}, store.ErrInvalidRequest
	}

	settled, err := s.repo.SettleDebt(ctx, debtID, time.Now().UTC())
	if err != nil {
		return domain.Debt{}, err
	}

	s.logAudit(ctx, "SETTLE_DEBT", "Debt", settled.ID,
		fmt.Sprintf(`{"customer_name":%q,"amount":%d}`, settled.CustomerName, settled.Amount))

	return *settled, nil
}

// DailyReport aggregates one UTC day. An empty date means today.
func (s *Service) DailyReport(ctx context.Context, date string) (domain.DailyReport, error) {
	day := nowDateUTC(time.Now().UTC())
	if strings.TrimSpace(date) != "" {
		parsed, err := time.Parse("2006-01-02", strings.TrimSpace(date))
		if err != nil {
			return domain.DailyReport{}, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrInvalidRequest)
		}
		day = parsed
	}
	return s.repo.GetDailyReport(ctx, day, day.AddDate(0, 0, 1))
}

func (s *Service) ConsignmentReport(ctx context.Context) ([]domain.ConsignmentReportRow, error) {
	return s.repo.GetConsignmentReport(ctx)
}

// DashboardSummary serves the aggregate through a short-TTL cache; the
// figures tolerate staleness of a few seconds.
func (s *Service) DashboardSummary(ctx context.Context) (domain.DashboardSummary, error) {
	if cached, ok, err := s.summaryCache.Get(ctx, summaryCacheKey); err != nil {
		log.Printf("[service] WARN: summary cache read failed: %v", err)
	} else if ok {
		return *cached, nil
	}

	summary, err := s.repo.GetDashboardSummary(ctx, nowDateUTC(time.Now().UTC()))
	if err != nil {
		return domain.DashboardSummary{}, err
	}

	if err := s.summaryCache.Set(ctx, summaryCacheKey, &summary, s.summaryTTL); err != nil {
		log.Printf("[service] WARN: summary cache write failed: %v", err)
	}

	return summary, nil
}

func (s *Service) StockAlerts(ctx context.Context) (domain.StockAlertResponse, error) {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return domain.StockAlertResponse{}, err
	}

	resp := domain.StockAlertResponse{
		Summary: domain.StockAlertSummary{
			TotalProducts:     len(products),
			LowThreshold:      s.lowStockThreshold,
			CriticalThreshold: s.criticalStockThreshold,
		},
		Alerts: make([]domain.StockAlert, 0, 16),
	}

	for _, p := range products {
		switch {
		case p.Stock <= s.criticalStockThreshold:
			resp.Summary.CriticalStock++
			resp.Alerts = append(resp.Alerts, domain.StockAlert{
				Product: p,
				Status:  domain.StockStatusCritical,
				Message: fmt.Sprintf("%s stock is critical (%d left)", p.Name, p.Stock),
			})
		case p.Stock <= s.lowStockThreshold:
			resp.Summary.LowStock++
			resp.Alerts = append(resp.Alerts, domain.StockAlert{
				Product: p,
				Status:  domain.StockStatusLow,
				Message: fmt.Sprintf("%s stock is low (%d left)", p.Name, p.Stock),
			})
		default:
			resp.Summary.NormalStock++
		}
	}

	return resp, nil
}

// ExpiryAlerts reports batches expiring within the given number of days,
// including those already past their date.
func (s *Service) ExpiryAlerts(ctx context.Context, days int) (domain.ExpiryAlertResponse, error) {
	if days < 1 {
		days = 7
	}

	now := time.Now().UTC()
	batches, err := s.repo.ListExpiringBatches(ctx, now.AddDate(0, 0, days))
	if err != nil {
		return domain.ExpiryAlertResponse{}, err
	}

	resp := domain.ExpiryAlertResponse{
		Summary: domain.ExpiryAlertSummary{DaysThreshold: days},
		Batches: make([]domain.ExpiryBatch, 0, len(batches)),
	}

	today := nowDateUTC(now)
	for _, b := range batches {
		remaining := int(nowDateUTC(*b.ExpiredAt).Sub(today).Hours() / 24)
		entry := domain.ExpiryBatch{
			Batch:          b,
			RemainingDays:  remaining,
			IsExpired:      remaining < 0,
			WillExpireSoon: remaining >= 0 && remaining <= expireSoonDays,
		}
		resp.Batches = append(resp.Batches, entry)

		resp.Summary.Total++
		switch {
		case entry.IsExpired:
			resp.Summary.Expired++
		case entry.WillExpireSoon:
			resp.Summary.ExpiringSoon++
		default:
			resp.Summary.Upcoming++
		}
	}

	return resp, nil
}

func (s *Service) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return nil, fmt.Errorf("admin role required")
	}
	if limit < 1 || limit > 500 {
		limit = 100
	}
	return s.repo.ListAuditLogs(ctx, from, to, limit)
}

func (s *Service) logAudit(ctx context.Context, action string, entity string, entityID string, meta string) {
	if meta == "" {
		meta = "{}"
	}
	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:        xid.New("audit"),
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Meta:      []byte(meta),
		CreatedAt: time.Now().UTC(),
	}); err != nil {
		log.Printf("[audit] WARN: failed to write audit log action=%s entity=%s/%s: %v", action, entity, entityID, err)
	}
}

func nowDateUTC(t time.Time) time.Time {
	return time.Date(t.UTC().Year(), t.UTC().Month(), t.UTC().Day(), 0, 0, 0, 0, time.UTC)
}
