package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"warungpos/backend/internal/cache"
	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
	"warungpos/backend/internal/store/memory"
)

func newTestService(t *testing.T) (*Service, store.Repository) {
	t.Helper()
	repo := memory.New()
	svc := New(repo, cache.NoopSummaryCache{}, Config{
		FallbackCostPercent:    70,
		LowStockThreshold:      10,
		CriticalStockThreshold: 5,
		SummaryTTLSeconds:      1,
	})
	return svc, repo
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
}

func seedOwnProduct(t *testing.T, repo store.Repository, id string, sellPrice int64, buyPrice int64, stock int) {
	t.Helper()
	bp := buyPrice
	_, err := repo.CreateProduct(context.Background(), domain.Product{
		ID: id, Name: "Product " + id, Category: "sembako",
		SellPrice: sellPrice, BuyPrice: &bp, Stock: stock,
		OwnershipType: domain.OwnershipOwn,
	}, nil)
	if err != nil {
		t.Fatalf("seed product %s: %v", id, err)
	}
}

func seedConsignmentProduct(t *testing.T, repo store.Repository, id string, sellPrice int64, stock int) string {
	t.Helper()
	partner, err := repo.CreatePartner(context.Background(), domain.ConsignmentPartner{Name: "Partner " + id})
	if err != nil {
		t.Fatalf("seed partner: %v", err)
	}
	_, err = repo.CreateProduct(context.Background(), domain.Product{
		ID: id, Name: "Titipan " + id, Category: "jajanan",
		SellPrice: sellPrice, Stock: stock,
		OwnershipType: domain.OwnershipConsignment, PartnerID: partner.ID,
	}, nil)
	if err != nil {
		t.Fatalf("seed product %s: %v", id, err)
	}
	return partner.ID
}

func TestPostTransactionOwnProduct(t *testing.T) {
	svc, repo := newTestService(t)
	seedOwnProduct(t, repo, "prd-a", 5000, 3000, 10)

	receipt, err := svc.PostTransaction(context.Background(), domain.SaleRequest{
		PaymentType: "CASH",
		Items:       []domain.SaleItem{{ProductID: "prd-a", Qty: 2}},
	})
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}

	if receipt.TotalAmount != 10000 {
		t.Fatalf("expected total 10000, got %d", receipt.TotalAmount)
	}
	if receipt.TotalProfit != 4000 {
		t.Fatalf("expected profit 4000, got %d", receipt.TotalProfit)
	}
	if receipt.ItemCount != 1 {
		t.Fatalf("expected item count 1, got %d", receipt.ItemCount)
	}

	product, err := repo.GetProductByID(context.Background(), "prd-a")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if product.Stock != 8 {
		t.Fatalf("expected stock 8 after sale, got %d", product.Stock)
	}
}

func TestPostTransactionInsufficientStockLeavesNoTrace(t *testing.T) {
	svc, repo := newTestService(t)
	partnerID := seedConsignmentProduct(t, repo, "prd-titip", 10000, 2)

	_, err := svc.PostTransaction(context.Background(), domain.SaleRequest{
		PaymentType: "CASH",
		Items:       []domain.SaleItem{{ProductID: "prd-titip", Qty: 3}},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	product, _ := repo.GetProductByID(context.Background(), "prd-titip")
	if product.Stock != 2 {
		t.Fatalf("stock must be unchanged, got %d", product.Stock)
	}
	partners, _ := repo.ListPartners(context.Background())
	for _, p := range partners {
		if p.ID == partnerID && p.Balance != 0 {
			t.Fatalf("partner balance must be unchanged, got %d", p.Balance)
		}
	}
	logs, _ := repo.ListAuditLogs(context.Background(), time.Time{}, time.Time{}, 10)
	if len(logs) != 0 {
		t.Fatalf("no audit log expected for a failed sale, got %d", len(logs))
	}
}

func TestPostTransactionConsignmentCreditsPartner(t *testing.T) {
	svc, repo := newTestService(t)
	partnerID := seedConsignmentProduct(t, repo, "prd-titip", 10000, 5)

	receipt, err := svc.PostTransaction(context.Background(), domain.SaleRequest{
		PaymentType: "CASH",
		Items:       []domain.SaleItem{{ProductID: "prd-titip", Qty: 3}},
	})
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}
	if receipt.TotalProfit != 30000 {
		t.Fatalf("consignment profit must be full subtotal, got %d", receipt.TotalProfit)
	}

	partners, _ := repo.ListPartners(context.Background())
	for _, p := range partners {
		if p.ID == partnerID && p.Balance != 30000 {
			t.Fatalf("expected partner balance 30000, got %d", p.Balance)
		}
	}
}

func TestPostTransactionDuplicateClientID(t *testing.T) {
	svc, repo := newTestService(t)
	seedOwnProduct(t, repo, "prd-a", 5000, 3000, 10)

	req := domain.SaleRequest{
		PaymentType:         "CASH",
		ClientTransactionID: "client-retry-1",
		Items:               []domain.SaleItem{{ProductID: "prd-a", Qty: 1}},
	}

	first, err := svc.PostTransaction(context.Background(), req)
	if err != nil {
		t.Fatalf("first post failed: %v", err)
	}

	_, err = svc.PostTransaction(context.Background(), req)
	if !errors.Is(err, store.ErrDuplicateSubmission) {
		t.Fatalf("expected ErrDuplicateSubmission, got %v", err)
	}

	// Only the first submission changed state.
	product, _ := repo.GetProductByID(context.Background(), "prd-a")
	if product.Stock != 9 {
		t.Fatalf("expected stock 9, got %d", product.Stock)
	}
	existing, err := repo.FindTransactionByClientID(context.Background(), "client-retry-1")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if existing.ID != first.TransactionID {
		t.Fatalf("unexpected transaction for client id: %s", existing.ID)
	}
}

func TestPostTransactionMultiItemFailureIsAtomic(t *testing.T) {
	svc, repo := newTestService(t)
	seedOwnProduct(t, repo, "prd-a", 5000, 3000, 10)

	_, err := svc.PostTransaction(context.Background(), domain.SaleRequest{
		PaymentType: "CASH",
		Items: []domain.SaleItem{
			{ProductID: "prd-a", Qty: 2},
			{ProductID: "prd-missing", Qty: 1},
		},
	})
	if !errors.Is(err, store.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}

	product, _ := repo.GetProductByID(context.Background(), "prd-a")
	if product.Stock != 10 {
		t.Fatalf("valid line must not be applied, stock=%d", product.Stock)
	}
}

func TestPostTransactionDebtRequiresCustomer(t *testing.T) {
	svc, repo := newTestService(t)
	seedOwnProduct(t, repo, "prd-a", 5000, 3000, 10)

	_, err := svc.PostTransaction(context.Background(), domain.SaleRequest{
		PaymentType: "DEBT",
		Items:       []domain.SaleItem{{ProductID: "prd-a", Qty: 1}},
	})
	if !errors.Is(err, store.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}

	receipt, err := svc.PostTransaction(context.Background(), domain.SaleRequest{
		PaymentType:  "DEBT",
		CustomerName: "Bu Ani",
		Items:        []domain.SaleItem{{ProductID: "prd-a", Qty: 2}},
	})
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}

	debts, err := repo.ListDebts(context.Background(), domain.DebtStatusUnpaid)
	if err != nil {
		t.Fatalf("list debts: %v", err)
	}
	if len(debts) != 1 {
		t.Fatalf("expected exactly one debt, got %d", len(debts))
	}
	debt := debts[0]
	if debt.CustomerName != "Bu Ani" || debt.Amount != receipt.TotalAmount || debt.TransactionID != receipt.TransactionID {
		t.Fatalf("unexpected debt: %+v", debt)
	}
}

func TestPostTransactionValidation(t *testing.T) {
	svc, repo := newTestService(t)
	seedOwnProduct(t, repo, "prd-a", 5000, 3000, 10)

	cases := []domain.SaleRequest{
		{PaymentType: "TRANSFER", Items: []domain.SaleItem{{ProductID: "prd-a", Qty: 1}}},
		{PaymentType: "CASH"},
		{PaymentType: "CASH", Items: []domain.SaleItem{{ProductID: "prd-a", Qty: 0}}},
		{PaymentType: "CASH", Items: []domain.SaleItem{{ProductID: "prd-a", Qty: -2}}},
		{PaymentType: "CASH", Items: []domain.SaleItem{{ProductID: "", Qty: 1}}},
	}
	for i, req := range cases {
		if _, err := svc.PostTransaction(context.Background(), req); !errors.Is(err, store.ErrInvalidRequest) {
			t.Fatalf("case %d: expected ErrInvalidRequest, got %v", i, err)
		}
	}

	// Nothing mutated by the rejected requests.
	product, _ := repo.GetProductByID(context.Background(), "prd-a")
	if product.Stock != 10 {
		t.Fatalf("expected untouched stock, got %d", product.Stock)
	}
}

func TestPostTransactionWritesAuditLog(t *testing.T) {
	svc, repo := newTestService(t)
	seedOwnProduct(t, repo, "prd-a", 5000, 3000, 10)

	receipt, err := svc.PostTransaction(context.Background(), domain.SaleRequest{
		PaymentType: "CASH",
		Items:       []domain.SaleItem{{ProductID: "prd-a", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}

	logs, err := repo.ListAuditLogs(context.Background(), time.Time{}, time.Time{}, 10)
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected one audit log, got %d", len(logs))
	}
	if logs[0].Action != "CREATE_TRANSACTION" || logs[0].EntityID != receipt.TransactionID {
		t.Fatalf("unexpected audit entry: %+v", logs[0])
	}
}

func TestCreateProductRules(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := adminCtx()

	// OWN without an explicit buy price gets the fallback ratio.
	product, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Name: "Teh Celup", Category: "minuman", SellPrice: 10000, Stock: 12,
		OwnershipType: "OWN",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if product.BuyPrice == nil || *product.BuyPrice != 7000 {
		t.Fatalf("expected fallback buy price 7000, got %v", product.BuyPrice)
	}

	// OWN buy price must stay below sell price.
	_, err = svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Name: "Rugi", SellPrice: 5000, BuyPrice: int64p(5000), Stock: 1, OwnershipType: "OWN",
	})
	if !errors.Is(err, store.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}

	// Consignment requires a partner.
	_, err = svc.CreateProduct(ctx, domain.ProductCreateRequest{
		Name: "Titipan", SellPrice: 3000, Stock: 5, OwnershipType: "CONSIGNMENT",
	})
	if !errors.Is(err, store.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}

	// Non-admin actors cannot create products.
	_, err = svc.CreateProduct(WithActor(context.Background(), domain.Actor{Username: "kasir", Role: "kasir"}), domain.ProductCreateRequest{
		Name: "X", SellPrice: 1000, Stock: 1, OwnershipType: "OWN",
	})
	if err == nil {
		t.Fatalf("expected role error")
	}
}

func TestCreateProductBatchForOwnStock(t *testing.T) {
	svc, repo := newTestService(t)

	_, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		Name: "Telur 1kg", Category: "sembako", SellPrice: 28000, BuyPrice: int64p(25000),
		Stock: 40, OwnershipType: "OWN", ExpiredAt: time.Now().UTC().AddDate(0, 0, 2).Format("2006-01-02"),
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	batches, err := repo.ListExpiringBatches(context.Background(), time.Now().UTC().AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("list batches: %v", err)
	}
	if len(batches) != 1 {
		t.Fatalf("expected one batch, got %d", len(batches))
	}
	if batches[0].BuyPrice != 25000 || batches[0].Stock != 40 {
		t.Fatalf("unexpected batch: %+v", batches[0])
	}
}

func TestSettleDebt(t *testing.T) {
	svc, repo := newTestService(t)
	seedOwnProduct(t, repo, "prd-a", 5000, 3000, 10)

	_, err := svc.PostTransaction(context.Background(), domain.SaleRequest{
		PaymentType:  "DEBT",
		CustomerName: "Pak Budi",
		Items:        []domain.SaleItem{{ProductID: "prd-a", Qty: 1}},
	})
	if err != nil {
		t.Fatalf("post failed: %v", err)
	}

	debts, _ := repo.ListDebts(context.Background(), domain.DebtStatusUnpaid)
	settled, err := svc.SettleDebt(adminCtx(), debts[0].ID)
	if err != nil {
		t.Fatalf("settle failed: %v", err)
	}
	if settled.Status != domain.DebtStatusPaid || settled.PaidAt == nil {
		t.Fatalf("unexpected settled debt: %+v", settled)
	}

	// A paid debt cannot be settled twice.
	if _, err := svc.SettleDebt(adminCtx(), debts[0].ID); !errors.Is(err, store.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestDailyReportSplitsCashAndDebt(t *testing.T) {
	svc, repo := newTestService(t)
	seedOwnProduct(t, repo, "prd-a", 5000, 3000, 50)

	if _, err := svc.PostTransaction(context.Background(), domain.SaleRequest{
		PaymentType: "CASH",
		Items:       []domain.SaleItem{{ProductID: "prd-a", Qty: 2}},
	}); err != nil {
		t.Fatalf("cash post failed: %v", err)
	}
	if _, err := svc.PostTransaction(context.Background(), domain.SaleRequest{
		PaymentType:  "DEBT",
		CustomerName: "Bu Ani",
		Items:        []domain.SaleItem{{ProductID: "prd-a", Qty: 1}},
	}); err != nil {
		t.Fatalf("debt post failed: %v", err)
	}

	report, err := svc.DailyReport(context.Background(), "")
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if report.TotalTransactions != 2 {
		t.Fatalf("expected 2 transactions, got %d", report.TotalTransactions)
	}
	if report.Revenue != 15000 || report.Cash != 10000 || report.Debt != 5000 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Profit != 6000 {
		t.Fatalf("expected profit 6000, got %d", report.Profit)
	}
}

func TestDashboardSummary(t *testing.T) {
	svc, repo := newTestService(t)
	seedOwnProduct(t, repo, "prd-a", 5000, 3000, 50)
	seedConsignmentProduct(t, repo, "prd-titip", 10000, 10)

	if _, err := svc.PostTransaction(context.Background(), domain.SaleRequest{
		PaymentType:  "DEBT",
		CustomerName: "Bu Ani",
		Items: []domain.SaleItem{
			{ProductID: "prd-a", Qty: 1},
			{ProductID: "prd-titip", Qty: 2},
		},
	}); err != nil {
		t.Fatalf("post failed: %v", err)
	}

	summary, err := svc.DashboardSummary(context.Background())
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if summary.SalesToday != 25000 {
		t.Fatalf("expected sales 25000, got %d", summary.SalesToday)
	}
	if summary.ActiveDebts != 25000 {
		t.Fatalf("expected active debts 25000, got %d", summary.ActiveDebts)
	}
	if summary.ConsignmentBalance != 20000 {
		t.Fatalf("expected consignment balance 20000, got %d", summary.ConsignmentBalance)
	}
}

func TestStockAlertsBuckets(t *testing.T) {
	svc, repo := newTestService(t)
	seedOwnProduct(t, repo, "prd-normal", 5000, 3000, 50)
	seedOwnProduct(t, repo, "prd-low", 5000, 3000, 8)
	seedOwnProduct(t, repo, "prd-critical", 5000, 3000, 3)

	resp, err := svc.StockAlerts(context.Background())
	if err != nil {
		t.Fatalf("alerts failed: %v", err)
	}
	if resp.Summary.TotalProducts != 3 || resp.Summary.NormalStock != 1 || resp.Summary.LowStock != 1 || resp.Summary.CriticalStock != 1 {
		t.Fatalf("unexpected summary: %+v", resp.Summary)
	}
	for _, alert := range resp.Alerts {
		switch alert.Product.ID {
		case "prd-low":
			if alert.Status != domain.StockStatusLow {
				t.Fatalf("expected LOW, got %s", alert.Status)
			}
		case "prd-critical":
			if alert.Status != domain.StockStatusCritical {
				t.Fatalf("expected CRITICAL, got %s", alert.Status)
			}
		default:
			t.Fatalf("unexpected alert for %s", alert.Product.ID)
		}
	}
}

func TestExpiryAlertsGrouping(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := adminCtx()

	now := time.Now().UTC()
	for i, daysAhead := range []int{-1, 2, 6} {
		_, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
			Name: fmt.Sprintf("Batch Product %d", i), Category: "sembako",
			SellPrice: 10000, BuyPrice: int64p(6000), Stock: 10,
			OwnershipType: "OWN",
			ExpiredAt:     now.AddDate(0, 0, daysAhead).Format("2006-01-02"),
		})
		if err != nil {
			t.Fatalf("create product %d: %v", i, err)
		}
	}

	resp, err := svc.ExpiryAlerts(context.Background(), 7)
	if err != nil {
		t.Fatalf("alerts failed: %v", err)
	}
	if resp.Summary.Total != 3 {
		t.Fatalf("expected 3 batches, got %d", resp.Summary.Total)
	}
	if resp.Summary.Expired != 1 || resp.Summary.ExpiringSoon != 1 || resp.Summary.Upcoming != 1 {
		t.Fatalf("unexpected grouping: %+v", resp.Summary)
	}
}

func TestListAuditLogsRequiresAdmin(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ListAuditLogs(context.Background(), time.Time{}, time.Time{}, 10)
	if err == nil {
		t.Fatalf("expected role error")
	}

	if _, err := svc.ListAuditLogs(adminCtx(), time.Time{}, time.Time{}, 10); err != nil {
		t.Fatalf("admin list failed: %v", err)
	}
}

func int64p(v int64) *int64 { return &v }
