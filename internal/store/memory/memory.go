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

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/posting"
	"warungpos/backend/internal/store"
	"warungpos/backend/internal/xid"
)

type Store struct {
	mu                   sync.RWMutex
	products             map[string]domain.Product
	batchesByID          map[string]domain.ProductBatch
	partnersByID         map[string]domain.ConsignmentPartner
	transactionsByID     map[string]*domain.Transaction
	transactionsByClient map[string]*domain.Transaction
	profitByTransaction  map[string]int64
	debtsByID            map[string]domain.Debt
	auditLogs            []domain.AuditLog
	usersByUsername      map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "kasir123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"kasir", cashierPwd, "kasir"},
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
		products:             make(map[string]domain.Product),
		batchesByID:          make(map[string]domain.ProductBatch),
		partnersByID:         make(map[string]domain.ConsignmentPartner),
		transactionsByID:     make(map[string]*domain.Transaction),
		transactionsByClient: make(map[string]*domain.Transaction),
		profitByTransaction:  make(map[string]int64),
		debtsByID:            make(map[string]domain.Debt),
		auditLogs:            make([]domain.AuditLog, 0, 128),
		usersByUsername:      seedUsers(),
	}
}

func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	partners := []domain.ConsignmentPartner{
		{ID: "cp-bu-siti", Name: "Bu Siti Gorengan", CreatedAt: now},
		{ID: "cp-pak-dedi", Name: "Pak Dedi Kue Basah", CreatedAt: now},
	}
	for _, p := range partners {
		s.partnersByID[p.ID] = p
	}

	buy := func(v int64) *int64 { return &v }
	products := []domain.Product{
		{ID: "prd-mie-01", Name: "Mie Goreng Instan", Category: "sembako", SellPrice: 3500, BuyPrice: buy(2800), Stock: 120, OwnershipType: domain.OwnershipOwn, CreatedAt: now},
		{ID: "prd-telur-01", Name: "Telur 1kg", Category: "sembako", SellPrice: 28000, BuyPrice: buy(25000), Stock: 40, OwnershipType: domain.OwnershipOwn, CreatedAt: now},
		{ID: "prd-kopi-01", Name: "Kopi Sachet", Category: "minuman", SellPrice: 2000, BuyPrice: buy(1500), Stock: 200, OwnershipType: domain.OwnershipOwn, CreatedAt: now},
		{ID: "prd-gula-01", Name: "Gula 1kg", Category: "sembako", SellPrice: 17500, BuyPrice: nil, Stock: 30, OwnershipType: domain.OwnershipOwn, CreatedAt: now},
		{ID: "prd-air-01", Name: "Air Mineral 600ml", Category: "minuman", SellPrice: 4000, BuyPrice: buy(3000), Stock: 90, OwnershipType: domain.OwnershipOwn, CreatedAt: now},
		{ID: "prd-risol-01", Name: "Risol Mayo", Category: "jajanan", SellPrice: 3000, Stock: 25, OwnershipType: domain.OwnershipConsignment, PartnerID: "cp-bu-siti", CreatedAt: now},
		{ID: "prd-lemper-01", Name: "Lemper Ayam", Category: "jajanan", SellPrice: 4000, Stock: 20, OwnershipType: domain.OwnershipConsignment, PartnerID: "cp-pak-dedi", CreatedAt: now},
	}
	for _, p := range products {
		s.products[p.ID] = p
	}

	expiry := now.AddDate(0, 0, 14)
	s.batchesByID["pb-telur-01"] = domain.ProductBatch{
		ID: "pb-telur-01", ProductID: "prd-telur-01", BuyPrice: 25000, Stock: 40,
		ExpiredAt: &expiry, CreatedAt: now,
	}

	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		if a.Category == b.Category {
			return cmpString(a.Name, b.Name)
		}
		return cmpString(a.Category, b.Category)
	})

	return products, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, store.ErrProductNotFound
	}
	copyProduct := product
	return &copyProduct, nil
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product, batch *domain.ProductBatch) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.Name == "" || product.SellPrice < 1 || product.Stock < 0 {
		return nil, store.ErrInvalidRequest
	}
	if product.OwnershipType == domain.OwnershipConsignment {
		if _, exists := s.partnersByID[product.PartnerID]; !exists {
			return nil, store.ErrNotFound
		}
	}

	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	s.products[product.ID] = product

	if batch != nil {
		b := *batch
		if b.ID == "" {
			b.ID = xid.New("pb")
		}
		b.ProductID = product.ID
		if b.CreatedAt.IsZero() {
			b.CreatedAt = product.CreatedAt
		}
		s.batchesByID[b.ID] = b
	}

	created := product
	return &created, nil
}

func (s *Store) ListExpiringBatches(_ context.Context, before time.Time) ([]domain.ProductBatch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batches := make([]domain.ProductBatch, 0)
	for _, b := range s.batchesByID {
		if b.ExpiredAt == nil || !b.ExpiredAt.Before(before) {
			continue
		}
		if p, ok := s.products[b.ProductID]; ok {
			b.ProductName = p.Name
		}
		batches = append(batches, b)
	}

	slices.SortFunc(batches, func(a, b domain.ProductBatch) int {
		if a.ExpiredAt.Equal(*b.ExpiredAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.ExpiredAt.Before(*b.ExpiredAt) {
			return -1
		}
		return 1
	})

	return batches, nil
}

func (s *Store) CreatePartner(_ context.Context, partner domain.ConsignmentPartner) (*domain.ConsignmentPartner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if partner.Name == "" {
		return nil, store.ErrInvalidRequest
	}
	if partner.ID == "" {
		partner.ID = xid.New("cp")
	}
	if partner.CreatedAt.IsZero() {
		partner.CreatedAt = time.Now().UTC()
	}
	s.partnersByID[partner.ID] = partner

	created := partner
	return &created, nil
}

func (s *Store) ListPartners(_ context.Context) ([]domain.ConsignmentPartner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	partners := make([]domain.ConsignmentPartner, 0, len(s.partnersByID))
	for _, p := range s.partnersByID {
		partners = append(partners, p)
	}
	slices.SortFunc(partners, func(a, b domain.ConsignmentPartner) int {
		return cmpString(a.Name, b.Name)
	})
	return partners, nil
}

func (s *Store) FindTransactionByClientID(_ context.Context, clientTransactionID string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, exists := s.transactionsByClient[clientTransactionID]
	if !exists {
		return nil, store.ErrNotFound
	}
	return cloneTransaction(tx), nil
}

func (s *Store) FindTransactionByID(_ context.Context, id string) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tx, exists := s.transactionsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	return cloneTransaction(tx), nil
}

// CreateSale applies the whole posting unit under a single lock hold. Nothing
// is mutated until the computation over the current product state succeeds, so
// a failed cart leaves the store untouched.
func (s *Store) CreateSale(_ context.Context, draft domain.SaleDraft) (*domain.PostedSale, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if draft.ClientTransactionID != "" {
		if _, ok := s.transactionsByClient[draft.ClientTransactionID]; ok {
			return nil, store.ErrDuplicateSubmission
		}
	}

	snapshot := make(map[string]domain.Product, len(draft.Items))
	for _, item := range draft.Items {
		if p, ok := s.products[item.ProductID]; ok {
			snapshot[item.ProductID] = p
		}
	}

	result, err := posting.Compute(snapshot, draft.Items, draft.FallbackCostPercent)
	if err != nil {
		return nil, err
	}

	now := draft.CreatedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}
	txID := draft.ID
	if txID == "" {
		txID = xid.New("trx")
	}

	tx := &domain.Transaction{
		ID:                  txID,
		PaymentType:         draft.PaymentType,
		TotalAmount:         result.TotalAmount,
		ClientTransactionID: draft.ClientTransactionID,
		CreatedAt:           now,
		Items:               make([]domain.TransactionItem, 0, len(result.Lines)),
	}
	for _, line := range result.Lines {
		tx.Items = append(tx.Items, domain.TransactionItem{
			TransactionID: txID,
			ProductID:     line.Product.ID,
			ProductName:   line.Product.Name,
			Qty:           line.Qty,
			SellPriceSnap: line.SellPriceSnap,
			BuyPriceSnap:  line.BuyPriceSnap,
			Subtotal:      line.Subtotal,
			Profit:        line.Profit,
		})

		product := s.products[line.Product.ID]
		product.Stock -= line.Qty
		s.products[line.Product.ID] = product

		if line.PartnerCredit > 0 {
			partner := s.partnersByID[line.Product.PartnerID]
			partner.Balance += line.PartnerCredit
			s.partnersByID[line.Product.PartnerID] = partner
		}
	}

	s.transactionsByID[txID] = tx
	if draft.ClientTransactionID != "" {
		s.transactionsByClient[draft.ClientTransactionID] = tx
	}
	s.profitByTransaction[txID] = result.TotalProfit

	if draft.PaymentType == domain.PaymentDebt {
		debt := domain.Debt{
			ID:            xid.New("debt"),
			CustomerName:  draft.CustomerName,
			TransactionID: txID,
			Amount:        result.TotalAmount,
			Status:        domain.DebtStatusUnpaid,
			CreatedAt:     now,
		}
		s.debtsByID[debt.ID] = debt
	}

	s.auditLogs = append(s.auditLogs, posting.AuditEntry(xid.New("audit"), draft, txID, result, now))

	return &domain.PostedSale{Transaction: *cloneTransaction(tx), TotalProfit: result.TotalProfit}, nil
}

func (s *Store) ListDebts(_ context.Context, status string) ([]domain.Debt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	debts := make([]domain.Debt, 0, len(s.debtsByID))
	for _, d := range s.debtsByID {
		if status != "" && d.Status != status {
			continue
		}
		debts = append(debts, d)
	}
	slices.SortFunc(debts, func(a, b domain.Debt) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(a.ID, b.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return debts, nil
}

func (s *Store) SettleDebt(_ context.Context, debtID string, at time.Time) (*domain.Debt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	debt, exists := s.debtsByID[debtID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if debt.Status == domain.DebtStatusPaid {
		return nil, store.ErrInvalidRequest
	}

	debt.Status = domain.DebtStatusPaid
	paidAt := at.UTC()
	debt.PaidAt = &paidAt
	s.debtsByID[debtID] = debt

	settled := debt
	return &settled, nil
}

func (s *Store) GetDailyReport(_ context.Context, from time.Time, to time.Time) (domain.DailyReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := domain.DailyReport{Date: from.Format("2006-01-02")}
	for _, tx := range s.transactionsByID {
		if tx.CreatedAt.Before(from) || !tx.CreatedAt.Before(to) {
			continue
		}
		report.TotalTransactions++
		report.Revenue += tx.TotalAmount
		report.Profit += s.profitByTransaction[tx.ID]
		switch tx.PaymentType {
		case domain.PaymentCash:
			report.Cash += tx.TotalAmount
		case domain.PaymentDebt:
			report.Debt += tx.TotalAmount
		}
	}
	return report, nil
}

func (s *Store) GetConsignmentReport(_ context.Context) ([]domain.ConsignmentReportRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make(map[string]*domain.ConsignmentReportRow, len(s.partnersByID))
	for id, partner := range s.partnersByID {
		rows[id] = &domain.ConsignmentReportRow{
			PartnerID:      id,
			PartnerName:    partner.Name,
			CurrentBalance: partner.Balance,
		}
	}

	for _, tx := range s.transactionsByID {
		for _, item := range tx.Items {
			product, ok := s.products[item.ProductID]
			if !ok || product.OwnershipType != domain.OwnershipConsignment {
				continue
			}
			row, ok := rows[product.PartnerID]
			if !ok {
				continue
			}
			row.TotalQtySold += int64(item.Qty)
			row.TotalSales += item.Subtotal
		}
	}

	result := make([]domain.ConsignmentReportRow, 0, len(rows))
	for _, row := range rows {
		result = append(result, *row)
	}
	slices.SortFunc(result, func(a, b domain.ConsignmentReportRow) int {
		return cmpString(a.PartnerName, b.PartnerName)
	})
	return result, nil
}

func (s *Store) GetDashboardSummary(_ context.Context, todayStart time.Time) (domain.DashboardSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var summary domain.DashboardSummary
	for _, tx := range s.transactionsByID {
		if tx.CreatedAt.Before(todayStart) {
			continue
		}
		summary.SalesToday += tx.TotalAmount
	}
	for _, d := range s.debtsByID {
		if d.Status == domain.DebtStatusUnpaid {
			summary.ActiveDebts += d.Amount
		}
	}
	for _, p := range s.partnersByID {
		summary.ConsignmentBalance += p.Balance
	}
	return summary, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]domain.AuditLog, 0, len(s.auditLogs))
	for _, entry := range s.auditLogs {
		if !from.IsZero() && entry.CreatedAt.Before(from) {
			continue
		}
		if !to.IsZero() && !entry.CreatedAt.Before(to) {
			continue
		}
		logs = append(logs, entry)
	}
	slices.SortFunc(logs, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidRequest
	}
	if _, exists := s.usersByUsername[user.Username]; exists {
		return store.ErrInvalidRequest
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
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

func cloneTransaction(tx *domain.Transaction) *domain.Transaction {
	clone := *tx
	clone.Items = make([]domain.TransactionItem, len(tx.Items))
	copy(clone.Items, tx.Items)
	return &clone
}

func cmpString(a, b string) int {
	return strings.Compare(a, b)
}
