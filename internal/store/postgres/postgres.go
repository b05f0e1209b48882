package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/posting"
	"warungpos/backend/internal/store"
	"warungpos/backend/internal/xid"
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

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, sell_price, buy_price, stock, ownership_type, partner_id, created_at
		FROM products
		ORDER BY category, name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 128)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	var p domain.Product
	var buyPrice sql.NullInt64
	var partnerID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, sell_price, buy_price, stock, ownership_type, partner_id, created_at
		FROM products
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Category, &p.SellPrice, &buyPrice, &p.Stock, &p.OwnershipType, &partnerID, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrProductNotFound
		}
		return nil, err
	}
	if buyPrice.Valid {
		v := buyPrice.Int64
		p.BuyPrice = &v
	}
	p.PartnerID = partnerID.String
	return &p, nil
}

// CreateProduct inserts the product and, for OWN goods with a known cost, its
// initial batch in one transaction.
func (s *Store) CreateProduct(ctx context.Context, product domain.Product, batch *domain.ProductBatch) (*domain.Product, error) {
	if product.Name == "" || product.SellPrice < 1 || product.Stock < 0 {
		return nil, store.ErrInvalidRequest
	}

	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	if product.OwnershipType == domain.OwnershipConsignment {
		var exists bool
		err := pgTx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM consignment_partners WHERE id = $1)
		`, product.PartnerID).Scan(&exists)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, store.ErrNotFound
		}
	}

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO products (id, name, category, sell_price, buy_price, stock, ownership_type, partner_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, product.ID, product.Name, product.Category, product.SellPrice, nullInt64(product.BuyPrice),
		product.Stock, product.OwnershipType, nullIfEmpty(product.PartnerID), product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRequest
		}
		return nil, err
	}

	if batch != nil {
		batchID := batch.ID
		if batchID == "" {
			batchID = xid.New("pb")
		}
		_, err = pgTx.ExecContext(ctx, `
			INSERT INTO product_batches (id, product_id, buy_price, stock, expired_at, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, batchID, product.ID, batch.BuyPrice, batch.Stock, nullTime(batch.ExpiredAt), product.CreatedAt)
		if err != nil {
			return nil, err
		}
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	created := product
	return &created, nil
}

func (s *Store) ListExpiringBatches(ctx context.Context, before time.Time) ([]domain.ProductBatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.product_id, b.buy_price, b.stock, b.expired_at, b.created_at, p.name
		FROM product_batches b
		JOIN products p ON p.id = b.product_id
		WHERE b.expired_at IS NOT NULL AND b.expired_at < $1
		ORDER BY b.expired_at ASC, b.id
	`, before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	batches := make([]domain.ProductBatch, 0, 32)
	for rows.Next() {
		var b domain.ProductBatch
		var expiredAt sql.NullTime
		if err := rows.Scan(&b.ID, &b.ProductID, &b.BuyPrice, &b.Stock, &expiredAt, &b.CreatedAt, &b.ProductName); err != nil {
			return nil, err
		}
		if expiredAt.Valid {
			e := expiredAt.Time
			b.ExpiredAt = &e
		}
		batches = append(batches, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return batches, nil
}

func (s *Store) CreatePartner(ctx context.Context, partner domain.ConsignmentPartner) (*domain.ConsignmentPartner, error) {
	if partner.Name == "" {
		return nil, store.ErrInvalidRequest
	}
	if partner.ID == "" {
		partner.ID = xid.New("cp")
	}
	if partner.CreatedAt.IsZero() {
		partner.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO consignment_partners (id, name, balance, created_at)
		VALUES ($1,$2,$3,$4)
	`, partner.ID, partner.Name, partner.Balance, partner.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidRequest
		}
		return nil, err
	}

	created := partner
	return &created, nil
}

func (s *Store) ListPartners(ctx context.Context) ([]domain.ConsignmentPartner, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, balance, created_at
		FROM consignment_partners
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	partners := make([]domain.ConsignmentPartner, 0, 16)
	for rows.Next() {
		var p domain.ConsignmentPartner
		if err := rows.Scan(&p.ID, &p.Name, &p.Balance, &p.CreatedAt); err != nil {
			return nil, err
		}
		partners = append(partners, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return partners, nil
}

func (s *Store) FindTransactionByClientID(ctx context.Context, clientTransactionID string) (*domain.Transaction, error) {
	return s.findTransaction(ctx, `client_transaction_id = $1`, clientTransactionID)
}

func (s *Store) FindTransactionByID(ctx context.Context, id string) (*domain.Transaction, error) {
	return s.findTransaction(ctx, `id = $1`, id)
}

func (s *Store) findTransaction(ctx context.Context, where string, arg any) (*domain.Transaction, error) {
	var tx domain.Transaction
	var clientID sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, payment_type, total_amount, client_transaction_id, created_at
		FROM transactions
		WHERE `+where, arg).Scan(&tx.ID, &tx.PaymentType, &tx.TotalAmount, &clientID, &tx.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	tx.ClientTransactionID = clientID.String

	itemRows, err := s.db.QueryContext(ctx, `
		SELECT transaction_id, product_id, product_name, qty, sell_price_snap, buy_price_snap, subtotal, profit
		FROM transaction_items
		WHERE transaction_id = $1
	`, tx.ID)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item domain.TransactionItem
		if err := itemRows.Scan(&item.TransactionID, &item.ProductID, &item.ProductName, &item.Qty,
			&item.SellPriceSnap, &item.BuyPriceSnap, &item.Subtotal, &item.Profit); err != nil {
			return nil, err
		}
		tx.Items = append(tx.Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	return &tx, nil
}

// CreateSale posts the whole sale in one serializable transaction: locked
// product reads, the pure computation, item snapshots, guarded stock
// decrements, partner balance credits, the optional debt row, and the audit
// record. A unique index on client_transaction_id closes the race between the
// duplicate pre-check and the insert; a violation surfaces as
// ErrDuplicateSubmission.
func (s *Store) CreateSale(ctx context.Context, draft domain.SaleDraft) (*domain.PostedSale, error) {
	if len(draft.Items) == 0 {
		return nil, store.ErrInvalidRequest
	}

	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	if draft.ClientTransactionID != "" {
		var existing string
		err := pgTx.QueryRowContext(ctx, `
			SELECT id FROM transactions WHERE client_transaction_id = $1
		`, draft.ClientTransactionID).Scan(&existing)
		if err == nil {
			return nil, store.ErrDuplicateSubmission
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
	}

	productIDs := uniqueProductIDs(draft.Items)
	productRows, err := pgTx.QueryContext(ctx, `
		SELECT id, name, category, sell_price, buy_price, stock, ownership_type, partner_id, created_at
		FROM products
		WHERE id = ANY($1)
		FOR UPDATE
	`, productIDs)
	if err != nil {
		return nil, err
	}
	productMap := make(map[string]domain.Product, len(productIDs))
	for productRows.Next() {
		p, err := scanProduct(productRows)
		if err != nil {
			_ = productRows.Close()
			return nil, err
		}
		productMap[p.ID] = p
	}
	if err := productRows.Err(); err != nil {
		_ = productRows.Close()
		return nil, err
	}
	_ = productRows.Close()

	result, err := posting.Compute(productMap, draft.Items, draft.FallbackCostPercent)
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

	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO transactions (id, payment_type, total_amount, client_transaction_id, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, txID, draft.PaymentType, result.TotalAmount, nullIfEmpty(draft.ClientTransactionID), now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicateSubmission
		}
		return nil, err
	}

	tx := domain.Transaction{
		ID:                  txID,
		PaymentType:         draft.PaymentType,
		TotalAmount:         result.TotalAmount,
		ClientTransactionID: draft.ClientTransactionID,
		CreatedAt:           now,
		Items:               make([]domain.TransactionItem, 0, len(result.Lines)),
	}
	for _, line := range result.Lines {
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO transaction_items (transaction_id, product_id, product_name, qty, sell_price_snap, buy_price_snap, subtotal, profit)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, txID, line.Product.ID, line.Product.Name, line.Qty, line.SellPriceSnap, line.BuyPriceSnap, line.Subtotal, line.Profit)
		if err != nil {
			return nil, err
		}
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
	}

	// The decrement is guarded even though the rows are locked and the
	// computation already checked stock; a zero-row update means another
	// writer got there first despite the lock, so the sale aborts.
	for productID, qty := range aggregateQty(draft.Items) {
		res, err := pgTx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock - $1
			WHERE id = $2 AND stock >= $1
		`, qty, productID)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, store.ErrInsufficientStock
		}
	}

	for _, line := range result.Lines {
		if line.PartnerCredit < 1 {
			continue
		}
		_, err := pgTx.ExecContext(ctx, `
			UPDATE consignment_partners
			SET balance = balance + $1
			WHERE id = $2
		`, line.PartnerCredit, line.Product.PartnerID)
		if err != nil {
			return nil, err
		}
	}

	if draft.PaymentType == domain.PaymentDebt {
		_, err := pgTx.ExecContext(ctx, `
			INSERT INTO debts (id, customer_name, transaction_id, amount, status, created_at)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, xid.New("debt"), draft.CustomerName, txID, result.TotalAmount, domain.DebtStatusUnpaid, now)
		if err != nil {
			return nil, err
		}
	}

	audit := posting.AuditEntry(xid.New("audit"), draft, txID, result, now)
	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO audit_logs (id, action, entity, entity_id, meta, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, audit.ID, audit.Action, audit.Entity, audit.EntityID, []byte(audit.Meta), audit.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	return &domain.PostedSale{Transaction: tx, TotalProfit: result.TotalProfit}, nil
}

func (s *Store) ListDebts(ctx context.Context, status string) ([]domain.Debt, error) {
	query := `
		SELECT id, customer_name, transaction_id, amount, status, created_at, paid_at
		FROM debts
	`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	debts := make([]domain.Debt, 0, 32)
	for rows.Next() {
		var d domain.Debt
		var paidAt sql.NullTime
		if err := rows.Scan(&d.ID, &d.CustomerName, &d.TransactionID, &d.Amount, &d.Status, &d.CreatedAt, &paidAt); err != nil {
			return nil, err
		}
		if paidAt.Valid {
			p := paidAt.Time
			d.PaidAt = &p
		}
		debts = append(debts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return debts, nil
}

func (s *Store) SettleDebt(ctx context.Context, debtID string, at time.Time) (*domain.Debt, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var debt domain.Debt
	err = pgTx.QueryRowContext(ctx, `
		SELECT id, customer_name, transaction_id, amount, status, created_at
		FROM debts
		WHERE id = $1
		FOR UPDATE
	`, debtID).Scan(&debt.ID, &debt.CustomerName, &debt.TransactionID, &debt.Amount, &debt.Status, &debt.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if debt.Status == domain.DebtStatusPaid {
		return nil, store.ErrInvalidRequest
	}

	paidAt := at.UTC()
	_, err = pgTx.ExecContext(ctx, `
		UPDATE debts
		SET status = $2, paid_at = $3
		WHERE id = $1
	`, debtID, domain.DebtStatusPaid, paidAt)
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}

	debt.Status = domain.DebtStatusPaid
	debt.PaidAt = &paidAt
	return &debt, nil
}

func (s *Store) GetDailyReport(ctx context.Context, from time.Time, to time.Time) (domain.DailyReport, error) {
	report := domain.DailyReport{Date: from.Format("2006-01-02")}

	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(total_amount), 0),
			COALESCE(SUM(total_amount) FILTER (WHERE payment_type = $3), 0),
			COALESCE(SUM(total_amount) FILTER (WHERE payment_type = $4), 0)
		FROM transactions
		WHERE created_at >= $1 AND created_at < $2
	`, from, to, domain.PaymentCash, domain.PaymentDebt).Scan(
		&report.TotalTransactions, &report.Revenue, &report.Cash, &report.Debt)
	if err != nil {
		return domain.DailyReport{}, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(ti.profit), 0)
		FROM transaction_items ti
		JOIN transactions t ON t.id = ti.transaction_id
		WHERE t.created_at >= $1 AND t.created_at < $2
	`, from, to).Scan(&report.Profit)
	if err != nil {
		return domain.DailyReport{}, err
	}

	return report, nil
}

func (s *Store) GetConsignmentReport(ctx context.Context) ([]domain.ConsignmentReportRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cp.id, cp.name, cp.balance,
			COALESCE(SUM(ti.qty), 0),
			COALESCE(SUM(ti.subtotal), 0)
		FROM consignment_partners cp
		LEFT JOIN products p ON p.partner_id = cp.id
		LEFT JOIN transaction_items ti ON ti.product_id = p.id
		GROUP BY cp.id, cp.name, cp.balance
		ORDER BY cp.name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]domain.ConsignmentReportRow, 0, 16)
	for rows.Next() {
		var row domain.ConsignmentReportRow
		if err := rows.Scan(&row.PartnerID, &row.PartnerName, &row.CurrentBalance, &row.TotalQtySold, &row.TotalSales); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Store) GetDashboardSummary(ctx context.Context, todayStart time.Time) (domain.DashboardSummary, error) {
	var summary domain.DashboardSummary

	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_amount), 0) FROM transactions WHERE created_at >= $1
	`, todayStart).Scan(&summary.SalesToday)
	if err != nil {
		return domain.DashboardSummary{}, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0) FROM debts WHERE status = $1
	`, domain.DebtStatusUnpaid).Scan(&summary.ActiveDebts)
	if err != nil {
		return domain.DashboardSummary{}, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(balance), 0) FROM consignment_partners
	`).Scan(&summary.ConsignmentBalance)
	if err != nil {
		return domain.DashboardSummary{}, err
	}

	return summary, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	meta := []byte(entry.Meta)
	if len(meta) == 0 {
		meta = []byte("{}")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, action, entity, entity_id, meta, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, entry.ID, entry.Action, entry.Entity, entry.EntityID, meta, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action, entity, entity_id, meta, created_at
		FROM audit_logs
		WHERE ($1::timestamptz IS NULL OR created_at >= $1)
		  AND ($2::timestamptz IS NULL OR created_at < $2)
		ORDER BY created_at DESC, id DESC
		LIMIT $3
	`, nullTimeZero(from), nullTimeZero(to), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		var meta []byte
		if err := rows.Scan(&entry.ID, &entry.Action, &entry.Entity, &entry.EntityID, &meta, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Meta = meta
		logs = append(logs, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return logs, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidRequest
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return store.ErrInvalidRequest
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	var buyPrice sql.NullInt64
	var partnerID sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &p.SellPrice, &buyPrice, &p.Stock,
		&p.OwnershipType, &partnerID, &p.CreatedAt); err != nil {
		return domain.Product{}, err
	}
	if buyPrice.Valid {
		v := buyPrice.Int64
		p.BuyPrice = &v
	}
	p.PartnerID = partnerID.String
	return p, nil
}

func uniqueProductIDs(items []domain.SaleItem) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

func aggregateQty(items []domain.SaleItem) map[string]int {
	qty := make(map[string]int, len(items))
	for _, item := range items {
		qty[item.ProductID] += item.Qty
	}
	return qty
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

func nullInt64(val *int64) any {
	if val == nil {
		return nil
	}
	return *val
}

func nullTime(val *time.Time) any {
	if val == nil {
		return nil
	}
	return *val
}

func nullTimeZero(val time.Time) any {
	if val.IsZero() {
		return nil
	}
	return val
}
