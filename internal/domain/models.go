package domain

import (
	"encoding/json"
	"time"
)

// Money values are int64 minor units throughout.

const (
	OwnershipOwn         = "OWN"
	OwnershipConsignment = "CONSIGNMENT"
)

const (
	PaymentCash = "CASH"
	PaymentDebt = "DEBT"
)

const (
	DebtStatusUnpaid = "UNPAID"
	DebtStatusPaid   = "PAID"
)

type Product struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	SellPrice     int64     `json:"sell_price"`
	BuyPrice      *int64    `json:"buy_price,omitempty"`
	Stock         int       `json:"stock"`
	OwnershipType string    `json:"ownership_type"`
	PartnerID     string    `json:"partner_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type ProductCreateRequest struct {
	Name          string `json:"name"`
	Category      string `json:"category"`
	SellPrice     int64  `json:"sell_price"`
	BuyPrice      *int64 `json:"buy_price,omitempty"`
	Stock         int    `json:"stock"`
	OwnershipType string `json:"ownership_type"`
	PartnerID     string `json:"partner_id,omitempty"`
	ExpiredAt     string `json:"expired_at,omitempty"`
}

// ProductBatch is a cost lot for OWN products, tracked for expiry alerting.
// Batch stock and Product.Stock are maintained independently; the sale
// posting path reads Product.Stock only.
type ProductBatch struct {
	ID          string     `json:"id"`
	ProductID   string     `json:"product_id"`
	BuyPrice    int64      `json:"buy_price"`
	Stock       int        `json:"stock"`
	ExpiredAt   *time.Time `json:"expired_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ProductName string     `json:"product_name,omitempty"`
}

type ConsignmentPartner struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
}

type PartnerCreateRequest struct {
	Name string `json:"name"`
}

type SaleItem struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type SaleRequest struct {
	PaymentType         string     `json:"payment_type"`
	CustomerName        string     `json:"customer_name,omitempty"`
	ClientTransactionID string     `json:"client_transaction_id,omitempty"`
	Items               []SaleItem `json:"items"`
}

// SaleDraft is the validated input handed to the store's atomic posting
// operation. FallbackCostPercent is the configured cost-basis ratio applied
// to OWN products without a known buy price.
type SaleDraft struct {
	ID                  string
	PaymentType         string
	CustomerName        string
	ClientTransactionID string
	Items               []SaleItem
	FallbackCostPercent int
	CreatedAt           time.Time
}

// Transaction is an immutable sales receipt. TotalAmount always equals the
// sum of its item subtotals.
type Transaction struct {
	ID                  string            `json:"id"`
	PaymentType         string            `json:"payment_type"`
	TotalAmount         int64             `json:"total_amount"`
	ClientTransactionID string            `json:"client_transaction_id,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	Items               []TransactionItem `json:"items,omitempty"`
}

// TransactionItem is a point-in-time snapshot of one sold line. Snapshots are
// frozen at posting time; later catalog price changes never affect them.
type TransactionItem struct {
	TransactionID string `json:"transaction_id"`
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	Qty           int    `json:"qty"`
	SellPriceSnap int64  `json:"sell_price_snap"`
	BuyPriceSnap  int64  `json:"buy_price_snap"`
	Subtotal      int64  `json:"subtotal"`
	Profit        int64  `json:"profit"`
}

// PostedSale is the result of the atomic posting unit: the persisted
// transaction plus the profit total, which lives on the items rather than on
// the transaction row.
type PostedSale struct {
	Transaction Transaction
	TotalProfit int64
}

type Receipt struct {
	Success             bool   `json:"success"`
	TransactionID       string `json:"transaction_id"`
	TotalAmount         int64  `json:"total_amount"`
	TotalProfit         int64  `json:"total_profit"`
	ItemCount           int    `json:"item_count"`
	ClientTransactionID string `json:"client_transaction_id,omitempty"`
}

type Debt struct {
	ID            string     `json:"id"`
	CustomerName  string     `json:"customer_name"`
	TransactionID string     `json:"transaction_id"`
	Amount        int64      `json:"amount"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	PaidAt        *time.Time `json:"paid_at,omitempty"`
}

// AuditLog is an append-only record. Meta carries a structured JSON snapshot
// of whatever was computed for the action.
type AuditLog struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	Entity    string          `json:"entity"`
	EntityID  string          `json:"entity_id"`
	Meta      json.RawMessage `json:"meta,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type DailyReport struct {
	Date              string `json:"date"`
	TotalTransactions int64  `json:"total_transactions"`
	Revenue           int64  `json:"revenue"`
	Profit            int64  `json:"profit"`
	Cash              int64  `json:"cash"`
	Debt              int64  `json:"debt"`
}

type ConsignmentReportRow struct {
	PartnerID      string `json:"partner_id"`
	PartnerName    string `json:"partner_name"`
	TotalQtySold   int64  `json:"total_qty_sold"`
	TotalSales     int64  `json:"total_sales"`
	CurrentBalance int64  `json:"current_balance"`
}

type DashboardSummary struct {
	SalesToday         int64 `json:"sales_today"`
	ActiveDebts        int64 `json:"active_debts"`
	ConsignmentBalance int64 `json:"consignment_balance"`
}

const (
	StockStatusNormal   = "NORMAL"
	StockStatusLow      = "LOW"
	StockStatusCritical = "CRITICAL"
)

type StockAlert struct {
	Product Product `json:"product"`
	Status  string  `json:"status"`
	Message string  `json:"message"`
}

type StockAlertSummary struct {
	TotalProducts     int `json:"total_products"`
	LowStock          int `json:"low_stock"`
	CriticalStock     int `json:"critical_stock"`
	NormalStock       int `json:"normal_stock"`
	LowThreshold      int `json:"low_threshold"`
	CriticalThreshold int `json:"critical_threshold"`
}

type StockAlertResponse struct {
	Summary StockAlertSummary `json:"summary"`
	Alerts  []StockAlert      `json:"alerts"`
}

type ExpiryBatch struct {
	Batch          ProductBatch `json:"batch"`
	RemainingDays  int          `json:"remaining_days"`
	IsExpired      bool         `json:"is_expired"`
	WillExpireSoon bool         `json:"will_expire_soon"`
}

type ExpiryAlertSummary struct {
	Total         int `json:"total"`
	Expired       int `json:"expired"`
	ExpiringSoon  int `json:"expiring_soon"`
	Upcoming      int `json:"upcoming"`
	DaysThreshold int `json:"days_threshold"`
}

type ExpiryAlertResponse struct {
	Summary ExpiryAlertSummary `json:"summary"`
	Batches []ExpiryBatch      `json:"batches"`
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

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type CashierCreateRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type CashierUser struct {
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
