package store

import (
	"context"
	"errors"
	"time"

	"warungpos/backend/internal/domain"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrProductNotFound     = errors.New("product not found")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrDuplicateSubmission = errors.New("transaction already processed")
)

// Repository is the persistence contract shared by the postgres and
// in-memory stores. CreateSale is the only multi-entity mutator: it performs
// the whole posting unit (stock decrement, partner balance, debt, audit log)
// atomically, or not at all.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product, batch *domain.ProductBatch) (*domain.Product, error)
	ListExpiringBatches(ctx context.Context, before time.Time) ([]domain.ProductBatch, error)

	CreatePartner(ctx context.Context, partner domain.ConsignmentPartner) (*domain.ConsignmentPartner, error)
	ListPartners(ctx context.Context) ([]domain.ConsignmentPartner, error)

	FindTransactionByClientID(ctx context.Context, clientTransactionID string) (*domain.Transaction, error)
	FindTransactionByID(ctx context.Context, id string) (*domain.Transaction, error)
	CreateSale(ctx context.Context, draft domain.SaleDraft) (*domain.PostedSale, error)

	ListDebts(ctx context.Context, status string) ([]domain.Debt, error)
	SettleDebt(ctx context.Context, debtID string, at time.Time) (*domain.Debt, error)

	GetDailyReport(ctx context.Context, from time.Time, to time.Time) (domain.DailyReport, error)
	GetConsignmentReport(ctx context.Context) ([]domain.ConsignmentReportRow, error)
	GetDashboardSummary(ctx context.Context, todayStart time.Time) (domain.DashboardSummary, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, from time.Time, to time.Time, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
