// Package posting holds the pure computation half of the sale posting
// engine: validating a cart against a consistent product snapshot and folding
// it into an immutable financial breakdown. Persistence consumes the result
// exactly once inside the store's atomic unit.
package posting

import (
	"encoding/json"
	"fmt"
	"time"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
)

// Line is the computed snapshot for one cart item.
type Line struct {
	Product       domain.Product
	Qty           int
	SellPriceSnap int64
	BuyPriceSnap  int64
	Subtotal      int64
	Profit        int64
	// PartnerCredit is the amount owed to the consignment partner for this
	// line; zero for OWN products.
	PartnerCredit int64
}

// Result is the immutable outcome of computing a cart. It carries everything
// the persistence step needs to apply the sale without recomputing.
type Result struct {
	Lines       []Line
	TotalAmount int64
	TotalProfit int64
	ItemCount   int
}

// Compute validates the cart against the given product snapshot and folds it
// into a Result. It is side-effect free: callers pass the snapshot they hold
// (locked rows in postgres, guarded maps in memory) and apply the mutations
// themselves.
//
// Stock is checked per product over the aggregate quantity across cart lines,
// so a cart listing the same product twice cannot pass the check line by line
// and still oversell.
func Compute(products map[string]domain.Product, items []domain.SaleItem, fallbackCostPercent int) (Result, error) {
	if len(items) == 0 {
		return Result{}, fmt.Errorf("%w: items must not be empty", store.ErrInvalidRequest)
	}

	qtyByProduct := make(map[string]int, len(items))
	for _, item := range items {
		if item.Qty < 1 {
			return Result{}, fmt.Errorf("%w: qty must be greater than 0", store.ErrInvalidRequest)
		}
		if _, exists := products[item.ProductID]; !exists {
			return Result{}, fmt.Errorf("%w: %s", store.ErrProductNotFound, item.ProductID)
		}
		qtyByProduct[item.ProductID] += item.Qty
	}
	for productID, qty := range qtyByProduct {
		product := products[productID]
		if product.Stock < qty {
			return Result{}, fmt.Errorf("%w: %s", store.ErrInsufficientStock, product.Name)
		}
	}

	result := Result{Lines: make([]Line, 0, len(items))}
	for _, item := range items {
		product := products[item.ProductID]

		subtotal := product.SellPrice * int64(item.Qty)
		cost := costBasis(product, fallbackCostPercent)
		profit := (product.SellPrice - cost) * int64(item.Qty)

		line := Line{
			Product:       product,
			Qty:           item.Qty,
			SellPriceSnap: product.SellPrice,
			BuyPriceSnap:  cost,
			Subtotal:      subtotal,
			Profit:        profit,
		}
		if product.OwnershipType == domain.OwnershipConsignment && product.PartnerID != "" {
			line.PartnerCredit = subtotal
		}

		result.Lines = append(result.Lines, line)
		result.TotalAmount += subtotal
		result.TotalProfit += profit
	}
	result.ItemCount = len(items)

	return result, nil
}

// costBasis returns the per-unit cost snapshot for a product. Consignment
// goods cost the shop nothing; OWN goods use the recorded buy price, or the
// configured fallback ratio of the sell price when the buy price is unknown.
func costBasis(product domain.Product, fallbackCostPercent int) int64 {
	if product.OwnershipType == domain.OwnershipConsignment {
		return 0
	}
	if product.BuyPrice != nil {
		return *product.BuyPrice
	}
	return (product.SellPrice*int64(fallbackCostPercent) + 50) / 100
}

// FallbackCost exposes the fallback ratio computation for catalog defaults.
func FallbackCost(sellPrice int64, fallbackCostPercent int) int64 {
	return (sellPrice*int64(fallbackCostPercent) + 50) / 100
}

type auditItem struct {
	ProductID    string `json:"product_id"`
	ProductName  string `json:"product_name"`
	Qty          int    `json:"qty"`
	SellPrice    int64  `json:"sell_price"`
	BuyPriceSnap int64  `json:"buy_price_snap"`
	Subtotal     int64  `json:"subtotal"`
	Profit       int64  `json:"profit"`
}

type auditMeta struct {
	TotalAmount         int64       `json:"total_amount"`
	TotalProfit         int64       `json:"total_profit"`
	PaymentType         string      `json:"payment_type"`
	ItemCount           int         `json:"item_count"`
	CustomerName        string      `json:"customer_name,omitempty"`
	ClientTransactionID string      `json:"client_transaction_id,omitempty"`
	Items               []auditItem `json:"items"`
}

// AuditEntry builds the append-only audit record for a posted sale, carrying
// the full computed breakdown. Written inside the same atomic unit as the
// sale itself.
func AuditEntry(id string, draft domain.SaleDraft, transactionID string, result Result, at time.Time) domain.AuditLog {
	meta := auditMeta{
		TotalAmount:         result.TotalAmount,
		TotalProfit:         result.TotalProfit,
		PaymentType:         draft.PaymentType,
		ItemCount:           result.ItemCount,
		CustomerName:        draft.CustomerName,
		ClientTransactionID: draft.ClientTransactionID,
		Items:               make([]auditItem, 0, len(result.Lines)),
	}
	for _, line := range result.Lines {
		meta.Items = append(meta.Items, auditItem{
			ProductID:    line.Product.ID,
			ProductName:  line.Product.Name,
			Qty:          line.Qty,
			SellPrice:    line.SellPriceSnap,
			BuyPriceSnap: line.BuyPriceSnap,
			Subtotal:     line.Subtotal,
			Profit:       line.Profit,
		})
	}

	payload, err := json.Marshal(meta)
	if err != nil {
		payload = []byte("{}")
	}

	return domain.AuditLog{
		ID:        id,
		Action:    "CREATE_TRANSACTION",
		Entity:    "Transaction",
		EntityID:  transactionID,
		Meta:      payload,
		CreatedAt: at,
	}
}
