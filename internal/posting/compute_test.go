package posting

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"warungpos/backend/internal/domain"
	"warungpos/backend/internal/store"
)

func int64p(v int64) *int64 { return &v }

func testProducts() map[string]domain.Product {
	return map[string]domain.Product{
		"prd-own": {
			ID: "prd-own", Name: "Mie Goreng", SellPrice: 5000, BuyPrice: int64p(3000),
			Stock: 10, OwnershipType: domain.OwnershipOwn,
		},
		"prd-own-nocost": {
			ID: "prd-own-nocost", Name: "Gula", SellPrice: 10000,
			Stock: 8, OwnershipType: domain.OwnershipOwn,
		},
		"prd-titip": {
			ID: "prd-titip", Name: "Risol Mayo", SellPrice: 10000,
			Stock: 2, OwnershipType: domain.OwnershipConsignment, PartnerID: "cp-1",
		},
	}
}

func TestComputeOwnProductSnapshots(t *testing.T) {
	result, err := Compute(testProducts(), []domain.SaleItem{{ProductID: "prd-own", Qty: 2}}, 70)
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}

	if result.TotalAmount != 10000 {
		t.Fatalf("expected total 10000, got %d", result.TotalAmount)
	}
	if result.TotalProfit != 4000 {
		t.Fatalf("expected profit 4000, got %d", result.TotalProfit)
	}
	if result.ItemCount != 1 {
		t.Fatalf("expected item count 1, got %d", result.ItemCount)
	}

	line := result.Lines[0]
	if line.SellPriceSnap != 5000 || line.BuyPriceSnap != 3000 {
		t.Fatalf("unexpected snapshots: sell=%d buy=%d", line.SellPriceSnap, line.BuyPriceSnap)
	}
	if line.PartnerCredit != 0 {
		t.Fatalf("own products must not credit a partner, got %d", line.PartnerCredit)
	}
}

func TestComputeFallbackCostForUnknownBuyPrice(t *testing.T) {
	result, err := Compute(testProducts(), []domain.SaleItem{{ProductID: "prd-own-nocost", Qty: 1}}, 70)
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}

	// 70% of 10000
	if result.Lines[0].BuyPriceSnap != 7000 {
		t.Fatalf("expected fallback cost 7000, got %d", result.Lines[0].BuyPriceSnap)
	}
	if result.TotalProfit != 3000 {
		t.Fatalf("expected profit 3000, got %d", result.TotalProfit)
	}
}

func TestComputeConsignmentCreditsPartner(t *testing.T) {
	products := testProducts()
	p := products["prd-titip"]
	p.Stock = 5
	products["prd-titip"] = p

	result, err := Compute(products, []domain.SaleItem{{ProductID: "prd-titip", Qty: 3}}, 70)
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}

	line := result.Lines[0]
	if line.BuyPriceSnap != 0 {
		t.Fatalf("consignment cost basis must be 0, got %d", line.BuyPriceSnap)
	}
	if line.PartnerCredit != 30000 {
		t.Fatalf("expected partner credit 30000, got %d", line.PartnerCredit)
	}
	if result.TotalProfit != 30000 {
		t.Fatalf("expected profit 30000, got %d", result.TotalProfit)
	}
}

func TestComputeInsufficientStockNamesProduct(t *testing.T) {
	_, err := Compute(testProducts(), []domain.SaleItem{{ProductID: "prd-titip", Qty: 3}}, 70)
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if got := err.Error(); !strings.Contains(got, "Risol Mayo") {
		t.Fatalf("expected error to name the product, got %q", got)
	}
}

func TestComputeAggregatesDuplicateLines(t *testing.T) {
	// Two lines of 6 each exceed the stock of 10 together even though each
	// passes alone.
	_, err := Compute(testProducts(), []domain.SaleItem{
		{ProductID: "prd-own", Qty: 6},
		{ProductID: "prd-own", Qty: 6},
	}, 70)
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestComputeUnknownProduct(t *testing.T) {
	_, err := Compute(testProducts(), []domain.SaleItem{
		{ProductID: "prd-own", Qty: 1},
		{ProductID: "prd-ghost", Qty: 1},
	}, 70)
	if !errors.Is(err, store.ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestComputeRejectsBadQtyAndEmptyCart(t *testing.T) {
	if _, err := Compute(testProducts(), nil, 70); !errors.Is(err, store.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for empty cart, got %v", err)
	}
	if _, err := Compute(testProducts(), []domain.SaleItem{{ProductID: "prd-own", Qty: 0}}, 70); !errors.Is(err, store.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest for zero qty, got %v", err)
	}
}

func TestComputeTotalsBalance(t *testing.T) {
	result, err := Compute(testProducts(), []domain.SaleItem{
		{ProductID: "prd-own", Qty: 2},
		{ProductID: "prd-titip", Qty: 1},
	}, 70)
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}

	var sumSubtotal, sumProfit int64
	for _, line := range result.Lines {
		if line.Subtotal != line.SellPriceSnap*int64(line.Qty) {
			t.Fatalf("subtotal mismatch on %s", line.Product.ID)
		}
		if line.Profit != (line.SellPriceSnap-line.BuyPriceSnap)*int64(line.Qty) {
			t.Fatalf("profit mismatch on %s", line.Product.ID)
		}
		sumSubtotal += line.Subtotal
		sumProfit += line.Profit
	}
	if sumSubtotal != result.TotalAmount || sumProfit != result.TotalProfit {
		t.Fatalf("totals do not balance: %d/%d vs %d/%d", sumSubtotal, sumProfit, result.TotalAmount, result.TotalProfit)
	}
}

func TestAuditEntryCarriesBreakdown(t *testing.T) {
	draft := domain.SaleDraft{
		PaymentType:         domain.PaymentDebt,
		CustomerName:        "Bu Ani",
		ClientTransactionID: "client-1",
		Items:               []domain.SaleItem{{ProductID: "prd-own", Qty: 2}},
	}
	result, err := Compute(testProducts(), draft.Items, 70)
	if err != nil {
		t.Fatalf("compute failed: %v", err)
	}

	entry := AuditEntry("audit-1", draft, "trx-1", result, time.Now().UTC())
	if entry.Action != "CREATE_TRANSACTION" || entry.Entity != "Transaction" || entry.EntityID != "trx-1" {
		t.Fatalf("unexpected entry header: %+v", entry)
	}

	var meta struct {
		TotalAmount         int64  `json:"total_amount"`
		TotalProfit         int64  `json:"total_profit"`
		PaymentType         string `json:"payment_type"`
		ItemCount           int    `json:"item_count"`
		CustomerName        string `json:"customer_name"`
		ClientTransactionID string `json:"client_transaction_id"`
		Items               []any  `json:"items"`
	}
	if err := json.Unmarshal(entry.Meta, &meta); err != nil {
		t.Fatalf("meta is not valid JSON: %v", err)
	}
	if meta.TotalAmount != 10000 || meta.TotalProfit != 4000 || meta.ItemCount != 1 {
		t.Fatalf("unexpected meta totals: %+v", meta)
	}
	if meta.PaymentType != domain.PaymentDebt || meta.CustomerName != "Bu Ani" || meta.ClientTransactionID != "client-1" {
		t.Fatalf("unexpected meta fields: %+v", meta)
	}
	if len(meta.Items) != 1 {
		t.Fatalf("expected 1 item in meta, got %d", len(meta.Items))
	}
}
