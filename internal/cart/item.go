package cart

import (
	"strings"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/money"
)

// Item is one cart line as last reported by the cart service.
type Item struct {
	ProductID    string
	ProductName  string
	UnitPrice    decimal.Decimal
	SalePrice    *decimal.Decimal
	SaleActive   bool
	Quantity     int
	StockCeiling *int
	Image        string
}

// ItemParams carries the raw values used to build an Item.
type ItemParams struct {
	ProductID    string
	ProductName  string
	UnitPrice    decimal.Decimal
	SalePrice    *decimal.Decimal
	SaleActive   bool
	Quantity     int
	StockCeiling *int
	Image        string
}

// NewItem validates params and returns the line item.
func NewItem(params ItemParams) (Item, error) {
	productID := strings.TrimSpace(params.ProductID)
	if productID == "" {
		return Item{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if params.Quantity < money.MinQuantity {
		return Item{}, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	if params.UnitPrice.IsNegative() {
		return Item{}, pkgerrors.New(pkgerrors.CodeValidation, "unit price cannot be negative")
	}
	if params.SalePrice != nil && params.SalePrice.IsNegative() {
		return Item{}, pkgerrors.New(pkgerrors.CodeValidation, "sale price cannot be negative")
	}
	if params.StockCeiling != nil && *params.StockCeiling < 0 {
		return Item{}, pkgerrors.New(pkgerrors.CodeValidation, "stock ceiling cannot be negative")
	}

	return Item{
		ProductID:    productID,
		ProductName:  params.ProductName,
		UnitPrice:    params.UnitPrice,
		SalePrice:    copyDecimalPtr(params.SalePrice),
		SaleActive:   params.SaleActive,
		Quantity:     params.Quantity,
		StockCeiling: copyIntPtr(params.StockCeiling),
		Image:        params.Image,
	}, nil
}

// OnSale reports whether the sale price overrides the unit price.
func (i Item) OnSale() bool {
	return i.SaleActive && i.SalePrice != nil
}

// EffectivePrice is the per-unit price used for the line subtotal. UnitPrice
// stays untouched so the original price can still be shown struck through.
func (i Item) EffectivePrice() decimal.Decimal {
	if i.OnSale() {
		return *i.SalePrice
	}
	return i.UnitPrice
}

// LineSubtotal is effective price times quantity, rounded once.
func (i Item) LineSubtotal() decimal.Decimal {
	return money.Round(i.EffectivePrice().Mul(decimal.NewFromInt(int64(i.Quantity))))
}

// ExceedsStock reports whether the held quantity is above the known ceiling,
// which happens when stock is depleted mid-session.
func (i Item) ExceedsStock() bool {
	return i.StockCeiling != nil && i.Quantity > *i.StockCeiling
}

func (i Item) displayName() string {
	if strings.TrimSpace(i.ProductName) != "" {
		return i.ProductName
	}
	return i.ProductID
}

func copyIntPtr(src *int) *int {
	if src == nil {
		return nil
	}
	val := *src
	return &val
}

func copyDecimalPtr(src *decimal.Decimal) *decimal.Decimal {
	if src == nil {
		return nil
	}
	val := *src
	return &val
}
