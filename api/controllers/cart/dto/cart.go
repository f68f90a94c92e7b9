package cartdto

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/money"
)

// Cart is the aggregate as rendered for the storefront UI. Amounts are
// decimal strings with two places; *_display fields are for presentation.
type Cart struct {
	Items           []CartItem `json:"items"`
	Subtotal        string     `json:"subtotal"`
	SubtotalDisplay string     `json:"subtotal_display"`
	Voucher         *Voucher   `json:"voucher,omitempty"`
	Discount        string     `json:"discount"`
	Total           string     `json:"total"`
	TotalDisplay    string     `json:"total_display"`
	Currency        string     `json:"currency"`
}

type CartItem struct {
	ProductID      string  `json:"product_id"`
	ProductName    string  `json:"product_name"`
	UnitPrice      string  `json:"price"`
	SalePrice      *string `json:"sale_price,omitempty"`
	OnSale         bool    `json:"is_on_sale"`
	EffectivePrice string  `json:"effective_price"`
	Quantity       int     `json:"quantity"`
	StockCeiling   *int    `json:"product_quantity,omitempty"`
	ExceedsStock   bool    `json:"exceeds_stock"`
	LineSubtotal   string  `json:"line_subtotal"`
	Image          string  `json:"image,omitempty"`
}

type Voucher struct {
	Code           string  `json:"code"`
	DiscountType   string  `json:"discount_type"`
	DiscountValue  string  `json:"discount_value"`
	DiscountAmount string  `json:"discount_amount"`
	MinimumSpend   *string `json:"minimum_spend,omitempty"`
}

// NewCart renders an aggregate.
func NewCart(agg cart.Aggregate) Cart {
	items := make([]CartItem, 0, len(agg.Items))
	for _, item := range agg.Items {
		items = append(items, newCartItem(item))
	}
	return Cart{
		Items:           items,
		Subtotal:        amount(agg.Subtotal),
		SubtotalDisplay: money.Format(agg.Subtotal),
		Voucher:         NewVoucher(agg.Voucher),
		Discount:        amount(agg.Discount()),
		Total:           amount(agg.Total),
		TotalDisplay:    money.Format(agg.Total),
		Currency:        enums.CurrencyPHP.String(),
	}
}

func newCartItem(item cart.Item) CartItem {
	out := CartItem{
		ProductID:      item.ProductID,
		ProductName:    item.ProductName,
		UnitPrice:      amount(item.UnitPrice),
		OnSale:         item.OnSale(),
		EffectivePrice: amount(item.EffectivePrice()),
		Quantity:       item.Quantity,
		ExceedsStock:   item.ExceedsStock(),
		LineSubtotal:   amount(item.LineSubtotal()),
		Image:          item.Image,
	}
	if item.SalePrice != nil {
		sale := amount(*item.SalePrice)
		out.SalePrice = &sale
	}
	if item.StockCeiling != nil {
		ceiling := *item.StockCeiling
		out.StockCeiling = &ceiling
	}
	return out
}

// NewVoucher renders a voucher application; nil stays nil.
func NewVoucher(v *cart.VoucherApplication) *Voucher {
	if v == nil {
		return nil
	}
	out := &Voucher{
		Code:           v.Code,
		DiscountType:   v.Kind.String(),
		DiscountValue:  v.Value.String(),
		DiscountAmount: amount(v.DiscountAmount),
	}
	if v.MinimumSpend != nil {
		min := amount(*v.MinimumSpend)
		out.MinimumSpend = &min
	}
	return out
}

func amount(value decimal.Decimal) string {
	return money.Round(value).StringFixed(money.Places)
}
