package cartservice

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/pkg/enums"
)

type itemPayload struct {
	ProductID       string           `json:"product_id"`
	ProductName     string           `json:"product_name"`
	Price           decimal.Decimal  `json:"price"`
	SalePrice       *decimal.Decimal `json:"sale_price,omitempty"`
	IsOnSale        bool             `json:"is_on_sale"`
	Quantity        int              `json:"quantity"`
	ProductQuantity *int             `json:"product_quantity,omitempty"`
	Image           string           `json:"image"`
}

type voucherPayload struct {
	Code           string           `json:"code"`
	DiscountType   string           `json:"discount_type"`
	DiscountValue  decimal.Decimal  `json:"discount_value"`
	DiscountAmount decimal.Decimal  `json:"discount_amount"`
	MinimumSpend   *decimal.Decimal `json:"minimum_spend,omitempty"`
}

type cartPayload struct {
	Items    []itemPayload   `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Voucher  *voucherPayload `json:"voucher,omitempty"`
	Total    decimal.Decimal `json:"total"`
}

// mutationResponse is the body of item and voucher-removal calls. Cart is
// only present when the service chose to return the canonical cart.
type mutationResponse struct {
	Cart *cartPayload `json:"cart,omitempty"`
}

type applyVoucherResponse struct {
	Voucher *voucherPayload `json:"voucher"`
	Cart    *cartPayload    `json:"cart,omitempty"`
}

type voucherInfoResponse struct {
	Voucher *voucherPayload `json:"voucher"`
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type applyVoucherRequest struct {
	VoucherCode string `json:"voucher_code"`
}

type errorPayload struct {
	Error *struct {
		Code      string           `json:"code"`
		Message   string           `json:"message"`
		Available *int             `json:"available,omitempty"`
		Required  *decimal.Decimal `json:"required,omitempty"`
	} `json:"error"`
	Detail string `json:"detail"`
}

func (p cartPayload) toSnapshot() (Snapshot, error) {
	items := make([]cart.Item, 0, len(p.Items))
	for _, raw := range p.Items {
		item, err := cart.NewItem(cart.ItemParams{
			ProductID:    raw.ProductID,
			ProductName:  raw.ProductName,
			UnitPrice:    raw.Price,
			SalePrice:    raw.SalePrice,
			SaleActive:   raw.IsOnSale,
			Quantity:     raw.Quantity,
			StockCeiling: raw.ProductQuantity,
			Image:        raw.Image,
		})
		if err != nil {
			return Snapshot{}, err
		}
		items = append(items, item)
	}

	var voucher *cart.VoucherApplication
	if p.Voucher != nil && strings.TrimSpace(p.Voucher.Code) != "" {
		v, err := p.Voucher.toApplication()
		if err != nil {
			return Snapshot{}, err
		}
		voucher = &v
	}

	return Snapshot{
		Items:    items,
		Voucher:  voucher,
		Subtotal: p.Subtotal,
		Total:    p.Total,
	}, nil
}

func (p voucherPayload) toApplication() (cart.VoucherApplication, error) {
	kind, err := enums.ParseDiscountKind(strings.ToLower(strings.TrimSpace(p.DiscountType)))
	if err != nil {
		return cart.VoucherApplication{}, err
	}
	v, err := cart.NewVoucherApplication(p.Code, kind, p.DiscountValue, p.MinimumSpend)
	if err != nil {
		return cart.VoucherApplication{}, err
	}
	v.DiscountAmount = p.DiscountAmount
	return v, nil
}

func optionalSnapshot(p *cartPayload) (*Snapshot, error) {
	if p == nil {
		return nil, nil
	}
	snapshot, err := p.toSnapshot()
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}
