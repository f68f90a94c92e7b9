package cartdto

// AddItemRequest adds quantity units of a product; quantity defaults to 1.
// Quantities below one are answered with REJECTED_BELOW_MIN, not a 400.
type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,printascii,max=64"`
	Quantity  *int   `json:"quantity,omitempty"`
}

// QuantityOrDefault returns the requested quantity or 1.
func (r AddItemRequest) QuantityOrDefault() int {
	if r.Quantity == nil {
		return 1
	}
	return *r.Quantity
}

type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

type ApplyVoucherRequest struct {
	Code string `json:"code" validate:"max=64"`
}
