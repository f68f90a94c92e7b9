package cartdto

import (
	"github.com/angelmondragon/storefront/internal/cartstore"
	"github.com/angelmondragon/storefront/internal/cartsync"
	"github.com/angelmondragon/storefront/pkg/types"
)

// State is the GET /cart payload.
type State struct {
	Cart      Cart            `json:"cart"`
	ItemCount int             `json:"item_count"`
	Loading   bool            `json:"loading"`
	Error     *types.APIError `json:"error,omitempty"`
	State     string          `json:"state"`
	Notices   []string        `json:"notices,omitempty"`
}

// Operation is returned by every cart operation endpoint.
type Operation struct {
	Success   bool     `json:"success"`
	Outcome   string   `json:"outcome,omitempty"`
	Notice    string   `json:"notice,omitempty"`
	Cart      Cart     `json:"cart"`
	ItemCount int      `json:"item_count"`
	Notices   []string `json:"notices,omitempty"`
}

type Count struct {
	ItemCount int `json:"item_count"`
}

type VoucherInfo struct {
	Voucher *Voucher `json:"voucher"`
}

type SessionEnded struct {
	Ended bool `json:"ended"`
}

func NewState(view cartstore.View) State {
	out := State{
		Cart:      NewCart(view.Aggregate),
		ItemCount: view.ItemCount,
		Loading:   view.Loading,
		State:     view.State.String(),
		Notices:   view.Notices,
	}
	if view.Err != nil {
		out.Error = &types.APIError{
			Code:      string(view.Err.Code()),
			Message:   view.Err.Message(),
			Retryable: view.Err.Retryable(),
		}
	}
	return out
}

// NewOperation renders a successful or ignored result. Notices raised by
// price or stock drift during the operation ride along.
func NewOperation(res cartsync.Result, notices []string) Operation {
	return Operation{
		Success:   res.Success,
		Outcome:   res.Outcome.String(),
		Notice:    res.Notice,
		Cart:      NewCart(res.Aggregate),
		ItemCount: res.Aggregate.ItemCount(),
		Notices:   notices,
	}
}
