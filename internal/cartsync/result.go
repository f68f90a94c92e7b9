package cartsync

import (
	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

// Result is what every cart operation returns in place of a raw error.
// Aggregate is the published cart after the operation settled; on failure it
// is the previous, untouched aggregate.
type Result struct {
	Success   bool
	Err       *pkgerrors.Error
	Outcome   enums.QuantityOutcome
	Notice    string
	Aggregate cart.Aggregate
}

// Ignored reports a change that was dropped without a remote call and
// without an error, such as a quantity below the minimum.
func (r Result) Ignored() bool {
	return !r.Success && r.Err == nil
}

// RefreshDetails is attached when a mutation reached the cart service but
// the follow-up read failed, so the displayed cart may lag behind.
type RefreshDetails struct {
	MutationApplied bool `json:"mutation_applied"`
}

// Sink owns the published aggregate. Publish replaces it wholesale and must
// not block.
type Sink interface {
	Current() cart.Aggregate
	Publish(agg cart.Aggregate)
}
