package cart

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/money"
)

const (
	StatusPresent = "present"
	StatusAbsent  = "absent"

	// VoucherSubject is the StatusChange subject used for voucher attach/detach.
	VoucherSubject = "voucher"
)

// Change is one difference between two snapshots. The set of variants is
// closed: PriceChange, StockChange, QuantityChange, StatusChange.
type Change interface {
	Kind() enums.CartChangeKind
	Subject() string
	record() ChangeRecord
}

// ChangeRecord is the flat, serializable form of a Change.
type ChangeRecord struct {
	Kind    enums.CartChangeKind `json:"kind"`
	Subject string               `json:"subject"`
	Before  string               `json:"before"`
	After   string               `json:"after"`
}

// PriceChange reports a new effective unit price for a line.
type PriceChange struct {
	ProductID string
	Name      string
	Before    decimal.Decimal
	After     decimal.Decimal
}

func (c PriceChange) Kind() enums.CartChangeKind { return enums.CartChangeKindPrice }
func (c PriceChange) Subject() string            { return c.ProductID }
func (c PriceChange) record() ChangeRecord {
	return ChangeRecord{Kind: c.Kind(), Subject: c.ProductID, Before: c.Before.StringFixed(money.Places), After: c.After.StringFixed(money.Places)}
}

// StockChange reports a new stock ceiling for a line. nil means unknown.
type StockChange struct {
	ProductID string
	Name      string
	Held      int
	Before    *int
	After     *int
}

func (c StockChange) Kind() enums.CartChangeKind { return enums.CartChangeKindStock }
func (c StockChange) Subject() string            { return c.ProductID }
func (c StockChange) record() ChangeRecord {
	return ChangeRecord{Kind: c.Kind(), Subject: c.ProductID, Before: formatCeiling(c.Before), After: formatCeiling(c.After)}
}

// QuantityChange reports a new held quantity for a line.
type QuantityChange struct {
	ProductID string
	Name      string
	Before    int
	After     int
}

func (c QuantityChange) Kind() enums.CartChangeKind { return enums.CartChangeKindQuantity }
func (c QuantityChange) Subject() string            { return c.ProductID }
func (c QuantityChange) record() ChangeRecord {
	return ChangeRecord{Kind: c.Kind(), Subject: c.ProductID, Before: strconv.Itoa(c.Before), After: strconv.Itoa(c.After)}
}

// StatusChange reports a line appearing or disappearing, or the voucher code
// switching.
type StatusChange struct {
	SubjectID string
	Before    string
	After     string
}

func (c StatusChange) Kind() enums.CartChangeKind { return enums.CartChangeKindStatus }
func (c StatusChange) Subject() string            { return c.SubjectID }
func (c StatusChange) record() ChangeRecord {
	return ChangeRecord{Kind: c.Kind(), Subject: c.SubjectID, Before: c.Before, After: c.After}
}

// Records flattens changes for logging and event payloads.
func Records(changes []Change) []ChangeRecord {
	out := make([]ChangeRecord, 0, len(changes))
	for _, change := range changes {
		out = append(out, change.record())
	}
	return out
}

// Diff lists what differs between two snapshots, in after's line order
// followed by removed lines and the voucher.
func Diff(before, after Aggregate) []Change {
	var changes []Change

	previous := make(map[string]Item, len(before.Items))
	for _, item := range before.Items {
		previous[item.ProductID] = item
	}
	seen := make(map[string]struct{}, len(after.Items))

	for _, item := range after.Items {
		seen[item.ProductID] = struct{}{}
		old, ok := previous[item.ProductID]
		if !ok {
			changes = append(changes, StatusChange{SubjectID: item.ProductID, Before: StatusAbsent, After: StatusPresent})
			continue
		}
		if !old.EffectivePrice().Equal(item.EffectivePrice()) {
			changes = append(changes, PriceChange{
				ProductID: item.ProductID,
				Name:      item.displayName(),
				Before:    old.EffectivePrice(),
				After:     item.EffectivePrice(),
			})
		}
		if !sameCeiling(old.StockCeiling, item.StockCeiling) {
			changes = append(changes, StockChange{
				ProductID: item.ProductID,
				Name:      item.displayName(),
				Held:      item.Quantity,
				Before:    copyIntPtr(old.StockCeiling),
				After:     copyIntPtr(item.StockCeiling),
			})
		}
		if old.Quantity != item.Quantity {
			changes = append(changes, QuantityChange{
				ProductID: item.ProductID,
				Name:      item.displayName(),
				Before:    old.Quantity,
				After:     item.Quantity,
			})
		}
	}

	for _, item := range before.Items {
		if _, ok := seen[item.ProductID]; !ok {
			changes = append(changes, StatusChange{SubjectID: item.ProductID, Before: StatusPresent, After: StatusAbsent})
		}
	}

	if oldCode, newCode := voucherCode(before.Voucher), voucherCode(after.Voucher); oldCode != newCode {
		changes = append(changes, StatusChange{SubjectID: VoucherSubject, Before: oldCode, After: newCode})
	}

	return changes
}

// Notices turns changes the customer must know about into messages: price
// increases and stock falling below the held quantity.
func Notices(changes []Change) []string {
	var notices []string
	for _, change := range changes {
		switch c := change.(type) {
		case PriceChange:
			if c.After.GreaterThan(c.Before) {
				notices = append(notices, fmt.Sprintf("Price of %s changed from %s to %s", c.Name, money.Format(c.Before), money.Format(c.After)))
			}
		case StockChange:
			if c.After == nil {
				continue
			}
			if *c.After < 1 {
				notices = append(notices, OutOfStockNotice(c.Name))
			} else if *c.After < c.Held {
				notices = append(notices, fmt.Sprintf("%s: %s", c.Name, AvailabilityNotice(*c.After)))
			}
		}
	}
	return notices
}

func sameCeiling(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func formatCeiling(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func voucherCode(v *VoucherApplication) string {
	if v == nil {
		return ""
	}
	return v.Code
}
