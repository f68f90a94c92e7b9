package cartsync

import (
	"context"
	"fmt"
	"strings"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/cartevents"
	"github.com/angelmondragon/storefront/internal/cartservice"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/money"
)

// FetchCart reads the canonical cart. Reads are not queued behind
// mutations; a read issued before the latest mutation is discarded when it
// completes. A failed read publishes the empty cart.
func (s *Synchronizer) FetchCart(ctx context.Context) Result {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return s.failure(sessionEnded(), "", "")
	}
	seq := s.nextSeqLocked(false)
	s.fetches++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.fetches--
		s.mu.Unlock()
	}()

	var snapshot cartservice.Snapshot
	err := s.call(ctx, opGetCart, func(ctx context.Context) error {
		var err error
		snapshot, err = s.remote.GetCart(ctx)
		return err
	})
	if err != nil {
		s.mu.Lock()
		if seq > s.lastMutationSeq && seq > s.publishedSeq {
			s.publishLocked(seq, cart.Empty())
		}
		s.mu.Unlock()
		return s.failure(cartservice.ToAppError(err), "", "")
	}

	s.accept(ctx, opGetCart, seq, snapshot)
	return s.success("", "")
}

// AddItem appends a product or increments the existing line.
func (s *Synchronizer) AddItem(ctx context.Context, productID string, quantity int) Result {
	if quantity < money.MinQuantity {
		s.metrics.IncGuardOutcome(enums.QuantityOutcomeRejectedBelowMin.String())
		return Result{Outcome: enums.QuantityOutcomeRejectedBelowMin, Aggregate: s.sink.Current()}
	}
	return s.enqueue(ctx, opAddItem, func(ctx context.Context) Result {
		return s.addItem(ctx, productID, quantity)
	})
}

func (s *Synchronizer) addItem(ctx context.Context, productID string, quantity int) Result {
	seq, before := s.beginMutation()

	var existing *cart.Item
	held := 0
	name := productID
	if item, ok := before.Find(productID); ok {
		existing = &item
		held = item.Quantity
		name = item.ProductName
	}

	decision := cart.ValidateAddition(existing, quantity)
	s.metrics.IncGuardOutcome(decision.Outcome.String())
	if !decision.Proceed() {
		return s.stockRejected(productID, decision, ceilingOf(existing))
	}

	var snapshot *cartservice.Snapshot
	add := func(delta int) error {
		return s.call(ctx, opAddItem, func(ctx context.Context) error {
			var err error
			snapshot, err = s.remote.AddItem(ctx, productID, delta)
			return err
		})
	}

	err := add(decision.Quantity)
	if available, ok := outOfStock(err); ok {
		delta := available - held
		if delta < money.MinQuantity {
			return s.mutationFailed(err, enums.QuantityOutcomeRejectedOutOfStock, stockNotice(name, available))
		}
		decision = cart.Decision{
			Quantity: delta,
			Outcome:  enums.QuantityOutcomeClampedToCeiling,
			Notice:   cart.AvailabilityNotice(available),
		}
		s.metrics.IncGuardOutcome(decision.Outcome.String())
		err = add(delta)
	}
	if err != nil {
		return s.mutationFailed(err, decision.Outcome, decision.Notice)
	}

	if appErr := s.settle(ctx, opAddItem, seq, snapshot); appErr != nil {
		return s.failure(appErr, decision.Outcome, decision.Notice)
	}
	s.emit(ctx, enums.CartEventTypeItemAdded, before, func(e *cartevents.Event) {
		e.ProductID = productID
		e.Quantity = intPtr(decision.Quantity)
	})
	return s.success(decision.Outcome, decision.Notice)
}

// UpdateQuantity sets a line to an absolute quantity. Quantities below the
// minimum are ignored without a remote call.
func (s *Synchronizer) UpdateQuantity(ctx context.Context, productID string, quantity int) Result {
	if quantity < money.MinQuantity {
		s.metrics.IncGuardOutcome(enums.QuantityOutcomeRejectedBelowMin.String())
		return Result{Outcome: enums.QuantityOutcomeRejectedBelowMin, Aggregate: s.sink.Current()}
	}
	return s.enqueue(ctx, opUpdateItem, func(ctx context.Context) Result {
		return s.updateQuantity(ctx, productID, quantity)
	})
}

func (s *Synchronizer) updateQuantity(ctx context.Context, productID string, quantity int) Result {
	seq, before := s.beginMutation()

	decision := cart.Decision{Quantity: quantity, Outcome: enums.QuantityOutcomeAccepted}
	name := productID
	var ceiling *int
	if item, ok := before.Find(productID); ok {
		decision = cart.ValidateQuantityChange(item, quantity)
		name = item.ProductName
		ceiling = item.StockCeiling
	}
	s.metrics.IncGuardOutcome(decision.Outcome.String())
	if !decision.Proceed() {
		return s.stockRejected(productID, decision, ceiling)
	}

	var snapshot *cartservice.Snapshot
	update := func(qty int) error {
		return s.call(ctx, opUpdateItem, func(ctx context.Context) error {
			var err error
			snapshot, err = s.remote.UpdateItem(ctx, productID, qty)
			return err
		})
	}

	err := update(decision.Quantity)
	if available, ok := outOfStock(err); ok {
		if available < money.MinQuantity || available >= decision.Quantity {
			return s.mutationFailed(err, enums.QuantityOutcomeRejectedOutOfStock, stockNotice(name, available))
		}
		decision = cart.Decision{
			Quantity: available,
			Outcome:  enums.QuantityOutcomeClampedToCeiling,
			Notice:   cart.AvailabilityNotice(available),
		}
		s.metrics.IncGuardOutcome(decision.Outcome.String())
		err = update(available)
	}
	if err != nil {
		return s.mutationFailed(err, decision.Outcome, decision.Notice)
	}

	if appErr := s.settle(ctx, opUpdateItem, seq, snapshot); appErr != nil {
		return s.failure(appErr, decision.Outcome, decision.Notice)
	}
	s.emit(ctx, enums.CartEventTypeQuantityUpdated, before, func(e *cartevents.Event) {
		e.ProductID = productID
		e.Quantity = intPtr(decision.Quantity)
	})
	return s.success(decision.Outcome, joinNotices(decision.Notice, s.enforceVoucherPolicy(ctx)))
}

// RemoveItem deletes a line. Removing a line that is already gone succeeds.
func (s *Synchronizer) RemoveItem(ctx context.Context, productID string) Result {
	return s.enqueue(ctx, opRemoveItem, func(ctx context.Context) Result {
		seq, before := s.beginMutation()

		var snapshot *cartservice.Snapshot
		err := s.call(ctx, opRemoveItem, func(ctx context.Context) error {
			var err error
			snapshot, err = s.remote.RemoveItem(ctx, productID)
			return err
		})
		removed := true
		if err != nil {
			if cartservice.KindOf(err) != enums.RemoteErrorKindNotFound {
				return s.mutationFailed(err, "", "")
			}
			removed = false
			snapshot = nil
		}

		if appErr := s.settle(ctx, opRemoveItem, seq, snapshot); appErr != nil {
			return s.failure(appErr, "", "")
		}
		if removed {
			s.emit(ctx, enums.CartEventTypeItemRemoved, before, func(e *cartevents.Event) {
				e.ProductID = productID
			})
		}
		return s.success("", s.enforceVoucherPolicy(ctx))
	})
}

// ClearCart empties the cart. The empty aggregate is published as soon as
// the service confirms.
func (s *Synchronizer) ClearCart(ctx context.Context) Result {
	return s.enqueue(ctx, opClearCart, func(ctx context.Context) Result {
		seq, before := s.beginMutation()

		err := s.call(ctx, opClearCart, s.remote.ClearCart)
		if err != nil {
			return s.mutationFailed(err, "", "")
		}
		s.markApplied(seq)

		s.mu.Lock()
		s.known = cart.Empty()
		s.knownSeq = seq
		s.publishLocked(seq, cart.Empty())
		s.mu.Unlock()

		s.emit(ctx, enums.CartEventTypeCleared, before, nil)
		return s.success("", "")
	})
}

// ApplyVoucher attaches a voucher. When the service does not return the
// cart with the voucher, the voucher is shown against the current lines
// right away and the cart is then re-read.
func (s *Synchronizer) ApplyVoucher(ctx context.Context, code string) Result {
	code = strings.TrimSpace(code)
	if code == "" {
		return s.failure(pkgerrors.New(pkgerrors.CodeValidation, "voucher code is required"), "", "")
	}
	return s.enqueue(ctx, opApplyVoucher, func(ctx context.Context) Result {
		seq, before := s.beginMutation()

		var applied cartservice.VoucherResult
		err := s.call(ctx, opApplyVoucher, func(ctx context.Context) error {
			var err error
			applied, err = s.remote.ApplyVoucher(ctx, code)
			return err
		})
		if err != nil {
			return s.mutationFailed(err, "", "")
		}
		s.markApplied(seq)

		if applied.Cart != nil {
			s.accept(ctx, opApplyVoucher, seq, *applied.Cart)
		} else {
			voucher := applied.Voucher
			s.mu.Lock()
			s.publishLocked(seq, s.sink.Current().WithVoucher(&voucher))
			s.mu.Unlock()
			if appErr := s.refetch(ctx); appErr != nil {
				return s.failure(appErr, "", "")
			}
		}

		s.emit(ctx, enums.CartEventTypeVoucherApplied, before, func(e *cartevents.Event) {
			e.VoucherCode = code
		})
		return s.success("", "")
	})
}

// RemoveVoucher detaches the voucher. The voucher disappears locally before
// the canonical cart is re-read; "no voucher applied" counts as success.
func (s *Synchronizer) RemoveVoucher(ctx context.Context) Result {
	return s.enqueue(ctx, opRemoveVoucher, func(ctx context.Context) Result {
		seq, before := s.beginMutation()
		removed, appErr := s.removeVoucher(ctx, seq)
		if appErr != nil {
			return s.failure(appErr, "", "")
		}
		if removed {
			s.emit(ctx, enums.CartEventTypeVoucherRemoved, before, func(e *cartevents.Event) {
				if before.Voucher != nil {
					e.VoucherCode = before.Voucher.Code
				}
			})
		}
		return s.success("", "")
	})
}

func (s *Synchronizer) removeVoucher(ctx context.Context, seq uint64) (bool, *pkgerrors.Error) {
	var snapshot *cartservice.Snapshot
	err := s.call(ctx, opRemoveVoucher, func(ctx context.Context) error {
		var err error
		snapshot, err = s.remote.RemoveVoucher(ctx)
		return err
	})
	removed := true
	if err != nil {
		if cartservice.KindOf(err) != enums.RemoteErrorKindNoVoucherApplied {
			return false, s.mutationFailed(err, "", "").Err
		}
		removed = false
		snapshot = nil
	}
	s.markApplied(seq)

	s.mu.Lock()
	s.publishLocked(seq, s.sink.Current().WithVoucher(nil))
	s.mu.Unlock()

	return removed, s.settle(ctx, opRemoveVoucher, seq, snapshot)
}

// VoucherInfo asks the service which voucher is attached. It does not touch
// the published aggregate.
func (s *Synchronizer) VoucherInfo(ctx context.Context) (*cart.VoucherApplication, *pkgerrors.Error) {
	var voucher *cart.VoucherApplication
	err := s.call(ctx, opVoucherInfo, func(ctx context.Context) error {
		var err error
		voucher, err = s.remote.VoucherInfo(ctx)
		return err
	})
	if err != nil {
		return nil, cartservice.ToAppError(err)
	}
	return voucher, nil
}

// enforceVoucherPolicy drops a voucher whose minimum spend is no longer met
// when the policy asks for it. It runs inside the mutation that lowered the
// subtotal and returns the notice to show, if any.
func (s *Synchronizer) enforceVoucherPolicy(ctx context.Context) string {
	if s.opts.Policy != enums.VoucherPolicyDropBelowMinimum {
		return ""
	}
	before := s.sink.Current()
	voucher := before.Voucher
	if voucher == nil || !voucher.BelowMinimumSpend(before.Subtotal) {
		return ""
	}

	s.mu.Lock()
	s.phase = enums.SyncStateMutating
	seq := s.nextSeqLocked(true)
	s.mu.Unlock()

	removed, appErr := s.removeVoucher(ctx, seq)
	if appErr != nil {
		s.logWarn(ctx, "cart.voucher.policy_failed", map[string]any{
			"voucher_code": voucher.Code,
			"error":        appErr.Error(),
		})
		return ""
	}
	if removed {
		s.emit(ctx, enums.CartEventTypeVoucherRemoved, before, func(e *cartevents.Event) {
			e.VoucherCode = voucher.Code
		})
	}
	return fmt.Sprintf("Voucher %s was removed: minimum spend of %s is no longer met", voucher.Code, money.Format(*voucher.MinimumSpend))
}

func (s *Synchronizer) stockRejected(productID string, decision cart.Decision, ceiling *int) Result {
	available := 0
	if ceiling != nil && *ceiling > 0 {
		available = *ceiling
	}
	message := decision.Notice
	if message == "" {
		message = pkgerrors.MetadataFor(pkgerrors.CodeStockExceeded).PublicMessage
	}
	err := pkgerrors.New(pkgerrors.CodeStockExceeded, message).
		WithDetails(cartservice.StockDetails{ProductID: productID, Available: available})
	return s.failure(err, decision.Outcome, decision.Notice)
}

// outOfStock reports the total stock carried by an OUT_OF_STOCK rejection.
func outOfStock(err error) (int, bool) {
	remote, ok := cartservice.AsRemote(err)
	if !ok || remote.Kind != enums.RemoteErrorKindOutOfStock || remote.Available == nil {
		return 0, false
	}
	return *remote.Available, true
}

func stockNotice(name string, available int) string {
	if available < money.MinQuantity {
		return cart.OutOfStockNotice(name)
	}
	return cart.AvailabilityNotice(available)
}

func ceilingOf(item *cart.Item) *int {
	if item == nil {
		return nil
	}
	return item.StockCeiling
}

func joinNotices(notices ...string) string {
	parts := make([]string, 0, len(notices))
	for _, n := range notices {
		if n != "" {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, ". ")
}

func intPtr(v int) *int {
	return &v
}
