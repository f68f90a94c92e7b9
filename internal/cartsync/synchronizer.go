// Package cartsync keeps the local cart aggregate converged with the remote
// cart service. Mutations run one at a time in the order they were issued;
// reads may overlap them, and responses that a newer mutation superseded are
// discarded.
package cartsync

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/internal/cartevents"
	"github.com/angelmondragon/storefront/internal/cartservice"
	"github.com/angelmondragon/storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
	"github.com/angelmondragon/storefront/pkg/logger"
	"github.com/angelmondragon/storefront/pkg/metrics"
	"github.com/angelmondragon/storefront/pkg/money"
)

const (
	opGetCart       = "get_cart"
	opAddItem       = "add_item"
	opUpdateItem    = "update_item"
	opRemoveItem    = "remove_item"
	opClearCart     = "clear_cart"
	opApplyVoucher  = "apply_voucher"
	opRemoveVoucher = "remove_voucher"
	opVoucherInfo   = "voucher_info"
)

// Options configures a Synchronizer. Zero values are usable: no events, no
// metrics, no logging, and the retain voucher policy.
type Options struct {
	SessionID string
	AccountID string
	Policy    enums.VoucherPolicy
	Events    cartevents.Publisher
	Metrics   *metrics.CartMetrics
	Logger    *logger.Logger
}

type job struct {
	ctx  context.Context
	op   string
	run  func(context.Context) Result
	done chan Result
	// started is set under Synchronizer.mu when drain takes the job.
	started bool
}

// Synchronizer drives the cart state machine for one session.
type Synchronizer struct {
	remote  cartservice.Remote
	sink    Sink
	opts    Options
	metrics *metrics.CartMetrics
	logg    *logger.Logger

	mu              sync.Mutex
	phase           enums.SyncState
	fetches         int
	seq             uint64
	lastMutationSeq uint64
	appliedSeq      uint64
	publishedSeq    uint64
	known           cart.Aggregate
	knownSeq        uint64
	queue           []*job
	draining        bool
	closed          bool
}

// New builds a Synchronizer publishing into sink. A nil sink keeps the
// aggregate internally.
func New(remote cartservice.Remote, sink Sink, opts Options) *Synchronizer {
	if sink == nil {
		sink = &memorySink{agg: cart.Empty()}
	}
	if !opts.Policy.IsValid() {
		opts.Policy = enums.VoucherPolicyRetain
	}
	return &Synchronizer{
		remote:  remote,
		sink:    sink,
		opts:    opts,
		metrics: opts.Metrics,
		logg:    opts.Logger,
		phase:   enums.SyncStateIdle,
		known:   cart.Empty(),
	}
}

// State reports the current state machine state.
func (s *Synchronizer) State() enums.SyncState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != enums.SyncStateIdle {
		return s.phase
	}
	if s.fetches > 0 {
		return enums.SyncStateFetching
	}
	return enums.SyncStateIdle
}

// Current returns the published aggregate.
func (s *Synchronizer) Current() cart.Aggregate {
	return s.sink.Current()
}

// Close fails every queued mutation and rejects new ones. A mutation that is
// already running is allowed to finish.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	s.closed = true
	pending := s.queue
	s.queue = nil
	s.mu.Unlock()

	for _, j := range pending {
		s.metrics.MutationDone()
		j.done <- s.failure(sessionEnded(), "", "")
	}
}

// enqueue runs fn after every previously issued mutation has settled. If ctx
// ends while the job is still queued the caller gets a canceled result and
// the job is skipped. Once started, a job runs to completion and the caller
// receives its real result, so a reported failure never hides an applied
// mutation.
func (s *Synchronizer) enqueue(ctx context.Context, op string, fn func(context.Context) Result) Result {
	j := &job{ctx: ctx, op: op, run: fn, done: make(chan Result, 1)}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return s.failure(sessionEnded(), "", "")
	}
	s.queue = append(s.queue, j)
	if !s.draining {
		s.draining = true
		go s.drain()
	}
	s.mu.Unlock()
	s.metrics.MutationQueued()

	select {
	case res := <-j.done:
		return res
	case <-ctx.Done():
	}

	s.mu.Lock()
	started := j.started
	s.mu.Unlock()
	if started {
		return <-j.done
	}
	return s.failure(canceled(ctx.Err()), "", "")
}

func (s *Synchronizer) drain() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.draining = false
			s.phase = enums.SyncStateIdle
			s.mu.Unlock()
			s.logDebug(context.Background(), "cart.queue.drained", nil)
			return
		}
		j := s.queue[0]
		s.queue = s.queue[1:]
		canceledErr := j.ctx.Err()
		j.started = canceledErr == nil
		s.mu.Unlock()

		var res Result
		if err := canceledErr; err != nil {
			res = s.failure(canceled(err), "", "")
		} else {
			res = j.run(context.WithoutCancel(j.ctx))
		}

		s.mu.Lock()
		s.phase = enums.SyncStateIdle
		s.mu.Unlock()
		s.metrics.MutationDone()
		j.done <- res
	}
}

func (s *Synchronizer) nextSeqLocked(mutation bool) uint64 {
	s.seq++
	if mutation {
		s.lastMutationSeq = s.seq
	}
	return s.seq
}

// beginMutation moves to MUTATING, assigns the mutation's sequence number,
// and returns the aggregate the mutation starts from.
func (s *Synchronizer) beginMutation() (uint64, cart.Aggregate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = enums.SyncStateMutating
	return s.nextSeqLocked(true), s.sink.Current()
}

func (s *Synchronizer) publishLocked(seq uint64, agg cart.Aggregate) {
	if seq > s.publishedSeq {
		s.publishedSeq = seq
	}
	s.sink.Publish(agg)
}

// accept folds the canonical cart received for request seq into the
// published aggregate, unless a newer mutation was issued after the request.
func (s *Synchronizer) accept(ctx context.Context, op string, seq uint64, snapshot cartservice.Snapshot) bool {
	agg := cart.ComputeAggregate(snapshot.Items, snapshot.Voucher)
	if len(snapshot.Items) > 0 && !snapshot.Subtotal.IsZero() && !agg.Subtotal.Equal(money.Round(snapshot.Subtotal)) {
		s.logDebug(ctx, "cart.subtotal.drift", map[string]any{
			"remote_subtotal": snapshot.Subtotal.String(),
			"local_subtotal":  agg.Subtotal.String(),
		})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if seq > s.knownSeq {
		s.known = agg
		s.knownSeq = seq
	}
	if seq < s.lastMutationSeq {
		s.metrics.IncStale(op)
		s.logInfo(ctx, "cart.response.stale", map[string]any{
			"op":                op,
			"seq":               seq,
			"last_mutation_seq": s.lastMutationSeq,
		})
		return false
	}
	s.publishLocked(seq, agg)
	return true
}

// call runs one remote round trip and records its latency and outcome.
func (s *Synchronizer) call(ctx context.Context, op string, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	s.metrics.ObserveRemote(op, elapsed)

	fields := map[string]any{"op": op, "duration_ms": elapsed.Milliseconds()}
	if err != nil {
		kind := string(cartservice.KindOf(err))
		if kind == "" {
			kind = "ERROR"
		}
		s.metrics.IncRemoteFailure(op, kind)
		fields["kind"] = kind
		fields["error"] = err.Error()
		s.logWarn(ctx, "cart.remote.failed", fields)
		return err
	}
	s.logDebug(ctx, "cart.remote.ok", fields)
	return nil
}

// refetch reads the canonical cart after a mutation that did not return one.
func (s *Synchronizer) refetch(ctx context.Context) *pkgerrors.Error {
	s.mu.Lock()
	s.phase = enums.SyncStateFetching
	seq := s.nextSeqLocked(false)
	s.mu.Unlock()

	var snapshot cartservice.Snapshot
	err := s.call(ctx, opGetCart, func(ctx context.Context) error {
		var err error
		snapshot, err = s.remote.GetCart(ctx)
		return err
	})
	if err != nil {
		appErr := cartservice.ToAppError(err)
		if appErr.Code() == pkgerrors.CodeUnauthorized {
			return appErr
		}
		return pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, err, "cart was updated but could not be refreshed, please reload").
			WithDetails(RefreshDetails{MutationApplied: true})
	}
	s.accept(ctx, opGetCart, seq, snapshot)
	return nil
}

// markApplied records that the service accepted the mutation issued as seq.
func (s *Synchronizer) markApplied(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq > s.appliedSeq {
		s.appliedSeq = seq
	}
}

// settle publishes the canonical cart after a successful mutation: the one
// returned with the mutation when present, otherwise a fresh read.
func (s *Synchronizer) settle(ctx context.Context, op string, seq uint64, snapshot *cartservice.Snapshot) *pkgerrors.Error {
	s.markApplied(seq)
	if snapshot != nil {
		s.accept(ctx, op, seq, *snapshot)
		return nil
	}
	return s.refetch(ctx)
}

// mutationFailed builds the result for a mutation the service did not apply.
// Reads issued before it are no longer superseded, so the newest canonical
// cart seen while it was in flight is published if nothing newer was.
func (s *Synchronizer) mutationFailed(err error, outcome enums.QuantityOutcome, notice string) Result {
	appErr := cartservice.ToAppError(err)
	s.mu.Lock()
	s.lastMutationSeq = s.appliedSeq
	if s.knownSeq > s.publishedSeq && s.knownSeq > s.appliedSeq {
		s.publishLocked(s.knownSeq, s.known)
	}
	s.mu.Unlock()
	return s.failure(appErr, outcome, notice)
}

func (s *Synchronizer) success(outcome enums.QuantityOutcome, notice string) Result {
	return Result{Success: true, Outcome: outcome, Notice: notice, Aggregate: s.sink.Current()}
}

func (s *Synchronizer) failure(err *pkgerrors.Error, outcome enums.QuantityOutcome, notice string) Result {
	return Result{Success: false, Err: err, Outcome: outcome, Notice: notice, Aggregate: s.sink.Current()}
}

func (s *Synchronizer) emit(ctx context.Context, eventType enums.CartEventType, before cart.Aggregate, fill func(*cartevents.Event)) {
	if s.opts.Events == nil {
		return
	}
	after := s.sink.Current()
	event := cartevents.NewEvent(eventType, s.opts.SessionID, after, cart.Diff(before, after))
	event.AccountID = s.opts.AccountID
	if fill != nil {
		fill(&event)
	}
	if err := s.opts.Events.Publish(ctx, event); err != nil {
		s.metrics.IncEvent(eventType.String(), false)
		s.logWarn(ctx, "cart.event.publish_failed", map[string]any{
			"event_type": eventType.String(),
			"error":      err.Error(),
		})
	}
}

func (s *Synchronizer) logCtx(ctx context.Context, fields map[string]any) context.Context {
	ctx = s.logg.WithSessionID(ctx, s.opts.SessionID)
	if len(fields) > 0 {
		ctx = s.logg.WithFields(ctx, fields)
	}
	return ctx
}

func (s *Synchronizer) logDebug(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Debug(s.logCtx(ctx, fields), msg)
}

func (s *Synchronizer) logInfo(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logCtx(ctx, fields), msg)
}

func (s *Synchronizer) logWarn(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Warn(s.logCtx(ctx, fields), msg)
}

func canceled(err error) *pkgerrors.Error {
	return pkgerrors.Wrap(pkgerrors.CodeRemoteUnavailable, err, "cart request canceled")
}

func sessionEnded() *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeRemoteUnavailable, "cart session ended")
}

type memorySink struct {
	mu  sync.RWMutex
	agg cart.Aggregate
}

func (m *memorySink) Current() cart.Aggregate {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.agg
}

func (m *memorySink) Publish(agg cart.Aggregate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.agg = agg
}
