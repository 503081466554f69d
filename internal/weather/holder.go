package weather

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/current-weather/internal/common"
)

// ErrHolderClosed is returned by StartFetch after Close.
var ErrHolderClosed = errors.New("state holder closed")

// Ordering decides what happens when fetches overlap.
type Ordering int

const (
	// OrderingLatestWins applies a completion only if it belongs to the most
	// recently started fetch. Older completions are discarded.
	OrderingLatestWins Ordering = iota
	// OrderingUnordered lets every completion overwrite the state, whatever
	// order the responses arrive in.
	OrderingUnordered
)

func (o Ordering) String() string {
	if o == OrderingUnordered {
		return "unordered"
	}
	return "latest"
}

// ParseOrdering accepts "latest" or "unordered".
func ParseOrdering(s string) (Ordering, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "latest":
		return OrderingLatestWins, nil
	case "unordered":
		return OrderingUnordered, nil
	default:
		return 0, fmt.Errorf("unknown fetch ordering %q", s)
	}
}

// HolderOption configures a Holder.
type HolderOption func(*Holder)

// WithRecorder saves every applied Success into rec.
func WithRecorder(rec Recorder) HolderOption {
	return func(h *Holder) { h.recorder = rec }
}

func WithMetrics(m Metrics) HolderOption {
	return func(h *Holder) { h.metrics = m }
}

func WithOrdering(o Ordering) HolderOption {
	return func(h *Holder) { h.ordering = o }
}

// WithLifecycle binds all fetches to ctx. Cancelling it aborts the ones in flight.
func WithLifecycle(ctx context.Context) HolderOption {
	return func(h *Holder) { h.parent = ctx }
}

func withClock(now func() time.Time) HolderOption {
	return func(h *Holder) { h.now = now }
}

// Holder owns the FetchState of the latest fetch cycle and broadcasts every
// transition to its subscribers.
//
// Writes and their broadcast are serialized, so subscribers see transitions
// in the order they were applied. Subscriber callbacks run on the writing
// goroutine and must not call StartFetch.
type Holder struct {
	fetcher  Fetcher
	recorder Recorder
	metrics  Metrics
	ordering Ordering
	now      func() time.Time

	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	pubMu     sync.Mutex // guards latestSeq, closed and the write+broadcast pair
	latestSeq uint64
	closed    bool

	current     atomic.Pointer[FetchState]
	lastSuccess atomic.Pointer[FetchState]

	subMu     sync.Mutex
	subs      map[uint64]func(FetchState)
	nextSubID uint64
}

// NewHolder creates a Holder with no state; Current reports false until
// the first StartFetch.
func NewHolder(fetcher Fetcher, opts ...HolderOption) *Holder {
	h := &Holder{
		fetcher:  fetcher,
		metrics:  noopMetrics{},
		ordering: OrderingLatestWins,
		now:      func() time.Time { return time.Now().UTC() },
		parent:   context.Background(),
		subs:     make(map[uint64]func(FetchState)),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.ctx, h.cancel = context.WithCancel(h.parent)
	return h
}

// Current returns the latest state and false if no fetch was ever started.
func (h *Holder) Current() (FetchState, bool) {
	s := h.current.Load()
	if s == nil {
		return FetchState{}, false
	}
	return *s, true
}

// LastSuccess returns the most recent applied Success state, if any.
func (h *Holder) LastSuccess() (FetchState, bool) {
	s := h.lastSuccess.Load()
	if s == nil {
		return FetchState{}, false
	}
	return *s, true
}

// Subscribe registers fn for every future transition. The returned
// function removes the subscription.
func (h *Holder) Subscribe(fn func(FetchState)) (cancel func()) {
	h.subMu.Lock()
	id := h.nextSubID
	h.nextSubID++
	h.subs[id] = fn
	h.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.subMu.Lock()
			delete(h.subs, id)
			h.subMu.Unlock()
		})
	}
}

// StartFetch publishes Loading for city and resolves the fetch in the
// background. The Loading state is visible to Current and to subscribers
// before StartFetch returns. Running fetches are never cancelled by a
// newer one.
func (h *Holder) StartFetch(city string) (FetchState, error) {
	city = common.NormalizeCity(city)
	if city == "" {
		return FetchState{}, ErrEmptyCity
	}

	h.pubMu.Lock()
	if h.closed {
		h.pubMu.Unlock()
		return FetchState{}, ErrHolderClosed
	}
	h.latestSeq++
	loading := LoadingState(city, uuid.NewString(), h.latestSeq, h.now())
	h.publishLocked(loading)
	h.wg.Add(1)
	h.pubMu.Unlock()

	log.Printf("DEBUG: holder: fetch %d (%s) started for %q", loading.Seq, loading.FetchID, city)
	h.metrics.FetchStarted()

	go h.run(loading)
	return loading, nil
}

// Wait blocks until every started fetch has resolved.
func (h *Holder) Wait() {
	h.wg.Wait()
}

// Done is closed once the holder is closed or its lifecycle context ends.
func (h *Holder) Done() <-chan struct{} {
	return h.ctx.Done()
}

// Close rejects new fetches, cancels the ones in flight and waits for them.
func (h *Holder) Close() {
	h.pubMu.Lock()
	h.closed = true
	h.pubMu.Unlock()

	h.cancel()
	h.wg.Wait()
}

func (h *Holder) run(loading FetchState) {
	defer h.wg.Done()

	start := time.Now()
	rec, err := h.fetch(loading.City)

	outcome := "success"
	if err != nil {
		outcome = ErrorKind(err)
		log.Printf("ERROR: holder: fetch %d for %q failed (%s): %v", loading.Seq, loading.City, outcome, err)
	}
	h.metrics.FetchCompleted(outcome, time.Since(start))
	h.complete(loading, rec, err)
}

// fetch converts a panicking fetcher into an error so the cycle still
// reaches a terminal state.
func (h *Holder) fetch(city string) (rec WeatherRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fetch panicked: %v", r)
		}
	}()
	return h.fetcher.FetchWeather(h.ctx, city)
}

func (h *Holder) complete(loading FetchState, rec WeatherRecord, err error) {
	h.pubMu.Lock()
	defer h.pubMu.Unlock()

	if h.ordering == OrderingLatestWins && loading.Seq != h.latestSeq {
		log.Printf("INFO: holder: discarding stale result of fetch %d for %q (latest is %d)", loading.Seq, loading.City, h.latestSeq)
		h.metrics.FetchDiscarded()
		return
	}

	now := h.now()
	if err != nil {
		h.publishLocked(FailureState(loading.City, loading.FetchID, loading.Seq, now, err.Error()))
		return
	}

	next := SuccessState(loading.City, loading.FetchID, loading.Seq, now, rec)
	h.lastSuccess.Store(&next)
	if h.recorder != nil {
		h.recorder.Save(loading.City, FetchedRecord{City: loading.City, FetchedAt: now, Record: rec})
	}
	h.publishLocked(next)
}

// publishLocked must be called with pubMu held.
func (h *Holder) publishLocked(s FetchState) {
	h.current.Store(&s)

	h.subMu.Lock()
	subs := make([]func(FetchState), 0, len(h.subs))
	for _, fn := range h.subs {
		subs = append(subs, fn)
	}
	h.subMu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}
