// Package history holds the receipt history view: the full list fetched from
// the remote API, the active filters, and the derived filtered view.
package history

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/zombor/scanly/internal/common"
	"github.com/zombor/scanly/internal/receipt"
)

// Source is the part of the remote API the history view needs
type Source interface {
	ListReceipts(ctx context.Context) ([]receipt.Receipt, error)
	DeleteReceipt(ctx context.Context, id string) error
}

// State is the load state of a Controller
type State int

const (
	Idle State = iota
	Loading
	Ready
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Errored:
		return "errored"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Controller owns the history list and its filters. Filtering happens on the
// client only; the server always returns every receipt.
type Controller struct {
	mu      sync.Mutex
	source  Source
	logger  *slog.Logger
	now     func() time.Time
	state   State
	all     []receipt.Receipt
	filters receipt.Filters
	errMsg  string

	// generation increments on every Load so a stale response is ignored
	generation uint64

	// deletedInFlight holds IDs deleted while a Load was running; that
	// Load's response may predate the delete
	deletedInFlight map[string]struct{}
	closed     bool
}

// New creates an idle Controller
func New(source Source, logger *slog.Logger) *Controller {
	return NewWithClock(source, logger, time.Now)
}

// NewWithClock creates a Controller with a custom clock for testing
func NewWithClock(source Source, logger *slog.Logger, now func() time.Time) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{source: source, logger: logger, now: now}
}

// Load fetches every receipt. On success the list replaces the previous one
// and the state becomes Ready; on failure the message is stored and the state
// becomes Errored. The error is returned either way so callers can react.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.generation++
	gen := c.generation
	c.state = Loading
	c.errMsg = ""
	c.mu.Unlock()

	receipts, err := c.source.ListReceipts(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.generation {
		c.logger.Debug("Discarding stale receipt list", "generation", gen)
		return err
	}

	if err != nil {
		c.logger.Error("Failed to fetch receipts", "error", err)
		c.state = Errored
		c.deletedInFlight = nil
		c.errMsg = common.Message(err, "Failed to fetch receipts")
		return fmt.Errorf("fetching receipts: %w", err)
	}

	if receipts == nil {
		receipts = []receipt.Receipt{}
	}
	c.all = withoutIDs(receipts, c.deletedInFlight)
	c.deletedInFlight = nil
	c.state = Ready
	c.logger.Info("Loaded receipts", "count", len(receipts))
	return nil
}

// SetFilters replaces the active filters. The filtered view is derived on
// read, so no request is made.
func (c *Controller) SetFilters(f receipt.Filters) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = f
}

// ClearFilters removes every filter
func (c *Controller) ClearFilters() {
	c.SetFilters(receipt.Filters{})
}

// Filters returns the active filters
func (c *Controller) Filters() receipt.Filters {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filters
}

// Receipts returns the receipts matching the active filters
func (c *Controller) Receipts() []receipt.Receipt {
	c.mu.Lock()
	defer c.mu.Unlock()
	return receipt.Apply(c.all, c.filters)
}

// All returns every loaded receipt, ignoring filters
func (c *Controller) All() []receipt.Receipt {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]receipt.Receipt, len(c.all))
	copy(out, c.all)
	return out
}

// Summary aggregates the filtered view
func (c *Controller) Summary() receipt.Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return receipt.SummarizeAt(receipt.Apply(c.all, c.filters), c.now())
}

// Find returns a loaded receipt by ID
func (c *Controller) Find(id string) (receipt.Receipt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.all {
		if r.ID == id {
			return r, true
		}
	}
	return receipt.Receipt{}, false
}

// DeleteByID deletes a receipt on the server and, only once the server has
// confirmed, removes it from the local list. On failure the list is left as
// it was, the message is stored, and the error is returned.
func (c *Controller) DeleteByID(ctx context.Context, id string) error {
	err := c.source.DeleteReceipt(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return err
	}

	if err != nil {
		c.logger.Error("Failed to delete receipt", "id", id, "error", err)
		c.errMsg = common.Message(err, "Failed to delete receipt")
		return fmt.Errorf("deleting receipt %s: %w", id, err)
	}

	c.all = withoutIDs(c.all, map[string]struct{}{id: {}})
	if c.state == Loading {
		if c.deletedInFlight == nil {
			c.deletedInFlight = make(map[string]struct{})
		}
		c.deletedInFlight[id] = struct{}{}
	}
	c.errMsg = ""
	c.logger.Info("Deleted receipt", "id", id)
	return nil
}

// State returns the load state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the last error message, or ""
func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// Reset forgets the list, the filters and any error, returning to Idle. A
// load still in flight is superseded.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.state = Idle
	c.all = nil
	c.deletedInFlight = nil
	c.filters = receipt.Filters{}
	c.errMsg = ""
}

// Close detaches the controller. Calls still in flight complete but their
// results are dropped.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func withoutIDs(receipts []receipt.Receipt, ids map[string]struct{}) []receipt.Receipt {
	if len(ids) == 0 {
		return receipts
	}
	kept := make([]receipt.Receipt, 0, len(receipts))
	for _, r := range receipts {
		if _, gone := ids[r.ID]; !gone {
			kept = append(kept, r)
		}
	}
	return kept
}
