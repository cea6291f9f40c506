// Package extraction sends a receipt file to the remote extraction endpoint
// and holds the structured result.
package extraction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zombor/scanly/internal/api"
	"github.com/zombor/scanly/internal/common"
	"github.com/zombor/scanly/internal/receipt"
)

// Extractor is the extraction endpoint of the remote API
type Extractor interface {
	Extract(ctx context.Context, file api.File) (*receipt.Extracted, error)
}

// State is the state of a Controller
type State int

const (
	Idle State = iota
	Extracting
	Extracted
	Errored
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Extracting:
		return "extracting"
	case Extracted:
		return "extracted"
	case Errored:
		return "errored"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Controller runs one extraction at a time from the caller's point of view.
// It does not reject a second Extract while one is running; the UI is
// expected to disable re-submission.
type Controller struct {
	mu         sync.Mutex
	extractor  Extractor
	logger     *slog.Logger
	state      State
	result     *receipt.Extracted
	errMsg     string
	generation uint64
	closed     bool
}

// ErrClosed is returned by Extract after Close
var ErrClosed = errors.New("extraction controller closed")

// New creates an idle Controller
func New(extractor Extractor, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{extractor: extractor, logger: logger}
}

// Extract prepares the upload and sends it. On success the result is stored
// and returned; on failure the previous result is cleared, the message is
// stored and the error is returned. A Reset or Close while the request is in
// flight wins: the late outcome is returned but not stored.
func (c *Controller) Extract(ctx context.Context, u Upload) (*receipt.Extracted, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	c.generation++
	gen := c.generation
	c.state = Extracting
	c.errMsg = ""
	c.mu.Unlock()

	result, err := c.run(ctx, u)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.generation {
		c.logger.Debug("Discarding stale extraction", "filename", u.Filename, "generation", gen)
		return result, err
	}

	if err != nil {
		c.logger.Error("Failed to extract receipt",
			"filename", u.Filename,
			"content_type", u.ContentType,
			"file_size", len(u.Data),
			"error", err,
		)
		c.state = Errored
		c.result = nil
		c.errMsg = common.Message(err, "Failed to extract receipt")
		return nil, err
	}

	c.state = Extracted
	c.result = result
	c.logger.Info("Extracted receipt", "merchant", result.Merchant, "items", len(result.Items))
	return result, nil
}

func (c *Controller) run(ctx context.Context, u Upload) (*receipt.Extracted, error) {
	prepared, err := Prepare(u)
	if err != nil {
		return nil, err
	}

	result, err := c.extractor.Extract(ctx, api.File{
		Name:        prepared.Filename,
		ContentType: prepared.ContentType,
		Data:        prepared.Data,
		Progress:    prepared.Progress,
	})
	if err != nil {
		return nil, fmt.Errorf("extracting receipt: %w", err)
	}
	return result, nil
}

// Reset returns to Idle, discarding any result or error
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.state = Idle
	c.result = nil
	c.errMsg = ""
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Result returns the last successful result, or nil
func (c *Controller) Result() *receipt.Extracted {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Err returns the last error message, or ""
func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// Close detaches the controller. A call still in flight completes but its
// result is not stored.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.closed = true
}
