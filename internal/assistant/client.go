// ABOUTME: OpenAI Assistants client for threads, messages, and runs
// ABOUTME: Classifies active-run conflicts and missing threads into sentinel errors
package assistant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fitai/intake-bot/internal/util"
	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrActiveRun means the thread already has a run that has not finished
	ErrActiveRun = errors.New("thread already has an active run")
	// ErrThreadNotFound means the remote thread no longer exists or is not accessible
	ErrThreadNotFound = errors.New("thread not found")
)

// Role of a thread message author
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// RunStatus mirrors the OpenAI run lifecycle states
type RunStatus string

const (
	RunQueued         RunStatus = "queued"
	RunInProgress     RunStatus = "in_progress"
	RunRequiresAction RunStatus = "requires_action"
	RunCancelling     RunStatus = "cancelling"
	RunCancelled      RunStatus = "cancelled"
	RunFailed         RunStatus = "failed"
	RunCompleted      RunStatus = "completed"
	RunExpired        RunStatus = "expired"
)

// Pending reports whether the run is still queued or executing
func (s RunStatus) Pending() bool {
	return s == RunQueued || s == RunInProgress
}

// Run is the subset of an OpenAI run the bot needs
type Run struct {
	ID     string
	Status RunStatus
}

// Message is a thread message flattened to its text parts
type Message struct {
	ID   string
	Role Role
	Text string
}

// ClientConfig holds configuration for the assistant client
type ClientConfig struct {
	APIKey         string
	AssistantID    string
	BaseURL        string // empty uses the public OpenAI endpoint
	MaxRetries     int
	RetryDelay     time.Duration
	RequestTimeout time.Duration
	HTTPClient     *http.Client
}

// Client wraps the OpenAI Assistants API. Only idempotent calls are retried.
type Client struct {
	client         *openai.Client
	assistantID    string
	maxRetries     int
	retryDelay     time.Duration
	requestTimeout time.Duration
}

// NewClient creates an assistant client from config
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if cfg.AssistantID == "" {
		return nil, fmt.Errorf("assistant id is required")
	}

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	if cfg.HTTPClient != nil {
		oc.HTTPClient = cfg.HTTPClient
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		client:         openai.NewClientWithConfig(oc),
		assistantID:    cfg.AssistantID,
		maxRetries:     cfg.MaxRetries,
		retryDelay:     cfg.RetryDelay,
		requestTimeout: timeout,
	}, nil
}

// CreateThread creates an empty thread and returns its id
func (c *Client) CreateThread(ctx context.Context) (string, error) {
	var thread openai.Thread
	err := c.retry(ctx, "create thread", func(ctx context.Context) error {
		var err error
		thread, err = c.client.CreateThread(ctx, openai.ThreadRequest{})
		return err
	})
	if err != nil {
		return "", err
	}
	return thread.ID, nil
}

// PostMessage appends a user message to the thread. Never retried, so a
// timeout cannot produce a duplicate message.
func (c *Client) PostMessage(ctx context.Context, threadID, text string) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	_, err := c.client.CreateMessage(ctx, threadID, openai.MessageRequest{
		Role:    string(RoleUser),
		Content: text,
	})
	if err != nil {
		return fmt.Errorf("post message: %w", classify(err, true))
	}
	return nil
}

// StartRun starts the configured assistant on the thread.
// Returns ErrActiveRun when a previous run is still in flight.
func (c *Client) StartRun(ctx context.Context, threadID string) (Run, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	run, err := c.client.CreateRun(ctx, threadID, openai.RunRequest{
		AssistantID: c.assistantID,
	})
	if err != nil {
		return Run{}, fmt.Errorf("start run: %w", classify(err, false))
	}
	return toRun(run), nil
}

// GetRun fetches the current status of a run
func (c *Client) GetRun(ctx context.Context, threadID, runID string) (Run, error) {
	var run openai.Run
	err := c.retry(ctx, "get run", func(ctx context.Context) error {
		var err error
		run, err = c.client.RetrieveRun(ctx, threadID, runID)
		return err
	})
	if err != nil {
		return Run{}, err
	}
	return toRun(run), nil
}

// ListRuns returns up to limit runs, newest first
func (c *Client) ListRuns(ctx context.Context, threadID string, limit int) ([]Run, error) {
	order := "desc"
	var list openai.RunList
	err := c.retry(ctx, "list runs", func(ctx context.Context) error {
		var err error
		list, err = c.client.ListRuns(ctx, threadID, openai.Pagination{Limit: &limit, Order: &order})
		return err
	})
	if err != nil {
		return nil, err
	}

	runs := make([]Run, 0, len(list.Runs))
	for _, r := range list.Runs {
		runs = append(runs, toRun(r))
	}
	return runs, nil
}

// ListMessages returns the thread's most recent messages, newest first
func (c *Client) ListMessages(ctx context.Context, threadID string) ([]Message, error) {
	limit := 20
	order := "desc"
	var list openai.MessagesList
	err := c.retry(ctx, "list messages", func(ctx context.Context) error {
		var err error
		list, err = c.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
		return err
	})
	if err != nil {
		return nil, err
	}

	messages := make([]Message, 0, len(list.Messages))
	for _, m := range list.Messages {
		messages = append(messages, Message{
			ID:   m.ID,
			Role: Role(m.Role),
			Text: messageText(m),
		})
	}
	return messages, nil
}

// retry runs fn with a per-attempt timeout, retrying transient failures with backoff
func (c *Client) retry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			if err := util.Sleep(ctx, util.CalculateBackoff(c.retryDelay, attempt)); err != nil {
				return fmt.Errorf("%s: %w", op, err)
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
		err := fn(attemptCtx)
		cancel()

		if err == nil {
			return nil
		}

		classified := classify(err, false)
		if !retryable(err) || ctx.Err() != nil {
			return fmt.Errorf("%s: %w", op, classified)
		}
		lastErr = fmt.Errorf("attempt %d: %w", attempt+1, classified)
	}

	return fmt.Errorf("%s failed after %d attempts: %w", op, c.maxRetries+1, lastErr)
}

// classify maps OpenAI errors onto the package sentinels, keeping the original in the chain.
// threadPath marks endpoints whose only path resource is the thread, where any 404 means
// the thread is gone. Elsewhere a 404 may name the assistant or a run instead.
func classify(err error, threadPath bool) error {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	switch {
	case isActiveRunConflict(apiErr):
		return fmt.Errorf("%w: %w", ErrActiveRun, err)
	case isThreadNotFound(apiErr, threadPath):
		return fmt.Errorf("%w: %w", ErrThreadNotFound, err)
	default:
		return err
	}
}

func isThreadNotFound(apiErr *openai.APIError, threadPath bool) bool {
	if apiErr.HTTPStatusCode != http.StatusNotFound {
		return false
	}
	return threadPath || strings.Contains(strings.ToLower(apiErr.Message), "no thread found")
}

// isActiveRunConflict matches the 400 the API returns for a second concurrent run.
// The API exposes no dedicated code for this, so the message text is the only signal.
func isActiveRunConflict(apiErr *openai.APIError) bool {
	if apiErr.HTTPStatusCode != http.StatusBadRequest {
		return false
	}
	if code, ok := apiErr.Code.(string); ok && code == "thread_locked" {
		return true
	}
	return strings.Contains(strings.ToLower(apiErr.Message), "already has an active run")
}

func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= 500 || reqErr.HTTPStatusCode == 0
	}
	// Per-attempt timeouts and transport errors
	return errors.Is(err, context.DeadlineExceeded) || !errors.Is(err, context.Canceled)
}

func toRun(r openai.Run) Run {
	return Run{ID: r.ID, Status: RunStatus(r.Status)}
}

func messageText(m openai.Message) string {
	var parts []string
	for _, content := range m.Content {
		if content.Text != nil && content.Text.Value != "" {
			parts = append(parts, content.Text.Value)
		}
	}
	return strings.Join(parts, "\n")
}
