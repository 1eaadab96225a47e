package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/proctor/internal/adapters/repository"
	service "github.com/okian/proctor/internal/app"
	"github.com/okian/proctor/internal/domain/model"
	"github.com/okian/proctor/pkg/logger"
)

// HTTPClient wraps http.Client with the service base URL.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Get performs a GET request against path.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body against path.
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// getJSON decodes a 200 response of path into v.
func (c *HTTPClient) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	return decodeResponse(resp, http.StatusOK, v)
}

// postJSON posts body to path and decodes a want response into v.
func (c *HTTPClient) postJSON(ctx context.Context, path string, body any, want int, v any) error {
	resp, err := c.Post(ctx, path, body)
	if err != nil {
		return err
	}
	return decodeResponse(resp, want, v)
}

func decodeResponse(resp *http.Response, want int, v any) error {
	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != want {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (c *HTTPClient) createSession(ctx context.Context, in service.NewSession) (model.Session, error) {
	var sess model.Session
	err := c.postJSON(ctx, "/sessions", in, http.StatusCreated, &sess)
	return sess, err
}

func (c *HTTPClient) session(ctx context.Context, id string) (model.Session, error) {
	var sess model.Session
	err := c.getJSON(ctx, "/sessions/"+id, &sess)
	return sess, err
}

func (c *HTTPClient) events(ctx context.Context, id string) ([]model.Event, error) {
	var events []model.Event
	err := c.getJSON(ctx, "/sessions/"+id+"/events", &events)
	return events, err
}

func (c *HTTPClient) report(ctx context.Context, id string) (service.Report, error) {
	var r service.Report
	err := c.getJSON(ctx, "/sessions/"+id+"/report", &r)
	return r, err
}

func (c *HTTPClient) watchlist(ctx context.Context, limit int) ([]repository.WatchEntry, error) {
	var entries []repository.WatchEntry
	err := c.getJSON(ctx, fmt.Sprintf("/watchlist?limit=%d", limit), &entries)
	return entries, err
}

// submitEvents submits events concurrently using a worker pool.
func submitEvents(ctx context.Context, config *Config, client *HTTPClient, events []model.Event, stats *Stats) {
	log := logger.Named("simulate")
	log.Info(ctx, "submitting events",
		logger.Int("events", len(events)),
		logger.Int("workers", config.Workers))

	var (
		successful int64
		duplicate  int64
		retried    int64
		failed     int64
		submitted  int64
	)

	eventChan := make(chan model.Event, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for event := range eventChan {
				result, attempts := submitWithRetry(ctx, client, event)

				atomic.AddInt64(&submitted, 1)
				atomic.AddInt64(&retried, int64(attempts-1))
				switch result {
				case "success":
					atomic.AddInt64(&successful, 1)
				case "duplicate":
					atomic.AddInt64(&duplicate, 1)
				default:
					atomic.AddInt64(&failed, 1)
					if config.Verbose {
						log.Warn(ctx, "event submission failed",
							logger.Session(event.SessionID), logger.Event(event.ID))
					}
				}
			}
		}()
	}

	go func() {
		defer close(eventChan)
		for _, event := range events {
			select {
			case <-ctx.Done():
				return
			case eventChan <- event:
			}
		}
	}()

	wg.Wait()

	stats.EventsSubmitted += int(atomic.LoadInt64(&submitted))
	stats.EventsSuccessful += int(atomic.LoadInt64(&successful))
	stats.EventsDuplicate += int(atomic.LoadInt64(&duplicate))
	stats.EventsRetried += int(atomic.LoadInt64(&retried))
	stats.EventsFailed += int(atomic.LoadInt64(&failed))

	log.Info(ctx, "event submission completed",
		logger.Int("successful", stats.EventsSuccessful),
		logger.Int("duplicate", stats.EventsDuplicate),
		logger.Int("retried", stats.EventsRetried),
		logger.Int("failed", stats.EventsFailed))
}

// submitWithRetry posts one event, backing off while the service reports a
// full queue. It returns the result and the number of attempts made.
func submitWithRetry(ctx context.Context, client *HTTPClient, event model.Event) (string, int) {
	for attempt := 1; ; attempt++ {
		result := submitSingleEvent(ctx, client, event)
		if result != "busy" {
			return result, attempt
		}
		if attempt == maxSubmitAttempts {
			return "failed", attempt
		}
		select {
		case <-ctx.Done():
			return "failed", attempt
		case <-time.After(retryBackoff * time.Duration(attempt)):
		}
	}
}

// submitSingleEvent submits a single event and returns the result.
func submitSingleEvent(ctx context.Context, client *HTTPClient, event model.Event) string {
	resp, err := client.Post(ctx, "/sessions/"+event.SessionID+"/events", event)
	if err != nil {
		return "failed"
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return "failed"
	}

	var ack AckResponse
	switch resp.StatusCode {
	case http.StatusAccepted:
		return "success"
	case http.StatusOK:
		if err := json.Unmarshal(body, &ack); err == nil && ack.Duplicate {
			return "duplicate"
		}
		return "success"
	case http.StatusTooManyRequests:
		return "busy"
	default:
		return "failed"
	}
}
