package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI records calls per "METHOD path" and answers from a script
type fakeAPI struct {
	mu      sync.Mutex
	calls   map[string]int
	queries map[string]string
	respond func(key string, n int) (int, any)
}

func newFakeAPI(t *testing.T, respond func(key string, n int) (int, any)) (*fakeAPI, *Client) {
	t.Helper()
	api := &fakeAPI{calls: map[string]int{}, queries: map[string]string{}, respond: respond}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	client, err := NewClient(ClientConfig{
		APIKey:         "sk-test",
		AssistantID:    "asst_test",
		BaseURL:        srv.URL + "/v1",
		MaxRetries:     2,
		RetryDelay:     time.Millisecond,
		RequestTimeout: 5 * time.Second,
	})
	require.NoError(t, err)
	return api, client
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/v1")

	f.mu.Lock()
	f.calls[key]++
	n := f.calls[key]
	f.queries[key] = r.URL.RawQuery
	f.mu.Unlock()

	status, body := f.respond(key, n)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (f *fakeAPI) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func apiError(message string) map[string]any {
	return map[string]any{"error": map[string]any{
		"message": message,
		"type":    "invalid_request_error",
		"param":   nil,
		"code":    nil,
	}}
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(ClientConfig{AssistantID: "asst"})
	assert.Error(t, err)

	_, err = NewClient(ClientConfig{APIKey: "sk"})
	assert.Error(t, err)
}

func TestCreateThread_RetriesServerErrors(t *testing.T) {
	api, client := newFakeAPI(t, func(key string, n int) (int, any) {
		if n == 1 {
			return http.StatusInternalServerError, apiError("upstream hiccup")
		}
		return http.StatusOK, map[string]any{"id": "thread_abc", "object": "thread", "created_at": 1}
	})

	id, err := client.CreateThread(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "thread_abc", id)
	assert.Equal(t, 2, api.count("POST /threads"))
}

func TestPostMessage_NotRetried(t *testing.T) {
	api, client := newFakeAPI(t, func(string, int) (int, any) {
		return http.StatusInternalServerError, apiError("boom")
	})

	err := client.PostMessage(context.Background(), "thread_1", "hello")
	require.Error(t, err)
	assert.Equal(t, 1, api.count("POST /threads/thread_1/messages"))
}

func TestPostMessage_MissingThread(t *testing.T) {
	_, client := newFakeAPI(t, func(string, int) (int, any) {
		return http.StatusNotFound, apiError("No thread found with id 'thread_gone'.")
	})

	err := client.PostMessage(context.Background(), "thread_gone", "hello")
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestStartRun_MissingAssistantIsNotMissingThread(t *testing.T) {
	api, client := newFakeAPI(t, func(string, int) (int, any) {
		return http.StatusNotFound, apiError("No assistant found with id 'asst_test'.")
	})

	_, err := client.StartRun(context.Background(), "thread_1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrThreadNotFound))
	assert.False(t, errors.Is(err, ErrActiveRun))
	assert.Equal(t, 1, api.count("POST /threads/thread_1/runs"))
}

func TestStartRun_MissingThread(t *testing.T) {
	_, client := newFakeAPI(t, func(string, int) (int, any) {
		return http.StatusNotFound, apiError("No thread found with id 'thread_gone'.")
	})

	_, err := client.StartRun(context.Background(), "thread_gone")
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestGetRun_MissingRunIsNotMissingThread(t *testing.T) {
	_, client := newFakeAPI(t, func(string, int) (int, any) {
		return http.StatusNotFound, apiError("No run found with id 'run_gone'.")
	})

	_, err := client.GetRun(context.Background(), "thread_1", "run_gone")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrThreadNotFound))
}

func TestStartRun_ActiveRunConflict(t *testing.T) {
	api, client := newFakeAPI(t, func(string, int) (int, any) {
		return http.StatusBadRequest, apiError("Thread thread_1 already has an active run run_9.")
	})

	_, err := client.StartRun(context.Background(), "thread_1")
	assert.ErrorIs(t, err, ErrActiveRun)
	assert.False(t, errors.Is(err, ErrThreadNotFound))
	assert.Equal(t, 1, api.count("POST /threads/thread_1/runs"))
}

func TestStartRun_OtherBadRequestIsNotConflict(t *testing.T) {
	_, client := newFakeAPI(t, func(string, int) (int, any) {
		return http.StatusBadRequest, apiError("Invalid assistant_id")
	})

	_, err := client.StartRun(context.Background(), "thread_1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrActiveRun))
}

func TestStartRun_ReturnsRun(t *testing.T) {
	_, client := newFakeAPI(t, func(string, int) (int, any) {
		return http.StatusOK, map[string]any{"id": "run_1", "object": "thread.run", "status": "queued"}
	})

	run, err := client.StartRun(context.Background(), "thread_1")
	require.NoError(t, err)
	assert.Equal(t, Run{ID: "run_1", Status: RunQueued}, run)
	assert.True(t, run.Status.Pending())
}

func TestGetRun_Status(t *testing.T) {
	_, client := newFakeAPI(t, func(string, int) (int, any) {
		return http.StatusOK, map[string]any{"id": "run_1", "object": "thread.run", "status": "completed"}
	})

	run, err := client.GetRun(context.Background(), "thread_1", "run_1")
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, run.Status)
	assert.False(t, run.Status.Pending())
}

func TestListRuns_PassesLimit(t *testing.T) {
	api, client := newFakeAPI(t, func(string, int) (int, any) {
		return http.StatusOK, map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"id": "run_2", "object": "thread.run", "status": "in_progress"},
			},
			"has_more": false,
		}
	})

	runs, err := client.ListRuns(context.Background(), "thread_1", 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run_2", runs[0].ID)
	assert.Equal(t, RunInProgress, runs[0].Status)

	api.mu.Lock()
	query := api.queries["GET /threads/thread_1/runs"]
	api.mu.Unlock()
	assert.Contains(t, query, "limit=1")
}

func TestListMessages_FlattensText(t *testing.T) {
	_, client := newFakeAPI(t, func(string, int) (int, any) {
		return http.StatusOK, map[string]any{
			"object": "list",
			"data": []map[string]any{
				{
					"id": "msg_2", "object": "thread.message", "role": "assistant",
					"content": []map[string]any{
						{"type": "text", "text": map[string]any{"value": "Welcome aboard!", "annotations": []any{}}},
						{"type": "text", "text": map[string]any{"value": "Let's plan.", "annotations": []any{}}},
					},
				},
				{
					"id": "msg_1", "object": "thread.message", "role": "user",
					"content": []map[string]any{
						{"type": "text", "text": map[string]any{"value": "Age: 30", "annotations": []any{}}},
					},
				},
			},
		}
	})

	msgs, err := client.ListMessages(context.Background(), "thread_1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, Message{ID: "msg_2", Role: RoleAssistant, Text: "Welcome aboard!\nLet's plan."}, msgs[0])
	assert.Equal(t, RoleUser, msgs[1].Role)
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	api, client := newFakeAPI(t, func(string, int) (int, any) {
		return http.StatusServiceUnavailable, apiError("overloaded")
	})

	_, err := client.GetRun(context.Background(), "thread_1", "run_1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, api.count("GET /threads/thread_1/runs/run_1"))
}
