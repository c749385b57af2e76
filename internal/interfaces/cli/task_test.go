package cli

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

func newTaskServer(t *testing.T) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var seen []recordedRequest
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/tasks/t-1/complete-recurring", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen = append(seen, recordedRequest{r.Method, r.URL.Path, string(body)})
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"completed_task_id":"t-1","action":"complete","outcome":"spawned","series_ended":false,
			"next_task":{"id":"t-2","column_id":"todo","title":"Water plants","due_date":"2024-03-04","tags":[],"subtasks":[]}
		}`)
	})
	mux.HandleFunc("/api/v1/tasks/t-1/skip-occurrence", func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, recordedRequest{Method: r.Method, Path: r.URL.Path})
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"outcome":"skipped","message":"Skipped to next occurrence","next_due_date":"2024-03-06","task":{"id":"t-1"}}`)
	})
	mux.HandleFunc("/api/v1/tasks/t-1/recurrence-summary", func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, recordedRequest{Method: r.Method, Path: r.URL.Path})
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"is_recurring":true,"summary":"Weekly on Mon, Wed","rule":{"type":"weekly","weekdays":[1,3]},"end_date":null,"count":10,"completed_count":3}`)
	})
	mux.HandleFunc("/api/v1/tasks/plain/recurrence-summary", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"is_recurring":false,"summary":"","rule":null,"end_date":null,"count":null,"completed_count":0}`)
	})
	mux.HandleFunc("/api/v1/tasks/t-1/calendar.ics", func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, recordedRequest{Method: r.Method, Path: r.URL.Path})
		w.Header().Set("Content-Type", "text/calendar")
		_, _ = io.WriteString(w, "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n")
	})
	mux.HandleFunc("/api/v1/tasks/missing/skip-occurrence", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"code":"TSK_001","message":"task not found"}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, &seen
}

func TestTaskComplete(t *testing.T) {
	srv, seen := newTaskServer(t)
	cfg := writeConfig(t, memoryConfig)

	out, _, err := runCLI(t, Dependencies{}, "-c", cfg, "--server", srv.URL,
		"task", "complete", "t-1", "--action", "complete", "--done-column", "done")
	require.NoError(t, err)

	require.Len(t, *seen, 1)
	req := (*seen)[0]
	assert.Equal(t, http.MethodPost, req.Method)
	assert.JSONEq(t, `{"action":"complete","done_column_id":"done"}`, req.Body)

	assert.Contains(t, out, "Completed t-1 (complete): spawned")
	assert.Contains(t, out, "t-2")
	assert.Contains(t, out, "2024-03-04")
	assert.NotContains(t, out, "Series ended")
}

func TestTaskComplete_DefaultActionSendsEmptyBody(t *testing.T) {
	srv, seen := newTaskServer(t)
	cfg := writeConfig(t, memoryConfig)

	_, _, err := runCLI(t, Dependencies{}, "-c", cfg, "--server", srv.URL, "task", "complete", "t-1")
	require.NoError(t, err)
	require.Len(t, *seen, 1)
	assert.JSONEq(t, `{}`, (*seen)[0].Body)
}

func TestTaskSkip(t *testing.T) {
	srv, _ := newTaskServer(t)
	cfg := writeConfig(t, memoryConfig)

	out, _, err := runCLI(t, Dependencies{}, "-c", cfg, "--server", srv.URL, "task", "skip", "t-1")
	require.NoError(t, err)
	assert.Equal(t, "Skipped to next occurrence\nNext due: 2024-03-06\n", out)
}

func TestTaskSkip_NotFound(t *testing.T) {
	srv, _ := newTaskServer(t)
	cfg := writeConfig(t, memoryConfig)

	_, _, err := runCLI(t, Dependencies{}, "-c", cfg, "--server", srv.URL, "task", "skip", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TSK_001")
}

func TestTaskSummary(t *testing.T) {
	srv, _ := newTaskServer(t)
	cfg := writeConfig(t, memoryConfig)

	out, _, err := runCLI(t, Dependencies{}, "-c", cfg, "--server", srv.URL, "task", "summary", "t-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Weekly on Mon, Wed")
	assert.Contains(t, out, "Limit")
	assert.Contains(t, out, "10")

	out, _, err = runCLI(t, Dependencies{}, "-c", cfg, "--server", srv.URL, "task", "summary", "plain")
	require.NoError(t, err)
	assert.Equal(t, "Not recurring\n", out)
}

func TestTaskSummary_JSON(t *testing.T) {
	srv, _ := newTaskServer(t)
	cfg := writeConfig(t, memoryConfig)

	out, _, err := runCLI(t, Dependencies{}, "-c", cfg, "--server", srv.URL, "-o", "json", "task", "summary", "t-1")
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, true, got["is_recurring"])
	assert.Equal(t, float64(3), got["completed_count"])
}

func TestTaskICS(t *testing.T) {
	srv, _ := newTaskServer(t)
	cfg := writeConfig(t, memoryConfig)

	out, _, err := runCLI(t, Dependencies{}, "-c", cfg, "--server", srv.URL, "task", "ics", "t-1")
	require.NoError(t, err)
	assert.Equal(t, "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n", out)

	path := filepath.Join(t.TempDir(), "t-1.ics")
	_, stderr, err := runCLI(t, Dependencies{}, "-c", cfg, "--server", srv.URL, "task", "ics", "t-1", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, stderr, "wrote")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "BEGIN:VCALENDAR")
}

func TestTaskCommands_RequireID(t *testing.T) {
	cfg := writeConfig(t, memoryConfig)
	for _, sub := range []string{"complete", "skip", "summary", "ics"} {
		_, _, err := runCLI(t, Dependencies{}, "-c", cfg, "task", sub)
		assert.Error(t, err, sub)
	}
}

//Personal.AI order the ending
