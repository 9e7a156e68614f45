package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type geminiRequest struct {
	Contents []struct {
		Role  string `json:"role"`
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
	GenerationConfig struct {
		ResponseMIMEType string `json:"responseMimeType"`
		MaxOutputTokens  int    `json:"maxOutputTokens"`
	} `json:"generationConfig"`
}

func geminiBody(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"role":  "model",
				"parts": []map[string]string{{"text": text}},
			},
			"finishReason": "STOP",
		}},
	})
	return string(b)
}

func geminiError(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	b, _ := json.Marshal(map[string]any{
		"error": map[string]any{"code": code, "message": "backend says no", "status": status},
	})
	_, _ = w.Write(b)
}

func newTestGemini(t *testing.T, handler http.HandlerFunc) Oracle {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	oracle, err := New(context.Background(), Config{
		Provider:   ProviderGemini,
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		Model:      "gemini-test",
		MaxRetries: 2,
		RetryDelay: time.Millisecond,
		Timeout:    5 * time.Second,
	}, discardLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return oracle
}

func TestGeminiCompleteJSONMode(t *testing.T) {
	t.Parallel()

	var got geminiRequest
	var path string
	oracle := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(geminiBody(` {"is_question": true, "confidence": 0.9} `)))
	})

	out, err := oracle.Complete(context.Background(), Request{Prompt: "Is it?", JSON: true, MaxTokens: 50})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out != `{"is_question": true, "confidence": 0.9}` {
		t.Errorf("Complete() = %q", out)
	}
	if !strings.HasSuffix(path, "models/gemini-test:generateContent") {
		t.Errorf("path = %q, want generateContent for the configured model", path)
	}
	if got.GenerationConfig.ResponseMIMEType != "application/json" {
		t.Errorf("responseMimeType = %q, want application/json", got.GenerationConfig.ResponseMIMEType)
	}
	if got.GenerationConfig.MaxOutputTokens != 50 {
		t.Errorf("maxOutputTokens = %d, want 50", got.GenerationConfig.MaxOutputTokens)
	}
	if len(got.Contents) != 1 || got.Contents[0].Role != "user" || len(got.Contents[0].Parts) != 1 || got.Contents[0].Parts[0].Text != "Is it?" {
		t.Errorf("contents = %+v, want one user prompt", got.Contents)
	}
}

func TestGeminiCompletePlainMode(t *testing.T) {
	t.Parallel()

	var got geminiRequest
	oracle := newTestGemini(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(geminiBody("In March.")))
	})

	if _, err := oracle.Complete(context.Background(), Request{Prompt: "When?"}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got.GenerationConfig.ResponseMIMEType != "" {
		t.Errorf("responseMimeType = %q, want unset", got.GenerationConfig.ResponseMIMEType)
	}
}

func TestGeminiRetries(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		failures  int
		code      int
		status    string
		wantCalls int32
		wantErr   bool
	}{
		{name: "recovers after 503s", failures: 2, code: http.StatusServiceUnavailable, status: "UNAVAILABLE", wantCalls: 3},
		{name: "recovers after a 500", failures: 1, code: http.StatusInternalServerError, status: "INTERNAL", wantCalls: 2},
		{name: "gives up after max retries", failures: 10, code: http.StatusServiceUnavailable, status: "UNAVAILABLE", wantCalls: 3, wantErr: true},
		{name: "no retry on bad request", failures: 10, code: http.StatusBadRequest, status: "INVALID_ARGUMENT", wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var calls atomic.Int32
			oracle := newTestGemini(t, func(w http.ResponseWriter, _ *http.Request) {
				if int(calls.Add(1)) <= tt.failures {
					geminiError(w, tt.code, tt.status)
					return
				}
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(geminiBody("ok")))
			})

			out, err := oracle.Complete(context.Background(), Request{Prompt: "p"})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Complete() = %q, %v; wantErr %v", out, err, tt.wantErr)
			}
			if !tt.wantErr && out != "ok" {
				t.Errorf("Complete() = %q, want ok", out)
			}
			if n := calls.Load(); n != tt.wantCalls {
				t.Errorf("server called %d times, want %d", n, tt.wantCalls)
			}
		})
	}
}

func TestGeminiBlockedAndEmpty(t *testing.T) {
	t.Parallel()

	blocked := newTestGemini(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"promptFeedback": {"blockReason": "SAFETY"}}`))
	})
	_, err := blocked.Complete(context.Background(), Request{Prompt: "p"})
	if err == nil || !strings.Contains(err.Error(), "blocked") {
		t.Errorf("Complete() error = %v, want blocked request", err)
	}

	empty := newTestGemini(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(geminiBody("   ")))
	})
	if _, err := empty.Complete(context.Background(), Request{Prompt: "p"}); !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Complete() error = %v, want ErrEmptyResponse", err)
	}
}
