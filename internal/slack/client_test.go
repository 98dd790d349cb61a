package slack

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/commercekit/slack-relay/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClientWithResty("xoxb-test", server.URL, resty.New())
	if err != nil {
		t.Fatalf("NewClientWithResty() error = %v", err)
	}
	return client
}

func TestPostMessageSendsBlocksAndAuth(t *testing.T) {
	t.Parallel()

	var gotAuth string
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &gotBody); err != nil {
			t.Errorf("request body is not JSON: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1700000000.000100"}`))
	})

	resp, err := client.PostMessage(context.Background(), Message{
		Channel: "C123",
		Text:    "ORDER PLACED",
		Blocks:  []domain.Block{domain.NewSectionBlock("hello", ""), domain.NewDividerBlock()},
	})
	if err != nil {
		t.Fatalf("PostMessage() error = %v", err)
	}

	if !resp.OK {
		t.Fatal("resp.OK = false, want true")
	}
	if gotAuth != "Bearer xoxb-test" {
		t.Fatalf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotBody["channel"] != "C123" {
		t.Fatalf("channel = %v, want C123", gotBody["channel"])
	}
	blocks, ok := gotBody["blocks"].([]any)
	if !ok || len(blocks) != 2 {
		t.Fatalf("blocks = %v, want 2 blocks", gotBody["blocks"])
	}
}

func TestPostMessageNotOKAckIsNotAnError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":false,"error":"channel_not_found"}`))
	})

	resp, err := client.PostMessage(context.Background(), Message{Channel: "C404", Text: "x"})
	if err != nil {
		t.Fatalf("PostMessage() error = %v, want nil for ok:false ack", err)
	}
	if resp.OK {
		t.Fatal("resp.OK = true, want false")
	}
	if resp.Error != "channel_not_found" {
		t.Fatalf("resp.Error = %q, want channel_not_found", resp.Error)
	}
}

func TestPostMessageHTTPErrorIsTransportError(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.PostMessage(context.Background(), Message{Channel: "C123", Text: "x"})
	if err == nil {
		t.Fatal("expected transport error for HTTP 503")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if !apiErr.Transient {
		t.Fatal("HTTP 503 should classify as transient")
	}
}

func TestPostMessageRequiresChannel(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be made")
	})

	_, err := client.PostMessage(context.Background(), Message{Text: "x"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}
