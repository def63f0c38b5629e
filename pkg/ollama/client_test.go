package ollama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ollama/ollama/api"
)

func TestNewClientRejectsBadURL(t *testing.T) {
	if _, err := NewClient("::bad"); err == nil {
		t.Error("Expected error for malformed URL")
	}
	if _, err := NewClient("localhost"); err == nil {
		t.Error("Expected error for URL without scheme")
	}
}

func TestSimpleQuery(t *testing.T) {
	var got api.ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.ChatResponse{
			Model:   got.Model,
			Message: api.Message{Role: "assistant", Content: `{"labels": []}`},
			Done:    true,
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL + "/api/chat")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	img := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})
	reply, err := c.SimpleQuery(context.Background(), "llava", "describe", img)
	if err != nil {
		t.Fatalf("SimpleQuery: %v", err)
	}
	if reply != `{"labels": []}` {
		t.Errorf("unexpected reply %q", reply)
	}
	if got.Model != "llava" || len(got.Messages) != 1 || len(got.Messages[0].Images) != 1 {
		t.Errorf("unexpected request %+v", got)
	}
}

func TestSimpleQueryRejectsBadBase64(t *testing.T) {
	c, err := NewClient("http://127.0.0.1:1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.SimpleQuery(context.Background(), "m", "p", "%%%"); err == nil {
		t.Error("Expected base64 error")
	}
}

func TestModelOptions(t *testing.T) {
	if _, ok := modelOptions("llava:13b")["num_ctx"]; ok {
		t.Error("num_ctx should only be set for MiniCPM-V 4")
	}
	if modelOptions("openbmb/minicpm-v4.5")["num_ctx"] != 4096 {
		t.Error("Expected num_ctx 4096 for MiniCPM-V 4")
	}
}

func TestSimpleQueryEmptyReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(api.ChatResponse{Message: api.Message{Role: "assistant"}, Done: true})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	img := base64.StdEncoding.EncodeToString([]byte{1})
	if _, err := c.SimpleQuery(context.Background(), "m", "p", img); !errors.Is(err, ErrEmptyReply) {
		t.Errorf("Expected ErrEmptyReply, got %v", err)
	}
}
