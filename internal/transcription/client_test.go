package transcription

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

func writeTestAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "recording.wav")
	if err := os.WriteFile(path, []byte("RIFF fake audio"), 0644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func newTestClient(t *testing.T, transcribeURL, extractURL string) *Client {
	t.Helper()
	c, err := NewClient(Config{
		TranscribeURL: transcribeURL,
		ExtractURL:    extractURL,
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestProcessSequentialPipeline(t *testing.T) {
	transcribeSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("expected multipart form: %v", err)
		}
		if got := r.FormValue("model"); got != "whisper-1" {
			t.Errorf("unexpected model %q", got)
		}
		w.Write([]byte(`{"text":"uh hi can we get two burgers please"}`))
	}))
	defer transcribeSrv.Close()

	extractSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Two burgers\n"}}]}`))
	}))
	defer extractSrv.Close()

	c := newTestClient(t, transcribeSrv.URL, extractSrv.URL)
	got, err := c.Process(context.Background(), writeTestAudio(t), "sk-test")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got != "Two burgers" {
		t.Fatalf("expected trimmed extraction result, got %q", got)
	}
}

func TestTranscribeFailureSkipsExtraction(t *testing.T) {
	transcribeSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	}))
	defer transcribeSrv.Close()

	var extractCalls int64
	extractSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&extractCalls, 1)
	}))
	defer extractSrv.Close()

	c := newTestClient(t, transcribeSrv.URL, extractSrv.URL)
	_, err := c.Process(context.Background(), writeTestAudio(t), "sk-bad")

	var te *TranscriptionError
	if !errors.As(err, &te) {
		t.Fatalf("expected TranscriptionError, got %v", err)
	}
	if te.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", te.StatusCode)
	}
	if te.Message != "Incorrect API key provided" {
		t.Fatalf("expected error envelope message, got %q", te.Message)
	}
	if atomic.LoadInt64(&extractCalls) != 0 {
		t.Fatalf("extraction must not be invoked after transcription failure")
	}
}

func TestExtractionFailure(t *testing.T) {
	extractSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"Rate limit reached"}}`))
	}))
	defer extractSrv.Close()

	c := newTestClient(t, extractSrv.URL, extractSrv.URL)
	_, err := c.ExtractOrderItems(context.Background(), "two burgers", "sk-test")

	var ee *ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
	if ee.StatusCode != http.StatusTooManyRequests || ee.Message != "Rate limit reached" {
		t.Fatalf("unexpected error payload: %+v", ee)
	}
}

func TestMissingCredential(t *testing.T) {
	c := newTestClient(t, "http://localhost:1/t", "http://localhost:1/e")
	if _, err := c.Transcribe(context.Background(), writeTestAudio(t), ""); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
	if _, err := c.ExtractOrderItems(context.Background(), "text", "   "); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}

func TestDeduplicateLines(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"a\na\nb\n\n", "a\nb"},
		{"", ""},
		{"Two burgers\nTwo burgers\nFries", "Two burgers\nFries"},
		{"a\nb\na", "a\nb"},
		{"  \n\n", ""},
	}
	for _, tc := range cases {
		if got := DeduplicateLines(tc.in); got != tc.want {
			t.Fatalf("DeduplicateLines(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestValidateAPIKey(t *testing.T) {
	if !ValidateAPIKey("sk-abc") {
		t.Fatalf("expected sk-abc valid")
	}
	if ValidateAPIKey("abc") {
		t.Fatalf("expected abc invalid")
	}
	if ValidateAPIKey("") {
		t.Fatalf("expected empty key invalid")
	}
	if ValidateAPIKey("   ") {
		t.Fatalf("expected blank key invalid")
	}
}

func TestMockProcess(t *testing.T) {
	m := &Mock{Delay: 0}
	got, err := m.Process(context.Background(), "ignored", "")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got == "" {
		t.Fatalf("expected non-empty sample order")
	}
}
