package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/seiflotfy/shannon/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubFetcher struct {
	pages map[string]string
}

func (s stubFetcher) Text(_ context.Context, url string) (string, error) {
	text, ok := s.pages[url]
	if !ok {
		return "", errors.New("unexpected status: 404 Not Found")
	}
	return text, nil
}

func newTestRouter() *gin.Engine {
	h := NewHandler(stubFetcher{pages: map[string]string{"example.com": "abracadabra"}}, logger.Discard())
	return NewRouter(Dependencies{Handler: h})
}

func do(t *testing.T, r http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("%s %s: invalid JSON %q", method, path, w.Body.String())
	}
	return w, out
}

func near(v any, want float64) bool {
	f, ok := v.(float64)
	return ok && math.Abs(f-want) < 1e-9
}

func TestHealthz(t *testing.T) {
	w, out := do(t, newTestRouter(), http.MethodGet, "/healthz", nil)
	if w.Code != http.StatusOK || out["ok"] != true {
		t.Errorf("healthz: %d %v", w.Code, out)
	}
}

func TestEntropy(t *testing.T) {
	r := newTestRouter()
	w, out := do(t, r, http.MethodPost, "/api/entropy", gin.H{"text": "aabb"})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %v", w.Code, out)
	}
	if !near(out["entropy"], 1) || !near(out["information"], 4) || !near(out["length"], 4) {
		t.Errorf("unexpected analysis %v", out)
	}
	if syms := out["symbols"].([]any); len(syms) != 2 {
		t.Errorf("symbols: %v", syms)
	}

	w, _ = do(t, r, http.MethodPost, "/api/entropy", gin.H{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing text: status %d", w.Code)
	}
	w, _ = do(t, r, http.MethodPost, "/api/entropy", "{not json")
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad JSON: status %d", w.Code)
	}
}

func TestJoint(t *testing.T) {
	r := newTestRouter()
	w, out := do(t, r, http.MethodPost, "/api/joint", gin.H{
		"cols":   []string{"x", "never"},
		"matrix": [][]float64{{1, 0}, {1, 0}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %v", w.Code, out)
	}
	if !near(out["h_ab"], 1) || !near(out["h_a_given_b"], 1) || !near(out["h_b_given_a"], 0) {
		t.Errorf("unexpected entropies %v", out)
	}
	conds := out["conditionals"].([]any)
	aGivenB := conds[0].(map[string]any)
	if aGivenB["given"] != "B" {
		t.Errorf("first conditional should be given B: %v", aGivenB["given"])
	}
	if defined := aGivenB["defined"].([]any); defined[0] != true || defined[1] != false {
		t.Errorf("defined: %v", defined)
	}

	w, out = do(t, r, http.MethodPost, "/api/joint", gin.H{"matrix": [][]float64{{1, 2}, {3}}})
	if w.Code != http.StatusBadRequest || !strings.Contains(out["error"].(string), "invalid distribution") {
		t.Errorf("ragged matrix: %d %v", w.Code, out)
	}
}

func TestCode(t *testing.T) {
	r := newTestRouter()
	w, out := do(t, r, http.MethodPost, "/api/code", gin.H{
		"symbols":       []string{"x1", "x2", "x3", "x4"},
		"probabilities": []float64{0.25, 0.25, 0.25, 0.25},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %v", w.Code, out)
	}
	entries := out["entries"].([]any)
	if len(entries) != 4 || entries[3].(map[string]any)["code"] != "11" {
		t.Errorf("entries: %v", entries)
	}
	if !near(out["average_length"], 2) || !near(out["efficiency"], 1) || !near(out["kraft_sum"], 1) {
		t.Errorf("unexpected summary %v", out)
	}

	tests := []gin.H{
		{"symbols": []string{}, "probabilities": []float64{}},
		{"symbols": []string{"a", "a"}, "probabilities": []float64{1, 1}},
		{"symbols": []string{"a", "b"}, "probabilities": []float64{1, -1}},
		{"symbols": []string{"a"}, "probabilities": []float64{1}, "separator": "01"},
	}
	for _, body := range tests {
		if w, out := do(t, r, http.MethodPost, "/api/code", body); w.Code != http.StatusBadRequest {
			t.Errorf("%v: status %d %v", body, w.Code, out)
		}
	}
}

func TestEncodeDecode(t *testing.T) {
	r := newTestRouter()
	source := gin.H{"symbols": []string{"a", "b", "c"}, "probabilities": []float64{2, 1, 1}}

	body := gin.H{"text": "abca"}
	for k, v := range source {
		body[k] = v
	}
	w, out := do(t, r, http.MethodPost, "/api/code/encode", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %v", w.Code, out)
	}
	if out["encoded"] != "0 10 11 0" || out["bits"] != "010110" {
		t.Errorf("unexpected encoding %v", out)
	}

	for _, field := range []gin.H{{"encoded": "0 10 11 0"}, {"bits": "010110"}, {"codes": []string{"0", "10", "11", "0"}}} {
		req := gin.H{}
		for k, v := range source {
			req[k] = v
		}
		for k, v := range field {
			req[k] = v
		}
		w, out := do(t, r, http.MethodPost, "/api/code/decode", req)
		if w.Code != http.StatusOK || out["text"] != "abca" {
			t.Errorf("decode %v: %d %v", field, w.Code, out)
		}
	}

	body["text"] = "abz"
	if w, _ := do(t, r, http.MethodPost, "/api/code/encode", body); w.Code != http.StatusBadRequest {
		t.Errorf("unknown symbol: status %d", w.Code)
	}
	bad := gin.H{"bits": "0101"}
	for k, v := range source {
		bad[k] = v
	}
	if w, _ := do(t, r, http.MethodPost, "/api/code/decode", bad); w.Code != http.StatusBadRequest {
		t.Errorf("truncated bits: status %d", w.Code)
	}
}

func TestCodeFromSource(t *testing.T) {
	r := newTestRouter()
	w, out := do(t, r, http.MethodPost, "/api/code/encode", gin.H{"source": "mississippi", "text": "miss", "separator": "|"})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %v", w.Code, out)
	}
	if out["encoded"] != "11|00|01|01" {
		t.Errorf("encoded: %v", out["encoded"])
	}
}

func TestEncodeDecodeLargeText(t *testing.T) {
	r := newTestRouter()
	text := strings.Repeat("abracadabra ", 10000)

	w, out := do(t, r, http.MethodPost, "/api/code/encode", gin.H{"source": text, "text": text})
	if w.Code != http.StatusOK {
		t.Fatalf("encode: status %d", w.Code)
	}
	codes := out["codes"].([]any)
	if len(codes) != len(text) {
		t.Fatalf("got %d codes, want %d", len(codes), len(text))
	}
	var joined strings.Builder
	for _, c := range codes {
		joined.WriteString(c.(string))
	}
	if out["bits"] != joined.String() {
		t.Errorf("bits is not the concatenation of codes")
	}
	if encoded := out["encoded"].(string); strings.Count(encoded, " ") != len(codes)-1 {
		t.Errorf("encoded has %d separators, want %d", strings.Count(encoded, " "), len(codes)-1)
	}

	w, out = do(t, r, http.MethodPost, "/api/code/decode", gin.H{"source": text, "bits": joined.String()})
	if w.Code != http.StatusOK || out["text"] != text {
		t.Errorf("decode: status %d, round trip %v", w.Code, out["text"] == text)
	}
}

func TestFetch(t *testing.T) {
	r := newTestRouter()
	w, out := do(t, r, http.MethodPost, "/api/fetch", gin.H{"url": "example.com", "top_n": 2})
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %v", w.Code, out)
	}
	if out["url"] != "example.com" || !near(out["length"], 11) {
		t.Errorf("unexpected response %v", out)
	}
	if syms := out["symbols"].([]any); len(syms) != 2 {
		t.Errorf("top_n not applied: %v", syms)
	}

	if w, _ := do(t, r, http.MethodPost, "/api/fetch", gin.H{"url": "down.example"}); w.Code != http.StatusBadGateway {
		t.Errorf("failed fetch: status %d", w.Code)
	}
	if w, _ := do(t, r, http.MethodPost, "/api/fetch", gin.H{}); w.Code != http.StatusBadRequest {
		t.Errorf("missing url: status %d", w.Code)
	}

	disabled := NewRouter(Dependencies{Handler: NewHandler(nil, logger.Discard())})
	if w, _ := do(t, disabled, http.MethodPost, "/api/fetch", gin.H{"url": "example.com"}); w.Code != http.StatusServiceUnavailable {
		t.Errorf("disabled fetch: status %d", w.Code)
	}
}

func TestServeShutsDown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0", newTestRouter(), logger.Discard()) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
