package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runArgs(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errb bytes.Buffer
	code = run(args, &out, &errb)
	return code, out.String(), errb.String()
}

func TestUsage(t *testing.T) {
	if code, _, stderr := runArgs(t); code != 2 || !strings.Contains(stderr, "usage:") {
		t.Errorf("no args: code %d, stderr %q", code, stderr)
	}
	if code, _, stderr := runArgs(t, "frobnicate"); code != 2 || !strings.Contains(stderr, `unknown command "frobnicate"`) {
		t.Errorf("unknown command: code %d, stderr %q", code, stderr)
	}
}

func TestTextManual(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "results.txt")
	img := filepath.Join(dir, "img")

	// a stale report must be truncated
	os.WriteFile(out, []byte("stale"), 0o644)

	code, stdout, stderr := runArgs(t, "text", "-text", "abracadabra", "-out", out, "-img", img)
	if code != 0 {
		t.Fatalf("code %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Entropy (H): 2.0404 bits/symbol") {
		t.Errorf("stdout: %s", stdout)
	}
	data, _ := os.ReadFile(out)
	if strings.Contains(string(data), "stale") || string(data) != stdout {
		t.Errorf("report file should mirror stdout, got %q", data)
	}
	for _, name := range []string{"Manual_manual_hist.png", "info_comparison.png"} {
		if _, err := os.Stat(filepath.Join(img, name)); err != nil {
			t.Errorf("missing chart %s: %v", name, err)
		}
	}
}

func TestTextCorpus(t *testing.T) {
	dir := t.TempDir()
	texts := filepath.Join(dir, "texts.json")
	os.WriteFile(texts, []byte(`{
		"English": {"variant1": "the cat sat on the mat", "variant3": "mat the on sat cat the"},
		"Deutsch": {"variant1": "die Katze sitzt"}
	}`), 0o644)
	img := filepath.Join(dir, "img")

	code, stdout, stderr := runArgs(t, "text", "-corpus", texts, "-variant", "both", "-out", "", "-img", img)
	if code != 0 {
		t.Fatalf("code %d: %s", code, stderr)
	}
	for _, want := range []string{"=== Deutsch (variant1) ===", "=== English (variant1) ===", "=== English (variant3) ==="} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout lacks %q", want)
		}
	}
	if !strings.Contains(stderr, "Deutsch: no text for variant3") {
		t.Errorf("missing text not logged: %s", stderr)
	}
	if _, err := os.Stat(filepath.Join(img, "comparison_English.png")); err != nil {
		t.Errorf("comparison chart: %v", err)
	}
	if _, err := os.Stat(filepath.Join(img, "comparison_Deutsch.png")); err == nil {
		t.Errorf("Deutsch has one variant and needs no comparison chart")
	}

	if code, _, _ := runArgs(t, "text", "-corpus", texts, "-variant", "variant2", "-out", ""); code != 1 {
		t.Errorf("unknown variant: code %d", code)
	}
	if code, _, _ := runArgs(t, "text", "-out", ""); code != 1 {
		t.Errorf("no input: code %d", code)
	}
}

func TestURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body><p>hello world</p><script>x()</script></body></html>")
	}))
	defer srv.Close()

	dir := t.TempDir()
	code, stdout, stderr := runArgs(t, "url", "-out", "", "-img", dir, srv.URL)
	if code != 0 {
		t.Fatalf("code %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Text length: 11 symbols") {
		t.Errorf("stdout: %s", stdout)
	}
	matches, _ := filepath.Glob(filepath.Join(dir, "*_char_distribution.png"))
	if len(matches) != 1 {
		t.Errorf("expected one chart, got %v", matches)
	}

	if code, _, _ := runArgs(t, "url", "-out", ""); code != 1 {
		t.Errorf("no URL: code %d", code)
	}
}

func TestJoint(t *testing.T) {
	code, stdout, stderr := runArgs(t, "joint", "-out", "", "-matrix", "[[0.25,0.25],[0.25,0.25]]")
	if code != 0 {
		t.Fatalf("code %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "H(A,B)     = 2.000000") || !strings.Contains(stdout, "H(A|B)     = 1.000000") {
		t.Errorf("stdout: %s", stdout)
	}

	code, stdout, _ = runArgs(t, "joint", "-out", "")
	if code != 0 || !strings.Contains(stdout, "B8") {
		t.Errorf("default 9x9 table: code %d", code)
	}

	if code, _, _ := runArgs(t, "joint", "-out", "", "-matrix", "[[0,0]]"); code != 1 {
		t.Errorf("zero matrix: code %d", code)
	}
}

func TestCode(t *testing.T) {
	dir := t.TempDir()
	table := filepath.Join(dir, "table.sfct")

	code, stdout, stderr := runArgs(t, "code", "-out", "", "-message", "a1 a3 a12", "-save", table)
	if code != 0 {
		t.Fatalf("code %d: %s", code, stderr)
	}
	for _, want := range []string{"Symbols k = 12", "Transmission rate", "a12", "11111111111", "Encoded: 0 110 11111111111", "Round trip: true"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("stdout lacks %q:\n%s", want, stdout)
		}
	}

	code, stdout, stderr = runArgs(t, "code", "-out", "", "-load", table, "-message", "a2")
	if code != 0 {
		t.Fatalf("load: code %d: %s", code, stderr)
	}
	if !strings.Contains(stdout, "Encoded: 10") {
		t.Errorf("loaded table: %s", stdout)
	}

	code, stdout, _ = runArgs(t, "code", "-out", "", "-uniform", "-n", "4")
	if code != 0 || !strings.Contains(stdout, "Average length: 2.000000") {
		t.Errorf("uniform: code %d\n%s", code, stdout)
	}

	code, stdout, _ = runArgs(t, "code", "-out", "", "-text", "mississippi", "-sep", "|")
	if code != 0 || !strings.Contains(stdout, "Decoded: mississippi") {
		t.Errorf("text: code %d\n%s", code, stdout)
	}

	if code, _, _ := runArgs(t, "code", "-out", "", "-message", "a99"); code != 1 {
		t.Errorf("unknown symbol: code %d", code)
	}
	if code, _, _ := runArgs(t, "code", "-out", "", "-n", "0"); code != 1 {
		t.Errorf("empty alphabet: code %d", code)
	}
}

func TestGen(t *testing.T) {
	code, a, _ := runArgs(t, "gen", "-lang", "de", "-length", "50", "-seed", "9")
	if code != 0 {
		t.Fatalf("code %d", code)
	}
	_, b, _ := runArgs(t, "gen", "-lang", "de", "-length", "50", "-seed", "9")
	if a != b {
		t.Errorf("same seed, different output")
	}

	code, stdout, _ := runArgs(t, "gen", "-lang", "en", "-length", "100", "-seed", "1", "-analyze")
	if code != 0 || !strings.Contains(stdout, "=== Random text (en) ===") {
		t.Errorf("analyze: code %d\n%s", code, stdout)
	}
	if code, _, _ := runArgs(t, "gen", "-lang", "xx"); code != 1 {
		t.Errorf("unknown language: code %d", code)
	}
}

func TestBadFlag(t *testing.T) {
	if code, _, _ := runArgs(t, "joint", "-bogus"); code != 1 {
		t.Errorf("bad flag: code %d", code)
	}
	if code, _, _ := runArgs(t, "joint", "-h"); code != 2 {
		t.Errorf("help: code %d", code)
	}
}
