package corpus

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sample = `{
  "Українська": {"variant1": "Кіт спить на печі.", "variant3": "печі на Кіт спить."},
  "English": {"variant1": "The cat sleeps.", "variant3": "   "},
  "Deutsch": {"variant1": "Die Katze schläft."}
}`

func TestReadAndSelect(t *testing.T) {
	c, err := Read(strings.NewReader(sample))
	if err != nil {
		t.Fatal(err)
	}
	if got := c.Languages(); len(got) != 3 || got[0] != "Deutsch" {
		t.Errorf("Languages: %v", got)
	}

	samples, missing := c.Select(Connected)
	if len(samples) != 3 || len(missing) != 0 {
		t.Fatalf("variant1: %d samples, missing %v", len(samples), missing)
	}
	if samples[1].Language != "English" || samples[1].Text != "The cat sleeps." {
		t.Errorf("unexpected sample %+v", samples[1])
	}

	samples, missing = c.Select(Disconnected)
	if len(samples) != 1 || samples[0].Language != "Українська" {
		t.Errorf("variant3 samples: %+v", samples)
	}
	if len(missing) != 2 || missing[0] != "Deutsch" || missing[1] != "English" {
		t.Errorf("variant3 missing: %v", missing)
	}
}

func TestTextMissing(t *testing.T) {
	c, _ := Read(strings.NewReader(sample))
	if _, err := c.Text("English", Disconnected); !errors.Is(err, ErrNoText) {
		t.Errorf("blank text: expected ErrNoText, got %v", err)
	}
	if _, err := c.Text("Klingon", Connected); !errors.Is(err, ErrNoText) {
		t.Errorf("unknown language: expected ErrNoText, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "texts.json")
	if err := os.WriteFile(path, []byte(sample), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(c) != 3 {
		t.Errorf("expected 3 languages, got %d", len(c))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file: %v", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.json")
	os.WriteFile(bad, []byte(`{"English": "flat"}`), 0o644)
	if _, err := Load(bad); err == nil {
		t.Errorf("expected decode error")
	}
}
