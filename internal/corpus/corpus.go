// Package corpus loads sample texts keyed by language and variant from JSON:
//
//	{"English": {"variant1": "connected text", "variant3": "shuffled words"}}
package corpus

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Well-known variants: variant1 is connected prose, variant3 the same
// material without connections between words.
const (
	Connected    = "variant1"
	Disconnected = "variant3"
)

// ErrNoText indicates a language with no usable text for a variant.
var ErrNoText = errors.New("no text for variant")

// Corpus maps language to variant to text.
type Corpus map[string]map[string]string

// Sample is one text selected from a Corpus.
type Sample struct {
	Language string
	Variant  string
	Text     string
}

// Read decodes a corpus from r.
func Read(r io.Reader) (Corpus, error) {
	var c Corpus
	if err := json.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode corpus: %w", err)
	}
	return c, nil
}

// Load reads the corpus file at path.
func Load(path string) (Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Languages returns the corpus languages in sorted order.
func (c Corpus) Languages() []string {
	out := make([]string, 0, len(c))
	for lang := range c {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Text returns the text of lang for variant. Missing or blank texts are
// ErrNoText.
func (c Corpus) Text(lang, variant string) (string, error) {
	text := c[lang][variant]
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%s: %w %s", lang, ErrNoText, variant)
	}
	return text, nil
}

// Select returns one sample per language for variant, in language order, and
// the languages that had no usable text.
func (c Corpus) Select(variant string) (samples []Sample, missing []string) {
	for _, lang := range c.Languages() {
		text, err := c.Text(lang, variant)
		if err != nil {
			missing = append(missing, lang)
			continue
		}
		samples = append(samples, Sample{Language: lang, Variant: variant, Text: text})
	}
	return samples, missing
}
