// Package textgen generates random text over the alphabet of a language.
// Every character of an alphabet is equally likely, so generated text sits
// close to the maximum entropy of its alphabet.
package textgen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/seiflotfy/shannon/internal/prng"
)

// Alphabets holds the character pool of each supported language. A character
// listed twice is drawn twice as often.
var Alphabets = map[string]string{
	"uk": "абвгдеєжзиіїйклмнопрстуфхцчшщьюяАБВГҐДЕЄЖЗИЇЙКЛМНОПРСТУФХЦЧШЩЬЮЯ  ,.!?()",
	"de": "abcdefghijklmnopqrstuvwxyzäöüßABCDEFGHIJKLMNOPQRSTUVWXYZÄÖÜß  ,.!?()",
	"en": "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ  ,.!?()",
}

// DefaultLength is the text length the command generates when none is given.
const DefaultLength = 1500

// Languages returns the supported language codes in sorted order.
func Languages() []string {
	out := make([]string, 0, len(Alphabets))
	for lang := range Alphabets {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

// Generate returns length characters drawn uniformly from the alphabet of
// lang. The same seed always yields the same text.
func Generate(lang string, length int, seed uint64) (string, error) {
	alphabet, ok := Alphabets[lang]
	if !ok {
		return "", fmt.Errorf("unknown language %q (have %s)", lang, strings.Join(Languages(), ", "))
	}
	if length < 0 {
		return "", fmt.Errorf("negative length %d", length)
	}
	return FromAlphabet([]rune(alphabet), length, prng.New(seed)), nil
}

// FromAlphabet draws length runes uniformly from pool.
func FromAlphabet(pool []rune, length int, src *prng.Source) string {
	if len(pool) == 0 {
		return ""
	}
	var b strings.Builder
	b.Grow(length * 2)
	for i := 0; i < length; i++ {
		b.WriteRune(pool[src.Intn(len(pool))])
	}
	return b.String()
}
