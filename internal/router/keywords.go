package router

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

//go:embed keywords.yaml
var defaultKeywords []byte

// Keywords is the heuristic vocabulary
type Keywords struct {
	Visual     []string `yaml:"visual"`
	Navigation []string `yaml:"navigation"`
	Datastore  []string `yaml:"datastore"`
	Verbs      struct {
		Read   []string `yaml:"read"`
		Mutate []string `yaml:"mutate"`
	} `yaml:"verbs"`
}

// LoadKeywords reads the embedded vocabulary and appends the lists of an
// optional override file.
func LoadKeywords(path string) (Keywords, error) {
	var kw Keywords
	if err := yaml.Unmarshal(defaultKeywords, &kw); err != nil {
		return Keywords{}, fmt.Errorf("failed to parse embedded keywords: %w", err)
	}
	if path == "" {
		return kw, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Keywords{}, fmt.Errorf("failed to read keywords file: %w", err)
	}
	var extra Keywords
	if err := yaml.Unmarshal(data, &extra); err != nil {
		return Keywords{}, fmt.Errorf("failed to parse keywords file %s: %w", path, err)
	}
	kw.Visual = append(kw.Visual, extra.Visual...)
	kw.Navigation = append(kw.Navigation, extra.Navigation...)
	kw.Datastore = append(kw.Datastore, extra.Datastore...)
	kw.Verbs.Read = append(kw.Verbs.Read, extra.Verbs.Read...)
	kw.Verbs.Mutate = append(kw.Verbs.Mutate, extra.Verbs.Mutate...)
	return kw, nil
}

// tokenize lowercases text and splits it into words of letters and digits.
// Underscores separate words so table names tokenize like phrases.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// phraseSet holds pre-tokenized phrases
type phraseSet [][]string

func newPhraseSet(phrases []string) phraseSet {
	set := make(phraseSet, 0, len(phrases))
	for _, p := range phrases {
		if tokens := tokenize(p); len(tokens) > 0 {
			set = append(set, tokens)
		}
	}
	return set
}

// match returns the first phrase found as a contiguous word sequence
func (s phraseSet) match(tokens []string) (string, bool) {
	for _, phrase := range s {
		if containsSequence(tokens, phrase, equalWord) {
			return strings.Join(phrase, " "), true
		}
	}
	return "", false
}

func containsSequence(tokens, phrase []string, eq func(a, b string) bool) bool {
	if len(phrase) == 0 || len(phrase) > len(tokens) {
		return false
	}
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		matched := true
		for j, word := range phrase {
			if !eq(tokens[i+j], word) {
				matched = false
				break
			}
		}
		if matched {
			return true
		}
	}
	return false
}

func equalWord(a, b string) bool {
	return a == b
}

const minStemLength = 4

// stemWord also accepts simple inflections of longer words, such as
// plural forms of an entity name.
func stemWord(token, word string) bool {
	if token == word {
		return true
	}
	if len([]rune(word)) < minStemLength || len([]rune(token)) < minStemLength {
		return false
	}
	return strings.HasPrefix(token, word) || strings.HasPrefix(word, token)
}
