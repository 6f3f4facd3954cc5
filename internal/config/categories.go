package config

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ashureev/sitetime/internal/classify"
	"github.com/ashureev/sitetime/internal/domain"
	"gopkg.in/yaml.v3"
)

// LoadCategories reads a YAML category file of the form
//
//	productive: [github.com, ...]
//	unproductive: [reddit.com, ...]
//
// An empty path yields the built-in defaults.
func LoadCategories(path string) (domain.UserCategories, error) {
	if path == "" {
		return domain.DefaultCategories(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return domain.UserCategories{}, fmt.Errorf("open categories file: %w", err)
	}
	defer f.Close()

	return DecodeCategories(f)
}

// DecodeCategories parses YAML categories and normalizes every pattern.
func DecodeCategories(r io.Reader) (domain.UserCategories, error) {
	var cats domain.UserCategories
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cats); err != nil && err != io.EOF {
		return domain.UserCategories{}, fmt.Errorf("decode categories: %w", err)
	}
	return NormalizeCategories(cats), nil
}

// EncodeCategories renders categories as YAML.
func EncodeCategories(cats domain.UserCategories) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cats); err != nil {
		return nil, fmt.Errorf("encode categories: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode categories: %w", err)
	}
	return buf.Bytes(), nil
}

// NormalizeCategories normalizes patterns, drops empty and duplicate
// entries, and keeps a pattern listed twice on the productive side only.
func NormalizeCategories(cats domain.UserCategories) domain.UserCategories {
	seen := make(map[string]bool)
	out := domain.UserCategories{Productive: []string{}, Unproductive: []string{}}
	for _, p := range cats.Productive {
		if n := classify.NormalizePattern(p); n != "" && !seen[n] {
			seen[n] = true
			out.Productive = append(out.Productive, n)
		}
	}
	for _, p := range cats.Unproductive {
		if n := classify.NormalizePattern(p); n != "" && !seen[n] {
			seen[n] = true
			out.Unproductive = append(out.Unproductive, n)
		}
	}
	return out
}
