// Package classify maps URLs to productivity categories.
package classify

import (
	"net/url"
	"strings"

	"github.com/ashureev/sitetime/internal/domain"
)

// Classifier matches hostnames against the user's category lists.
// The zero value classifies everything as neutral.
type Classifier struct {
	productive   []string
	unproductive []string
}

// New builds a classifier from the user's lists. Patterns are lowercased and
// empty patterns dropped, since an empty substring would match every host.
func New(cats domain.UserCategories) *Classifier {
	return &Classifier{
		productive:   cleanPatterns(cats.Productive),
		unproductive: cleanPatterns(cats.Unproductive),
	}
}

func cleanPatterns(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Classify returns the category for rawURL. Productive patterns are checked
// before unproductive ones, so a host matching both lists is productive.
func (c *Classifier) Classify(rawURL string) domain.Category {
	host, ok := Hostname(rawURL)
	if !ok {
		return domain.Neutral
	}
	if containsAny(host, c.productive) {
		return domain.Productive
	}
	if containsAny(host, c.unproductive) {
		return domain.Unproductive
	}
	return domain.Neutral
}

func containsAny(host string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(host, p) {
			return true
		}
	}
	return false
}

// Hostname extracts the lowercased host of rawURL without port and without a
// leading "www.". ok is false when rawURL has no parsable host.
func Hostname(rawURL string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", false
	}
	return strings.TrimPrefix(host, "www."), true
}

// Domain is the storage key for rawURL: its hostname, or rawURL itself when
// no host can be extracted.
func Domain(rawURL string) string {
	if host, ok := Hostname(rawURL); ok {
		return host
	}
	return rawURL
}

// IsTrackable reports whether rawURL uses an HTTP(S) scheme.
func IsTrackable(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// NormalizePattern turns user input such as "https://www.GitHub.com/" into a
// list pattern ("www.github.com"). The leading "www." is kept: patterns are
// substrings and the user may mean it.
func NormalizePattern(site string) string {
	p := strings.ToLower(strings.TrimSpace(site))
	p = strings.TrimPrefix(p, "https://")
	p = strings.TrimPrefix(p, "http://")
	return strings.TrimRight(p, "/")
}
