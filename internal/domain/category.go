// Package domain contains core domain types for the sitetime application.
package domain

import (
	"errors"
	"strings"
)

// Category is the productivity class of a domain.
type Category string

const (
	Productive   Category = "productive"
	Unproductive Category = "unproductive"
	Neutral      Category = "neutral"
)

var (
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidDay      = errors.New("invalid day key")
	ErrInvalidSettings = errors.New("invalid settings")
)

// ParseCategory parses a category name. Only the two user-editable lists are
// accepted when editable is true.
func ParseCategory(s string, editable bool) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case Productive:
		return Productive, nil
	case Unproductive:
		return Unproductive, nil
	case Neutral:
		if !editable {
			return Neutral, nil
		}
	}
	return "", ErrInvalidCategory
}

// UserCategories holds the user-configured domain substrings per list.
type UserCategories struct {
	Productive   []string `json:"productive" yaml:"productive"`
	Unproductive []string `json:"unproductive" yaml:"unproductive"`
}

// DefaultCategories returns the lists a fresh install starts with.
func DefaultCategories() UserCategories {
	return UserCategories{
		Productive: []string{
			"github.com",
			"stackoverflow.com",
			"leetcode.com",
			"docs.google.com",
			"trello.com",
			"notion.so",
			"hackerrank.com",
			"codepen.io",
			"replit.com",
		},
		Unproductive: []string{
			"facebook.com",
			"instagram.com",
			"twitter.com",
			"youtube.com",
			"reddit.com",
			"netflix.com",
			"tiktok.com",
			"twitch.tv",
		},
	}
}

// Empty reports whether both lists are empty.
func (c UserCategories) Empty() bool {
	return len(c.Productive) == 0 && len(c.Unproductive) == 0
}
