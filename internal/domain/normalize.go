package domain

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	DefaultTitle      = "Untitled"
	DefaultColor      = "#374151"
	MaxTitleLength    = 200
	MaxBlocks         = 100
	MaxChecklistItems = 200
)

var colorRe = regexp.MustCompile(`^#([0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// NormalizeTitle trims surrounding whitespace and substitutes DefaultTitle
// for a blank title. ok is false when the trimmed title is longer than
// MaxTitleLength characters.
func NormalizeTitle(title string) (normalized string, ok bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return DefaultTitle, true
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", false
	}
	return title, true
}

// NormalizeColor returns DefaultColor for a blank color and the lower-cased
// color otherwise. ok is false when color is not #rgb or #rrggbb.
func NormalizeColor(color string) (normalized string, ok bool) {
	color = strings.TrimSpace(color)
	if color == "" {
		return DefaultColor, true
	}
	if !colorRe.MatchString(color) {
		return "", false
	}
	return strings.ToLower(color), true
}
