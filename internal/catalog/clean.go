package catalog

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	titleCut        = regexp.MustCompile(`\s*[:=]`)
	authorParens    = regexp.MustCompile(`\(.*?\)`)
	authorDateTail  = regexp.MustCompile(`,\s*\d+.*$`)
	authorSpaceRuns = regexp.MustCompile(`\s+`)
)

// CleanTitle drops any subtitle introduced by ':' or '=' and capitalises
// each word.
func CleanTitle(title string) string {
	if loc := titleCut.FindStringIndex(title); loc != nil {
		title = title[:loc[0]]
	}
	return capitalizeWords(strings.TrimSpace(title))
}

// CleanAuthor normalises a catalog agent label such as
// "Herbert, Frank, 1920-1986." into "Frank Herbert". An empty result means
// the author is unknown.
func CleanAuthor(author string) string {
	if author == "" {
		return ""
	}
	cleaned := authorParens.ReplaceAllString(author, "")
	cleaned = authorDateTail.ReplaceAllString(cleaned, "")
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = authorSpaceRuns.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	if strings.Contains(cleaned, ",") {
		parts := strings.Split(cleaned, ",")
		last := strings.TrimSpace(parts[0])
		first := strings.TrimSpace(parts[1])
		cleaned = strings.TrimSpace(first + " " + last)
	}
	return capitalizeWords(cleaned)
}

// capitalizeWords upper-cases the first letter of every space separated word
// and lower-cases the rest.
func capitalizeWords(s string) string {
	upper := cases.Upper(language.Und)
	lower := cases.Lower(language.Und)
	words := strings.Split(s, " ")
	for i, word := range words {
		if word == "" {
			continue
		}
		runes := []rune(word)
		words[i] = upper.String(string(runes[0])) + lower.String(string(runes[1:]))
	}
	return strings.Join(words, " ")
}
