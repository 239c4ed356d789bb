package engine

import (
	"regexp"
	"strings"
)

var tokenRe = regexp.MustCompile(`\w+`)

func tokens(text string) []string {
	return tokenRe.FindAllString(strings.ToLower(text), -1)
}
