// Package htmlutil normalizes the HTML bodies email clients produce
// before they are handed to the converters. Gmail bodies routinely
// carry inline <style> blocks, unquoted href attributes, and numeric
// entity escapes that survive into derived markdown if left alone.
package htmlutil

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	styleBlocks     = regexp.MustCompile(`(?is)<style\s.*?</style.`)
	hrefAttrs       = regexp.MustCompile(`(?i)href=([^\s>]+)`)
	numericEntities = regexp.MustCompile(`&#([0-9]{1,3});`)
)

// StripStyleBlocks removes every <style> element and its contents,
// leaving the surrounding markup intact.
func StripStyleBlocks(html string) string {
	return styleBlocks.ReplaceAllString(html, "")
}

// FixUnquotedHrefs wraps bare href attribute values in double quotes.
// Values already wrapped are left untouched wherever the attribute
// sits inside the tag.
func FixUnquotedHrefs(html string) string {
	return hrefAttrs.ReplaceAllStringFunc(html, func(attr string) string {
		value := attr[len("href="):]
		if strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
			return attr
		}
		return `href="` + value + `"`
	})
}

// DecodeNumericEntities replaces decimal character references of up to
// three digits (&#39; and friends) with the character they name.
func DecodeNumericEntities(text string) string {
	return numericEntities.ReplaceAllStringFunc(text, func(entity string) string {
		digits := entity[2 : len(entity)-1]
		code, err := strconv.Atoi(digits)
		if err != nil {
			return entity
		}
		return string(rune(code))
	})
}
