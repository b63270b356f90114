package ai

import (
	"regexp"
	"strings"
)

var (
	headingRe   = regexp.MustCompile(`(?m)^(#{1,6}\s+)(.*)$`)
	mathTokenRe = regexp.MustCompile(`\b(\d+/\d+|\d+\.\d+|[-\d]+|[xXyYzZ]\b|\$[^$]+\$)`)
	innerMathRe = regexp.MustCompile(`(\d+/\d+|\d+\.\d+|[-\d]+|[xXyYzZ])`)
	powerRe     = regexp.MustCompile(`\b([xXyYzZ])(\^[0-9]+)`)
)

// EmphasizeHeadingsAndMath wraps heading lines, numeric tokens,
// single-letter algebra variables and inline $...$ spans in bold markup.
// This is a cosmetic pass applied to complete replies, not per chunk.
func EmphasizeHeadingsAndMath(text string) string {
	text = headingRe.ReplaceAllStringFunc(text, func(match string) string {
		parts := headingRe.FindStringSubmatch(match)
		return parts[1] + "**" + strings.TrimSpace(parts[2]) + "**"
	})

	text = mathTokenRe.ReplaceAllStringFunc(text, func(match string) string {
		if strings.HasPrefix(match, "$") && strings.HasSuffix(match, "$") {
			return innerMathRe.ReplaceAllString(match, "**$1**")
		}
		return "**" + match + "**"
	})

	text = powerRe.ReplaceAllString(text, "**$1**$2")

	return text
}
