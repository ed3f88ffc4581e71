// Package postprocess scrubs LLM artifacts from raw provider output before
// the numbered-list reply is parsed: leaked reasoning blocks, echoed
// instructions, and quote wrapping.
package postprocess

import (
	"regexp"
	"strings"
)

// reasoningRe matches complete <thinking>…</thinking> style blocks. Each tag
// variant is listed explicitly because RE2 has no backreferences.
var reasoningRe = regexp.MustCompile(
	`(?is)<thinking>.*?</thinking>|<think>.*?</think>|<reasoning>.*?</reasoning>`,
)

// openReasoningRe matches a reasoning tag whose closing tag never arrived
// (the model was cut off mid-thought).
var openReasoningRe = regexp.MustCompile(`(?is)(?:<thinking>|<think>|<reasoning>).*$`)

// echoRe matches introductory phrases models prepend even when told not to,
// anchored to the start and requiring a colon to avoid eating content.
var echoRe = regexp.MustCompile(
	`(?i)^(?:(?:certainly|sure|of course)[,.]? )?(?:here(?:'s| is)(?: the)? )?(?:the )?(?:translated |refined )?(?:translations?|text|list)\s*:`,
)

// quotePairs are outer quote pairs stripped when they wrap the whole text.
var quotePairs = [][2]rune{
	{'"', '"'},
	{'\'', '\''},
	{'«', '»'},
	{'“', '”'},
	{'‘', '’'},
}

// Clean strips reasoning blocks, instruction echoes and quote wrapping, and
// trims the result.
func Clean(text string) string {
	text = reasoningRe.ReplaceAllString(text, "")
	text = strings.TrimSpace(openReasoningRe.ReplaceAllString(text, ""))

	if loc := echoRe.FindStringIndex(text); loc != nil {
		text = strings.TrimSpace(text[loc[1]:])
	}

	return unwrapQuotes(text)
}

func unwrapQuotes(text string) string {
	runes := []rune(text)
	n := len(runes)
	if n < 2 {
		return text
	}
	for _, pair := range quotePairs {
		if runes[0] == pair[0] && runes[n-1] == pair[1] {
			return strings.TrimSpace(string(runes[1 : n-1]))
		}
	}
	return text
}
