// Package vlllm holds the vision-language model adapters behind the
// recognition router.
package vlllm

import (
	"regexp"
	"strings"
)

// NoResponseContent is returned when a backend answers without text.
const NoResponseContent = "No response content"

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// cleanResponse drops reasoning blocks some models emit before their answer.
func cleanResponse(text string) string {
	if !strings.Contains(text, "<think>") {
		return text
	}
	return strings.TrimSpace(thinkBlock.ReplaceAllString(text, ""))
}
