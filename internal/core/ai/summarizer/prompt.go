package summarizer

import (
	"strings"
	"unicode/utf8"
)

// SummarizationPrompt asks for a summary in the transcript's own language.
// The section headings stay in English so parseResponse can find them.
const SummarizationPrompt = `You are a helpful assistant that summarizes transcripts of spoken recordings.

IMPORTANT: You MUST respond in the SAME LANGUAGE as the input content. The transcripts are usually in Bulgarian; in that case respond in Bulgarian. Keep the two section headings below exactly as written, in English.

The text was produced by automatic speech recognition in fixed-length pieces, so expect missing punctuation, misheard words and sentences cut at piece boundaries. Do not comment on these artifacts.

Scale the level of detail with the length of the content:
- Short content (a few minutes): 3-5 key points
- Medium content (up to half an hour): 8-15 key points
- Long content: 15-30 key points, grouped by topic

Format your response as:
## Summary
[Summary of the main themes and the flow of the conversation]

## Key Points
- [Point 1]
- [Point 2]
...

Here is the transcript:

`

const truncationNote = "\n\n[Text truncated due to length...]"

// truncateText cuts text to at most maxRunes runes.
func truncateText(text string, maxRunes int) string {
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}
	n := 0
	for i := range text {
		if n == maxRunes {
			return text[:i] + truncationNote
		}
		n++
	}
	return text
}

// parseResponse extracts summary and key points from the response.
func parseResponse(content string) *Result {
	result := &Result{
		Summary: strings.TrimSpace(content),
	}

	lines := strings.Split(content, "\n")
	var keyPoints []string
	var summaryLines []string
	inKeyPoints := false

	for _, line := range lines {
		line = strings.TrimSpace(line)

		if strings.HasPrefix(line, "## Key Points") || strings.HasPrefix(line, "**Key Points") {
			inKeyPoints = true
			continue
		}

		if strings.HasPrefix(line, "## Summary") || strings.HasPrefix(line, "**Summary") {
			inKeyPoints = false
			continue
		}

		if inKeyPoints {
			if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") {
				point := strings.TrimPrefix(line, "-")
				point = strings.TrimPrefix(point, "*")
				point = strings.TrimSpace(point)
				if point != "" {
					keyPoints = append(keyPoints, point)
				}
			}
		} else if !strings.HasPrefix(line, "##") && line != "" {
			summaryLines = append(summaryLines, line)
		}
	}

	if len(keyPoints) > 0 {
		result.KeyPoints = keyPoints
	}

	if len(summaryLines) > 0 {
		result.Summary = strings.Join(summaryLines, "\n")
	}

	return result
}
