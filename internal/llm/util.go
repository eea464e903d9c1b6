package llm

import "strings"

// CleanJSONBlock strips markdown code fences and any conversational text around
// the outermost JSON object. Models often wrap JSON in ```json ... ``` blocks or
// prefix it with a sentence even when told not to.
func CleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		// Skip a language identifier on the first line
		if idx := strings.Index(text, "\n"); idx >= 0 {
			firstLine := text[:idx]
			if len(firstLine) < 20 && !strings.Contains(firstLine, " ") && !strings.Contains(firstLine, "{") {
				text = text[idx+1:]
			}
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start > 0 && end > start {
		return strings.TrimSpace(text[start : end+1])
	}
	if start == 0 && end > 0 && end < len(text)-1 {
		return text[:end+1]
	}
	return text
}
