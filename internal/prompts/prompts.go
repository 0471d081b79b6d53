package prompts

import "fmt"

// ============================================================================
// Summarization Prompts
// ============================================================================

// SummarySystemPrompt defines the role and rules for content summaries.
const SummarySystemPrompt = `You summarize workplace content (documents, chat threads, issues, videos) for a search index.

Rules:
- Write 2-4 plain sentences, no lists or headings.
- Keep names of people, projects, systems and decisions.
- State outcomes and open questions when present.
- Never invent facts that are not in the text.
- Answer in the language of the text.`

// SummaryUserPromptTemplate wraps the text to summarize.
const SummaryUserPromptTemplate = `Summarize the following content:

%s`

// SummaryMaxInputRunes caps the text sent to the model.
const SummaryMaxInputRunes = 12000

// BuildSummaryUserPrompt renders the user prompt for text, truncated to
// SummaryMaxInputRunes.
func BuildSummaryUserPrompt(text string) string {
	runes := []rune(text)
	if len(runes) > SummaryMaxInputRunes {
		text = string(runes[:SummaryMaxInputRunes])
	}
	return fmt.Sprintf(SummaryUserPromptTemplate, text)
}
