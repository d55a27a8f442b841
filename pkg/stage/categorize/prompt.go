package categorize

import (
	"fmt"
	"strings"
)

var systemPrompt = buildSystemPrompt()

func buildSystemPrompt() string {
	var b strings.Builder

	b.WriteString("You are a rigorous classifier of papers in the \"LLM for coding\" area.\n")
	fmt.Fprintf(&b, "Assign every paper to exactly one of the %d categories below. ", len(Categories))
	fmt.Fprintf(&b, "If none fits, use %q and give a recommended category name and a short summary:\n", CategoryNew)

	for _, c := range Categories {
		fmt.Fprintf(&b, "- %s: %s\n", c.Name, c.Hint)
	}

	b.WriteString("\nReply strictly with a JSON array (no extra text, no Markdown). Each element has:\n")
	b.WriteString("{")
	b.WriteString(`"index": <integer, the input index>, `)
	fmt.Fprintf(&b, `"category": <one of the categories above or %q>, `, CategoryNew)
	fmt.Fprintf(&b, `"recommended_label": <string, required for %q, otherwise empty>, `, CategoryNew)
	fmt.Fprintf(&b, `"summary": <string, a 20 to 40 word summary of the work for %q, otherwise empty>, `, CategoryNew)
	b.WriteString(`"confidence": <float between 0 and 1>, `)
	b.WriteString(`"rationale": <reason in at most 30 characters>`)
	b.WriteString("}\n")
	b.WriteString("Return the JSON array only.")

	return b.String()
}

const userPromptHeader = `Classify the following papers. Each entry has only the needed fields; abstracts are truncated to save tokens.
Reply with the JSON array only, without any other text.

papers:
`
