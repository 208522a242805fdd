package llm

import (
	"strings"
	"text/template"
)

const promptText = `
You are a helpful assistant. Please answer the questions based on the provided context. Recall previous interactions and maintain continuity in the conversation.
Refer to the context as Quran. When you talk about the Quran always give reference to what passage you are talking about.

<context>
{{.Context}}
<context>

Previous questions and answers:
{{.History}}

Current question: {{.Input}}

Answer in the language the question is asked.
`

var promptTmpl = template.Must(template.New("prompt").Parse(promptText))

// PromptInput holds the three fields substituted into the grounded prompt.
type PromptInput struct {
	Context string
	History string
	Input   string
}

// RenderPrompt fills the prompt template. Field values are inserted verbatim.
func RenderPrompt(in PromptInput) (string, error) {
	var b strings.Builder
	if err := promptTmpl.Execute(&b, in); err != nil {
		return "", err
	}
	return b.String(), nil
}
