package services

import (
	"fmt"
	"strings"
)

// Tool is a named text transformation with its own prompt instruction and
// input-shape rules. SingleWord tools expect exactly one word of input.
type Tool struct {
	ID          string
	Instruction string
	SingleWord  bool
}

var tools = map[string]Tool{
	"rephrase": {
		ID:          "rephrase",
		Instruction: "Rephrase the following text while keeping its meaning.",
	},
	"fix_mistakes": {
		ID:          "fix_mistakes",
		Instruction: "Fix all spelling and grammar mistakes in the following text. Change nothing else.",
	},
	"professional_tone": {
		ID:          "professional_tone",
		Instruction: "Rewrite the following text in a professional tone.",
	},
	"casual_tone": {
		ID:          "casual_tone",
		Instruction: "Rewrite the following text in a casual, friendly tone.",
	},
	"shorten": {
		ID:          "shorten",
		Instruction: "Shorten the following text while keeping all important information.",
	},
	"expand": {
		ID:          "expand",
		Instruction: "Expand the following text with more detail, keeping the original intent.",
	},
	"translate": {
		ID:          "translate",
		Instruction: "Translate the following text to English. If it is already English, translate it to the language named at the start of the text.",
	},
	"synonyms": {
		ID:          "synonyms",
		Instruction: "List up to five good synonyms for the following word, comma separated.",
		SingleWord:  true,
	},
}

// GetTool looks up a tool by ID
func GetTool(id string) (Tool, bool) {
	tool, ok := tools[id]
	return tool, ok
}

const generalInstruction = "Answer with plain text only, no markdown, no explanations. " +
	"Keep the answer suitable for a mobile keyboard suggestion. " +
	"Answer in the same language as the input text unless the instruction says otherwise."

// BuildPrompt assembles the final prompt: tool instruction, general
// instruction, user text, and an anti-repetition clause listing results
// the user has already seen.
func BuildPrompt(tool Tool, userInput string, previousResults []string) string {
	var b strings.Builder
	b.WriteString(tool.Instruction)
	b.WriteString("\n")
	b.WriteString(generalInstruction)
	b.WriteString("\n\nText:\n")
	b.WriteString(userInput)

	if len(previousResults) > 0 {
		b.WriteString("\n\nThe user already saw these answers, give a different one:\n")
		for i, prev := range previousResults {
			b.WriteString(fmt.Sprintf("%d. %s\n", i+1, prev))
		}
	}

	return b.String()
}
