package pipeline

import "fmt"

const summarizeSystemPrompt = "You are a study assistant. Summarize the provided lecture material thoroughly, " +
	"keeping every important point, definition and example. Format the output as well-structured Markdown " +
	"with headings and bullet points."

const extractSystemPrompt = "You are a study assistant. Extract the key concepts from the provided lecture " +
	"material: terms, definitions, formulas and relationships between them. Be thorough. Format the output " +
	"as well-structured Markdown with one section per concept."

const combineSystemPrompt = "You are a study assistant. You receive several partial results produced from " +
	"consecutive sections of one document, separated by '---'. Merge them into a single cohesive, " +
	"de-duplicated, Markdown-formatted result, preserving the original section order."

// partSeparator joins partial outputs in the combine call input.
const partSeparator = "\n\n---\n\n"

func systemPromptFor(mode Mode) string {
	if mode == ModeExtract {
		return extractSystemPrompt
	}
	return summarizeSystemPrompt
}

func chunkSystemPrompt(mode Mode, part, total int) string {
	return fmt.Sprintf("%s This is part %d of %d of a longer document; cover only this section thoroughly.",
		systemPromptFor(mode), part, total)
}
