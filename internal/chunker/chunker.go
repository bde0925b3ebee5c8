// Package chunker splits large documents into bounded chunks for the
// summarization pipeline.
package chunker

import "strings"

// DefaultBudget is the default per-chunk character budget. Character count
// is a deliberate approximation of the model's token budget; it is an
// inexact bound, chosen conservatively.
const DefaultBudget = 12000

// Split partitions text into ordered chunks of whitespace-delimited tokens.
// Tokens are accumulated greedily until adding the next one would exceed
// budget, then a new chunk starts. Tokens are never split: a single token
// longer than budget becomes its own oversized chunk. Chunks cover every
// token in original order with no overlap; joining them with single spaces
// reproduces the whitespace-normalized token sequence.
func Split(text string, budget int) []string {
	if budget <= 0 {
		budget = DefaultBudget
	}

	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}

	var chunks []string
	var b strings.Builder
	for _, tok := range tokens {
		if b.Len() > 0 && b.Len()+1+len(tok) > budget {
			chunks = append(chunks, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(tok)
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}
