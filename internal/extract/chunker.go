package extract

import "strings"

// ChunkText splits a long document into chunks of at most maxChars,
// preferring paragraph boundaries and falling back to sentence boundaries
// for oversized paragraphs. Adjacent chunks share an overlap so entities
// straddling a boundary are still seen whole by at least one chunk.
//
// SMS- and email-sized texts come back as a single chunk; the pipeline only
// chunks when a document exceeds the tier's context budget.
func ChunkText(text string, maxChars, overlap int) []string {
	text = strings.TrimSpace(text)
	if maxChars <= 0 || len(text) <= maxChars {
		return []string{text}
	}
	if overlap >= maxChars {
		overlap = maxChars / 4
	}

	paragraphs := splitParagraphs(text, maxChars)

	var chunks []string
	var current strings.Builder
	for _, para := range paragraphs {
		if current.Len() > 0 && current.Len()+len(para)+2 > maxChars {
			chunk := current.String()
			chunks = append(chunks, chunk)
			current.Reset()
			current.WriteString(tailOverlap(chunk, overlap))
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// splitParagraphs breaks the text on blank lines, then breaks any paragraph
// still exceeding maxChars on sentence ends.
func splitParagraphs(text string, maxChars int) []string {
	var out []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) <= maxChars {
			out = append(out, para)
			continue
		}
		out = append(out, splitSentences(para, maxChars)...)
	}
	return out
}

func splitSentences(text string, maxChars int) []string {
	var out []string
	for len(text) > maxChars {
		cut := strings.LastIndexAny(text[:maxChars], ".!?")
		if cut <= 0 {
			cut = maxChars - 1
		}
		out = append(out, strings.TrimSpace(text[:cut+1]))
		text = strings.TrimSpace(text[cut+1:])
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}

// tailOverlap returns the last overlap characters of a chunk, snapped
// forward to a word boundary.
func tailOverlap(chunk string, overlap int) string {
	if overlap <= 0 || len(chunk) <= overlap {
		return ""
	}
	tail := chunk[len(chunk)-overlap:]
	if idx := strings.IndexByte(tail, ' '); idx >= 0 {
		tail = tail[idx+1:]
	}
	return tail
}
