// Package prompt assembles the system/user prompt pairs for the three
// pipeline tasks: reformulating extracted text into structured sections,
// augmenting an existing profile with new instructions, and rendering a
// profile into a styled markup fragment. Builders are pure functions; all
// model-facing policy lives in the templates here.
package prompt

import (
	"fmt"
	"strings"
)

// Prompt is a system/user pair ready to send to a backend.
type Prompt struct {
	System string
	User   string
}

const reformulateSystem = `You are an expert assistant for analyzing and structuring professional information.

Your task is to:
1. Analyze the information provided by the user
2. Identify and organize the content into relevant sections
3. Rewrite each section with professional, clear, coherent prose
4. Return ONLY a valid JSON object with this exact structure:

{
  "sections": [
    {"header": "Section name", "text": "Rewritten content..."},
    {"header": "Another section", "text": "More content..."}
  ]
}

Common sections to identify (include only those backed by actual input data):
- About me / Professional profile
- Work experience / Experience
- Education / Academic background
- Skills / Competencies
- Certifications
- Projects
- Languages
- Awards and recognition`

const reformulateSystemArticles = `
- Featured articles (when published articles are listed in the input)`

const reformulateRules = `

IMPORTANT RULES:
- Do NOT add information that is not present in the original text
- Do NOT omit important information from the original text
- KEEP every fact accurate and truthful
- Return ONLY the JSON, with no text before or after it
- Make sure the JSON is valid and parseable`

// Reformulate builds the prompt that structures raw extracted text into
// profile sections. When secondary is non-empty (e.g. a fetched article
// digest) it is interleaved after the primary text and the section catalog
// gains a featured-articles entry.
func Reformulate(extracted, secondary string) Prompt {
	system := reformulateSystem
	if secondary != "" {
		system += reformulateSystemArticles
	}
	system += reformulateRules

	var user strings.Builder
	user.WriteString("Analyze the following text extracted from a PDF and organize it into structured sections. Return ONLY a valid JSON object in the specified format:\n\n---\n")
	user.WriteString(extracted)
	if secondary != "" {
		user.WriteString("\n\n")
		user.WriteString(secondary)
	}
	user.WriteString("\n---\n\nRemember: return ONLY the JSON object, nothing else.")

	return Prompt{System: system, User: user.String()}
}

// Augment builds the prompt that merges free-text instructions into an
// existing profile. The existing sections are an immutable baseline: the
// model may add new sections or complementary ones, but must return the full
// merged document and avoid duplicate headers.
func Augment(currentJSON, instructions string) Prompt {
	system := `You are an expert assistant maintaining a structured professional profile.

You will receive the current profile as a JSON object and an instruction from its owner. Apply the instruction by ADDING content:
- Treat every existing section as an immutable baseline: never remove a section, never drop information from one
- Add new sections for new content; when an instruction implies modifying a topic, add a complementary section instead of rewriting the original
- Never use a header that already exists in the profile
- Return the FULL merged profile, not a diff

Return ONLY a valid JSON object with the same structure:

{
  "sections": [
    {"header": "Section name", "text": "Content..."}
  ]
}` + reformulateRules

	user := fmt.Sprintf(`Current profile:

%s

Owner instruction:

%s

Return ONLY the full merged JSON object, nothing else.`, currentJSON, instructions)

	return Prompt{System: system, User: user}
}
