package gemini

import (
	_ "embed"
	"strings"
)

//go:embed score_prompt.md
var scorePromptTemplate string

//go:embed artifact_prompt.md
var artifactPromptTemplate string

//go:embed query_prompt.md
var queryPromptTemplate string

//go:embed extract_prompt.md
var extractPromptTemplate string

const strictJSONSystem = `You are part of a production job-application pipeline.

CRITICAL RULES:
- Return ONLY valid JSON.
- DO NOT explain anything.
- DO NOT include markdown or code fences.
- DO NOT invent facts. Use ONLY the provided inputs.
- NEVER return placeholders such as "string", "text", "example", or empty values.`

const querySystem = `You are a Recruitment Specialist. Your task is to convert a candidate profile into a natural, keyword-rich job search string for a standard search bar.

Strict Rules:
1. Output ONLY the search string. No introduction or explanation.
2. Do NOT use logic operators like 'AND', 'OR', 'NOT', or parentheses.
3. Do NOT use colons or key-value pairs (e.g., no 'skills:react').
4. Combine roles, technical skills, education, and locations into a simple, space-separated sequence of terms.
5. Keep the output clean and human-readable.`

func fillTemplate(template string, values map[string]string) string {
	out := template
	for key, value := range values {
		out = strings.ReplaceAll(out, "{{"+key+"}}", value)
	}
	return strings.TrimSpace(out)
}
