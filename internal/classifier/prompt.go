package classifier

import (
	"encoding/json"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/overshare-io/overshare/internal/annotate"
)

const systemPrompt = "You are a careful privacy-risk classifier. Output ONLY valid JSON."

// fewshots is the shared task scaffold. The examples cover every category at
// least once so the model has an anchor for each label, and they demonstrate
// the exact-substring requirement for spans_text.
const fewshots = `Task: Classify the social post for privacy risks and return ONLY valid JSON with fields:
{"labels": [<one or more categories>],
 "spans_text": [{"label":"<category>","text":"<exact substring>"}],
 "explanations": {"<category>":"<≤25 words>"}}
Categories: ["Location&Time","Contact&IDs","Gov&Financial IDs","Health&Sensitive","Credentials&Security","Workplace/Academic","Minors","Metadata/Device","None"].
Rules:
- Multi-label allowed. Use "None" only if no other labels apply.
- spans_text MUST quote exact substrings from the post (no paraphrase).
- Keep JSON minimal: only labels, spans_text, explanations.

Example 1
Post: "Call me at 555-214-7821 — I am at Blue Finch Café until noon."
JSON:
{"labels":["Contact&IDs","Location&Time"],
 "spans_text":[
   {"label":"Contact&IDs","text":"555-214-7821"},
   {"label":"Location&Time","text":"Blue Finch Café"},
   {"label":"Location&Time","text":"noon"}],
 "explanations":{
   "Contact&IDs":"Shares a direct phone number.",
   "Location&Time":"Reveals time/place enabling tracking."}
}

Example 2
Post: "Utility wants my SSN: 123-45-6789"
JSON:
{"labels":["Gov&Financial IDs"],
 "spans_text":[{"label":"Gov&Financial IDs","text":"123-45-6789"}],
 "explanations":{"Gov&Financial IDs":"Exposes a government identifier."}
}

Example 3
Post: "Daycare pickup code for my toddler is 1140—text me"
JSON:
{"labels":["Credentials&Security","Minors"],
 "spans_text":[
   {"label":"Credentials&Security","text":"1140"},
   {"label":"Minors","text":"my toddler"}],
 "explanations":{
   "Credentials&Security":"Shares an access code.",
   "Minors":"Mentions a dependent child."}
}

Example 4
Post: "Clinic follow-up after my anxiety diagnosis went well."
JSON:
{"labels":["Health&Sensitive"],
 "spans_text":[{"label":"Health&Sensitive","text":"anxiety diagnosis"}],
 "explanations":{"Health&Sensitive":"Reveals a health condition."}
}

Example 5
Post: "Internal beta launch next week; NDA still active, don’t share."
JSON:
{"labels":["Workplace/Academic","Location&Time"],
 "spans_text":[
   {"label":"Workplace/Academic","text":"Internal beta"},
   {"label":"Location&Time","text":"next week"},
   {"label":"Workplace/Academic","text":"NDA"}],
 "explanations":{
   "Workplace/Academic":"Mentions non-public work information.",
   "Location&Time":"Mentions timing that could enable tracking."}
}

Example 6
Post: "Boarding pass code AB12-CD34; QR in pic."
JSON:
{"labels":["Metadata/Device"],
 "spans_text":[
   {"label":"Metadata/Device","text":"AB12-CD34"},
   {"label":"Metadata/Device","text":"QR"}],
 "explanations":{"Metadata/Device":"Codes can expose itineraries or accounts."}
}`

func escapeQuotes(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

// buildMessages assembles the chat messages for one classification call. When
// hints are present they are forwarded as candidate spans the model may fix
// or extend; an empty hint set produces the plain prompt.
func buildMessages(post string, hints []annotate.Hint) []openai.ChatCompletionMessage {
	var b strings.Builder
	b.WriteString(fewshots)
	if len(hints) > 0 {
		// Hints are small and already validated; a marshal failure here
		// cannot happen for plain structs.
		raw, _ := json.Marshal(hints)
		b.WriteString("\n\nYou are given candidate spans as hints; fix them if wrong and add any that are missing.\n")
		b.WriteString(`Candidates JSON (list of {"label","text"}): `)
		b.Write(raw)
	}
	b.WriteString("\n\nPost: \"")
	b.WriteString(escapeQuotes(post))
	b.WriteString("\"\nJSON:\n")

	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: b.String()},
	}
}
