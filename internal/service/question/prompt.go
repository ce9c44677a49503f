package question

import (
	"fmt"
	"strings"

	"github.com/zhouzirui/msl-practice/backend/internal/model/persona"
)

const generationSystemPrompt = "You are an assistant that generates medical questions and returns ONLY valid JSON."

// BuildPrompt renders the generation prompt for a persona.
func BuildPrompt(p *persona.Persona, difficulty string, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d realistic, challenging questions that %s (%s, %s) would ask an MSL.\n\n",
		count, p.Name, p.Title, p.Specialty)
	fmt.Fprintf(&b, "Context: %s, %s\n", p.PracticeSetting.Type, p.CommunicationStyle.Tone)
	fmt.Fprintf(&b, "Key Priorities: %s\n\n", strings.Join(p.TopPriorities(3), ", "))
	b.WriteString(`Return ONLY a JSON array of objects with "text", "category", and "difficulty" keys:`)
	b.WriteString("\n")
	fmt.Fprintf(&b, `[{"text":"Your generated question here...","category":"Clinical Data & Evidence","difficulty":"%s"}]`, difficulty)
	return b.String()
}
