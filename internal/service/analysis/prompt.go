package analysis

import (
	"fmt"

	"github.com/zhouzirui/msl-practice/backend/internal/model/persona"
)

const rubricTemplate = `You are analyzing an MSL's practice answer to a physician question.

Question: %s
Physician: %s (%s)
MSL's Answer: %s

Analyze this answer and provide scores (0-10) for:
1. Clarity - How clear and understandable is the response?
2. Confidence - Does the MSL sound confident and knowledgeable?
3. Relevance - Does it address the physician's question?
4. Medical Accuracy - Is the information scientifically sound?
5. Professionalism - Is the tone appropriate?

Also provide up to 2 strengths and exactly 3 specific improvement suggestions.

Return ONLY valid JSON:
{
  "scores": {
    "clarity": 7.5,
    "confidence": 8.0,
    "relevance": 9.0,
    "accuracy": 8.5,
    "professionalism": 9.0,
    "overall": 8.4
  },
  "strengths": ["point 1", "point 2"],
  "improvements": ["suggestion 1", "suggestion 2", "suggestion 3"],
  "summary": "Brief overall feedback"
}`

// BuildPrompt renders the rubric prompt.
func BuildPrompt(transcript, questionText string, p *persona.Persona) string {
	return fmt.Sprintf(rubricTemplate, questionText, p.Name, p.Specialty, transcript)
}
