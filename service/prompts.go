package service

import (
	"fmt"
	"strings"

	"policyassist-backend/models"
)

const (
	confidenceSystemPrompt = "You are an objective evaluator that returns a single number."
	structureSystemPrompt  = "You are a helpful assistant that outputs strict JSON."

	defaultNextSteps = "I can broaden the search to related departments (IT/Product) or escalate this to HR. Which would you prefer?"
)

var defaultFollowUps = []string{
	"Do you mean paid time off for innovation projects or a formal leave type?",
	"Which team or product is this request for (so I can search more precisely)?",
}

func noDocumentsAnswer(department string) string {
	return fmt.Sprintf("I searched %s-specific and company-wide (common) policy documents and did not find any mention that answers your question. "+
		"For confirmation, please consult your HR representative or submit a formal request for review.", department)
}

func systemPrompt(department string) string {
	return fmt.Sprintf(`You are an Enterprise HR Policy Assistant for a company.

Rules:
- Use ONLY the provided policy excerpts to answer; do not hallucinate or invent facts.
- Restrict answers to the %s department when applicable; common policies are allowed.
- Follow a professional, respectful, and polite tone matching the user's formality.
- Provide a concise answer, then a one-sentence actionable next step if appropriate.
- At the end, suggest up to 2 relevant follow-up questions tailored to the user's conversation history.
Return the answer in clear natural language. Do not include internal notes.`, department)
}

func relaxedPreface(department string) string {
	return fmt.Sprintf("Note: The following retrieved policies may not be specific to the %s department; they are the best matches available.\n\n", department)
}

func userPrompt(preface, policyContext, question string) string {
	return fmt.Sprintf("%sPolicies:\n%s\n\nPrevious question: %s\n\nAnswer clearly and politely. Also provide 0-2 suggested follow-up questions based on previous context.",
		preface, policyContext, question)
}

func confidencePrompt(policyContext, answer string) string {
	return "Please provide a single numeric confidence score (0-100) that indicates how much of the answer above is directly supported by the provided policy excerpts. " +
		"Respond with only the number and no additional text.\n\n" +
		fmt.Sprintf("Policies:\n%s\n\nAnswer:\n%s", policyContext, answer)
}

func structurePrompt(policyContext, answer string) string {
	return "Given the provided policies and the assistant answer, return a JSON object with the keys:\n" +
		"- answer: a concise, user-facing answer string\n" +
		"- suggested_follow_ups: an array of up to 2 short follow-up question strings\n" +
		"- next_steps: one short actionable next step the user can take\n" +
		"Return ONLY valid JSON. Do not include any commentary.\n\n" +
		fmt.Sprintf("Policies:\n%s\n\nAnswer:\n%s", policyContext, answer)
}

// buildContext renders chunks as labelled excerpts separated by blank lines
func buildContext(chunks []models.PolicyChunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = "[" + c.Label() + "]\n" + c.Content
	}
	return strings.Join(parts, "\n\n")
}
