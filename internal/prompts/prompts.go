// Package prompts holds the fixed instruction templates sent to the model.
package prompts

import "strings"

// Placeholder is the single substitution point of every task template.
const Placeholder = "{contract_text}"

// Template is a named instruction text.
type Template struct {
	Name string
	Text string
}

// Render substitutes text into the template's placeholder.
func (t Template) Render(text string) string {
	return strings.ReplaceAll(t.Text, Placeholder, text)
}

// Kind identifies one of the four analysis tasks.
type Kind string

const (
	KindKeyInformation  Kind = "key_information"
	KindRisks           Kind = "risks"
	KindClauseSummaries Kind = "clause_summaries"
	KindOverallScore    Kind = "overall_score"
)

// Kinds lists the analysis tasks in reporting order.
var Kinds = []Kind{KindKeyInformation, KindRisks, KindClauseSummaries, KindOverallScore}

// Task returns the user-role template for an analysis kind.
func Task(kind Kind) (Template, bool) {
	switch kind {
	case KindKeyInformation:
		return KeyInformation, true
	case KindRisks:
		return Risks, true
	case KindClauseSummaries:
		return ClauseSummaries, true
	case KindOverallScore:
		return OverallScore, true
	default:
		return Template{}, false
	}
}

const documentBlock = `

Contract Document:
---
` + Placeholder + `
---`

var GeneralSystem = Template{
	Name: "general_system",
	Text: `You are an expert contract analyzer. Your task is to meticulously review legal and business contracts,
extract key information, identify risks, and summarize clauses.
Provide concise, accurate, and structured responses.`,
}

var KeyInformation = Template{
	Name: string(KindKeyInformation),
	Text: `From the following contract document, extract the following key information:
1. Parties involved (Client and Service Provider names)
2. Effective Date
3. Total Fee
4. Payment Schedule (amounts and trigger events)
5. Project Kickoff Date
6. Milestone 1 (description and date)
7. Milestone 2 (description and date)
8. Milestone 3 (description and date)
9. Completion Date
10. Scope of Services (list of services)
11. Deliverables (list of deliverables)
12. Termination Clause notice periods (for Client and Service Provider)
13. Limitation of Liability cap
14. Intellectual Property Rights (who owns deliverables)

Present the information in a clear, structured format, preferably a single JSON object.
If a piece of information is not explicitly present, state 'Not specified'.` + documentBlock,
}

var Risks = Template{
	Name: string(KindRisks),
	Text: `Analyze the following contract document for potential risks based on the following criteria:
- Liability limitations and exclusions for indirect or consequential damages.
- Termination clauses with notice requirements (assess if balanced).
- Intellectual Property ownership and usage rights (identify who retains IP).
- Payment terms and late fees (assess fairness and clarity).
- Confidentiality obligations and permitted use of anonymized data (identify any exceptions).
- Project scope and timeline adjustments due to technical complexity.
- Force Majeure clause implications.
- Indemnity clause implications.

For each identified risk, provide:
1. A brief description of the risk.
2. The relevant clause or section from the contract (if applicable).
3. A risk level (High, Medium, Low) and a brief justification.
4. Suggestions for alternative wording or best-practice clauses to mitigate the risk.

Present the identified risks in a structured format.` + documentBlock,
}

var ClauseSummaries = Template{
	Name: string(KindClauseSummaries),
	Text: `Summarize the key clauses of the following contract document. For each main section (e.g., Scope of Services, Deliverables, Payment Terms, Termination, Liability), provide a concise summary (1-3 sentences) highlighting its core intent and any critical details.` + documentBlock,
}

var OverallScore = Template{
	Name: string(KindOverallScore),
	Text: `Based on the completeness, clarity, and balance of the clauses in the following contract, provide an overall contract score between 1 and 100, where 100 is excellent. Justify your score briefly, mentioning strong points and areas for improvement.` + documentBlock,
}

var ChatSystem = Template{
	Name: "chat_system",
	Text: `You are an intelligent chatbot designed to answer questions about a legal contract.
You have access to the full contract text and various analyses of it.
Answer user questions directly and concisely based *only* on the provided contract and its analysis.
If the information is not present, state that you don't have enough information.`,
}
