// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package claim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pdiddy/fact-engine/pkg/types"
)

// proposalPromptTmpl instructs the model to emit claim candidates as JSON.
// The quote rule is load-bearing: validation drops any proposal whose quote
// is not a literal span of the text below.
var proposalPromptTmpl = template.Must(template.New("proposals").Parse(`You are a fact extraction system researching the company {{.Company}}.

From the source text below, extract factual claims about the company as (subject, predicate, object) triples.

Rules:
- subject: the entity the claim is about (usually the company or a person)
- predicate: a short lowercase verb phrase with underscores (e.g. "founded_in", "raised", "acquired", "launched", "sued_by")
- object: the value or entity the predicate applies to
- date: the date the claimed event happened, as written in the text (e.g. "2024-03-15", "March 2019", "last year"); omit if the text gives none
- quote: a sentence copied EXACTLY, character for character, from the source text that states the claim. Never paraphrase, never fix typos, never adjust whitespace.
- confidence: your certainty in [0,1] that the claim is stated by the quote

Respond with a JSON object {"claims": [...]} and nothing else.

Example:
{"claims": [{"subject": "Acme Corp", "predicate": "raised", "object": "$50 million", "date": "March 2024", "quote": "Acme Corp announced a $50 million Series B on Friday.", "confidence": 0.95}]}

Source title: {{.Title}}
Source text:
{{.Text}}
`))

// maxProposalChars caps how much source text one proposal call carries.
const maxProposalChars = 16000

// OpenAIProposer proposes claim candidates with an OpenAI chat model.
type OpenAIProposer struct {
	client *openai.Client
	model  string
}

// NewOpenAIProposer builds a proposer from the claims configuration.
func NewOpenAIProposer(cfg types.ClaimsConfig) *OpenAIProposer {
	return &OpenAIProposer{
		client: openai.NewClient(cfg.APIKey),
		model:  cfg.Model,
	}
}

// Name returns the proposer identifier.
func (p *OpenAIProposer) Name() string { return "openai" }

// Propose renders the extraction prompt for one source and parses the
// model's JSON reply.
func (p *OpenAIProposer) Propose(ctx context.Context, company string, src types.Source) ([]Proposal, error) {
	text := src.Text
	if len(text) > maxProposalChars {
		text = text[:maxProposalChars]
	}

	var buf bytes.Buffer
	err := proposalPromptTmpl.Execute(&buf, struct {
		Company string
		Title   string
		Text    string
	}{Company: company, Title: src.Title, Text: text})
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buf.String()},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("chat completion returned no choices")
	}

	return parseProposals(resp.Choices[0].Message.Content)
}

// parseProposals decodes the model reply, tolerating markdown fences around
// the JSON object.
func parseProposals(content string) ([]Proposal, error) {
	content = strings.TrimSpace(content)
	if start := strings.Index(content, "{"); start > 0 {
		content = content[start:]
	}
	if end := strings.LastIndex(content, "}"); end >= 0 && end < len(content)-1 {
		content = content[:end+1]
	}

	var reply struct {
		Claims []Proposal `json:"claims"`
	}
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		return nil, fmt.Errorf("parsing proposal JSON: %w", err)
	}
	return reply.Claims, nil
}
