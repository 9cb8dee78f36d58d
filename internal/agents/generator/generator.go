// Package generator produces the user-facing answer: a grounded reply for
// factual queries or the fixed refusal for advice seeking ones.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fundfaq/fundfaq/internal/index"
	"github.com/fundfaq/fundfaq/internal/llm"
)

const (
	// NoInfoAnswer is returned when retrieval yields nothing.
	NoInfoAnswer = "I couldn't find relevant information in the available documents to answer your question."

	// RefusalMessage answers every opinion query, verbatim.
	RefusalMessage = "I can only provide factual information about mutual funds. " +
		"I cannot offer investment advice, portfolio recommendations, or predictions. " +
		"For personalized investment guidance, please consult a SEBI-registered investment advisor."

	// RefusalCitation points to investor education material instead of a
	// source document.
	RefusalCitation = "https://www.sebi.gov.in/sebiweb/home/HomeAction.do?doListing=yes&sid=4&ssid=18&smid=0"

	emptyAnswerFallback = "I couldn't generate an answer from the available information."

	// fallbackContextChars bounds the extractive fallback used when the
	// model call fails.
	fallbackContextChars = 300

	minAnswerChars = 20
	maxSentences   = 3
)

const systemPrompt = `You are a helpful mutual fund expert assistant.
Your job is to answer questions accurately based on the provided context.
Always provide clear, direct answers in 2-3 sentences.
Use simple language that anyone can understand.`

// Result is a finished answer with its citation. Citation is nil when no
// source document backs the answer.
type Result struct {
	Answer   string
	Citation *string
}

// Generator turns retrieved candidates into answers.
type Generator struct {
	provider llm.Provider
	logger   *slog.Logger
}

// New creates a Generator. The provider may be nil; generation then always
// takes the extractive fallback path.
func New(provider llm.Provider, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{provider: provider, logger: logger}
}

// GenerateAnswer produces a grounded answer from the top candidate. With no
// candidates it returns the no-information message without touching the
// model. It never returns an error.
func (g *Generator) GenerateAnswer(ctx context.Context, query string, candidates []index.Candidate) Result {
	if len(candidates) == 0 {
		return Result{Answer: NoInfoAnswer}
	}

	top := candidates[0]
	citation := top.Source

	if g.provider == nil {
		return extractiveFallback(top.Text, citation)
	}

	prompt := &llm.Prompt{
		SystemPrompt: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: fmt.Sprintf(`Context from official SEBI documents:
%s

User Question: %s

Please answer the question based on the context above. Provide a clear, direct answer in 2-3 sentences. If the context doesn't contain enough information, say so briefly.`, top.Text, query)},
		},
	}
	opts := &llm.RequestOptions{
		MaxTokens:   llm.IntPtr(500),
		Temperature: llm.FloatPtr(0.2),
	}

	resp, err := g.provider.Complete(ctx, prompt, opts)
	if err != nil {
		g.logger.Warn("generation failed, using extractive fallback", "error", err)
		return extractiveFallback(top.Text, citation)
	}

	answer := strings.TrimSpace(llm.StripThinkingTags(resp.Content))
	switch {
	case answer == "":
		answer = emptyAnswerFallback
	case len(answer) < minAnswerChars:
		answer = fmt.Sprintf("Based on the documents: %s. Please ask for more specific details if needed.", answer)
	}
	answer = capSentences(answer, maxSentences)

	return Result{Answer: answer, Citation: &citation}
}

// GenerateRefusal returns the fixed refusal with the investor education
// link. The query does not influence the output.
func (g *Generator) GenerateRefusal(_ string) Result {
	citation := RefusalCitation
	return Result{Answer: RefusalMessage, Citation: &citation}
}

// extractiveFallback quotes the start of the context when the model is
// unavailable. Truncation counts runes so a multibyte character is never
// split.
func extractiveFallback(contextText, citation string) Result {
	preview := contextText
	if runes := []rune(preview); len(runes) > fallbackContextChars {
		preview = string(runes[:fallbackContextChars]) + "..."
	}
	return Result{
		Answer:   "Based on the document, here's relevant information: " + preview,
		Citation: &citation,
	}
}

// capSentences truncates the answer to at most n sentences, splitting on
// periods.
func capSentences(answer string, n int) string {
	sentences := strings.Split(answer, ".")
	if len(sentences) <= n {
		return answer
	}
	return strings.Join(sentences[:n], ". ") + "."
}
