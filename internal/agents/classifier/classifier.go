// Package classifier decides whether a query asks for facts or for
// investment advice. The decision is fail-safe: whenever the model cannot
// be consulted or its output is unusable, the query is treated as advice
// seeking, since a wrong refusal is cheaper than wrong advice.
package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fundfaq/fundfaq/internal/llm"
)

// DefaultOpinionKeywords are substrings that mark a query as advice
// seeking without consulting the model.
var DefaultOpinionKeywords = []string{
	"should i", "which is best", "which is better", "recommend",
	"according to you", "your opinion", "what do you think",
	"which fund", "which scheme", "best fund", "best scheme",
	"top fund", "top scheme", "good fund", "good scheme",
	"invest in", "buy", "sell", "hold", "portfolio",
	"worth investing", "better investment", "safer", "risky",
	"suggest", "advice", "advise", "recommendation",
}

// factualStarters are question openers that bias an ambiguous model reply
// toward factual.
var factualStarters = []string{"what", "how", "when", "where", "who", "define", "explain"}

const systemPrompt = `You are a query classifier for a mutual fund FAQ system.

Your ONLY job is to classify queries as either "factual" or "opinion".

FACTUAL queries:
- Ask for definitions, explanations, processes, rules
- Ask "what is", "how does", "what are the requirements"
- Ask about regulations, procedures, documentation
- General information questions

OPINION queries (investment advice):
- Ask "should I buy/sell/invest"
- Ask "which fund/scheme is best/better"
- Ask for recommendations, suggestions, or advice
- Ask "according to you" or "what do you think"
- Ask about specific investment decisions
- Ask "is X good" or "is X worth it"
- Compare specific funds/schemes for selection

Respond with ONLY ONE WORD: "factual" or "opinion"
No explanations, just the classification.`

// Class is the classification outcome.
type Class string

const (
	ClassFactual Class = "factual"
	ClassOpinion Class = "opinion"
)

// Classifier labels queries as factual or opinion.
type Classifier struct {
	provider llm.Provider
	keywords []string
	logger   *slog.Logger
}

// New creates a Classifier. keywords may be nil to use the defaults; the
// provider may be nil, in which case only the keyword gate and the
// question-word heuristic apply.
func New(provider llm.Provider, keywords []string, logger *slog.Logger) *Classifier {
	if len(keywords) == 0 {
		keywords = DefaultOpinionKeywords
	}
	if logger == nil {
		logger = slog.Default()
	}
	lowered := make([]string, len(keywords))
	for i, k := range keywords {
		lowered[i] = strings.ToLower(k)
	}
	return &Classifier{
		provider: provider,
		keywords: lowered,
		logger:   logger,
	}
}

// Classify labels the query. It never returns an error: any failure along
// the way resolves to ClassOpinion.
func (c *Classifier) Classify(ctx context.Context, query string) Class {
	lower := strings.ToLower(query)

	for _, kw := range c.keywords {
		if strings.Contains(lower, kw) {
			c.logger.Debug("opinion keyword matched", "keyword", kw)
			return ClassOpinion
		}
	}

	if c.provider == nil {
		return c.heuristic(lower)
	}

	prompt := &llm.Prompt{
		SystemPrompt: systemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: fmt.Sprintf("Classify this query: %q", query)},
		},
	}
	opts := &llm.RequestOptions{
		MaxTokens:   llm.IntPtr(50),
		Temperature: llm.FloatPtr(0),
	}

	resp, err := c.provider.Complete(ctx, prompt, opts)
	if err != nil {
		c.logger.Warn("classification call failed, refusing", "error", err)
		return ClassOpinion
	}

	label := strings.ToLower(strings.TrimSpace(llm.StripThinkingTags(resp.Content)))
	switch {
	case strings.Contains(label, "opinion"):
		return ClassOpinion
	case strings.Contains(label, "factual"):
		return ClassFactual
	default:
		c.logger.Debug("unparseable classification", "response", label)
		return c.heuristic(lower)
	}
}

// heuristic resolves an ambiguous case from the query's opening word.
func (c *Classifier) heuristic(lowerQuery string) Class {
	for _, w := range factualStarters {
		if strings.HasPrefix(lowerQuery, w) {
			return ClassFactual
		}
	}
	return ClassOpinion
}
