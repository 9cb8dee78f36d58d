// Package pipeline runs the classify, retrieve, generate flow for a single
// query. Opinion queries short-circuit to a refusal; factual queries go
// through retrieval and grounded generation.
package pipeline

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fundfaq/fundfaq/internal/agents/classifier"
	"github.com/fundfaq/fundfaq/internal/agents/generator"
	"github.com/fundfaq/fundfaq/internal/index"
)

// QueryState carries a query through the pipeline stages.
type QueryState struct {
	Query          string
	Classification classifier.Class
	Candidates     []index.Candidate
	Answer         string
	Citation       *string
}

// route names the next stage after classification.
func route(class classifier.Class) string {
	if class == classifier.ClassOpinion {
		return "refuse"
	}
	return "retrieve"
}

// Classifier labels a query.
type Classifier interface {
	Classify(ctx context.Context, query string) classifier.Class
}

// Retriever fetches candidates for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) []index.Candidate
}

// Generator produces answers and refusals.
type Generator interface {
	GenerateAnswer(ctx context.Context, query string, candidates []index.Candidate) generator.Result
	GenerateRefusal(query string) generator.Result
}

// Orchestrator wires the three agents into one linear flow.
type Orchestrator struct {
	classifier Classifier
	retriever  Retriever
	generator  Generator
	logger     *slog.Logger
}

// New creates an Orchestrator.
func New(c Classifier, r Retriever, g Generator, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{classifier: c, retriever: r, generator: g, logger: logger}
}

// Process answers one query. It never returns an error: every failure mode
// resolves to a refusal, the no-information answer, or an extractive
// fallback inside the generator.
func (o *Orchestrator) Process(ctx context.Context, query string) QueryState {
	tracer := otel.Tracer("fundfaq.pipeline")
	ctx, span := tracer.Start(ctx, "pipeline.process")
	defer span.End()

	state := QueryState{Query: query}
	state.Classification = o.classifier.Classify(ctx, query)
	span.SetAttributes(attribute.String("query.classification", string(state.Classification)))

	if route(state.Classification) == "refuse" {
		res := o.generator.GenerateRefusal(query)
		state.Answer = res.Answer
		state.Citation = res.Citation
		o.logger.Info("query refused", "query", query)
		return state
	}

	state.Candidates = o.retriever.Retrieve(ctx, query)
	span.SetAttributes(attribute.Int("retrieval.candidates", len(state.Candidates)))

	res := o.generator.GenerateAnswer(ctx, query, state.Candidates)
	state.Answer = res.Answer
	state.Citation = res.Citation
	o.logger.Info("query answered", "query", query, "candidates", len(state.Candidates))
	return state
}
