package usecases

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"supportpilot/internal/entities"
	"supportpilot/internal/interfaces"
)

// Aggregate confidence weights: the best hit dominates, the average keeps a
// single lucky chunk from carrying a weak result set. When even the best hit
// is below the similarity threshold the whole score is halved.
const (
	aggregateMaxWeight = 0.6
	aggregateAvgWeight = 0.4
	weakMatchPenalty   = 0.5
)

// RetrievalOutcome is what the engine hands back to the pipeline.
type RetrievalOutcome struct {
	Results             []entities.RetrievalResult
	AggregateConfidence float64
}

// RetrievalEngine embeds a query, searches the organization's vector index
// and scores the outcome.
type RetrievalEngine struct {
	embedder interfaces.Embedder
	index    interfaces.VectorIndex
	docs     interfaces.DocumentStore
}

func NewRetrievalEngine(embedder interfaces.Embedder, index interfaces.VectorIndex, docs interfaces.DocumentStore) *RetrievalEngine {
	return &RetrievalEngine{embedder: embedder, index: index, docs: docs}
}

// Retrieve runs the query through embedding and k-nearest-neighbor search,
// drops hits below the similarity threshold and enriches the survivors with
// document metadata. Zero candidates is a valid "no knowledge found" outcome,
// not an error: the pipeline still forwards it to the LLM so greetings and
// chitchat get a natural reply.
func (e *RetrievalEngine) Retrieve(ctx context.Context, orgID, queryText string, topK int, similarityThreshold float64) (*RetrievalOutcome, error) {
	embedding, err := e.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := e.index.Search(ctx, orgID, embedding, topK)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	if len(hits) == 0 {
		return &RetrievalOutcome{AggregateConfidence: 0}, nil
	}

	results := make([]entities.RetrievalResult, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < similarityThreshold {
			continue
		}
		results = append(results, e.enrich(ctx, hit))
	}

	return &RetrievalOutcome{
		Results:             results,
		AggregateConfidence: aggregateConfidence(hits, similarityThreshold),
	}, nil
}

// enrich fills title and source from the document record, falling back to
// the vector-store metadata when the record is missing.
func (e *RetrievalEngine) enrich(ctx context.Context, hit interfaces.VectorHit) entities.RetrievalResult {
	result := entities.RetrievalResult{
		DocID:     hit.DocID,
		Title:     hit.Title,
		ChunkText: hit.Text,
		Score:     hit.Score,
	}

	doc, err := e.docs.GetByID(ctx, hit.DocID)
	if err != nil {
		log.WithError(err).WithField("doc_id", hit.DocID).Warn("document lookup failed, using vector-store metadata")
		return result
	}
	if doc != nil {
		result.Title = doc.Title
		result.SourceURL = doc.SourceURL
	}
	return result
}

// aggregateConfidence summarizes the unfiltered top-K scores.
func aggregateConfidence(hits []interfaces.VectorHit, similarityThreshold float64) float64 {
	if len(hits) == 0 {
		return 0
	}

	maxScore := hits[0].Score
	sum := 0.0
	for _, h := range hits {
		if h.Score > maxScore {
			maxScore = h.Score
		}
		sum += h.Score
	}
	avg := sum / float64(len(hits))

	confidence := aggregateMaxWeight*maxScore + aggregateAvgWeight*avg
	if maxScore < similarityThreshold {
		confidence *= weakMatchPenalty
	}

	if confidence < 0 {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}
