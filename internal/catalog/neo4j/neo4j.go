// Package neo4j implements catalog.Repository on Neo4j. Each source is a
// Source node keyed by URL, so re-ingestion updates rather than duplicates.
package neo4j

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/fundfaq/fundfaq/internal/catalog"
)

// Neo4jCatalog implements catalog.Repository using Neo4j.
type Neo4jCatalog struct {
	driver neo4j.DriverWithContext
}

// NewNeo4j creates a Neo4j-backed catalog and verifies connectivity.
func NewNeo4j(ctx context.Context, uri, username, password string) (*Neo4jCatalog, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("neo4j connectivity: %w", err)
	}
	return &Neo4jCatalog{driver: driver}, nil
}

func (c *Neo4jCatalog) RecordSource(ctx context.Context, rec catalog.SourceRecord) error {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx,
			"MERGE (s:Source {url: $url}) "+
				"SET s.pages = $pages, s.chunks = $chunks, s.ingested_at = $at",
			map[string]any{
				"url":    rec.URL,
				"pages":  rec.Pages,
				"chunks": rec.Chunks,
				"at":     rec.IngestedAt.UTC().Format(time.RFC3339),
			})
	})
	if err != nil {
		return fmt.Errorf("record source %s: %w", rec.URL, err)
	}
	return nil
}

func (c *Neo4jCatalog) ListSources(ctx context.Context) ([]catalog.SourceRecord, error) {
	session := c.driver.NewSession(ctx, neo4j.SessionConfig{})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		records, err := tx.Run(ctx,
			"MATCH (s:Source) RETURN s.url, s.pages, s.chunks, s.ingested_at ORDER BY s.url",
			nil)
		if err != nil {
			return nil, err
		}

		var sources []catalog.SourceRecord
		for records.Next(ctx) {
			rec := records.Record()
			url, _ := rec.Get("s.url")
			pages, _ := rec.Get("s.pages")
			chunks, _ := rec.Get("s.chunks")
			at, _ := rec.Get("s.ingested_at")

			sr := catalog.SourceRecord{URL: url.(string)}
			if p, ok := pages.(int64); ok {
				sr.Pages = int(p)
			}
			if ch, ok := chunks.(int64); ok {
				sr.Chunks = int(ch)
			}
			if s, ok := at.(string); ok {
				sr.IngestedAt, _ = time.Parse(time.RFC3339, s)
			}
			sources = append(sources, sr)
		}
		return sources, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]catalog.SourceRecord), nil
}

func (c *Neo4jCatalog) Close(ctx context.Context) error {
	return c.driver.Close(ctx)
}

var _ catalog.Repository = (*Neo4jCatalog)(nil)
