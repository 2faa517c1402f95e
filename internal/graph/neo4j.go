// Package graph writes traceability edges into Neo4j. Edge creation is
// best-effort fan-out after the relational transaction commits; a failure here
// must never fail the primary operation.
package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jLinker creates EVIDENCES edges between approval workflows and the asset
// versions they target.
type Neo4jLinker struct {
	driver neo4j.DriverWithContext
}

// NewNeo4j creates a linker. Connectivity is verified eagerly so a
// misconfigured URI surfaces at startup rather than on first submit.
func NewNeo4j(ctx context.Context, uri, user, password string) (*Neo4jLinker, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, fmt.Errorf("verify neo4j connectivity: %w", err)
	}
	return &Neo4jLinker{driver: driver}, nil
}

// LinkEvidence merges workflow and asset-version nodes and the EVIDENCES edge
// between them. MERGE keeps retried submissions from duplicating edges.
func (l *Neo4jLinker) LinkEvidence(ctx context.Context, workflowID, targetAssetID string) error {
	_, err := neo4j.ExecuteQuery(ctx, l.driver, `
		MERGE (w:ApprovalWorkflow {id: $workflowId})
		MERGE (a:AssetVersion {id: $assetId})
		MERGE (w)-[:EVIDENCES]->(a)
	`, map[string]any{
		"workflowId": workflowID,
		"assetId":    targetAssetID,
	}, neo4j.EagerResultTransformer)
	if err != nil {
		return fmt.Errorf("link evidence edge: %w", err)
	}
	return nil
}

// Close releases the underlying driver.
func (l *Neo4jLinker) Close(ctx context.Context) error {
	return l.driver.Close(ctx)
}
