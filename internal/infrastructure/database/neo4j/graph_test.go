package neo4j

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordMatches_EmptySkipsSession(t *testing.T) {
	// An empty batch must not touch the driver at all.
	g := &MatchGraph{}
	assert.NoError(t, g.RecordMatches(context.Background(), "cross", nil))
}

func TestMergeCypher_Shape(t *testing.T) {
	// The relationship merge is undirected so (a,b) and (b,a) collapse
	// into one link.
	assert.Contains(t, mergeMatchCypher, "MERGE (a)-[r:LINKED_TO]-(b)")
	assert.Contains(t, mergeMatchCypher, "$score")
	assert.Contains(t, mergeMatchCypher, "$reasons")
}
