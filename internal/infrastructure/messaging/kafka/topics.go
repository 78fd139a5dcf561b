// Package kafka publishes and consumes analysis lifecycle events.
package kafka

// Topics carrying analysis lifecycle events.
const (
	// TopicCaseAnalyzed fires when a full analysis pipeline run completes.
	TopicCaseAnalyzed = "case.analyzed"
	// TopicEntityMatched fires when a similarity pass links records.
	TopicEntityMatched = "entity.matched"
)
