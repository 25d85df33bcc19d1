package topic

import (
	"strings"
)

// TopicBuilder constructs MQTT topic strings under a common root namespace.
type TopicBuilder struct {
	// root is the base namespace for all topics (e.g., "flightlab/v1").
	root string
}

// NewTopicBuilder creates a new instance of TopicBuilder with the specified root namespace.
func NewTopicBuilder(root string) *TopicBuilder {
	return &TopicBuilder{root: strings.TrimSuffix(root, "/")}
}

// Root returns the namespace every topic starts with.
func (b *TopicBuilder) Root() string {
	return b.root
}

// Build joins the root, a segment and optional identifiers.
// Pattern: {root}/{segment}[/{id}...]
func (b *TopicBuilder) Build(segment string, ids ...string) string {
	parts := make([]string, 0, len(ids)+2)
	parts = append(parts, b.root, segment)
	parts = append(parts, ids...)
	return strings.Join(parts, "/")
}
