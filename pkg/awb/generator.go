package awb

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// Generator issues air waybill numbers: an uppercase prefix followed by a base36 snowflake id.
// Uniqueness across instances relies on each instance having its own node id.
type Generator struct {
	prefix string
	node   *snowflake.Node
}

func NewGenerator(prefix string, nodeID int64) (*Generator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("awb node %d: %w", nodeID, err)
	}
	return &Generator{prefix: strings.ToUpper(strings.TrimSpace(prefix)), node: node}, nil
}

func (g *Generator) Next() string {
	return g.prefix + strings.ToUpper(g.node.Generate().Base36())
}

// Normalize applies the same casing the generator uses, so lookups match user input.
func Normalize(awb string) string {
	return strings.ToUpper(strings.TrimSpace(awb))
}
