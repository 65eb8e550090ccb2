// Package id generates the int64 identifiers used for every persisted
// record. Snowflake IDs sort by creation time, which keeps audit trails and
// counter-offer history naturally ordered.
package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init sets up the generator. Each binary passes a distinct node ID so the
// server and sweeper never mint colliding IDs.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New returns the next unique ID. Init must have been called first.
func New() int64 {
	return node.Generate().Int64()
}
