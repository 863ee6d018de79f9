package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init sets the node id used by this process. Only the first call has effect.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New returns a time-ordered id unique across nodes. Init must have been called.
func New() int64 {
	return node.Generate().Int64()
}

// NewReceipt returns an ingest receipt id in base58, short enough for logs
// and response bodies.
func NewReceipt() string {
	return node.Generate().Base58()
}

// ParseReceipt decodes a receipt id back to its numeric form.
func ParseReceipt(s string) (int64, error) {
	id, err := snowflake.ParseBase58([]byte(s))
	if err != nil {
		return 0, err
	}
	return id.Int64(), nil
}
