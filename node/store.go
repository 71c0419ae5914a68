package node

import "github.com/ethrex/ethrex-state/store"

// OpenStore opens a store at c.DataDir using c's chain ID, retention, and
// code cache sizing, initializing it from genesis if the data directory
// has no database yet.
func OpenStore(c Config, genesis *store.Genesis) (*store.Store, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := c.InitDataDir(); err != nil {
		return nil, err
	}
	dir := c.ResolvePath("chaindata")
	return store.NewSized(dir, genesis, c.Retention, c.CodeCacheBytes())
}
