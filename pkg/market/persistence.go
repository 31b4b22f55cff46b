package market

import "context"

// Persistence hooks allow a completed sync to be mirrored to external stores.
type Persistence interface {
	// RecordAssets persists the merged listing produced by one sync cycle.
	RecordAssets(ctx context.Context, provider string, assets []Asset) error
}
