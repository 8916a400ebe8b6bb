package sqlc

import (
	"context"
	"database/sql"
)

// Querier is the full set of queries of the asset store.
type Querier interface {
	DeleteBlocksFrom(ctx context.Context, height int64) error
	DeletePayloadsFrom(ctx context.Context, height int64) error
	FetchBlock(ctx context.Context, height int64) (ScannedBlock, error)
	InsertBlock(ctx context.Context, arg InsertBlockParams) error
	InsertPayload(ctx context.Context, arg InsertPayloadParams) error
	LastBlock(ctx context.Context) (ScannedBlock, error)
	PayloadsByHeight(ctx context.Context, height int64) ([]AssetPayload,
		error)
	PayloadsByName(ctx context.Context,
		assetName sql.NullString) ([]AssetPayload, error)
}

var _ Querier = (*Queries)(nil)
