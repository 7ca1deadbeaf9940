// Package blob abstracts the object store holding bid and contract documents.
package blob

import (
	"context"
	"io"
	"time"
)

// Bucket names, one per document class.
const (
	BucketTechnicalBids = "technical-bids"
	BucketFinancialBids = "financial-bids"
	BucketSupplierDocs  = "supplier-docs"
	BucketContracts     = "contracts"
	BucketCarnivalDocs  = "carnival-docs"
	BucketTenderDocs    = "tender-docs"
)

// Store is the put/signed-url contract the workflow relies on. Paths are
// deterministic per entity, so a repeated Put overwrites the previous object.
type Store interface {
	Put(ctx context.Context, bucket, path string, r io.Reader) (string, error)
	Get(ctx context.Context, bucket, path string) (io.ReadCloser, error)
	SignedURL(bucket, path string, ttl time.Duration) (string, error)
	PublicURL(bucket, path string) string
	Remove(ctx context.Context, bucket string, paths []string) error
}
