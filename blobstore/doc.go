// Package blobstore provides storage for index snapshots.
//
// Store is the interface for reading and writing whole blobs.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process, for tests and ephemeral nodes
//   - LocalStore: local filesystem with atomic rename and a directory lock
//   - CachingStore: LRU read cache in front of any Store
//   - s3.Store: Amazon S3 with multipart uploads
//   - s3.DDBCommitStore: S3 blobs with DynamoDB-backed pointer commits
//   - minio.Store: MinIO and other S3-compatible services
//
// # Layout
//
// Each index writes its snapshots under its own directory and commits the
// latest one by writing the snapshot name into the CURRENT pointer blob:
//
//	node-1/partition-0/snap-00000000000000000042.bin
//	node-1/partition-0/CURRENT
package blobstore
