// Package s3 provides S3 implementations of blobstore.Store.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("sensei/"),
//	    s3.WithRegion("us-east-1"),
//	)
//
// DDBCommitStore adds DynamoDB conditional writes for CURRENT pointer
// blobs so that two nodes never silently overwrite each other's commit.
package s3
