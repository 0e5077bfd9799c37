// Package storage provides an abstraction layer for object storage services.
//
// It wraps the MinIO Go client behind the Client interface so snapshot reading and
// report archiving can be tested against core/storage/mocks. Both AWS S3 and
// self-hosted MinIO instances are supported.
//
// # Operations
//
//   - BucketExists, MakeBucket: bucket bootstrap, see EnsureBucket.
//   - PutObject: report upload.
//   - GetObject: snapshot download as a stream.
//   - ListObjects, RemoveObjects: listing and pruning archived runs.
//
// ReadJSON, WriteJSON, ListDirs and RemovePrefix build the JSON document and folder
// operations used by core/uniprot on top of those calls. A missing object is not an
// error for ReadJSON; IsNotFound tells it apart from other failures.
//
// # Usage
//
//	client, err := storage.NewClient(config)
//	created, err := storage.EnsureBucket(ctx, client, config.Bucket, config.Region)
package storage
