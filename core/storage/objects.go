package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
)

// IsNotFound reports whether err means the object does not exist.
func IsNotFound(err error) bool {
	return err != nil && minio.ToErrorResponse(err).Code == "NoSuchKey"
}

// ReadJSON decodes object into v. It returns false without error when the object
// does not exist.
func ReadJSON(ctx context.Context, client Client, bucket, object string, v any) (bool, error) {
	reader, err := client.GetObject(ctx, bucket, object, minio.GetObjectOptions{})
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get %s: %w", object, err)
	}
	defer reader.Close()

	// Minio defers the error of GetObject to the first read
	data, err := io.ReadAll(reader)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read %s: %w", object, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("failed to parse %s: %w", object, err)
	}
	return true, nil
}

// WriteJSON uploads v as an indented JSON document.
func WriteJSON(ctx context.Context, client Client, bucket, object string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", object, err)
	}
	_, err = client.PutObject(ctx, bucket, object, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", object, err)
	}
	return nil
}

// ListDirs returns the sorted names of the pseudo directories directly below prefix.
func ListDirs(ctx context.Context, client Client, bucket, prefix string) ([]string, error) {
	prefix = strings.TrimSuffix(prefix, "/") + "/"
	var dirs []string
	for obj := range client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", prefix, obj.Err)
		}
		if !strings.HasSuffix(obj.Key, "/") {
			continue
		}
		if dir := strings.Trim(strings.TrimPrefix(obj.Key, prefix), "/"); dir != "" {
			dirs = append(dirs, dir)
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

// RemovePrefix deletes every object below prefix and returns how many were removed.
func RemovePrefix(ctx context.Context, client Client, bucket, prefix string) (int, error) {
	prefix = strings.TrimSuffix(prefix, "/") + "/"

	var objects []minio.ObjectInfo
	for obj := range client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return 0, fmt.Errorf("failed to list %s: %w", prefix, obj.Err)
		}
		objects = append(objects, obj)
	}
	if len(objects) == 0 {
		return 0, nil
	}

	queue := make(chan minio.ObjectInfo, len(objects))
	for _, obj := range objects {
		queue <- obj
	}
	close(queue)

	var (
		failed   int
		firstErr error
	)
	for rerr := range client.RemoveObjects(ctx, bucket, queue, minio.RemoveObjectsOptions{}) {
		failed++
		if firstErr == nil {
			firstErr = fmt.Errorf("%s: %w", rerr.ObjectName, rerr.Err)
		}
	}
	if failed > 0 {
		return len(objects) - failed, fmt.Errorf("failed to remove %d objects under %s: %w", failed, prefix, firstErr)
	}
	return len(objects), nil
}
