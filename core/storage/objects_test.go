package storage_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"protein-updater/core/storage"
	"protein-updater/core/storage/mocks"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var noSuchKey = minio.ErrorResponse{Code: "NoSuchKey", Message: "The specified key does not exist."}

// failingReader fails on first read the way a missing minio object does.
type failingReader struct{ err error }

func (r failingReader) Read([]byte) (int, error) { return 0, r.err }
func (r failingReader) Close() error             { return nil }

func TestReadJSON(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		body      io.ReadCloser
		getErr    error
		wantFound bool
		wantErr   bool
	}{
		{name: "Decodes Object", body: io.NopCloser(strings.NewReader(`{"primary_id":"P12345"}`)), wantFound: true},
		{name: "Missing On Get", getErr: noSuchKey},
		{name: "Missing On Read", body: failingReader{err: noSuchKey}},
		{name: "Storage Failure", getErr: assert.AnError, wantErr: true},
		{name: "Malformed Document", body: io.NopCloser(strings.NewReader(`{`)), wantFound: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(mocks.Client)
			client.On("GetObject", mock.Anything, "proteins", "uniprot/P12345.json", mock.Anything).Return(tt.body, tt.getErr)

			var v struct {
				PrimaryID string `json:"primary_id"`
			}
			found, err := storage.ReadJSON(ctx, client, "proteins", "uniprot/P12345.json", &v)
			assert.Equal(t, tt.wantFound, found)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if found {
				assert.Equal(t, "P12345", v.PrimaryID)
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	client := new(mocks.Client)
	client.On("PutObject", mock.Anything, "proteins", "reports/run/P12345.json", mock.Anything, mock.Anything,
		minio.PutObjectOptions{ContentType: "application/json"}).Return(minio.UploadInfo{}, nil)

	err := storage.WriteJSON(context.Background(), client, "proteins", "reports/run/P12345.json", map[string]int{"merged": 1})
	require.NoError(t, err)

	body, err := io.ReadAll(client.Calls[0].Arguments.Get(3).(io.Reader))
	require.NoError(t, err)
	assert.JSONEq(t, `{"merged":1}`, string(body))
	assert.Equal(t, int64(len(body)), client.Calls[0].Arguments.Get(4).(int64))
}

func TestListDirs(t *testing.T) {
	client := new(mocks.Client)
	client.On("ListObjects", mock.Anything, "proteins", minio.ListObjectsOptions{Prefix: "reports/"}).
		Return(mocks.Objects("reports/b/", "reports/stray.json", "reports/a/"))

	dirs, err := storage.ListDirs(context.Background(), client, "proteins", "reports")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, dirs)
}

func TestRemovePrefix(t *testing.T) {
	ctx := context.Background()

	t.Run("Nothing To Remove", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("ListObjects", mock.Anything, "proteins", minio.ListObjectsOptions{Prefix: "reports/a/", Recursive: true}).
			Return(mocks.Objects())

		n, err := storage.RemovePrefix(ctx, client, "proteins", "reports/a")
		require.NoError(t, err)
		assert.Zero(t, n)
		client.AssertNotCalled(t, "RemoveObjects", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Counts Failures", func(t *testing.T) {
		client := new(mocks.Client)
		client.On("ListObjects", mock.Anything, "proteins", mock.Anything).
			Return(mocks.Objects("reports/a/1.json", "reports/a/2.json", "reports/a/3.json"))
		client.On("RemoveObjects", mock.Anything, "proteins", mock.Anything, mock.Anything).
			Return(mocks.RemoveErrors(minio.RemoveObjectError{ObjectName: "reports/a/2.json", Err: assert.AnError}))

		n, err := storage.RemovePrefix(ctx, client, "proteins", "reports/a/")
		assert.ErrorIs(t, err, assert.AnError)
		assert.ErrorContains(t, err, "reports/a/2.json")
		assert.Equal(t, 2, n)
	})
}
