package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	storage_go "github.com/supabase-community/storage-go"
)

// SupabaseStore implements Store on a Supabase Storage bucket.
type SupabaseStore struct {
	client *storage_go.Client
	bucket string
}

// NewSupabase wraps an already-configured storage client. The client
// typically comes from db.SupabaseClient.Storage().
func NewSupabase(client *storage_go.Client, bucket string) *SupabaseStore {
	return &SupabaseStore{client: client, bucket: bucket}
}

var _ Store = (*SupabaseStore)(nil)

// Download fetches the object content.
func (s *SupabaseStore) Download(ctx context.Context, path string) ([]byte, error) {
	data, err := s.client.DownloadFile(s.bucket, path)
	if err != nil {
		if isStorageNotFound(err) {
			return nil, fmt.Errorf("download %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("download %s: %w", path, err)
	}
	return data, nil
}

// Upload stores the object content with the given content type.
func (s *SupabaseStore) Upload(ctx context.Context, path string, data []byte, contentType string, upsert bool) error {
	opts := storage_go.FileOptions{
		ContentType: &contentType,
		Upsert:      &upsert,
	}
	if _, err := s.client.UploadFile(s.bucket, path, bytes.NewReader(data), opts); err != nil {
		return fmt.Errorf("upload %s: %w", path, err)
	}
	return nil
}

// Delete removes the object. Missing objects are treated as already deleted.
func (s *SupabaseStore) Delete(ctx context.Context, path string) error {
	if _, err := s.client.RemoveFile(s.bucket, []string{path}); err != nil {
		if isStorageNotFound(err) {
			return nil
		}
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

// SignedURL creates a time-limited playback URL for the object.
func (s *SupabaseStore) SignedURL(ctx context.Context, path string, expiresIn time.Duration) (string, error) {
	resp, err := s.client.CreateSignedUrl(s.bucket, path, int(expiresIn.Seconds()))
	if err != nil {
		return "", fmt.Errorf("sign url for %s: %w", path, err)
	}
	return resp.SignedURL, nil
}

// isStorageNotFound sniffs the storage API's not-found responses. The client
// surfaces them as plain errors carrying the response body, so string
// matching is the only handle we have.
func isStorageNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not_found") ||
		strings.Contains(msg, "not found") ||
		strings.Contains(msg, "object not found") ||
		strings.Contains(msg, "404")
}
