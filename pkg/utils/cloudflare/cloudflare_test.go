package cloudflare

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront_backend/pkg/config"
)

type fakeObjectStore struct {
	puts    map[string]string
	deletes []string
}

func (f *fakeObjectStore) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.puts[aws.ToString(in.Key)] = string(data)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjectStore) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.deletes = append(f.deletes, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestUploadStoreLogo(t *testing.T) {
	store := &fakeObjectStore{puts: map[string]string{}}
	u := NewUploaderWithClient(store, "assets", "https://cdn.example.app/")

	res, err := u.UploadStoreLogo(context.Background(), "Demo Store", strings.NewReader("img"), ".webp", "image/webp")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.ObjectKey, "stores/demo-store/logo/"))
	assert.True(t, strings.HasSuffix(res.ObjectKey, ".webp"))
	assert.Equal(t, "https://cdn.example.app/"+res.ObjectKey, res.URL)
	assert.Equal(t, "img", store.puts[res.ObjectKey])

	require.NoError(t, u.Delete(context.Background(), res.URL))
	require.NoError(t, u.Delete(context.Background(), "https://elsewhere.test/logo.png"))
	assert.Equal(t, []string{res.ObjectKey}, store.deletes)
}

func TestNewUploaderNotConfigured(t *testing.T) {
	_, err := NewUploader(context.Background(), config.R2Config{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
