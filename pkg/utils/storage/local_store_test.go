package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorePutAndDelete(t *testing.T) {
	root := t.TempDir()
	store, err := NewLocalStore(root)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.PutObject(ctx, &s3.PutObjectInput{
		Key:  aws.String("stores/demo/logo/a.webp"),
		Body: strings.NewReader("data"),
	})
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(root, "stores", "demo", "logo", "a.webp"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(raw))

	_, err = store.DeleteObject(ctx, &s3.DeleteObjectInput{Key: aws.String("stores/demo/logo/a.webp")})
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "stores", "demo", "logo", "a.webp"))
	assert.True(t, os.IsNotExist(err))

	// Deleting a missing object is not an error.
	_, err = store.DeleteObject(ctx, &s3.DeleteObjectInput{Key: aws.String("stores/demo/logo/a.webp")})
	assert.NoError(t, err)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.PutObject(context.Background(), &s3.PutObjectInput{
		Key:  aws.String("../escape.txt"),
		Body: strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, ErrInvalidKey)
}
