package media

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectName(t *testing.T) {
	name, contentType, err := ObjectName("../../My Photo (1).JPG")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", contentType)
	assert.True(t, strings.HasSuffix(name, "_My_Photo_1.jpg"), name)
	assert.NotContains(t, name, "/")

	_, contentType, err = ObjectName("clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, "video/mp4", contentType)

	_, _, err = ObjectName("script.exe")
	assert.ErrorIs(t, err, ErrExtensionNotAllowed)
}

func TestLocalStorageSaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "/product_images/")
	require.NoError(t, err)

	url, err := s.Save(context.Background(), "shoe.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/product_images/"))

	path := filepath.Join(dir, filepath.Base(url))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, s.Delete(context.Background(), url))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// deleting twice or deleting foreign URLs is harmless
	assert.NoError(t, s.Delete(context.Background(), url))
	assert.NoError(t, s.Delete(context.Background(), "https://cdn.example.com/x.png"))
}

func TestLocalStorageRejectsExtension(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir(), "/product_images")
	require.NoError(t, err)

	_, err = s.Save(context.Background(), "payload.sh", strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrExtensionNotAllowed)
}
