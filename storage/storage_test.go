package storage

import (
	"context"
	"regexp"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildKey(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	tests := []struct {
		slugs    []string
		filename string
		want     string
	}{
		{[]string{"travel", "italy"}, "sunset.jpg", "travel/italy/1700000000123-sunset.jpg"},
		{nil, "IMG 0001.HEIC", "1700000000123-IMG_0001.HEIC"},
		{[]string{"family"}, "../../etc/passwd", "family/1700000000123-_._.._etc_passwd"},
		{[]string{"family"}, "", "family/1700000000123-file"},
		{[]string{"a"}, "été.png", "a/1700000000123-_t_.png"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BuildKey(tt.slugs, at, tt.filename))
	}
}

func TestBuildKeyUploadLayout(t *testing.T) {
	key := BuildKey([]string{"travel", "italy"}, time.Now(), "sunset.jpg")
	assert.Regexp(t, regexp.MustCompile(`^travel/italy/\d{13}-sunset\.jpg$`), key)
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"photo.jpg":        "photo.jpg",
		".hidden":          "_hidden",
		"my photo (1).jpg": "my_photo__1_.jpg",
		"a-b_c.d":          "a-b_c.d",
	}
	for in, want := range tests {
		assert.Equal(t, want, SanitizeFilename(in), in)
	}
}

func TestParseProvider(t *testing.T) {
	p, err := ParseProvider("Oracle")
	require.NoError(t, err)
	assert.Equal(t, ProviderOracle, p)

	p, err = ParseProvider("")
	require.NoError(t, err)
	assert.Equal(t, ProviderR2, p)

	_, err = ParseProvider("s3")
	assert.Error(t, err)
}

func TestDiskStorage(t *testing.T) {
	ctx := context.Background()
	s := NewDiskStorage(ProviderR2, t.TempDir(), "")

	_, err := s.Get(ctx, "missing.jpg")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put(ctx, "travel/italy/1-a.jpg", []byte("12345"), "image/jpeg"))
	require.NoError(t, s.Put(ctx, "travel/2-b.jpg", []byte("123"), "image/jpeg"))
	require.NoError(t, s.Put(ctx, "3-c.jpg", []byte("1"), "image/jpeg"))

	data, err := s.Get(ctx, "travel/italy/1-a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("12345"), data)

	var keys []string
	require.NoError(t, s.List(ctx, func(o Object) error {
		keys = append(keys, o.Key)
		return nil
	}))
	sort.Strings(keys)
	assert.Equal(t, []string{"3-c.jpg", "travel/2-b.jpg", "travel/italy/1-a.jpg"}, keys)

	total, err := s.TotalStoredBytes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(9), total)

	require.NoError(t, s.Delete(ctx, "travel/2-b.jpg"))
	require.NoError(t, s.Delete(ctx, "travel/2-b.jpg"), "deleting twice is not an error")
	total, err = s.TotalStoredBytes(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(6), total)
}

func TestDiskStorageKeyCannotEscapeBase(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()
	s := NewDiskStorage(ProviderR2, base, "")
	require.NoError(t, s.Put(ctx, "../../outside.jpg", []byte("x"), "image/jpeg"))

	var keys []string
	require.NoError(t, s.List(ctx, func(o Object) error {
		keys = append(keys, o.Key)
		return nil
	}))
	assert.Equal(t, []string{"outside.jpg"}, keys)
}

func TestDiskStorageEmptyList(t *testing.T) {
	s := NewDiskStorage(ProviderR2, t.TempDir()+"/never-created", "")
	total, err := s.TotalStoredBytes(context.Background())
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestPublicURL(t *testing.T) {
	public, err := NewPublicStorage(S3Config{
		Endpoint: "https://ns.compat.objectstorage.eu-frankfurt-1.oraclecloud.com",
		Region:   "eu-frankfurt-1",
		Bucket:   "gallery",
	})
	require.NoError(t, err)
	assert.Equal(t,
		"https://ns.compat.objectstorage.eu-frankfurt-1.oraclecloud.com/gallery/travel/1700000000123-my%20photo.jpg",
		public.PublicURL("travel/1700000000123-my photo.jpg"))

	disk := NewDiskStorage(ProviderOracle, t.TempDir(), "/local/")
	assert.Equal(t, "/local/travel/a.jpg", disk.PublicURL("travel/a.jpg"))
}

func TestRegistryFallsBackToPrivate(t *testing.T) {
	r2 := NewDiskStorage(ProviderR2, t.TempDir(), "")
	oracle := NewDiskStorage(ProviderOracle, t.TempDir(), "/local")
	Register(r2)
	Register(oracle)
	assert.Same(t, r2, For(ProviderR2))
	assert.Same(t, oracle, For(ProviderOracle))
	assert.Same(t, r2, For(""))
}
