package media

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_ScopesByTypeFieldAndPK(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "drivers/driver/photo/42/portrait.jpg",
		Key("drivers.Driver", "photo", "42", "portrait.jpg"))
	assert.Equal(t, "users/user/profile_image/7/me.png",
		Key("users.User", "profile_image", "7", "me.png"))
}

func TestKey_StripsSmuggledDirectories(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "drivers/driver/photo/42/passwd",
		Key("drivers.Driver", "photo", "42", "../../etc/passwd"))
}

func TestResolver_EmptyKeyIsNil(t *testing.T) {
	t.Parallel()

	r := Resolver{Store: NewDiskStore(t.TempDir(), "http://hub.local/media")}
	assert.Nil(t, r.Resolve(""))
	assert.Equal(t, "http://hub.local/media/drivers/driver/photo/42/a.jpg",
		r.Resolve("drivers/driver/photo/42/a.jpg"))
}

func TestDiskStore_SaveDeleteRoundTrip(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s := NewDiskStore(root, "http://hub.local/media/")
	ctx := context.Background()
	key := "drivers/driver/photo/42/portrait.jpg"

	require.NoError(t, s.Save(ctx, key, []byte("jpeg bytes")))

	got, err := os.ReadFile(filepath.Join(root, "drivers", "driver", "photo", "42", "portrait.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg bytes"), got)

	// Replacement overwrites in place.
	require.NoError(t, s.Save(ctx, key, []byte("newer bytes")))
	got, err = os.ReadFile(filepath.Join(root, "drivers", "driver", "photo", "42", "portrait.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []byte("newer bytes"), got)

	require.NoError(t, s.Delete(ctx, key))
	_, err = os.Stat(filepath.Join(root, "drivers", "driver", "photo", "42", "portrait.jpg"))
	assert.True(t, os.IsNotExist(err))

	// Deleting a missing key stays quiet; retried jobs re-delete.
	require.NoError(t, s.Delete(ctx, key))
}

func TestDiskStore_URLTrimsTrailingSlash(t *testing.T) {
	t.Parallel()

	s := NewDiskStore(t.TempDir(), "http://hub.local/media/")
	assert.Equal(t, "http://hub.local/media/a/b.jpg", s.URL("a/b.jpg"))
}
