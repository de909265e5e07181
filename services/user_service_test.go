package services

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/ffarena/ff-arena/models"
	"github.com/ffarena/ff-arena/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memUploader struct {
	mu      sync.Mutex
	objects map[string]bool
	deleted []string
}

func newMemUploader() *memUploader {
	return &memUploader{objects: make(map[string]bool)}
}

func (u *memUploader) Upload(ctx context.Context, key, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.objects[key] = true
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *memUploader) Delete(ctx context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *memUploader) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

func newUserEnv(t *testing.T) (UserService, *memUserRepo, *memUploader, *models.User) {
	t.Helper()
	store := newMemStore()
	users := &memUserRepo{store: store}
	uploader := newMemUploader()
	svc := NewUserService(users, uploader)

	user := &models.User{
		PhoneNumber: "+8801712000002",
		Nickname:    "profile-owner",
		FreeFireUID: "uid-profile",
		Role:        models.RolePlayer,
	}
	require.NoError(t, users.Create(context.Background(), user))
	return svc, users, uploader, user
}

func TestUpdateProfile_PatchSemantics(t *testing.T) {
	svc, users, _, user := newUserEnv(t)
	ctx := context.Background()

	nickname := "renamed"
	updated, err := svc.UpdateProfile(ctx, user.ID, UpdateProfileInput{Nickname: &nickname})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Nickname)
	// Untouched fields keep their values.
	assert.Equal(t, "uid-profile", updated.FreeFireUID)

	stored, err := users.GetByID(ctx, nil, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", stored.Nickname)
}

func TestUpdateProfile_RejectsEmptyValues(t *testing.T) {
	svc, _, _, user := newUserEnv(t)
	ctx := context.Background()

	empty := ""
	_, err := svc.UpdateProfile(ctx, user.ID, UpdateProfileInput{Nickname: &empty})
	require.ErrorIs(t, err, ErrValidationFailed)

	_, err = svc.UpdateProfile(ctx, user.ID, UpdateProfileInput{FreeFireUID: &empty})
	require.ErrorIs(t, err, ErrValidationFailed)
}

func TestUploadAvatar_ReplacesPreviousObject(t *testing.T) {
	svc, users, uploader, user := newUserEnv(t)
	ctx := context.Background()

	first, err := svc.UploadAvatar(ctx, user.ID, "image/png", strings.NewReader("first"))
	require.NoError(t, err)
	require.NotNil(t, first.AvatarKey)
	require.NotNil(t, first.AvatarURL)
	assert.Empty(t, uploader.deleted)

	second, err := svc.UploadAvatar(ctx, user.ID, "image/png", strings.NewReader("second"))
	require.NoError(t, err)
	require.NotNil(t, second.AvatarKey)

	// Each upload gets its own key; the replaced object is removed.
	assert.NotEqual(t, *first.AvatarKey, *second.AvatarKey)
	require.Len(t, uploader.deleted, 1)
	assert.Equal(t, *first.AvatarKey, uploader.deleted[0])
	assert.True(t, uploader.objects[*second.AvatarKey])
	assert.False(t, uploader.objects[*first.AvatarKey])

	stored, err := users.GetByID(ctx, nil, user.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.AvatarKey)
	assert.Equal(t, *second.AvatarKey, *stored.AvatarKey)
}

func TestUploadAvatar_UnknownUser(t *testing.T) {
	svc, _, uploader, _ := newUserEnv(t)

	_, err := svc.UploadAvatar(context.Background(), 9999, "image/png", strings.NewReader("x"))
	require.ErrorIs(t, err, ErrUserNotFound)
	assert.Empty(t, uploader.objects)
}
