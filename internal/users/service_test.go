package users

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/stipendia/stipendia/internal/shared"
)

type memoryUserRepo struct {
	users  map[int64]User
	nextID int64
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: map[int64]User{}}
}

func (r *memoryUserRepo) Create(_ context.Context, user User) (int64, error) {
	for _, existing := range r.users {
		if existing.Username == user.Username {
			return 0, shared.ErrConflict
		}
	}
	r.nextID++
	user.ID = r.nextID
	r.users[user.ID] = user
	return user.ID, nil
}

func (r *memoryUserRepo) GetByID(_ context.Context, id int64) (User, error) {
	user, ok := r.users[id]
	if !ok {
		return User{}, shared.ErrNotFound
	}
	return user, nil
}

func (r *memoryUserRepo) GetByUsername(_ context.Context, username string) (User, error) {
	for _, user := range r.users {
		if user.Username == username {
			return user, nil
		}
	}
	return User{}, shared.ErrNotFound
}

func (r *memoryUserRepo) UpdateStatus(_ context.Context, id int64, active bool) error {
	user, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	user.Active = active
	r.users[id] = user
	return nil
}

func (r *memoryUserRepo) UpdateProfile(_ context.Context, id int64, update ProfileUpdate) error {
	user, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	if update.FullName != nil {
		user.FullName = *update.FullName
	}
	if update.Email != nil {
		user.Email = *update.Email
	}
	if update.GPA != nil {
		user.GPA = *update.GPA
	}
	if update.EnrollmentYear != nil {
		user.EnrollmentYear = *update.EnrollmentYear
	}
	r.users[id] = user
	return nil
}

type recordingRevoker struct {
	revoked []int64
}

func (r *recordingRevoker) RevokeUser(userID int64) {
	r.revoked = append(r.revoked, userID)
}

func TestRegisterCreatesActiveStudent(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryUserRepo()
	svc := NewService(repo, nil)

	user, err := svc.Register(ctx, RegisterInput{
		Username: "amara",
		Password: "s3cret-pass",
		FullName: "Amara Okafor",
		Email:    "amara@example.edu",
		GPA:      3.8,
	})
	require.NoError(t, err)
	require.Equal(t, RoleStudent, user.Role)
	require.True(t, user.Active)
	require.NotEqual(t, "s3cret-pass", user.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret-pass")))

	_, err = svc.Register(ctx, RegisterInput{Username: "amara", Password: "other-pass"})
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestUpdateStatusRevokesTokensOnDeactivate(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryUserRepo()
	revoker := &recordingRevoker{}
	svc := NewService(repo, revoker)

	admin := User{ID: 100, Role: RoleAdmin, Active: true}
	target, err := svc.Register(ctx, RegisterInput{Username: "jonas", Password: "s3cret-pass"})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateStatus(ctx, admin, target.ID, false))
	require.Equal(t, []int64{target.ID}, revoker.revoked)

	got, err := svc.Get(ctx, target.ID)
	require.NoError(t, err)
	require.False(t, got.Active)

	// Reactivation revokes nothing.
	require.NoError(t, svc.UpdateStatus(ctx, admin, target.ID, true))
	require.Equal(t, []int64{target.ID}, revoker.revoked)

	require.ErrorIs(t, svc.UpdateStatus(ctx, got, target.ID, false), shared.ErrPermissionDenied)
}

func TestUpdateProfileScope(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryUserRepo()
	svc := NewService(repo, nil)

	admin := User{ID: 100, Role: RoleAdmin, Active: true}
	alice, err := svc.Register(ctx, RegisterInput{Username: "alice", Password: "s3cret-pass", FullName: "Alice A"})
	require.NoError(t, err)
	bob, err := svc.Register(ctx, RegisterInput{Username: "bob", Password: "s3cret-pass"})
	require.NoError(t, err)

	name := "Alice Ademi"
	got, err := svc.UpdateProfile(ctx, alice, 0, ProfileUpdate{FullName: &name})
	require.NoError(t, err)
	require.Equal(t, name, got.FullName)

	_, err = svc.UpdateProfile(ctx, bob, alice.ID, ProfileUpdate{FullName: &name})
	require.ErrorIs(t, err, shared.ErrPermissionDenied)

	gpa := 3.9
	got, err = svc.UpdateProfile(ctx, admin, alice.ID, ProfileUpdate{GPA: &gpa})
	require.NoError(t, err)
	require.Equal(t, gpa, got.GPA)
}
