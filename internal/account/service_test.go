package account

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/globalan/gan-forms-cloud-functions/internal/identity"
)

type fakeProvider struct {
	createFn         func(context.Context, string, string) (identity.Identity, error)
	updateEmailFn    func(context.Context, string, string) error
	updatePasswordFn func(context.Context, string, string) error
	deleteFn         func(context.Context, string) error

	mu    sync.Mutex
	calls []string
}

func (f *fakeProvider) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeProvider) Create(ctx context.Context, email, password string) (identity.Identity, error) {
	f.record("create")
	if f.createFn != nil {
		return f.createFn(ctx, email, password)
	}
	return identity.Identity{}, errors.New("createFn not provided")
}

func (f *fakeProvider) UpdateEmail(ctx context.Context, id, email string) error {
	f.record("updateEmail")
	if f.updateEmailFn != nil {
		return f.updateEmailFn(ctx, id, email)
	}
	return nil
}

func (f *fakeProvider) UpdatePassword(ctx context.Context, id, password string) error {
	f.record("updatePassword")
	if f.updatePasswordFn != nil {
		return f.updatePasswordFn(ctx, id, password)
	}
	return nil
}

func (f *fakeProvider) Delete(ctx context.Context, id string) error {
	f.record("delete")
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

type fakeRepo struct {
	createProfileFn func(context.Context, Profile) error
	updateProfileFn func(context.Context, string, ProfilePatch) error
	deleteProfileFn func(context.Context, string) error

	calls []string
}

func (f *fakeRepo) CreateProfile(ctx context.Context, profile Profile) error {
	f.calls = append(f.calls, "createProfile")
	if f.createProfileFn != nil {
		return f.createProfileFn(ctx, profile)
	}
	return nil
}

func (f *fakeRepo) UpdateProfile(ctx context.Context, id string, patch ProfilePatch) error {
	f.calls = append(f.calls, "updateProfile")
	if f.updateProfileFn != nil {
		return f.updateProfileFn(ctx, id, patch)
	}
	return nil
}

func (f *fakeRepo) DeleteProfile(ctx context.Context, id string) error {
	f.calls = append(f.calls, "deleteProfile")
	if f.deleteProfileFn != nil {
		return f.deleteProfileFn(ctx, id)
	}
	return nil
}

func (f *fakeRepo) GetProfile(context.Context, string) (*Profile, error) {
	return nil, ErrProfileNotFound
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type sequenceIDs struct{ n int }

func (s *sequenceIDs) NewID() string {
	s.n++
	return "rec-" + string(rune('0'+s.n))
}

var admin = &Caller{UserID: "admin-1", Roles: []string{"admin"}}

func validCreate() CreateUserRequest {
	return CreateUserRequest{Name: "Ada", LastName: "Lovelace", Email: "ada@example.com", Password: "s3cret!"}
}

func newTestService(t *testing.T, provider identity.Provider, repo Repository, opts Options) (Service, ReconciliationStore) {
	t.Helper()
	store := NewMemoryReconciliationStore(&sequenceIDs{}, fixedClock{t: time.Unix(1700000000, 0)})
	svc, err := NewService(provider, repo, store, opts)
	require.NoError(t, err)
	return svc, store
}

func TestCreate_MissingFieldFailsBeforeAnyAdapterCall(t *testing.T) {
	cases := map[string]func(*CreateUserRequest){
		"name":     func(r *CreateUserRequest) { r.Name = "" },
		"lastName": func(r *CreateUserRequest) { r.LastName = "   " },
		"email":    func(r *CreateUserRequest) { r.Email = "" },
		"password": func(r *CreateUserRequest) { r.Password = "" },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			provider := &fakeProvider{}
			repo := &fakeRepo{}
			svc, _ := newTestService(t, provider, repo, Options{})

			req := validCreate()
			mutate(&req)
			_, err := svc.Create(context.Background(), admin, req)

			require.Error(t, err)
			assert.Equal(t, KindInvalidArgument, KindOf(err))
			assert.Equal(t, field, FieldOf(err))
			assert.Empty(t, provider.calls)
			assert.Empty(t, repo.calls)
		})
	}
}

func TestCreate_UnauthenticatedCallerIsDenied(t *testing.T) {
	provider := &fakeProvider{}
	repo := &fakeRepo{}
	svc, _ := newTestService(t, provider, repo, Options{})

	for _, caller := range []*Caller{nil, {}} {
		_, err := svc.Create(context.Background(), caller, validCreate())
		require.Error(t, err)
		assert.Equal(t, KindPermissionDenied, KindOf(err))
	}
	assert.Empty(t, provider.calls)
	assert.Empty(t, repo.calls)
}

func TestCreate_RequiredRoleIsEnforced(t *testing.T) {
	provider := &fakeProvider{createFn: func(context.Context, string, string) (identity.Identity, error) {
		return identity.Identity{ID: "uid-1"}, nil
	}}
	svc, _ := newTestService(t, provider, &fakeRepo{}, Options{RequiredRole: "admin"})

	_, err := svc.Create(context.Background(), &Caller{UserID: "viewer", Roles: []string{"viewer"}}, validCreate())
	assert.Equal(t, KindPermissionDenied, KindOf(err))
	assert.Empty(t, provider.calls)

	res, err := svc.Create(context.Background(), admin, validCreate())
	require.NoError(t, err)
	assert.Equal(t, "uid-1", res.ID)
}

func TestCreate_TrimsEmailAndDefaultsRoles(t *testing.T) {
	var gotEmail string
	var written Profile
	provider := &fakeProvider{createFn: func(_ context.Context, email, _ string) (identity.Identity, error) {
		gotEmail = email
		return identity.Identity{ID: "uid-42", Email: email}, nil
	}}
	repo := &fakeRepo{createProfileFn: func(_ context.Context, p Profile) error {
		written = p
		return nil
	}}
	svc, _ := newTestService(t, provider, repo, Options{})

	req := validCreate()
	req.Email = "  a@b.com "
	res, err := svc.Create(context.Background(), admin, req)
	require.NoError(t, err)

	assert.Equal(t, "uid-42", res.ID)
	assert.Equal(t, "User created successfully", res.Message)
	assert.Equal(t, "a@b.com", gotEmail)
	assert.Equal(t, "uid-42", written.ID)
	assert.Equal(t, "a@b.com", written.Email)
	assert.Equal(t, "Ada", written.Name)
	assert.Equal(t, "Lovelace", written.LastName)
	assert.NotNil(t, written.Roles)
	assert.Empty(t, written.Roles)
	assert.Equal(t, []string{"create"}, provider.calls)
}

func TestCreate_IdentityFailureSkipsProfileWrite(t *testing.T) {
	provider := &fakeProvider{createFn: func(context.Context, string, string) (identity.Identity, error) {
		return identity.Identity{}, identity.ErrEmailExists
	}}
	repo := &fakeRepo{}
	svc, _ := newTestService(t, provider, repo, Options{})

	_, err := svc.Create(context.Background(), admin, validCreate())
	require.Error(t, err)
	assert.Equal(t, KindInternal, KindOf(err))
	assert.ErrorIs(t, err, identity.ErrEmailExists)
	assert.Empty(t, repo.calls)
}

func TestCreate_ProfileFailureRollsBackIdentity(t *testing.T) {
	var deleted string
	provider := &fakeProvider{
		createFn: func(context.Context, string, string) (identity.Identity, error) {
			return identity.Identity{ID: "uid-7", Email: "ada@example.com"}, nil
		},
		deleteFn: func(_ context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	repo := &fakeRepo{createProfileFn: func(context.Context, Profile) error { return errors.New("firestore down") }}
	svc, store := newTestService(t, provider, repo, Options{})

	_, err := svc.Create(context.Background(), admin, validCreate())
	require.Error(t, err)
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "uid-7", deleted)
	assert.Equal(t, []string{"create", "delete"}, provider.calls)

	pending, err := store.ListPending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestCreate_FailedRollbackWritesReconciliationRecord(t *testing.T) {
	provider := &fakeProvider{
		createFn: func(context.Context, string, string) (identity.Identity, error) {
			return identity.Identity{ID: "uid-8", Email: "ada@example.com"}, nil
		},
		deleteFn: func(context.Context, string) error { return errors.New("auth unavailable") },
	}
	repo := &fakeRepo{createProfileFn: func(context.Context, Profile) error { return errors.New("firestore down") }}
	svc, store := newTestService(t, provider, repo, Options{})

	_, err := svc.Create(context.Background(), admin, validCreate())
	require.Error(t, err)
	assert.Equal(t, KindInternal, KindOf(err))

	pending, err := store.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "uid-8", pending[0].IdentityID)
	assert.Equal(t, "createUser", pending[0].Operation)
	assert.Contains(t, pending[0].Reason, "firestore down")
	assert.Contains(t, pending[0].Reason, "auth unavailable")
}

func TestCreate_CallerCancellationDoesNotAbortAdapters(t *testing.T) {
	provider := &fakeProvider{createFn: func(ctx context.Context, _, _ string) (identity.Identity, error) {
		if err := ctx.Err(); err != nil {
			return identity.Identity{}, err
		}
		return identity.Identity{ID: "uid-9"}, nil
	}}
	svc, _ := newTestService(t, provider, &fakeRepo{}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := svc.Create(ctx, admin, validCreate())
	require.NoError(t, err)
	assert.Equal(t, "uid-9", res.ID)
}

func TestUpdate_OnlyIDIsANoOp(t *testing.T) {
	provider := &fakeProvider{}
	repo := &fakeRepo{}
	svc, _ := newTestService(t, provider, repo, Options{})

	res, err := svc.Update(context.Background(), admin, UpdateUserRequest{ID: "uid-1", Name: "  "})
	require.NoError(t, err)
	assert.Equal(t, "uid-1", res.ID)
	assert.Equal(t, "User updated successfully", res.Message)
	assert.Empty(t, provider.calls)
	assert.Empty(t, repo.calls)
}

func TestUpdate_MissingIDIsInvalid(t *testing.T) {
	svc, _ := newTestService(t, &fakeProvider{}, &fakeRepo{}, Options{})

	_, err := svc.Update(context.Background(), admin, UpdateUserRequest{Phone: "555"})
	assert.Equal(t, KindInvalidArgument, KindOf(err))
	assert.Equal(t, "id", FieldOf(err))
}

func TestUpdate_PhoneOnlyTouchesProfileOnly(t *testing.T) {
	var patches []ProfilePatch
	provider := &fakeProvider{}
	repo := &fakeRepo{updateProfileFn: func(_ context.Context, _ string, p ProfilePatch) error {
		patches = append(patches, p)
		return nil
	}}
	svc, _ := newTestService(t, provider, repo, Options{})

	_, err := svc.Update(context.Background(), admin, UpdateUserRequest{ID: "uid-1", Phone: "555"})
	require.NoError(t, err)
	assert.Empty(t, provider.calls)
	require.Len(t, patches, 1)
	assert.Equal(t, map[string]string{"phone": "555"}, patches[0].Fields())
}

func TestUpdate_EmailPasswordAndFieldsRunInOrder(t *testing.T) {
	var patches []ProfilePatch
	provider := &fakeProvider{}
	repo := &fakeRepo{updateProfileFn: func(_ context.Context, _ string, p ProfilePatch) error {
		patches = append(patches, p)
		return nil
	}}
	svc, _ := newTestService(t, provider, repo, Options{})

	_, err := svc.Update(context.Background(), admin, UpdateUserRequest{
		ID: "uid-1", Email: " new@b.com ", Password: "rotated", Name: "Grace",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"updateEmail", "updatePassword"}, provider.calls)
	require.Len(t, patches, 2)
	assert.Equal(t, map[string]string{"email": "new@b.com"}, patches[0].Fields())
	assert.Equal(t, map[string]string{"email": "new@b.com", "name": "Grace"}, patches[1].Fields())
}

func TestUpdate_PasswordNeverReachesProfile(t *testing.T) {
	provider := &fakeProvider{}
	repo := &fakeRepo{}
	svc, _ := newTestService(t, provider, repo, Options{})

	_, err := svc.Update(context.Background(), admin, UpdateUserRequest{ID: "uid-1", Password: "rotated"})
	require.NoError(t, err)
	assert.Equal(t, []string{"updatePassword"}, provider.calls)
	assert.Empty(t, repo.calls)
}

func TestUpdate_ProfileFailureAfterIdentityUpdateIsInternal(t *testing.T) {
	provider := &fakeProvider{}
	repo := &fakeRepo{updateProfileFn: func(context.Context, string, ProfilePatch) error {
		return ErrProfileNotFound
	}}
	svc, _ := newTestService(t, provider, repo, Options{})

	_, err := svc.Update(context.Background(), admin, UpdateUserRequest{ID: "uid-1", Email: "x@b.com", Password: "p"})
	require.Error(t, err)
	assert.Equal(t, KindInternal, KindOf(err))
	assert.ErrorIs(t, err, ErrProfileNotFound)
	// The password step never runs once the email step failed.
	assert.Equal(t, []string{"updateEmail"}, provider.calls)
}

func TestDelete_OnlyDeletesIdentity(t *testing.T) {
	var deleted []string
	provider := &fakeProvider{deleteFn: func(_ context.Context, id string) error {
		deleted = append(deleted, id)
		return nil
	}}
	repo := &fakeRepo{}
	svc, _ := newTestService(t, provider, repo, Options{})

	res, err := svc.Delete(context.Background(), admin, DeleteUserRequest{UID: "uid-3"})
	require.NoError(t, err)
	assert.Equal(t, "User deleted successfully", res.Message)
	assert.Equal(t, []string{"uid-3"}, deleted)
	assert.Empty(t, repo.calls)
}

func TestDelete_ValidationAndAdapterFailures(t *testing.T) {
	provider := &fakeProvider{deleteFn: func(context.Context, string) error { return identity.ErrNotFound }}
	svc, _ := newTestService(t, provider, &fakeRepo{}, Options{})

	_, err := svc.Delete(context.Background(), admin, DeleteUserRequest{})
	assert.Equal(t, KindInvalidArgument, KindOf(err))
	assert.Equal(t, "uid", FieldOf(err))
	assert.Empty(t, provider.calls)

	_, err = svc.Delete(context.Background(), nil, DeleteUserRequest{UID: "uid-3"})
	assert.Equal(t, KindPermissionDenied, KindOf(err))

	_, err = svc.Delete(context.Background(), admin, DeleteUserRequest{UID: "uid-3"})
	assert.Equal(t, KindInternal, KindOf(err))
	assert.ErrorIs(t, err, identity.ErrNotFound)
}

func TestCreate_ConcurrentSameEmailExactlyOneWins(t *testing.T) {
	provider := identity.NewMemoryProvider(nil)
	repo := NewMemoryRepository(nil)
	svc, _ := newTestService(t, provider, repo, Options{})

	const callers = 8
	results := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(context.Background(), admin, validCreate())
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, KindInternal, KindOf(err))
		assert.ErrorIs(t, err, identity.ErrEmailExists)
	}
	assert.Equal(t, 1, succeeded)
}

func TestDelete_LostDeletionEventIsStillSuccess(t *testing.T) {
	provider := &fakeProvider{deleteFn: func(context.Context, string) error {
		return fmt.Errorf("%w: uid-3: %w", identity.ErrDeletionNotPublished, context.DeadlineExceeded)
	}}
	svc, _ := newTestService(t, provider, &fakeRepo{}, Options{})

	res, err := svc.Delete(context.Background(), admin, DeleteUserRequest{UID: "uid-3"})
	require.NoError(t, err)
	assert.Equal(t, "User deleted successfully", res.Message)
}

func TestCreate_RollbackWithLostDeletionEventWritesNoRecord(t *testing.T) {
	provider := &fakeProvider{
		createFn: func(context.Context, string, string) (identity.Identity, error) {
			return identity.Identity{ID: "uid-10", Email: "ada@example.com"}, nil
		},
		deleteFn: func(context.Context, string) error {
			return fmt.Errorf("%w: uid-10: %w", identity.ErrDeletionNotPublished, context.DeadlineExceeded)
		},
	}
	repo := &fakeRepo{createProfileFn: func(context.Context, Profile) error { return errors.New("firestore down") }}
	svc, store := newTestService(t, provider, repo, Options{})

	_, err := svc.Create(context.Background(), admin, validCreate())
	assert.Equal(t, KindInternal, KindOf(err))

	pending, err := store.ListPending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
}
