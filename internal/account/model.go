package account

import (
	"context"
	"time"
)

// CreateUserRequest is the createUser payload.
type CreateUserRequest struct {
	Name     string   `json:"name" validate:"required"`
	LastName string   `json:"lastName" validate:"required"`
	Email    string   `json:"email" validate:"required"`
	Password string   `json:"password" validate:"required"`
	Phone    string   `json:"phone,omitempty"`
	Roles    []string `json:"roles,omitempty"`
}

// UpdateUserRequest is the updateUser payload. Empty fields are treated as absent.
type UpdateUserRequest struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name,omitempty"`
	LastName string `json:"lastName,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Password string `json:"password,omitempty"`
}

// DeleteUserRequest is the deleteUser payload.
type DeleteUserRequest struct {
	UID string `json:"uid" validate:"required"`
}

// CreateInput is a validated, normalized create payload.
type CreateInput struct {
	Name     string
	LastName string
	Email    string
	Password string
	Phone    string
	Roles    []string
}

// UpdateInput is a validated update payload. Empty strings mean "not supplied".
type UpdateInput struct {
	ID       string
	Name     string
	LastName string
	Email    string
	Phone    string
	Password string
}

// Empty reports whether the update carries nothing to change.
func (in UpdateInput) Empty() bool {
	return in.Email == "" && in.Password == "" && in.Name == "" && in.LastName == "" && in.Phone == ""
}

// Profile is the record stored under the identity id.
type Profile struct {
	ID        string    `json:"id" firestore:"-"`
	Name      string    `json:"name" firestore:"name"`
	LastName  string    `json:"lastName" firestore:"lastName"`
	Email     string    `json:"email" firestore:"email"`
	Phone     string    `json:"phone,omitempty" firestore:"phone,omitempty"`
	Roles     []string  `json:"roles" firestore:"roles"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}

// ProfilePatch lists profile fields to overwrite. Empty fields are left untouched.
type ProfilePatch struct {
	Name     string
	LastName string
	Email    string
	Phone    string
}

// Fields returns the supplied fields keyed by their stored name.
func (p ProfilePatch) Fields() map[string]string {
	fields := make(map[string]string, 4)
	if p.Name != "" {
		fields["name"] = p.Name
	}
	if p.LastName != "" {
		fields["lastName"] = p.LastName
	}
	if p.Email != "" {
		fields["email"] = p.Email
	}
	if p.Phone != "" {
		fields["phone"] = p.Phone
	}
	return fields
}

// CreateResult is returned by a successful create.
type CreateResult struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// UpdateResult is returned by a successful update.
type UpdateResult struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// DeleteResult is returned by a successful delete.
type DeleteResult struct {
	Message string `json:"message"`
}

// Caller is the authenticated principal invoking an operation.
type Caller struct {
	UserID string
	Roles  []string
}

// Reconciliation records an identity that could not be rolled back after a failed create.
type Reconciliation struct {
	ID         string     `json:"id" firestore:"-"`
	IdentityID string     `json:"identityId" firestore:"identityId"`
	Email      string     `json:"email" firestore:"email"`
	Operation  string     `json:"operation" firestore:"operation"`
	Reason     string     `json:"reason" firestore:"reason"`
	CreatedAt  time.Time  `json:"createdAt" firestore:"createdAt"`
	Resolved   bool       `json:"resolved" firestore:"resolved"`
	ResolvedAt *time.Time `json:"resolvedAt,omitempty" firestore:"resolvedAt,omitempty"`
}

// Repository persists profile records keyed by identity id.
type Repository interface {
	// CreateProfile upserts the record; createdAt is assigned once by the store.
	CreateProfile(ctx context.Context, profile Profile) error
	// UpdateProfile writes only the supplied fields and fails with ErrProfileNotFound
	// when the record is missing.
	UpdateProfile(ctx context.Context, id string, patch ProfilePatch) error
	// DeleteProfile removes the record. Missing records are not an error.
	DeleteProfile(ctx context.Context, id string) error
	GetProfile(ctx context.Context, id string) (*Profile, error)
}

// ReconciliationStore keeps orphaned identities for out-of-band cleanup.
type ReconciliationStore interface {
	Record(ctx context.Context, rec Reconciliation) (string, error)
	ListPending(ctx context.Context) ([]Reconciliation, error)
	MarkResolved(ctx context.Context, id string) error
}

// Service is the account synchronization workflow.
type Service interface {
	Create(ctx context.Context, caller *Caller, req CreateUserRequest) (*CreateResult, error)
	Update(ctx context.Context, caller *Caller, req UpdateUserRequest) (*UpdateResult, error)
	Delete(ctx context.Context, caller *Caller, req DeleteUserRequest) (*DeleteResult, error)
}
