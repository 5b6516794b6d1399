package account

import (
	"context"
	"fmt"
	"slices"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const reconciliationsCollection = "reconciliations"

type firestoreRepository struct {
	client     *firestore.Client
	collection string
}

// NewFirestoreRepository stores profiles in the given Firestore collection.
func NewFirestoreRepository(client *firestore.Client, collection string) Repository {
	return &firestoreRepository{client: client, collection: collection}
}

func (r *firestoreRepository) doc(id string) *firestore.DocumentRef {
	return r.client.Collection(r.collection).Doc(id)
}

func (r *firestoreRepository) CreateProfile(ctx context.Context, profile Profile) error {
	docRef := r.doc(profile.ID)

	roles := profile.Roles
	if roles == nil {
		roles = []string{}
	}

	return r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		data := map[string]interface{}{
			"name":     profile.Name,
			"lastName": profile.LastName,
			"email":    profile.Email,
			"roles":    roles,
		}
		if profile.Phone != "" {
			data["phone"] = profile.Phone
		}

		// createdAt is set once, by the server, when the record first appears.
		if _, err := tx.Get(docRef); status.Code(err) == codes.NotFound {
			data["createdAt"] = firestore.ServerTimestamp
		} else if err != nil {
			return err
		}

		return tx.Set(docRef, data, firestore.MergeAll)
	})
}

func (r *firestoreRepository) UpdateProfile(ctx context.Context, id string, patch ProfilePatch) error {
	fields := patch.Fields()
	if len(fields) == 0 {
		return nil
	}

	updates := make([]firestore.Update, 0, len(fields))
	for path, value := range fields {
		updates = append(updates, firestore.Update{Path: path, Value: value})
	}

	_, err := r.doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	return err
}

func (r *firestoreRepository) DeleteProfile(ctx context.Context, id string) error {
	// Firestore deletes of missing documents succeed.
	_, err := r.doc(id).Delete(ctx)
	return err
}

func (r *firestoreRepository) GetProfile(ctx context.Context, id string) (*Profile, error) {
	doc, err := r.doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	var profile Profile
	if err := doc.DataTo(&profile); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	profile.ID = doc.Ref.ID
	return &profile, nil
}

type firestoreReconciliationStore struct {
	client *firestore.Client
	ids    IDGenerator
	clock  Clock
}

// NewFirestoreReconciliationStore keeps reconciliation records in the "reconciliations" collection.
func NewFirestoreReconciliationStore(client *firestore.Client, ids IDGenerator, clock Clock) ReconciliationStore {
	return &firestoreReconciliationStore{client: client, ids: ids, clock: clock}
}

func (s *firestoreReconciliationStore) Record(ctx context.Context, rec Reconciliation) (string, error) {
	rec.ID = s.ids.NewID()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clock.Now().UTC()
	}
	rec.Resolved = false
	rec.ResolvedAt = nil

	if _, err := s.client.Collection(reconciliationsCollection).Doc(rec.ID).Create(ctx, rec); err != nil {
		return "", fmt.Errorf("create reconciliation record: %w", err)
	}
	return rec.ID, nil
}

func (s *firestoreReconciliationStore) ListPending(ctx context.Context) ([]Reconciliation, error) {
	iter := s.client.Collection(reconciliationsCollection).
		Where("resolved", "==", false).
		Documents(ctx)
	defer iter.Stop()

	var pending []Reconciliation
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}

		var rec Reconciliation
		if err := doc.DataTo(&rec); err != nil {
			return nil, fmt.Errorf("decode reconciliation %s: %w", doc.Ref.ID, err)
		}
		rec.ID = doc.Ref.ID
		pending = append(pending, rec)
	}

	sortByCreatedAt(pending)
	return pending, nil
}

func (s *firestoreReconciliationStore) MarkResolved(ctx context.Context, id string) error {
	now := s.clock.Now().UTC()
	_, err := s.client.Collection(reconciliationsCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "resolved", Value: true},
		{Path: "resolvedAt", Value: now},
	})
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %s", ErrReconciliationNotFound, id)
	}
	return err
}

func sortByCreatedAt(recs []Reconciliation) {
	slices.SortFunc(recs, func(a, b Reconciliation) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}
