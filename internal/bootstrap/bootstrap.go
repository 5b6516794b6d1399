// Package bootstrap builds the process-wide adapters exactly once.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"github.com/globalan/gan-forms-cloud-functions/internal/account"
	"github.com/globalan/gan-forms-cloud-functions/internal/config"
	"github.com/globalan/gan-forms-cloud-functions/internal/identity"
	"github.com/globalan/gan-forms-cloud-functions/pkg/auth"
	"github.com/globalan/gan-forms-cloud-functions/pkg/events"
)

// Adapters are the external collaborators shared by every operation.
type Adapters struct {
	Identities      identity.Provider
	Profiles        account.Repository
	Reconciliations account.ReconciliationStore
	// Subscriber delivers identity deletions; nil when events only arrive by push.
	Subscriber events.Subscriber
	// TokenVerifier is set when the Firebase Admin SDK is initialized.
	TokenVerifier auth.IDTokenVerifier

	closers []func() error
}

var (
	mu      sync.Mutex
	current *Adapters
)

// Init returns the process adapters, building them on first use. Later calls return
// the same value regardless of cfg.
func Init(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Adapters, error) {
	mu.Lock()
	defer mu.Unlock()

	if current != nil {
		return current, nil
	}

	a, err := build(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	current = a
	return a, nil
}

// Close releases every client held by the process adapters. A later Init builds anew.
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	if current == nil {
		return nil
	}
	var firstErr error
	for i := len(current.closers) - 1; i >= 0; i-- {
		if err := current.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	current = nil
	return firstErr
}

func build(ctx context.Context, cfg config.Config, logger *slog.Logger) (_ *Adapters, err error) {
	a := &Adapters{}
	defer func() {
		if err != nil {
			for i := len(a.closers) - 1; i >= 0; i-- {
				_ = a.closers[i]()
			}
		}
	}()

	var opts []option.ClientOption
	if cfg.Firebase.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Firebase.CredentialsFile))
	}

	ids := account.NewUUIDGenerator()
	clock := account.NewSystemClock()

	switch cfg.DataStore {
	case config.DataStoreFirestore:
		if cfg.Firestore.EmulatorHost != "" {
			if err := os.Setenv("FIRESTORE_EMULATOR_HOST", cfg.Firestore.EmulatorHost); err != nil {
				return nil, fmt.Errorf("set FIRESTORE_EMULATOR_HOST: %w", err)
			}
		}
		client, err := firestore.NewClient(ctx, cfg.GCPProjectID, opts...)
		if err != nil {
			return nil, fmt.Errorf("firestore client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		a.Profiles = account.NewFirestoreRepository(client, cfg.Firestore.UsersCollection)
		a.Reconciliations = account.NewFirestoreReconciliationStore(client, ids, clock)
	default:
		a.Profiles = account.NewMemoryRepository(clock)
		a.Reconciliations = account.NewMemoryReconciliationStore(ids, clock)
	}

	switch cfg.Identity {
	case config.IdentityFirebase:
		if cfg.Firebase.AuthEmulatorHost != "" {
			if err := os.Setenv("FIREBASE_AUTH_EMULATOR_HOST", cfg.Firebase.AuthEmulatorHost); err != nil {
				return nil, fmt.Errorf("set FIREBASE_AUTH_EMULATOR_HOST: %w", err)
			}
		}
		app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.GCPProjectID}, opts...)
		if err != nil {
			return nil, fmt.Errorf("firebase app: %w", err)
		}
		authClient, err := app.Auth(ctx)
		if err != nil {
			return nil, fmt.Errorf("firebase auth client: %w", err)
		}
		a.Identities = identity.NewFirebaseProvider(authClient)
		a.TokenVerifier = authClient

		if cfg.PubSub.Subscription != "" {
			client, err := pubsub.NewClient(ctx, cfg.GCPProjectID, opts...)
			if err != nil {
				return nil, fmt.Errorf("pubsub client: %w", err)
			}
			a.closers = append(a.closers, client.Close)
			a.Subscriber = events.NewPubSubSubscriber(client, cfg.PubSub.Subscription, logger)
		}
	default:
		// The in-memory provider reports deletions on an in-process stream.
		bus := events.NewMemoryBus(logger)
		a.Identities = identity.NewMemoryProvider(bus)
		a.Subscriber = bus
	}

	logger.Info("adapters initialized",
		slog.String("datastore", string(cfg.DataStore)),
		slog.String("identityProvider", string(cfg.Identity)),
		slog.Bool("pullSubscriber", cfg.PubSub.Subscription != ""))
	return a, nil
}
