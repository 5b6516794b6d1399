package config

import (
	"fmt"
	"strings"

	sharedauth "github.com/globalan/gan-forms-cloud-functions/pkg/auth"
	"github.com/globalan/gan-forms-cloud-functions/pkg/envconfig"
)

// Config encapsulates the runtime configuration for the account service.
type Config struct {
	Port         string `validate:"required"`
	GCPProjectID string
	DataStore    DataStore        `validate:"required,oneof=memory firestore"`
	Identity     IdentityProvider `validate:"required,oneof=memory firebase"`
	Auth         AuthConfig
	Firestore    FirestoreConfig
	Firebase     FirebaseConfig
	PubSub       PubSubConfig
}

// DataStore enumerates supported persistence backends for profile records.
type DataStore string

const (
	// DataStoreMemory keeps profiles in-memory (useful for local development/testing).
	DataStoreMemory DataStore = "memory"
	// DataStoreFirestore stores profiles in Google Cloud Firestore.
	DataStoreFirestore DataStore = "firestore"
)

// IdentityProvider enumerates supported identity backends.
type IdentityProvider string

const (
	IdentityMemory   IdentityProvider = "memory"
	IdentityFirebase IdentityProvider = "firebase"
)

// AuthConfig stores authentication middleware setup.
type AuthConfig struct {
	Mode     sharedauth.Mode `validate:"required,oneof=firebase clerk noop"`
	JWKSURL  string
	Audience string
	Issuer   string
	// RequiredRole, when set, must be present in the caller's roles for account operations.
	RequiredRole string
}

// FirestoreConfig tailors Firestore client behavior.
type FirestoreConfig struct {
	EmulatorHost    string
	UsersCollection string `validate:"required"`
}

// FirebaseConfig configures the Firebase Admin SDK.
type FirebaseConfig struct {
	CredentialsFile  string
	AuthEmulatorHost string
}

// PubSubConfig enables the pull subscriber and the push endpoint for identity deletion events.
type PubSubConfig struct {
	Subscription string
	// PushAudience is the OIDC audience push deliveries are signed for. Empty disables
	// the push endpoint.
	PushAudience string
	// PushServiceAccount optionally pins the service account allowed to push.
	PushServiceAccount string
}

// Load reads environment variables (and an optional .env file) into Config with validation.
func Load() (Config, error) {
	if err := envconfig.LoadDotEnv(); err != nil {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Config{
		Port:         envconfig.Get("PORT", "8080"),
		GCPProjectID: envconfig.Get("GCP_PROJECT_ID", envconfig.Get("GOOGLE_CLOUD_PROJECT", "")),
		DataStore:    DataStore(strings.ToLower(envconfig.Get("DATASTORE", string(DataStoreMemory)))),
		Identity:     IdentityProvider(strings.ToLower(envconfig.Get("IDENTITY_PROVIDER", string(IdentityMemory)))),
		Auth: AuthConfig{
			Mode:         sharedauth.Mode(strings.ToLower(envconfig.Get("AUTH_MODE", string(sharedauth.ModeNoop)))),
			JWKSURL:      envconfig.Get("CLERK_JWKS_URL", ""),
			Audience:     envconfig.Get("CLERK_AUDIENCE", ""),
			Issuer:       envconfig.Get("CLERK_ISSUER", ""),
			RequiredRole: strings.TrimSpace(envconfig.Get("AUTH_REQUIRED_ROLE", "")),
		},
		Firestore: FirestoreConfig{
			EmulatorHost:    envconfig.Get("FIRESTORE_EMULATOR_HOST", ""),
			UsersCollection: envconfig.Get("USERS_COLLECTION", "users"),
		},
		Firebase: FirebaseConfig{
			CredentialsFile:  envconfig.Get("GOOGLE_APPLICATION_CREDENTIALS", ""),
			AuthEmulatorHost: envconfig.Get("FIREBASE_AUTH_EMULATOR_HOST", ""),
		},
		PubSub: PubSubConfig{
			Subscription:       envconfig.Get("PUBSUB_SUBSCRIPTION", ""),
			PushAudience:       strings.TrimSpace(envconfig.Get("PUSH_AUDIENCE", "")),
			PushServiceAccount: strings.TrimSpace(envconfig.Get("PUSH_SERVICE_ACCOUNT", "")),
		},
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validate(cfg Config) error {
	if err := envconfig.Validate(cfg); err != nil {
		return err
	}

	needsProject := cfg.DataStore == DataStoreFirestore ||
		cfg.Identity == IdentityFirebase ||
		cfg.PubSub.Subscription != ""
	if needsProject && cfg.GCPProjectID == "" {
		return fmt.Errorf("GCP_PROJECT_ID is required when using Firestore, Firebase or Pub/Sub")
	}

	if cfg.PubSub.PushServiceAccount != "" && cfg.PubSub.PushAudience == "" {
		return fmt.Errorf("PUSH_SERVICE_ACCOUNT requires PUSH_AUDIENCE")
	}

	switch cfg.Auth.Mode {
	case sharedauth.ModeClerk:
		if cfg.Auth.JWKSURL == "" {
			return fmt.Errorf("CLERK_JWKS_URL is required when AUTH_MODE=clerk")
		}
	case sharedauth.ModeFirebase:
		if cfg.Identity != IdentityFirebase {
			return fmt.Errorf("AUTH_MODE=firebase requires IDENTITY_PROVIDER=firebase")
		}
	}

	return nil
}
