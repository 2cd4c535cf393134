// internal/platform/di/shared/infra.go
package shared

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/firestore"
	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	firebaseauth "firebase.google.com/go/v4/auth"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	appcfg "storefront/internal/infra/config"
	"storefront/internal/infra/database"
	firestoreinfra "storefront/internal/infra/firestore"
	"storefront/internal/infra/secret"
)

// Infra is shared runtime infrastructure for DI.
// - owns external clients (Firestore/GCS/SQL/FirebaseAuth/SecretManager)
// - clients are created only for the configured backends
//
// IMPORTANT:
// Infra must NOT depend on routers, handlers, or usecases.
type Infra struct {
	Config    *appcfg.Config
	ProjectID string
	Logger    *zap.Logger

	// Clients (owned; Close-managed)
	Firestore     *firestore.Client
	GCS           *storage.Client
	DB            *database.DB
	FirebaseApp   *firebase.App
	FirebaseAuth  *firebaseauth.Client
	SecretManager *secretmanager.Client
	Secrets       *secret.Accessor
}

// NewInfra initializes shared infra.
// Storage clients of the configured backends are strict (return error).
// Firebase/Auth and SecretManager are best-effort (warn + continue).
func NewInfra(ctx context.Context, cfg *appcfg.Config, logger *zap.Logger) (*Infra, error) {
	if cfg == nil {
		return nil, errors.New("shared.infra: config is nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("shared.infra")

	inf := &Infra{
		Config:    cfg,
		ProjectID: resolveProjectID(cfg),
		Logger:    logger,
	}

	// Credentials file (optional; mainly for local dev)
	credFile := strings.TrimSpace(cfg.FirestoreCredentialsFile)
	if credFile == "" {
		credFile = strings.TrimSpace(cfg.GCPCreds) // GOOGLE_APPLICATION_CREDENTIALS
	}
	var clientOpts []option.ClientOption
	if credFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(credFile))
		log.Info("using credentials file for GCP clients", zap.String("file", redactPath(credFile)))
	} else {
		log.Info("using Application Default Credentials")
	}

	// 1) Firestore (strict when a store lives there)
	if cfg.UsesFirestore() {
		if inf.ProjectID == "" {
			return nil, errors.New("shared.infra: projectID is empty (set FIRESTORE_PROJECT_ID or GCP_PROJECT_ID)")
		}
		cw, err := firestoreinfra.NewClient(ctx, inf.ProjectID, credFile, logger)
		if err != nil {
			return nil, fmt.Errorf("shared.infra: firestore (project=%s): %w", inf.ProjectID, err)
		}
		inf.Firestore = cw.Client
	}

	// 2) GCS (strict when snapshots live there)
	if cfg.SnapshotBackend == appcfg.BackendGCS {
		gcsClient, err := storage.NewClient(ctx, clientOpts...)
		if err != nil {
			_ = inf.Close()
			return nil, fmt.Errorf("shared.infra: storage.NewClient failed: %w", err)
		}
		inf.GCS = gcsClient
		log.Info("GCS storage client initialized", zap.String("bucket", cfg.SnapshotBucket))
	}

	// 3) SQL (strict when a store lives there)
	if cfg.UsesSQL() {
		db, err := database.NewConnection(ctx, cfg.DBDriver, cfg.DatabaseURL, logger)
		if err != nil {
			_ = inf.Close()
			return nil, fmt.Errorf("shared.infra: %w", err)
		}
		inf.DB = db
	}

	// 4) Firebase App/Auth (best-effort; without it every request is a guest)
	if fbProject := firstNonEmpty(cfg.FirebaseProjectID, inf.ProjectID); fbProject != "" {
		fbApp, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: fbProject}, clientOpts...)
		if err != nil {
			log.Warn("firebase app init failed", zap.Error(err))
		} else {
			inf.FirebaseApp = fbApp
			authClient, err := fbApp.Auth(ctx)
			if err != nil {
				log.Warn("firebase auth init failed", zap.Error(err))
			} else {
				inf.FirebaseAuth = authClient
				log.Info("Firebase Auth initialized", zap.String("project", fbProject))
			}
		}
	} else {
		log.Warn("FIREBASE_PROJECT_ID is empty; bearer tokens will be rejected")
	}

	// 5) Secret Manager (best-effort; only when a secret is referenced)
	if strings.TrimSpace(cfg.SendGridAPIKeySecret) != "" {
		sm, err := secretmanager.NewClient(ctx, clientOpts...)
		if err != nil {
			log.Warn("secretmanager.NewClient failed (secret-backed settings disabled)", zap.Error(err))
		} else {
			inf.SecretManager = sm
		}
	}
	inf.Secrets = secret.NewAccessor(inf.SecretManager, inf.ProjectID)

	return inf, nil
}

func (i *Infra) Close() error {
	if i == nil {
		return nil
	}
	var errs []error
	if i.Firestore != nil {
		errs = append(errs, i.Firestore.Close())
	}
	if i.GCS != nil {
		errs = append(errs, i.GCS.Close())
	}
	if i.DB != nil {
		errs = append(errs, i.DB.Close())
	}
	if i.SecretManager != nil {
		errs = append(errs, i.SecretManager.Close())
	}
	return errors.Join(errs...)
}

func resolveProjectID(cfg *appcfg.Config) string {
	// Priority:
	// 1) cfg.FirestoreProjectID (resolved by config.Load)
	// 2) GOOGLE_CLOUD_PROJECT (often set in Cloud Run)
	// 3) cfg.FirebaseProjectID (fallback)
	if cfg != nil {
		if v := strings.TrimSpace(cfg.FirestoreProjectID); v != "" {
			return v
		}
	}
	if v := strings.TrimSpace(os.Getenv("GOOGLE_CLOUD_PROJECT")); v != "" {
		return v
	}
	if cfg != nil {
		return strings.TrimSpace(cfg.FirebaseProjectID)
	}
	return ""
}

func firstNonEmpty(vs ...string) string {
	for _, v := range vs {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func redactPath(p string) string {
	// Do not log full path (Windows/Unix compatible light masking)
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	// Keep only the last segment
	p = strings.ReplaceAll(p, "\\", "/")
	parts := strings.Split(p, "/")
	last := parts[len(parts)-1]
	if last == "" {
		return "***"
	}
	return "***" + "/" + last
}
