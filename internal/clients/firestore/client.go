package firestore

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	cloudfirestore "cloud.google.com/go/firestore"
	"google.golang.org/api/option"

	"github.com/docuchat/docuchat-backend/internal/pkg/logger"
)

// New connects to the Firestore database holding document metadata and chat
// transcripts. Credentials come from FIREBASE_SERVICE_KEY_BASE64 when set,
// otherwise application default credentials apply.
func New(ctx context.Context, log *logger.Logger) (*cloudfirestore.Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	projectID := strings.TrimSpace(os.Getenv("FIRESTORE_PROJECT_ID"))
	if projectID == "" {
		return nil, fmt.Errorf("missing FIRESTORE_PROJECT_ID")
	}

	var opts []option.ClientOption
	if b64 := strings.TrimSpace(os.Getenv("FIREBASE_SERVICE_KEY_BASE64")); b64 != "" {
		key, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, fmt.Errorf("decode FIREBASE_SERVICE_KEY_BASE64: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(key))
	}

	databaseID := strings.TrimSpace(os.Getenv("FIRESTORE_DATABASE_ID"))
	if databaseID == "" {
		databaseID = cloudfirestore.DefaultDatabaseID
	}

	client, err := cloudfirestore.NewClientWithDatabase(ctx, projectID, databaseID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}

	log.Info("Firestore client initialized", "project_id", projectID, "database_id", databaseID)
	return client, nil
}
