package firebase

import (
	"context"
	"fmt"
	"path/filepath"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"arc_community_backend/internal/config"
)

// PushMessage is one notification delivered to every device of a user.
type PushMessage struct {
	Title string
	Body  string
	Data  map[string]string
}

// PushService sends FCM pushes through the Firebase Admin SDK.
type PushService struct {
	client *messaging.Client
	logger *zap.Logger
}

// NewPushService initializes the Admin SDK from the configured service account.
// It returns (nil, nil) when no key path is configured: push is optional.
func NewPushService(cfg *config.Config, logger *zap.Logger) (*PushService, error) {
	logger = logger.Named("PushService")
	if cfg.FirebaseServiceAccountKeyPath == "" {
		logger.Info("Firebase service account key path is not configured; push notifications disabled.")
		return nil, nil
	}

	cleanPath := filepath.Clean(cfg.FirebaseServiceAccountKeyPath)
	opt := option.WithCredentialsFile(cleanPath)

	var conf *firebase.Config
	if cfg.FirebaseProjectID != "" {
		conf = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}
	app, err := firebase.NewApp(context.Background(), conf, opt)
	if err != nil {
		logger.Error("Failed to initialize Firebase Admin SDK app", zap.Error(err), zap.String("keyPath", cleanPath))
		return nil, fmt.Errorf("error initializing Firebase app: %w", err)
	}

	client, err := app.Messaging(context.Background())
	if err != nil {
		logger.Error("Failed to get Firebase Messaging client", zap.Error(err))
		return nil, fmt.Errorf("error getting Firebase Messaging client: %w", err)
	}

	logger.Info("Firebase Admin SDK initialized successfully.")
	return &PushService{client: client, logger: logger}, nil
}

// Send delivers msg to the given device tokens and returns the tokens FCM
// reported as no longer registered.
func (s *PushService) Send(ctx context.Context, tokens []string, msg PushMessage) ([]string, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	resp, err := s.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to send push: %w", err)
	}

	var stale []string
	for i, r := range resp.Responses {
		if r.Success {
			continue
		}
		if messaging.IsUnregistered(r.Error) {
			stale = append(stale, tokens[i])
			continue
		}
		s.logger.Warn("Push delivery failed", zap.Error(r.Error))
	}
	s.logger.Debug("Push sent", zap.Int("success", resp.SuccessCount), zap.Int("failure", resp.FailureCount))
	return stale, nil
}
