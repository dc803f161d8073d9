// README: Firebase Admin SDK initialisation; maps bearer tokens to actors.
package infra

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"

	"ryde/internal/types"
)

// TokenVerifier turns a raw ID token into an authenticated actor. The core
// modules never see credentials; this is the whole identity boundary.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (types.Actor, error)
}

type firebaseVerifier struct {
	client *auth.Client
}

// NewFirebaseVerifier creates a TokenVerifier backed by the Firebase Admin
// SDK. If credentialsFile is empty, application-default credentials are used.
func NewFirebaseVerifier(ctx context.Context, projectID, credentialsFile string) (TokenVerifier, error) {
	opts := []option.ClientOption{}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase app.Auth: %w", err)
	}
	return &firebaseVerifier{client: client}, nil
}

func (v *firebaseVerifier) VerifyIDToken(ctx context.Context, idToken string) (types.Actor, error) {
	token, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return types.Actor{}, err
	}
	actor := types.Actor{ID: types.ID(token.UID), Role: types.RoleRider}
	if role, ok := token.Claims["role"].(string); ok && role == string(types.RoleDriver) {
		actor.Role = types.RoleDriver
	}
	return actor, nil
}
