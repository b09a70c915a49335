package identity

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier accepts Firebase ID tokens, including anonymous sign-ins.
type FirebaseVerifier struct {
	client  idTokenVerifier
	Timeout time.Duration
}

// NewFirebaseVerifier initializes the Admin SDK from a service account file,
// or from application default credentials when the path is empty.
func NewFirebaseVerifier(ctx context.Context, credentialsFile string) (*FirebaseVerifier, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase: %w", err)
	}
	authCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := app.Auth(authCtx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	log.Printf("identity: firebase verifier ready")
	return &FirebaseVerifier{client: client}, nil
}

func (f *FirebaseVerifier) Verify(ctx context.Context, idToken string) (Identity, error) {
	if idToken == "" {
		return Identity{}, errors.New("empty token provided")
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	verifyCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	token, err := f.client.VerifyIDToken(verifyCtx, idToken)
	if err != nil {
		return Identity{}, fmt.Errorf("verify firebase token: %w", err)
	}
	if token.UID == "" {
		return Identity{}, errors.New("firebase token missing uid")
	}
	id := Identity{
		UserID:    token.UID,
		Anonymous: token.Firebase.SignInProvider == "anonymous",
		Source:    "firebase",
	}
	if v, ok := token.Claims["email"].(string); ok {
		id.Email = v
	}
	if v, ok := token.Claims["name"].(string); ok {
		id.DisplayName = v
	}
	return id, nil
}
