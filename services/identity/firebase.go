package identitysvc

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/homeworkhelper/api/core"
	"github.com/homeworkhelper/api/core/user"
)

// idTokenVerifier is the part of *auth.Client that checks ID tokens.
type idTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

var _ idTokenVerifier = (*auth.Client)(nil) // interface compliance check

// Firebase verifies Firebase ID tokens with the Firebase Admin SDK, which
// fetches and caches Google's signing certificates.
type Firebase struct {
	client idTokenVerifier
}

var _ user.TokenVerifier = (*Firebase)(nil) // interface compliance check

// NewFirebase sets up the Admin SDK for the configured project. Credentials come
// from auth.firebaseCredentialsFile, or Google's application default credentials.
func NewFirebase(ctx context.Context, conf core.AuthConfig) (*Firebase, error) {
	var opts []option.ClientOption
	if conf.FirebaseCredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(conf.FirebaseCredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: conf.FirebaseProjectID}, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "initializing firebase app")
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "initializing firebase auth")
	}
	return &Firebase{client: client}, nil
}

func (f *Firebase) Verify(ctx context.Context, token string) (user.Identity, error) {
	tok, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return user.Identity{}, errors.WithMessage(user.ErrInvalidToken, err.Error())
	}

	email, _ := tok.Claims["email"].(string)
	admin, _ := tok.Claims["admin"].(bool) // custom claim set by the admin tooling
	return user.Identity{
		UID:   tok.UID,
		Email: core.CleanString(email, true /* lower */),
		Admin: admin,
	}, nil
}

// rejectAll is served when the identity provider could not be set up: every
// caller is a guest and admin routes stay closed.
type rejectAll struct {
	cause error
}

func (r rejectAll) Verify(context.Context, string) (user.Identity, error) {
	return user.Identity{}, errors.WithMessage(user.ErrInvalidToken, r.cause.Error())
}
