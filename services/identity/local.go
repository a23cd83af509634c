package identitysvc

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"

	"github.com/homeworkhelper/api/core"
	"github.com/homeworkhelper/api/core/user"
)

// Local issues and verifies HS256 tokens signed with the app secret key.
type Local struct {
	issuer string
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

var _ user.TokenVerifier = (*Local)(nil) // interface compliance check

func NewLocal(conf *core.Config) *Local {
	return &Local{
		issuer: conf.AppName,
		secret: []byte(conf.Auth.SecretKey),
		ttl:    conf.Auth.TokenTTL,
		now:    time.Now,
	}
}

// IssueToken generates a signed token for usr, carrying its role as the admin claim.
func (l *Local) IssueToken(usr user.User) (string, error) {
	if usr.UID == "" {
		return "", errors.New("user has no uid")
	}
	now := l.now()
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    l.issuer,
			Subject:   usr.UID,
			ExpiresAt: now.Add(l.ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
		Email: usr.Email,
		Admin: usr.IsAdmin(),
	}

	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(l.secret)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (l *Local) Verify(_ context.Context, token string) (user.Identity, error) {
	claims := new(Claims)
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.Errorf("unexpected signing method %q", t.Header["alg"])
		}
		return l.secret, nil
	})
	if err != nil {
		return user.Identity{}, errors.WithMessage(user.ErrInvalidToken, err.Error())
	}
	if !claims.VerifyIssuer(l.issuer, true) || claims.Subject == "" {
		return user.Identity{}, user.ErrInvalidToken
	}
	return claims.identity(), nil
}
