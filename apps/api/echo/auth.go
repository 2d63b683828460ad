package echoapi

import (
	"context"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/skmethodistpj/laporan/core"
	"github.com/skmethodistpj/laporan/core/appstate"
	"github.com/skmethodistpj/laporan/core/user"
)

const (
	contextTokenKey = "userToken"
	tokenAudience   = "SKMPJ"
)

// Claims represents the authorization claims transmitted via a JWT.
// The token id (jti) is the appstate session id: a token is only honoured while its session lives.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Username     string   `json:"username,omitempty"`
	Name         string   `json:"name,omitempty"`
	IsAdmin      bool     `json:"is_admin,omitempty"` // -> ADMIN PORTAL
	Roles        []string `json:"roles,omitempty"`
}

func GetUserClaims(conf *core.Config, usr user.User, sessionID string, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        sessionID,
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     usr.Username,
		Name:         usr.DisplayName(),
		IsAdmin:      usr.IsAdmin(),
		Roles:        usr.Roles,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

type authenticator struct {
	conf   *core.Config
	app    *appstate.App
	usrSvc *user.Service
	jwt    middleware.JWTConfig
}

func newAuthenticator(conf *core.Config, app *appstate.App, usrSvc *user.Service) *authenticator {
	return &authenticator{
		conf:   conf,
		app:    app,
		usrSvc: usrSvc,
		jwt: middleware.JWTConfig{
			SigningKey:    []byte(conf.SecretKey),
			SigningMethod: middleware.AlgorithmHS256,
			ContextKey:    contextTokenKey,
			Claims:        new(Claims),
		},
	}
}

// middleware checks the JWT, then that its session is still live.
func (a *authenticator) middleware() echo.MiddlewareFunc {
	checkJWT := middleware.JWTWithConfig(a.jwt)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return checkJWT(func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if sess, ok := a.app.Session(claims.Id); !ok || sess.UserID != claims.Subject {
				return errSessionExpired
			}
			return next(ctx)
		})
	}
}

// optionalSession returns the live session of the request's bearer token, if any.
// Public routes use it to attach work to a logged in user without requiring one.
func (a *authenticator) optionalSession(ctx echo.Context) (appstate.Session, bool) {
	auth := ctx.Request().Header.Get(echo.HeaderAuthorization)
	const scheme = "Bearer "
	if len(auth) <= len(scheme) || auth[:len(scheme)] != scheme {
		return appstate.Session{}, false
	}
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(auth[len(scheme):], claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != a.jwt.SigningMethod {
			return nil, errors.Errorf("unexpected jwt signing method=%v", t.Header["alg"])
		}
		return a.jwt.SigningKey, nil
	})
	if err != nil || !token.Valid {
		return appstate.Session{}, false
	}
	sess, ok := a.app.Session(claims.Id)
	if !ok || sess.UserID != claims.Subject {
		return appstate.Session{}, false
	}
	return sess, true
}

// login authenticates the credentials and opens a session.
func (a *authenticator) login(ctx context.Context, creds user.LoginCredentials) (string, appstate.Session, error) {
	usr, err := a.usrSvc.Authenticate(ctx, creds)
	if err != nil {
		switch errors.Cause(err) {
		case user.ErrAuthFailure:
			return "", appstate.Session{}, errAuthenticationFailed
		case user.ErrInactive:
			return "", appstate.Session{}, errAccountDeactivated
		}
		return "", appstate.Session{}, errors.Wrap(err, "authenticating")
	}

	sess, err := a.app.Login(appstate.Session{
		ID:       uuid.NewString(),
		UserID:   usr.ID,
		Username: usr.Username,
		Name:     usr.DisplayName(),
		IsAdmin:  usr.IsAdmin(),
	})
	if err != nil {
		return "", appstate.Session{}, errors.Wrap(err, "opening session")
	}

	token, err := GenerateToken(a.conf, GetUserClaims(a.conf, usr, sess.ID))
	if err != nil {
		_ = a.app.Logout(sess.ID)
		return "", appstate.Session{}, err
	}
	return token, sess, nil
}

func (a *authenticator) refreshToken(ctx echo.Context) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	usr, err := a.usrSvc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return "", errUnauthorized
		}
		return "", errors.Wrap(err, "finding user by ID")
	}

	// check if user is still active
	if !usr.IsActive {
		_ = a.app.Logout(claims.Id)
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := GenerateToken(a.conf, GetUserClaims(a.conf, usr, claims.Id, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func contextHasAnyRole(ctx echo.Context, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return false
	}
	for _, role := range roles {
		for _, has := range claims.Roles {
			if role == has {
				return true
			}
		}
	}
	return false
}
