package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"captioner/internal/captions"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const (
	SessionName = "caption_session"

	userField  = "google_id"
	stateField = "oauth_state"
)

type (
	// IdentityResolver maps a request to the caller's identity. ok is false
	// for anonymous callers.
	IdentityResolver interface {
		Identity(c *gin.Context) (who captions.Identity, ok bool)
	}

	UserStore interface {
		UpsertUser(ctx context.Context, user *User) error
		UserByGoogleID(ctx context.Context, googleID string) (*User, error)
	}
)

// Anonymous resolves every request to the anonymous identity.
type Anonymous struct{}

func (Anonymous) Identity(*gin.Context) (captions.Identity, bool) {
	return "", false
}

// GoogleAuth signs users in with Google and keeps the Google subject id in the
// session cookie.
type GoogleAuth struct {
	oauth        *oauth2.Config
	users        UserStore
	clientOrigin string
	apiOptions   []option.ClientOption
}

func NewGoogleAuth(cfg AuthConfig, clientOrigin string, users UserStore, apiOptions ...option.ClientOption) *GoogleAuth {
	return &GoogleAuth{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{oauth2api.UserinfoProfileScope, oauth2api.UserinfoEmailScope},
		},
		users:        users,
		clientOrigin: clientOrigin,
		apiOptions:   apiOptions,
	}
}

func (g *GoogleAuth) Identity(c *gin.Context) (captions.Identity, bool) {
	session := sessions.Default(c)
	googleID, ok := session.Get(userField).(string)
	if !ok || googleID == "" {
		return "", false
	}
	return captions.Identity(googleID), true
}

func (g *GoogleAuth) RequireUser(c *gin.Context) {
	if _, ok := g.Identity(c); !ok {
		AbortWithCaptionError(c, &captions.Error{Kind: captions.KindUnauthenticated, Stage: "session"})
		return
	}
	c.Next()
}

func (g *GoogleAuth) Login(c *gin.Context) {
	state := uuid.NewString()

	session := sessions.Default(c)
	session.Set(stateField, state)
	if err := session.Save(); err != nil {
		AbortWithInternalError(c, err)
		return
	}

	c.Redirect(http.StatusFound, g.oauth.AuthCodeURL(state))
}

func (g *GoogleAuth) Callback(c *gin.Context) {
	session := sessions.Default(c)
	expected, _ := session.Get(stateField).(string)
	session.Delete(stateField)

	user, err := g.finishLogin(c, expected)
	if err != nil {
		slog.Error("Google sign-in failed", slog.String("error", err.Error()))
		session.Save()
		c.Redirect(http.StatusFound, g.clientOrigin)
		return
	}

	session.Set(userField, user.GoogleID)
	if err := session.Save(); err != nil {
		AbortWithInternalError(c, err)
		return
	}

	slog.Info("User signed in", slog.Int64("user_id", user.ID))
	c.Redirect(http.StatusFound, g.clientOrigin)
}

func (g *GoogleAuth) finishLogin(c *gin.Context, expectedState string) (*User, error) {
	if expectedState == "" || c.Query("state") != expectedState {
		return nil, errors.New("oauth state mismatch")
	}

	if msg := c.Query("error"); msg != "" {
		return nil, fmt.Errorf("provider refused: %s", msg)
	}

	token, err := g.oauth.Exchange(c, c.Query("code"))
	if err != nil {
		return nil, fmt.Errorf("exchanging code: %w", err)
	}

	user, err := g.profile(c, token)
	if err != nil {
		return nil, err
	}

	if err := g.users.UpsertUser(c, user); err != nil {
		return nil, fmt.Errorf("storing user: %w", err)
	}
	return user, nil
}

func (g *GoogleAuth) profile(ctx context.Context, token *oauth2.Token) (*User, error) {
	opts := append([]option.ClientOption{option.WithTokenSource(g.oauth.TokenSource(ctx, token))}, g.apiOptions...)

	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating userinfo client: %w", err)
	}

	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("fetching profile: %w", err)
	}
	if info.Id == "" {
		return nil, errors.New("profile has no subject id")
	}

	return &User{GoogleID: info.Id, Email: info.Email, Name: info.Name}, nil
}

func (g *GoogleAuth) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		slog.Error("Failed to clear session", slog.String("error", err.Error()))
	}

	c.Redirect(http.StatusFound, g.clientOrigin)
}

func (g *GoogleAuth) CurrentUser(c *gin.Context) {
	who, ok := g.Identity(c)
	if !ok {
		c.JSON(http.StatusOK, UserResponse{})
		return
	}

	user, err := g.users.UserByGoogleID(c, string(who))
	if errors.Is(err, ErrUserNotFound) {
		c.JSON(http.StatusOK, UserResponse{})
		return
	} else if err != nil {
		AbortWithInternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, UserResponse{User: user})
}
