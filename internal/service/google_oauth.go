package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/user/gunvortv/internal/config"
	"golang.org/x/oauth2"
)

var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// GoogleProfile userinfo fields used for federated sign-in
type GoogleProfile struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleOAuth Google sign-in over the authorization code flow
type GoogleOAuth struct {
	conf        *oauth2.Config
	userInfoURL string
}

// NewGoogleOAuth returns nil when Google sign-in is not configured
func NewGoogleOAuth(cfg config.GoogleConfig) *GoogleOAuth {
	if !cfg.Enabled() {
		return nil
	}
	return &GoogleOAuth{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     googleEndpoint,
		},
		userInfoURL: googleUserInfoURL,
	}
}

// AuthCodeURL consent page URL carrying state
func (g *GoogleOAuth) AuthCodeURL(state string) string {
	return g.conf.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the callback code for the user's profile
func (g *GoogleOAuth) Exchange(ctx context.Context, code string) (*GoogleProfile, error) {
	tok, err := g.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.conf.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}

	var profile GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if profile.Subject == "" || profile.Email == "" {
		return nil, errors.New("userinfo missing subject or email")
	}
	if !profile.EmailVerified {
		return nil, errors.New("google email is not verified")
	}
	return &profile, nil
}

// RandomToken hex encoded random value of n bytes
func RandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
