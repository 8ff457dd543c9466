package authtransport

import (
	"context"
	"net/http"
	"time"

	kitjwt "github.com/go-kit/kit/auth/jwt"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/gorilla/securecookie"
	"github.com/ichigozero/todocal/authsvc"
)

// CookieCodec stores session tokens in a signed and encrypted cookie.
type CookieCodec struct {
	sc     *securecookie.SecureCookie
	maxAge time.Duration
	secure bool
}

// NewCookieCodec returns a codec keyed by hashKey. A non-empty blockKey must
// be 16, 24 or 32 bytes and turns on encryption.
func NewCookieCodec(hashKey, blockKey string, maxAge time.Duration, secure bool) *CookieCodec {
	var block []byte
	if blockKey != "" {
		block = []byte(blockKey)
	}

	sc := securecookie.New([]byte(hashKey), block)
	sc.MaxAge(int(maxAge.Seconds()))

	return &CookieCodec{sc: sc, maxAge: maxAge, secure: secure}
}

// SetToken writes the session cookie carrying token.
func (c *CookieCodec) SetToken(w http.ResponseWriter, token string) error {
	encoded, err := c.sc.Encode(authsvc.CookieName, token)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authsvc.CookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(c.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (c *CookieCodec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authsvc.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Token returns the token held by the session cookie of r, if any.
func (c *CookieCodec) Token(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(authsvc.CookieName)
	if err != nil {
		return "", false
	}

	var token string
	if err := c.sc.Decode(authsvc.CookieName, cookie.Value, &token); err != nil {
		return "", false
	}
	return token, token != ""
}

// CookieToContext moves the session cookie token into the context for
// requests that did not carry an Authorization header. It must run after
// kitjwt.HTTPToContext.
func CookieToContext(c *CookieCodec) httptransport.RequestFunc {
	return func(ctx context.Context, r *http.Request) context.Context {
		if _, ok := ctx.Value(kitjwt.JWTTokenContextKey).(string); ok {
			return ctx
		}
		token, ok := c.Token(r)
		if !ok {
			return ctx
		}
		return context.WithValue(ctx, kitjwt.JWTTokenContextKey, token)
	}
}
