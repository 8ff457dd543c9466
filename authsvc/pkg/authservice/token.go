package authservice

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/ichigozero/todocal/authsvc"
	"github.com/ichigozero/todocal/usersvc"
)

const DefaultTokenExpiry = 24 * time.Hour

// Tokenizer mints HS256 session tokens.
type Tokenizer struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewTokenizer(secret string, expiry time.Duration) *Tokenizer {
	if expiry <= 0 {
		expiry = DefaultTokenExpiry
	}
	return &Tokenizer{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}
}

func (t *Tokenizer) Generate(user usersvc.User) (string, error) {
	if user.ID == "" {
		return "", authsvc.ErrInvalidArgument
	}

	claims := jwt.MapClaims{
		authsvc.ClaimUserID:   user.ID,
		authsvc.ClaimUsername: user.Username,
		authsvc.ClaimExpiry:   t.now().Add(t.expiry).Unix(),
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// KeyFunc returns the verification key for tokens minted by t.
func (t *Tokenizer) KeyFunc() jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		return t.secret, nil
	}
}

func (t *Tokenizer) Expiry() time.Duration { return t.expiry }
