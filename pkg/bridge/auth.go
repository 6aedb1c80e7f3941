package bridge

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Audience is the JWT audience clients must request.
const Audience = "blueberry"

var errMissingToken = errors.New("client did not provide a bearer token")

func bearerToken(req *http.Request) (string, error) {
	if token, ok := strings.CutPrefix(req.Header.Get("Authorization"), "Bearer "); ok {
		return token, nil
	}
	// Browsers cannot set headers on websocket upgrades.
	if token := req.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return "", errMissingToken
}

func (s *Server) authorize(req *http.Request) error {
	if len(s.secret) == 0 {
		return nil
	}
	tokenString, err := bearerToken(req)
	if err != nil {
		return err
	}
	_, err = jwt.Parse(tokenString, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithAudience(Audience))
	if err != nil {
		return fmt.Errorf("invalid bearer token: %w", err)
	}
	return nil
}

// NewToken signs a token accepted by a Server configured with secret.
func NewToken(secret []byte, subject string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:  subject,
		Audience: jwt.ClaimStrings{Audience},
	})
	return token.SignedString(secret)
}
