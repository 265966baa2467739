package auth

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("authorization token is missing")
	ErrInvalidToken = errors.New("authorization token is invalid")
)

type Verifier interface {
	Verify(token string) (*UserClaims, error)
}

type VerifierService struct {
	key     interface{}
	methods []string
}

func NewVerifierFromFile(path string) (*VerifierService, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	key, err := jwt.ParseRSAPublicKeyFromPEM(pem)
	if err != nil {
		return nil, err
	}

	return &VerifierService{
		key:     key,
		methods: []string{jwt.SigningMethodRS256.Alg(), jwt.SigningMethodRS384.Alg(), jwt.SigningMethodRS512.Alg()},
	}, nil
}

func NewHMACVerifier(secret []byte) (*VerifierService, error) {
	if len(secret) == 0 {
		return nil, errors.New("hmac secret can't be empty")
	}

	return &VerifierService{
		key:     secret,
		methods: []string{jwt.SigningMethodHS256.Alg()},
	}, nil
}

func (v *VerifierService) Verify(token string) (*UserClaims, error) {
	if token == "" {
		return nil, ErrMissingToken
	}

	parsed, err := jwt.ParseWithClaims(token, &UserClaims{}, func(*jwt.Token) (interface{}, error) {
		return v.key, nil
	}, jwt.WithValidMethods(v.methods))

	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*UserClaims)
	if !ok || !parsed.Valid || claims.UserID() == "" {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
