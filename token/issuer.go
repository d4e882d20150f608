package token

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the JWT signature algorithm.
type SigningMethod string

const (
	MethodHS256   SigningMethod = "hs256"
	MethodEd25519 SigningMethod = "ed25519"
)

// Config configures the issuer. Key is the HMAC secret under MethodHS256 or
// the ed25519 private key (seed or full form) under MethodEd25519; PublicKey
// is needed only for Parse with MethodEd25519 when Key is absent.
type Config struct {
	TTL       time.Duration
	Method    SigningMethod
	Key       []byte
	PublicKey []byte
	Issuer    string
	Leeway    time.Duration
}

// SessionClaims is the claim set carried by issued session tokens.
type SessionClaims struct {
	AccountID string `json:"aid"`
	jwt.RegisteredClaims
}

// Issuer mints and parses signed session tokens. It satisfies the engine's
// TokenIssuer interface.
type Issuer struct {
	config Config
}

// NewIssuer validates cfg and returns an immutable Issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("token TTL must be positive")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("token leeway must be in [0, 2m]")
	}

	switch cfg.Method {
	case MethodHS256:
		if len(cfg.Key) == 0 {
			return nil, errors.New("hs256 requires a signing key")
		}
	case MethodEd25519:
		if len(cfg.Key) > 0 {
			if _, err := edPrivateKey(cfg.Key); err != nil {
				return nil, err
			}
		}
		if len(cfg.PublicKey) > 0 {
			if _, err := edPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
		if len(cfg.Key) == 0 && len(cfg.PublicKey) == 0 {
			return nil, errors.New("ed25519 requires a private or public key")
		}
	default:
		return nil, errors.New("unsupported signing method")
	}

	return &Issuer{config: cfg}, nil
}

// Issue mints a signed token for accountID with the configured TTL.
func (i *Issuer) Issue(_ context.Context, accountID string) (string, error) {
	if accountID == "" {
		return "", errors.New("empty account id")
	}

	now := time.Now()
	claims := SessionClaims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(i.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    i.config.Issuer,
		},
	}

	tok := jwt.NewWithClaims(i.signingMethod(), claims)
	key, err := i.signKey()
	if err != nil {
		return "", err
	}
	return tok.SignedString(key)
}

// Parse verifies the signature and registered claims of tokenStr and returns
// its claims.
func (i *Issuer) Parse(tokenStr string) (*SessionClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{i.signingMethod().Alg()}),
		jwt.WithExpirationRequired(),
	}
	if i.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(i.config.Leeway))
	}
	if i.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(i.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(tokenStr, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != i.signingMethod().Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return i.verifyKey()
	})
	if err != nil {
		return nil, err
	}

	claims, ok := tok.Claims.(*SessionClaims)
	if !ok || !tok.Valid || claims.AccountID == "" {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func (i *Issuer) signingMethod() jwt.SigningMethod {
	if i.config.Method == MethodEd25519 {
		return jwt.SigningMethodEdDSA
	}
	return jwt.SigningMethodHS256
}

func (i *Issuer) signKey() (interface{}, error) {
	if i.config.Method == MethodEd25519 {
		return edPrivateKey(i.config.Key)
	}
	return i.config.Key, nil
}

func (i *Issuer) verifyKey() (interface{}, error) {
	if i.config.Method != MethodEd25519 {
		return i.config.Key, nil
	}
	if len(i.config.PublicKey) > 0 {
		return edPublicKey(i.config.PublicKey)
	}
	priv, err := edPrivateKey(i.config.Key)
	if err != nil {
		return nil, err
	}
	return priv.Public(), nil
}

func edPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	switch len(key) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(key), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(key), nil
	default:
		return nil, errors.New("invalid ed25519 private key length")
	}
}

func edPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) != ed25519.PublicKeySize {
		return nil, errors.New("invalid ed25519 public key length")
	}
	return ed25519.PublicKey(key), nil
}
