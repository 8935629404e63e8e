package codegen

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const payloadIssuer = "bogo-voucher"

var (
	// ErrInvalidPayload covers every verification failure: bad signature, malformed token, bad claims.
	ErrInvalidPayload = errors.New("invalid voucher payload")
	// ErrEmptySecret is returned when the signer is built without a key.
	ErrEmptySecret = errors.New("voucher signing secret is empty")
)

// Payload is the content embedded in a voucher QR code.
type Payload struct {
	ReservationID   uuid.UUID
	ReservationCode string
	OfferID         uuid.UUID
	Email           string
	IssuedAt        time.Time
}

type voucherClaims struct {
	ReservationID   string `json:"rid"`
	ReservationCode string `json:"rcode"`
	OfferID         string `json:"oid"`
	Email           string `json:"email"`
	jwt.RegisteredClaims
}

// Signer signs and verifies voucher payloads with HMAC-SHA256.
type Signer struct {
	secret []byte
	parser *jwt.Parser
}

// NewSigner creates a Signer keyed with secret.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, ErrEmptySecret
	}
	return &Signer{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(payloadIssuer),
			jwt.WithStrictDecoding(),
		),
	}, nil
}

// Sign returns the compact signed form of p.
func (s *Signer) Sign(p Payload) (string, error) {
	claims := voucherClaims{
		ReservationID:   p.ReservationID.String(),
		ReservationCode: p.ReservationCode,
		OfferID:         p.OfferID.String(),
		Email:           p.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:   payloadIssuer,
			Subject:  p.ReservationID.String(),
			IssuedAt: jwt.NewNumericDate(p.IssuedAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign voucher payload: %w", err)
	}
	return signed, nil
}

// Verify checks the signature of token and decodes it.
func (s *Signer) Verify(token string) (*Payload, error) {
	var claims voucherClaims
	parsed, err := s.parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidPayload
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if !parsed.Valid {
		return nil, ErrInvalidPayload
	}

	reservationID, err := uuid.Parse(claims.ReservationID)
	if err != nil {
		return nil, fmt.Errorf("%w: reservation id", ErrInvalidPayload)
	}
	offerID, err := uuid.Parse(claims.OfferID)
	if err != nil {
		return nil, fmt.Errorf("%w: offer id", ErrInvalidPayload)
	}

	p := &Payload{
		ReservationID:   reservationID,
		ReservationCode: claims.ReservationCode,
		OfferID:         offerID,
		Email:           claims.Email,
	}
	if claims.IssuedAt != nil {
		p.IssuedAt = claims.IssuedAt.Time
	}
	return p, nil
}

// LooksLikePayload reports whether s has the three-segment shape of a signed payload
// rather than a short voucher code.
func LooksLikePayload(s string) bool {
	return strings.Count(s, ".") == 2
}
