// Package pagination turns the last evaluated key of a query page into an
// opaque continuation token and back.
//
// A token is base64url(payload) "." base64url(mac), where payload is a small
// JSON document holding the string key attributes and mac is an HMAC-SHA256
// of the payload under the codec secret. Tokens that were not produced by a
// codec with the same secret, or that do not carry exactly the key
// attributes of the query being resumed, are rejected.
package pagination

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/e-lopezc/serverless-product-catalog-api/dynamodb/ddbiface"
)

var ErrInvalidToken = errors.New("invalid continuation token")

const tokenVersion = 1

// MinSecretLen is the shortest secret NewCodec accepts.
const MinSecretLen = 16

type payload struct {
	V int               `json:"v"`
	K map[string]string `json:"k"`
}

type Codec struct {
	secret []byte
}

func NewCodec(secret []byte) (*Codec, error) {
	if len(secret) < MinSecretLen {
		return nil, fmt.Errorf("pagination secret must be at least %d bytes, got %d", MinSecretLen, len(secret))
	}
	return &Codec{secret: slices.Clone(secret)}, nil
}

// NewRandomCodec returns a codec with a process-local random secret. Its
// tokens stop decoding once the process exits.
func NewRandomCodec() (*Codec, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("generate pagination secret: %w", err)
	}
	return &Codec{secret: secret}, nil
}

// Encode returns the token for key. A nil or empty key encodes to the empty
// token, which means there are no more pages.
func (c *Codec) Encode(key ddbiface.Item) (string, error) {
	if len(key) == 0 {
		return "", nil
	}
	p := payload{V: tokenVersion, K: make(map[string]string, len(key))}
	for name, av := range key {
		s, ok := av.(*types.AttributeValueMemberS)
		if !ok {
			return "", fmt.Errorf("key attribute %q: unsupported type %T", name, av)
		}
		p.K[name] = s.Value
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal token: %w", err)
	}
	enc := base64.RawURLEncoding
	return enc.EncodeToString(raw) + "." + enc.EncodeToString(c.mac(raw)), nil
}

// Decode verifies token and returns the key it was encoded from. The key
// must consist of exactly the attributes named in expected. The empty token
// decodes to a nil key.
func (c *Codec) Decode(token string, expected []string) (ddbiface.Item, error) {
	if token == "" {
		return nil, nil
	}
	body, sig, ok := strings.Cut(token, ".")
	if !ok {
		return nil, fmt.Errorf("%w: missing signature", ErrInvalidToken)
	}
	enc := base64.RawURLEncoding.Strict()
	raw, err := enc.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	mac, err := enc.DecodeString(sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !hmac.Equal(mac, c.mac(raw)) {
		return nil, fmt.Errorf("%w: signature mismatch", ErrInvalidToken)
	}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if p.V != tokenVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidToken, p.V)
	}
	if len(p.K) != len(expected) {
		return nil, fmt.Errorf("%w: got %d key attributes, want %d", ErrInvalidToken, len(p.K), len(expected))
	}
	key := make(ddbiface.Item, len(expected))
	for _, name := range expected {
		v, ok := p.K[name]
		if !ok || v == "" {
			return nil, fmt.Errorf("%w: missing key attribute %q", ErrInvalidToken, name)
		}
		key[name] = &types.AttributeValueMemberS{Value: v}
	}
	return key, nil
}

func (c *Codec) mac(raw []byte) []byte {
	h := hmac.New(sha256.New, c.secret)
	h.Write(raw)
	return h.Sum(nil)
}
