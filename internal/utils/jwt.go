package utils // package utils provides helper functions for token creation and hashing

import (
    "crypto/rand"   // secure random number generation
    "crypto/sha256" // SHA‑256 hashing for reset token ids
    "encoding/hex"  // hex encoding and decoding functions
    "errors"
    "strconv"
    "time" // time utilities for generating expirations

    "github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
    "github.com/google/uuid"
)

// resetPurpose is stored in the "purpose" claim so that a reset token can
// never be replayed as any other kind of token.
const resetPurpose = "password_reset"

// ErrInvalidResetToken is returned for tokens that fail signature, expiry
// or purpose checks.
var ErrInvalidResetToken = errors.New("invalid reset token")

// ResetToken is a signed password‑reset link token.  Token is the JWT
// string mailed to the user; ID is its unique jti, stored hashed so the
// link can be consumed only once.
type ResetToken struct {
    Token string    // the serialized JWT string
    ID    string    // jti claim
    Exp   time.Time // the UTC expiration time
}

// NewResetToken builds and signs an HS256 JWT for a password reset.  The
// JWT includes subject (sub), purpose, jti, expiration (exp) and issued at
// (iat).
func NewResetToken(secret string, userID uint64, ttl time.Duration) (ResetToken, error) {
    now := time.Now().UTC()
    exp := now.Add(ttl)
    jti := uuid.NewString()
    claims := jwt.MapClaims{
        "sub":     strconv.FormatUint(userID, 10),
        "purpose": resetPurpose,
        "jti":     jti,
        "exp":     exp.Unix(),
        "iat":     now.Unix(),
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return ResetToken{}, err
    }
    return ResetToken{Token: signed, ID: jti, Exp: exp}, nil
}

// ParseResetToken verifies a reset JWT and returns its user ID and jti.
func ParseResetToken(secret, raw string) (userID uint64, jti string, err error) {
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        // Reject anything that is not HMAC signed.
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, ErrInvalidResetToken
        }
        return []byte(secret), nil
    }, jwt.WithExpirationRequired())
    if err != nil || !tok.Valid {
        return 0, "", ErrInvalidResetToken
    }
    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok || claims["purpose"] != resetPurpose {
        return 0, "", ErrInvalidResetToken
    }
    sub, _ := claims["sub"].(string)
    jti, _ = claims["jti"].(string)
    userID, err = strconv.ParseUint(sub, 10, 64)
    if err != nil || userID == 0 || jti == "" {
        return 0, "", ErrInvalidResetToken
    }
    return userID, jti, nil
}

// HashTokenID returns the SHA‑256 hash of a token identifier as a hex
// string.  Only the hash is stored in the database.
func HashTokenID(raw string) string {
    sum := sha256.Sum256([]byte(raw))
    return hex.EncodeToString(sum[:])
}

// RandomHex returns a hex‑encoded string generated from n bytes of
// cryptographically secure random data.  It is used to produce opaque
// session tokens.
func RandomHex(n int) (string, error) {
    buf := make([]byte, n)
    if _, err := rand.Read(buf); err != nil {
        return "", err
    }
    return hex.EncodeToString(buf), nil
}
