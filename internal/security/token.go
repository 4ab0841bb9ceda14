package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService wraps JWT creation and validation for the access/refresh token
// chain. An access token carries the user id as subject and the id of the
// refresh-token record it was minted from in the "rfid" claim.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessClaims is what a decoded access token resolves to.
type AccessClaims struct {
	UserID         int64
	RefreshTokenID int64
}

// CreateAccessToken mints an access token bound to a refresh-token record.
func (t *TokenService) CreateAccessToken(userID, refreshTokenID int64) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  fmt.Sprintf("%d", userID),
		"rfid": refreshTokenID,
		"iat":  now.Unix(),
		"exp":  now.Add(t.accessTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// CreateRefreshToken mints the long-lived token stored on the refresh record.
func (t *TokenService) CreateRefreshToken(userID int64) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": fmt.Sprintf("%d", userID),
		"iat": now.Unix(),
		"exp": now.Add(t.refreshTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// DecodeAccessIgnoreExpiry decodes an access token without enforcing its
// expiry. The gate re-validates freshness against the refresh record instead,
// which lets long-lived socket clients reconnect with a stale access token as
// long as their refresh token still stands.
func (t *TokenService) DecodeAccessIgnoreExpiry(tokenStr string) (*AccessClaims, error) {
	claims, err := t.parse(tokenStr, jwt.WithoutClaimsValidation())
	if err != nil {
		return nil, err
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	var userID int64
	if _, err := fmt.Sscanf(sub, "%d", &userID); err != nil {
		return nil, jwt.ErrTokenInvalidClaims
	}
	rfid, ok := claims["rfid"].(float64)
	if !ok || rfid <= 0 {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return &AccessClaims{UserID: userID, RefreshTokenID: int64(rfid)}, nil
}

// Verify validates a token fully, expiry included.
func (t *TokenService) Verify(tokenStr string) error {
	_, err := t.parse(tokenStr)
	return err
}

func (t *TokenService) parse(tokenStr string, opts ...jwt.ParserOption) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok {
		return claims, nil
	}
	return nil, jwt.ErrTokenMalformed
}
