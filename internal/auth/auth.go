package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidToken = errors.New("invalid token")

type Service struct {
	jwtSecret     []byte
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

func NewService(secret string, accessExpiry, refreshExpiry time.Duration) *Service {
	return &Service{jwtSecret: []byte(secret), accessExpiry: accessExpiry, refreshExpiry: refreshExpiry}
}

func (s *Service) HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}

func (s *Service) CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// AccessExpiry is exposed for the expiresIn field of auth responses.
func (s *Service) AccessExpiry() time.Duration {
	return s.accessExpiry
}

// GenerateTokenPair issues an access token and a longer-lived refresh
// token for the user. The "typ" claim keeps one from being used as the
// other.
func (s *Service) GenerateTokenPair(userID string) (access, refresh string, err error) {
	access, err = s.sign(userID, "access", s.accessExpiry)
	if err != nil {
		return "", "", err
	}
	refresh, err = s.sign(userID, "refresh", s.refreshExpiry)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

func (s *Service) sign(userID, typ string, expiry time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"typ":     typ,
		"exp":     time.Now().Add(expiry).Unix(),
	})
	return token.SignedString(s.jwtSecret)
}

// ValidateToken checks an access token and returns the user id.
func (s *Service) ValidateToken(tokenString string) (string, error) {
	return s.validate(tokenString, "access")
}

// ValidateRefreshToken checks a refresh token and returns the user id.
func (s *Service) ValidateRefreshToken(tokenString string) (string, error) {
	return s.validate(tokenString, "refresh")
}

func (s *Service) validate(tokenString, wantTyp string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	if typ, _ := claims["typ"].(string); typ != wantTyp {
		return "", ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok {
		return "", ErrInvalidToken
	}
	return userID, nil
}
