package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"storefront/internal/domain/model"
	"storefront/internal/usecase"
)

var ErrInvalidAccessToken = errors.New("invalid access token")

// HS256のアクセストークン（sub / role / tv）
type JWTIssuer struct {
	secret    []byte
	accessTTL time.Duration
}

func NewJWTIssuer(secret string, accessTTL time.Duration) *JWTIssuer {
	return &JWTIssuer{secret: []byte(secret), accessTTL: accessTTL}
}

func (i *JWTIssuer) Issue(userID int64, role model.Role, tokenVersion int, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(i.accessTTL)

	claims := jwt.MapClaims{
		"sub":  strconv.FormatInt(userID, 10),
		"role": string(role),
		"tv":   tokenVersion,
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

// 署名と期限を検証してclaimsを取り出す
func (i *JWTIssuer) Parse(raw string) (usecase.AccessClaims, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return i.secret, nil
	})
	if err != nil || token == nil || !token.Valid {
		return usecase.AccessClaims{}, ErrInvalidAccessToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return usecase.AccessClaims{}, ErrInvalidAccessToken
	}

	userID, err := parseUserID(claims["sub"])
	if err != nil || userID <= 0 {
		return usecase.AccessClaims{}, ErrInvalidAccessToken
	}

	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return usecase.AccessClaims{}, ErrInvalidAccessToken
	}

	tv, err := parseInt(claims["tv"])
	if err != nil || tv < 0 {
		return usecase.AccessClaims{}, ErrInvalidAccessToken
	}

	return usecase.AccessClaims{UserID: userID, Role: model.Role(role), TokenVersion: tv}, nil
}

// user_idをint64に変換する
func parseUserID(v interface{}) (int64, error) {
	switch t := v.(type) {
	case float64:
		return int64(t), nil
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, errors.New("invalid sub")
	}
}

func parseInt(v interface{}) (int, error) {
	switch t := v.(type) {
	case float64:
		return int(t), nil
	case int:
		return t, nil
	case string:
		i64, err := strconv.ParseInt(t, 10, 32)
		if err != nil {
			return 0, err
		}
		return int(i64), nil
	default:
		return 0, errors.New("invalid int")
	}
}
