package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Claims 为嵌入 session token 的身份信息，签发后不可变。
// 过期时间由 RegisteredClaims 承载，不属于身份数据本身。
type Claims struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

func HashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func VerifyPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// IssueToken 以进程密钥签发 HS256 token，有效期 ttlHours 小时。
// 会话无状态：服务端不保存任何 token 记录，也因此无法提前吊销。
func IssueToken(claims Claims, secret string, ttlHours int) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   claims.UserID,
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlHours) * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(now),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseToken 校验签名与过期时间并返回声明。
func ParseToken(tokenStr, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.UserID == "" || claims.Username == "" || claims.Email == "" {
		return nil, errors.New("incomplete claims")
	}
	return claims, nil
}

// VerifyToken 报告 token 是否有效。畸形、过期、签名不符都只是 false，
// 从不 panic、也不向调用方抛错。
func VerifyToken(tokenStr, secret string) bool {
	_, err := ParseToken(tokenStr, secret)
	return err == nil
}

// DecodeClaims 在 token 有效时返回其中的声明，否则返回 (nil, false)。
func DecodeClaims(tokenStr, secret string) (*Claims, bool) {
	claims, err := ParseToken(tokenStr, secret)
	if err != nil {
		return nil, false
	}
	return claims, true
}

// ExtractBearer 去掉 Authorization 值里的第一个 "Bearer " 前缀。
// 没有前缀时原样返回，空串进空串出，后续校验自然会失败。
func ExtractBearer(raw string) string {
	return strings.Replace(raw, "Bearer ", "", 1)
}
