package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// TokenClaims は認証トークンのクレーム（ペイロード）を表す。
// 発行者（オペレーター名）・固定のサブジェクトタグ・有効期限を保持する。
// トークンは自己完結しており、サーバー側のセッションストアを必要としない。
type TokenClaims struct {
	jwt.RegisteredClaims
}

// headerKeyToken は認証トークンを受け渡すHTTPヘッダーキー。
const headerKeyToken = "api-jwt"

// TokenSubject は発行するトークンに設定する固定のサブジェクトタグ。
const TokenSubject = "catalog-client"

// TokenLifetime はトークンの有効期間。
// 短命にすることでトークン漏洩時の影響範囲を限定する。
const TokenLifetime = 5 * time.Minute

// contextKeyClaims はGinコンテキストに検証済みクレームを格納するキー。
const contextKeyClaims = "token_claims"

// GenerateToken は認証済みオペレーター名を発行者とする署名付きトークンを生成する。
// 有効期限はTokenLifetime後、署名アルゴリズムはHS256。
func GenerateToken(secret, issuer string) (string, error) {
	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   TokenSubject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(TokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("トークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// TokenAuth は api-jwt ヘッダーのトークンを検証するGinミドルウェアを返す。
// 欠落・不正・期限切れをそれぞれ固定メッセージの401で応答し、
// 検証に成功した場合はクレームをコンテキストに設定して後続処理へ進む。
func TokenAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader(headerKeyToken)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "トークンがありません",
			})
			return
		}

		claims := &TokenClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"message": "トークンの有効期限が切れています",
				})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "トークンが無効です",
			})
			return
		}
		if !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "トークンが無効です",
			})
			return
		}

		c.Set(contextKeyClaims, claims)
		c.Next()
	}
}

// GetTokenClaims はGinコンテキストから検証済みクレームを取得する。
// TokenAuthミドルウェアが事前に適用されている必要がある。
func GetTokenClaims(c *gin.Context) *TokenClaims {
	v, _ := c.Get(contextKeyClaims)
	if claims, ok := v.(*TokenClaims); ok {
		return claims
	}
	return nil
}
