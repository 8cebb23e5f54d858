package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// headerKeySignature はリクエスト署名を受け渡すHTTPヘッダーキー。
const headerKeySignature = "api-signature"

// signedCarBody は署名対象となるリクエストボディのフィールド。
// ポインタ型にすることでフィールドの欠落を検出する。
type signedCarBody struct {
	// Brand はメーカー名。
	Brand *string `json:"brand"`
	// Model はモデル名。
	Model *string `json:"model"`
	// Transmission は変速機の種別。
	Transmission *string `json:"transmission"`
	// Price は価格。
	Price *int64 `json:"price"`
	// ReleaseYear は発売年。
	ReleaseYear *int64 `json:"release_year"`
}

// CanonicalMessage は署名対象の正規化メッセージを組み立てる。
// 送信側と検証側が同一のバイト列を得るための規則であり、変更してはならない:
// メソッド・先頭スラッシュを除いたパス・brand・model・price・release_year・
// transmission を "-" で連結し、全体を小文字化する。
func CanonicalMessage(method, path, brand, model string, price, releaseYear int64, transmission string) string {
	message := strings.Join([]string{
		method,
		strings.TrimLeft(path, "/"),
		brand,
		model,
		strconv.FormatInt(price, 10),
		strconv.FormatInt(releaseYear, 10),
		transmission,
	}, "-")
	return strings.ToLower(message)
}

// ComputeSignature は正規化メッセージに対するHMAC-SHA256署名を16進文字列で返す。
func ComputeSignature(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureAuth は api-signature ヘッダーの署名を検証するGinミドルウェアを返す。
// ヘッダー欠落は401で応答する。ボディの読み取り失敗・フィールド欠落・型不正・
// 署名不一致はすべて単一の400に倒す（フェイルクローズ）。
// 検証後はボディを復元し、後段のハンドラが再度読めるようにする。
//
// TODO: 正規化メッセージにタイムスタンプとノンスを加え、再送されたリクエストを拒否する。
func SignatureAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		provided := c.GetHeader(headerKeySignature)
		if provided == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"message": "api-signatureヘッダーがありません",
			})
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			abortInvalidSignature(c)
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		var signed signedCarBody
		if err := json.Unmarshal(body, &signed); err != nil {
			abortInvalidSignature(c)
			return
		}
		if signed.Brand == nil || signed.Model == nil || signed.Transmission == nil ||
			signed.Price == nil || signed.ReleaseYear == nil {
			abortInvalidSignature(c)
			return
		}

		message := CanonicalMessage(
			c.Request.Method,
			c.Request.URL.Path,
			*signed.Brand,
			*signed.Model,
			*signed.Price,
			*signed.ReleaseYear,
			*signed.Transmission,
		)
		expected := ComputeSignature(secret, message)

		// hmac.Equal で一定時間比較を行う
		if !hmac.Equal([]byte(provided), []byte(expected)) {
			abortInvalidSignature(c)
			return
		}

		c.Next()
	}
}

// abortInvalidSignature は署名検証の失敗をすべて同一の400応答に集約する。
func abortInvalidSignature(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"message": "api-signatureが無効です",
	})
}
