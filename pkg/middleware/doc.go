// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// 短命トークン（api-jwtヘッダー）の発行と検証、共有秘密鍵による
// リクエスト署名（api-signatureヘッダー）の検証、クライアントアドレスごとの
// レート制限、パニックリカバリ、CORS設定を含む。
// 各ミドルウェアは検証に失敗した時点でリクエストを打ち切り、
// 後続のハンドラやストアへのアクセスを行わせない。
package middleware
