package catalog

import "os"

// Config はカタログサービスの設定。
// 秘密鍵と認証情報はすべて環境変数から注入し、コードへの直書きを禁止する。
// 初期化後は読み取り専用であり、複数のリクエストから同時に参照しても安全である。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string
	// DBPath はSQLiteデータベースのDSN。
	DBPath string
	// JWTSecret は認証トークン署名用の共有秘密鍵。
	JWTSecret string
	// HMACSecret はリクエスト署名検証用の共有秘密鍵。
	HMACSecret string
	// OperatorName は唯一のオペレーター認証情報のユーザー名。
	OperatorName string
	// OperatorPassword は唯一のオペレーター認証情報のパスワード。
	OperatorPassword string
	// AllowedOrigin はCORSで許可するフロントエンドのオリジン。
	AllowedOrigin string
	// SeedDemoData が真の場合、起動時にデモデータを投入する。
	SeedDemoData bool
}

// LoadConfig は環境変数からConfigを構築する。
// 未設定の項目は開発用デフォルトで補う。本番環境では必ず上書きすること。
func LoadConfig() Config {
	return Config{
		Port:             getEnvOr("CATALOG_PORT", "8080"),
		DBPath:           getEnvOr("CATALOG_DB", "/data/catalog.db?_journal_mode=WAL&_busy_timeout=5000"),
		JWTSecret:        getEnvOr("JWT_SECRET", "dev-jwt-secret"),
		HMACSecret:       getEnvOr("HMAC_SECRET", "dev-hmac-secret"),
		OperatorName:     getEnvOr("BASIC_AUTH_USER", "operator"),
		OperatorPassword: getEnvOr("BASIC_AUTH_PASSWORD", "dev-basic-secret"),
		AllowedOrigin:    getEnvOr("ALLOWED_ORIGIN", "http://localhost:3000"),
		SeedDemoData:     os.Getenv("CATALOG_SEED") == "true",
	}
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
