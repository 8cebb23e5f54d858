package catalog

import (
	"database/sql"
	"fmt"
)

// スキーマ定義。車両レコードの1コレクションのみを保持する。
const schema = `
CREATE TABLE IF NOT EXISTS cars (
    -- 車両レコードの一意識別子（UUID、再利用しない）
    id TEXT PRIMARY KEY,
    -- メーカー名
    brand TEXT NOT NULL,
    -- モデル名
    model TEXT NOT NULL,
    -- 変速機の種別（AUTOMATIC または MANUAL）
    transmission TEXT NOT NULL,
    -- 価格（通貨の最小単位に依存しない非負整数）
    price INTEGER NOT NULL CHECK (price >= 0),
    -- 発売年
    release_year INTEGER NOT NULL,
    -- 作成日時（作成時に設定し、以後変更しない）
    created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

-- 価格条件での絞り込みを高速化するインデックス。
CREATE INDEX IF NOT EXISTS idx_cars_price ON cars(price);
`

// initSchema はSQLiteデータベースにスキーマを適用する。
func initSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("スキーマの適用に失敗: %w", err)
	}
	return nil
}
