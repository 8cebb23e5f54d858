// カタログ検索サービスのエントリポイント。
// 車両レコードの検索・詳細取得・登録と、認証トークンの発行APIを提供する。
package main

import (
	"log"

	"github.com/nao1215/carhub/internal/catalog"
)

func main() {
	cfg := catalog.LoadConfig()

	server, err := catalog.NewServer(cfg)
	if err != nil {
		log.Fatalf("カタログサーバーの初期化に失敗: %v", err)
	}
	defer server.Shutdown()

	log.Printf("カタログサービスを起動します: :%s", cfg.Port)
	if err := server.Run(); err != nil {
		log.Fatalf("カタログサービスの起動に失敗: %v", err)
	}
}
