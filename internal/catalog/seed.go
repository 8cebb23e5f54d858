package catalog

import (
	"context"
	"fmt"
	"log"
	"math/rand/v2"

	"github.com/google/uuid"
)

// seedCarCount はデモデータとして投入する車両の台数。
const seedCarCount = 100

// seedDemoData はデモ用の車両データを投入する。
// 既存データを壊さないよう、テーブルが空の場合のみ実行する。
// ブランドは台数を3分割して割り当て、変速機は奇数番がAUTOMATIC、
// 価格は30000〜80000の一様乱数、発売年は2020〜2022を循環させる。
func seedDemoData(ctx context.Context, queries *Queries) error {
	var count int64
	if err := queries.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cars").Scan(&count); err != nil {
		return fmt.Errorf("既存件数の確認に失敗: %w", err)
	}
	if count > 0 {
		return nil
	}

	for i := 1; i <= seedCarCount; i++ {
		brand := "BMW"
		switch {
		case i <= 33:
			brand = "Honda"
		case i <= 66:
			brand = "Ford"
		}

		transmission := "MANUAL"
		if i%2 != 0 {
			transmission = "AUTOMATIC"
		}

		if err := queries.CreateCar(ctx, CreateCarParams{
			ID:           uuid.New().String(),
			Brand:        brand,
			Model:        fmt.Sprintf("%s %d", brand, i),
			Transmission: transmission,
			Price:        int64(30000 + rand.IntN(50001)),
			ReleaseYear:  int64(2020 + i%3),
		}); err != nil {
			return fmt.Errorf("デモデータの投入に失敗: %w", err)
		}
	}

	log.Printf("デモデータを投入しました: %d台", seedCarCount)
	return nil
}
