package catalog

import (
	"database/sql"
	"fmt"
	"net/url"
	"testing"

	_ "modernc.org/sqlite"
)

// setupTestQueries はテスト用のクエリ実行オブジェクトをインメモリSQLiteで構築する。
func setupTestQueries(t *testing.T) *Queries {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	// インメモリDBを全クエリで共有するため接続数を1に固定する
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := initSchema(sqlDB); err != nil {
		t.Fatalf("スキーマ初期化に失敗: %v", err)
	}

	return New(sqlDB)
}

// createTestCar はテスト用に車両レコードをDBに直接挿入するヘルパー関数。
func createTestCar(t *testing.T, queries *Queries, id, brand, model, transmission string, price, releaseYear int64) {
	t.Helper()

	err := queries.CreateCar(t.Context(), CreateCarParams{
		ID:           id,
		Brand:        brand,
		Model:        model,
		Transmission: transmission,
		Price:        price,
		ReleaseYear:  releaseYear,
	})
	if err != nil {
		t.Fatalf("テスト用車両の作成に失敗: %v", err)
	}
}

// mustPlan はテスト中の検索計画構築エラーを即時失敗にするヘルパー関数。
func mustPlan(t *testing.T, q *carQuery, err error) *carQuery {
	t.Helper()
	if err != nil {
		t.Fatalf("検索計画の構築に失敗: %v", err)
	}
	return q
}

// TestCreateAndGetCar は車両レコードの作成と取得を検証する。
func TestCreateAndGetCar(t *testing.T) {
	t.Parallel()

	t.Run("作成した車両を同じ内容で取得できること", func(t *testing.T) {
		t.Parallel()

		queries := setupTestQueries(t)
		createTestCar(t, queries, "car-1", "Honda", "Civic", "MANUAL", 30000, 2021)

		car, err := queries.GetCarByID(t.Context(), "car-1")
		if err != nil {
			t.Fatalf("GetCarByID()でエラーが発生: %v", err)
		}

		if car.ID != "car-1" || car.Brand != "Honda" || car.Model != "Civic" {
			t.Errorf("car = %+v, want car-1/Honda/Civic", car)
		}
		if car.Transmission != "MANUAL" || car.Price != 30000 || car.ReleaseYear != 2021 {
			t.Errorf("car = %+v, want MANUAL/30000/2021", car)
		}
		if car.CreatedAt.IsZero() {
			t.Error("CreatedAtが設定されていない")
		}
	})

	t.Run("存在しないIDはsql.ErrNoRowsを返すこと", func(t *testing.T) {
		t.Parallel()

		queries := setupTestQueries(t)
		if _, err := queries.GetCarByID(t.Context(), "no-such-id"); err != sql.ErrNoRows {
			t.Errorf("err = %v, want sql.ErrNoRows", err)
		}
	})

	t.Run("同一IDの二重作成はエラーになること", func(t *testing.T) {
		t.Parallel()

		queries := setupTestQueries(t)
		createTestCar(t, queries, "dup-1", "Honda", "Civic", "MANUAL", 30000, 2021)

		err := queries.CreateCar(t.Context(), CreateCarParams{
			ID: "dup-1", Brand: "Ford", Model: "Focus", Transmission: "MANUAL", Price: 1, ReleaseYear: 2020,
		})
		if err == nil {
			t.Error("主キー重複の作成がエラーを返すべき")
		}
	})
}

// seedFilterFixture はフィルタ・整列テスト用の固定データを投入する。
func seedFilterFixture(t *testing.T, queries *Queries) {
	t.Helper()
	createTestCar(t, queries, "car-1", "Honda", "Civic", "MANUAL", 30000, 2021)
	createTestCar(t, queries, "car-2", "Honda", "Accord", "AUTOMATIC", 45000, 2022)
	createTestCar(t, queries, "car-3", "Ford", "Focus", "MANUAL", 28000, 2020)
	createTestCar(t, queries, "car-4", "BMW", "320i", "AUTOMATIC", 60000, 2022)
	createTestCar(t, queries, "car-5", "BMW", "118i", "MANUAL", 45000, 2021)
}

// carIDs は結果の車両IDを順序どおりに取り出す。
func carIDs(cars []Car) []string {
	ids := make([]string, 0, len(cars))
	for _, c := range cars {
		ids = append(ids, c.ID)
	}
	return ids
}

// TestListCars はフィルタ・整列・ページングの適用を検証する。
func TestListCars(t *testing.T) {
	t.Parallel()

	t.Run("部分一致フィルタがANDで結合されること", func(t *testing.T) {
		t.Parallel()

		queries := setupTestQueries(t)
		seedFilterFixture(t, queries)

		plan, planErr := parseCarQuery(mapValues(map[string]string{
			"brand":        "Honda",
			"transmission": "MANUAL",
		}))
		plan = mustPlan(t, plan, planErr)
		cars, err := queries.ListCars(t.Context(), plan)
		if err != nil {
			t.Fatalf("ListCars()でエラーが発生: %v", err)
		}
		if got := carIDs(cars); len(got) != 1 || got[0] != "car-1" {
			t.Errorf("結果 = %v, want [car-1]", got)
		}
	})

	t.Run("フィルタが大文字小文字を区別しないこと", func(t *testing.T) {
		t.Parallel()

		queries := setupTestQueries(t)
		seedFilterFixture(t, queries)

		plan, planErr := parseCarQuery(mapValues(map[string]string{"brand": "honda"}))
		plan = mustPlan(t, plan, planErr)
		cars, err := queries.ListCars(t.Context(), plan)
		if err != nil {
			t.Fatalf("ListCars()でエラーが発生: %v", err)
		}
		if len(cars) != 2 {
			t.Errorf("結果件数 = %d, want 2", len(cars))
		}
	})

	t.Run("入力中のワイルドカード文字がそのまま解釈されること", func(t *testing.T) {
		t.Parallel()

		queries := setupTestQueries(t)
		seedFilterFixture(t, queries)

		// _ は任意の1文字に一致する
		plan, planErr := parseCarQuery(mapValues(map[string]string{"model": "F_cus"}))
		plan = mustPlan(t, plan, planErr)
		cars, err := queries.ListCars(t.Context(), plan)
		if err != nil {
			t.Fatalf("ListCars()でエラーが発生: %v", err)
		}
		if got := carIDs(cars); len(got) != 1 || got[0] != "car-3" {
			t.Errorf("結果 = %v, want [car-3]", got)
		}
	})

	t.Run("価格の上限条件が境界値を含むこと", func(t *testing.T) {
		t.Parallel()

		queries := setupTestQueries(t)
		seedFilterFixture(t, queries)

		plan, planErr := parseCarQuery(mapValues(map[string]string{
			"price_operator": "lte",
			"price":          "30000",
		}))
		plan = mustPlan(t, plan, planErr)
		cars, err := queries.ListCars(t.Context(), plan)
		if err != nil {
			t.Fatalf("ListCars()でエラーが発生: %v", err)
		}
		if got := carIDs(cars); len(got) != 2 || got[0] != "car-1" || got[1] != "car-3" {
			t.Errorf("結果 = %v, want [car-1 car-3]", got)
		}
	})

	t.Run("価格の範囲条件が両端の境界値を含むこと", func(t *testing.T) {
		t.Parallel()

		queries := setupTestQueries(t)
		seedFilterFixture(t, queries)

		plan, planErr := parseCarQuery(mapValues(map[string]string{
			"price_operator": "between",
			"price":          "28000",
			"price_max":      "45000",
		}))
		plan = mustPlan(t, plan, planErr)
		cars, err := queries.ListCars(t.Context(), plan)
		if err != nil {
			t.Fatalf("ListCars()でエラーが発生: %v", err)
		}
		if len(cars) != 4 {
			t.Errorf("結果件数 = %d, want 4", len(cars))
		}
	})

	t.Run("複数キー整列で第一キーが優先され、同値は第二キーで並ぶこと", func(t *testing.T) {
		t.Parallel()

		queries := setupTestQueries(t)
		seedFilterFixture(t, queries)

		plan, planErr := parseCarQuery(mapValues(map[string]string{
			"sort_by":        "price,brand",
			"sort_direction": "desc",
		}))
		plan = mustPlan(t, plan, planErr)
		cars, err := queries.ListCars(t.Context(), plan)
		if err != nil {
			t.Fatalf("ListCars()でエラーが発生: %v", err)
		}

		// price降順、同価格(45000)のBMW 118iとHonda Accordはbrand昇順
		want := []string{"car-4", "car-5", "car-2", "car-1", "car-3"}
		got := carIDs(cars)
		if len(got) != len(want) {
			t.Fatalf("結果件数 = %d, want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("結果[%d] = %s, want %s (全体 = %v)", i, got[i], want[i], got)
			}
		}
	})

	t.Run("整列キーが同値の場合は挿入順で安定すること", func(t *testing.T) {
		t.Parallel()

		queries := setupTestQueries(t)
		createTestCar(t, queries, "tie-1", "Honda", "Civic", "MANUAL", 30000, 2021)
		createTestCar(t, queries, "tie-2", "Honda", "Civic", "MANUAL", 30000, 2021)
		createTestCar(t, queries, "tie-3", "Honda", "Civic", "MANUAL", 30000, 2021)

		plan, planErr := parseCarQuery(mapValues(map[string]string{"sort_by": "price"}))
		plan = mustPlan(t, plan, planErr)
		cars, err := queries.ListCars(t.Context(), plan)
		if err != nil {
			t.Fatalf("ListCars()でエラーが発生: %v", err)
		}

		want := []string{"tie-1", "tie-2", "tie-3"}
		for i, id := range want {
			if cars[i].ID != id {
				t.Errorf("結果[%d] = %s, want %s", i, cars[i].ID, id)
			}
		}
	})
}

// TestPagination はページング計算と範囲外ページの挙動を検証する。
func TestPagination(t *testing.T) {
	t.Parallel()

	// 25台を投入し、10台ずつの3ページ構成にする
	setup := func(t *testing.T) *Queries {
		t.Helper()
		queries := setupTestQueries(t)
		for i := 1; i <= 25; i++ {
			createTestCar(t, queries, fmt.Sprintf("car-%02d", i), "Honda", fmt.Sprintf("Model %d", i), "MANUAL", int64(1000*i), 2021)
		}
		return queries
	}

	t.Run("総件数と総ページ数が正しく計算されること", func(t *testing.T) {
		t.Parallel()

		queries := setup(t)
		plan, planErr := parseCarQuery(mapValues(nil))
		plan = mustPlan(t, plan, planErr)

		total, err := queries.CountCars(t.Context(), plan)
		if err != nil {
			t.Fatalf("CountCars()でエラーが発生: %v", err)
		}
		if total != 25 {
			t.Errorf("total = %d, want 25", total)
		}
		if got := totalPages(total, plan.size); got != 3 {
			t.Errorf("totalPages = %d, want 3", got)
		}
	})

	t.Run("最終ページには端数のみが含まれること", func(t *testing.T) {
		t.Parallel()

		queries := setup(t)
		plan, planErr := parseCarQuery(mapValues(map[string]string{"page": "3"}))
		plan = mustPlan(t, plan, planErr)

		cars, err := queries.ListCars(t.Context(), plan)
		if err != nil {
			t.Fatalf("ListCars()でエラーが発生: %v", err)
		}
		if len(cars) != 5 {
			t.Errorf("結果件数 = %d, want 5", len(cars))
		}
		if cars[0].ID != "car-21" {
			t.Errorf("先頭 = %s, want car-21", cars[0].ID)
		}
	})

	t.Run("範囲外のページは空の結果を返し、総件数は変わらないこと", func(t *testing.T) {
		t.Parallel()

		queries := setup(t)
		plan, planErr := parseCarQuery(mapValues(map[string]string{"page": "4"}))
		plan = mustPlan(t, plan, planErr)

		cars, err := queries.ListCars(t.Context(), plan)
		if err != nil {
			t.Fatalf("ListCars()でエラーが発生: %v", err)
		}
		if len(cars) != 0 {
			t.Errorf("結果件数 = %d, want 0", len(cars))
		}

		total, err := queries.CountCars(t.Context(), plan)
		if err != nil {
			t.Fatalf("CountCars()でエラーが発生: %v", err)
		}
		if total != 25 {
			t.Errorf("total = %d, want 25", total)
		}
	})

	t.Run("フィルタ付きの総件数がページングと無関係であること", func(t *testing.T) {
		t.Parallel()

		queries := setup(t)
		plan, planErr := parseCarQuery(mapValues(map[string]string{
			"price_operator": "lte",
			"price":          "15000",
			"size":           "3",
		}))
		plan = mustPlan(t, plan, planErr)

		total, err := queries.CountCars(t.Context(), plan)
		if err != nil {
			t.Fatalf("CountCars()でエラーが発生: %v", err)
		}
		if total != 15 {
			t.Errorf("total = %d, want 15", total)
		}

		cars, err := queries.ListCars(t.Context(), plan)
		if err != nil {
			t.Fatalf("ListCars()でエラーが発生: %v", err)
		}
		if len(cars) != 3 {
			t.Errorf("結果件数 = %d, want 3", len(cars))
		}
	})
}

// TestSeedDemoData はデモデータ投入を検証する。
func TestSeedDemoData(t *testing.T) {
	t.Parallel()

	t.Run("空のテーブルに100台が投入されること", func(t *testing.T) {
		t.Parallel()

		queries := setupTestQueries(t)
		if err := seedDemoData(t.Context(), queries); err != nil {
			t.Fatalf("seedDemoData()でエラーが発生: %v", err)
		}

		plan, planErr := parseCarQuery(mapValues(map[string]string{"size": "200"}))
		plan = mustPlan(t, plan, planErr)
		total, err := queries.CountCars(t.Context(), plan)
		if err != nil {
			t.Fatalf("CountCars()でエラーが発生: %v", err)
		}
		if total != 100 {
			t.Errorf("total = %d, want 100", total)
		}
	})

	t.Run("既存データがある場合は何もしないこと", func(t *testing.T) {
		t.Parallel()

		queries := setupTestQueries(t)
		createTestCar(t, queries, "existing", "Honda", "Civic", "MANUAL", 30000, 2021)

		if err := seedDemoData(t.Context(), queries); err != nil {
			t.Fatalf("seedDemoData()でエラーが発生: %v", err)
		}

		plan, planErr := parseCarQuery(mapValues(nil))
		plan = mustPlan(t, plan, planErr)
		total, err := queries.CountCars(t.Context(), plan)
		if err != nil {
			t.Fatalf("CountCars()でエラーが発生: %v", err)
		}
		if total != 1 {
			t.Errorf("total = %d, want 1", total)
		}
	})
}

// mapValues は文字列マップをurl.Valuesへ変換するテスト用ヘルパー。
func mapValues(m map[string]string) url.Values {
	values := url.Values{}
	for k, v := range m {
		values.Set(k, v)
	}
	return values
}
