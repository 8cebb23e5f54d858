package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Car はcarsテーブルの1行を表す。
type Car struct {
	// ID は車両レコードの一意識別子。
	ID string
	// Brand はメーカー名。
	Brand string
	// Model はモデル名。
	Model string
	// Transmission は変速機の種別（AUTOMATIC または MANUAL）。
	Transmission string
	// Price は価格。
	Price int64
	// ReleaseYear は発売年。
	ReleaseYear int64
	// CreatedAt は作成日時。
	CreatedAt time.Time
}

// Queries はcarsコレクションへのクエリ実行オブジェクト。
type Queries struct {
	db *sql.DB
}

// New は新しいクエリ実行オブジェクトを生成する。
func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}

// CreateCarParams は車両レコード作成のパラメータ。
type CreateCarParams struct {
	// ID は車両レコードの一意識別子。
	ID string
	// Brand はメーカー名。
	Brand string
	// Model はモデル名。
	Model string
	// Transmission は変速機の種別。
	Transmission string
	// Price は価格。
	Price int64
	// ReleaseYear は発売年。
	ReleaseYear int64
}

// CreateCar は車両レコードを1件作成する。作成日時はストア側で設定する。
func (q *Queries) CreateCar(ctx context.Context, arg CreateCarParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO cars (id, brand, model, transmission, price, release_year, created_at)
		VALUES (?, ?, ?, ?, ?, ?, datetime('now'))`,
		arg.ID, arg.Brand, arg.Model, arg.Transmission, arg.Price, arg.ReleaseYear,
	)
	return err
}

// GetCarByID は指定されたIDの車両レコードを返す。
// 存在しない場合は sql.ErrNoRows を返す。
func (q *Queries) GetCarByID(ctx context.Context, id string) (Car, error) {
	row := q.db.QueryRowContext(ctx, `
		SELECT id, brand, model, transmission, price, release_year, created_at
		FROM cars WHERE id = ?`, id)

	var c Car
	err := row.Scan(&c.ID, &c.Brand, &c.Model, &c.Transmission, &c.Price, &c.ReleaseYear, &c.CreatedAt)
	return c, err
}

// CountCars は検索計画のフィルタ条件に一致する総件数を返す。
// ページングとは無関係に数えるため、総ページ数の計算に使用できる。
func (q *Queries) CountCars(ctx context.Context, plan *carQuery) (int64, error) {
	where, args := plan.whereClause()
	var total int64
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cars "+where, args...).Scan(&total)
	return total, err
}

// ListCars は検索計画のフィルタ・整列・ページングを適用した1ページ分の車両を返す。
// 範囲外のページに対しては空のスライスを返す。
func (q *Queries) ListCars(ctx context.Context, plan *carQuery) ([]Car, error) {
	where, args := plan.whereClause()
	query := "SELECT id, brand, model, transmission, price, release_year, created_at FROM cars " +
		where + " " + plan.orderClause() + " LIMIT ? OFFSET ?"
	args = append(args, plan.size, (plan.page-1)*plan.size)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cars := make([]Car, 0, plan.size)
	for rows.Next() {
		var c Car
		if err := rows.Scan(&c.ID, &c.Brand, &c.Model, &c.Transmission, &c.Price, &c.ReleaseYear, &c.CreatedAt); err != nil {
			return nil, err
		}
		cars = append(cars, c)
	}
	return cars, rows.Err()
}

// likePattern は部分一致検索用のLIKEパターンを生成する。
// 入力値中の % や _ はエスケープせず、そのままワイルドカードとして扱う。
func likePattern(s string) string {
	return fmt.Sprintf("%%%s%%", s)
}

// whereClause はフィルタ条件のSQL断片とバインド引数を構築する。
// 各部分一致フィルタはANDで結合し、ユーザー由来の値はすべてプレースホルダ経由で渡す。
func (q *carQuery) whereClause() (string, []any) {
	clause := "WHERE brand LIKE ? AND model LIKE ? AND transmission LIKE ?"
	args := []any{likePattern(q.brand), likePattern(q.model), likePattern(q.transmission)}

	switch q.priceOp {
	case priceOpLTE:
		clause += " AND price <= ?"
		args = append(args, q.price)
	case priceOpGTE:
		clause += " AND price >= ?"
		args = append(args, q.price)
	case priceOpBetween:
		clause += " AND price >= ? AND price <= ?"
		args = append(args, q.price, q.priceMax)
	}
	return clause, args
}

// orderClause は検証済みの整列キーからORDER BY句を構築する。
// カラム名と方向は許可リスト検証済みの値のみがここへ到達する。
// 同値の並びを挿入順で安定させるため、末尾に必ずrowidを付ける。
func (q *carQuery) orderClause() string {
	parts := make([]string, 0, len(q.sort)+1)
	for _, k := range q.sort {
		parts = append(parts, k.column+" "+strings.ToUpper(k.direction))
	}
	parts = append(parts, "rowid ASC")
	return "ORDER BY " + strings.Join(parts, ", ")
}
