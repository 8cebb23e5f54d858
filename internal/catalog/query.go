package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// 検索計画のデフォルト値。
const (
	defaultPage = 1
	defaultSize = 10
)

// 価格条件の演算子タグ。price_operator パラメータの値に対応する。
const (
	priceOpLTE     = "lte"
	priceOpGTE     = "gte"
	priceOpBetween = "between"
)

// sortableColumns は整列に使用できるカラムの許可リスト。
// ユーザー入力のカラム名をSQLへそのまま展開しないための閉じた集合である。
var sortableColumns = map[string]struct{}{
	"id":           {},
	"brand":        {},
	"model":        {},
	"transmission": {},
	"price":        {},
	"release_year": {},
	"created_at":   {},
}

var (
	// errUnknownSortField は許可リスト外の整列カラムが指定されたことを表す。
	errUnknownSortField = errors.New("整列に使用できないカラムです")
	// errInvalidSortDirection は asc / desc 以外の整列方向が指定されたことを表す。
	errInvalidSortDirection = errors.New("整列方向には asc または desc のみ指定できます")
)

// sortKey は1つの整列キー（カラムと方向）を表す。
type sortKey struct {
	// column は整列対象のカラム名。許可リスト検証済み。
	column string
	// direction は整列方向。asc または desc。
	direction string
}

// carQuery は検証済みの検索条件・整列・ページング計画を表す。
// リクエストごとに構築し、リクエスト終了とともに破棄する。
type carQuery struct {
	// page は1始まりのページ番号。
	page int
	// size は1ページあたりの件数。
	size int
	// brand / model / transmission は部分一致フィルタ。空文字列は全件一致。
	brand        string
	model        string
	transmission string
	// priceOp は価格条件の演算子タグ。空文字列は条件なし。
	priceOp string
	// price は価格条件の基準値。
	price int64
	// priceMax はbetween条件の上限値。
	priceMax int64
	// sort は整列キーの列。先頭が第一キー。
	sort []sortKey
}

// parseCarQuery は信頼できないクエリパラメータから検索計画を構築する。
// 整列カラムが許可リスト外の場合と整列方向が不正な場合のみエラーを返し、
// それ以外の解釈できない値はデフォルトに倒す。
func parseCarQuery(values url.Values) (*carQuery, error) {
	q := &carQuery{
		page:         intOrDefault(values.Get("page"), defaultPage),
		size:         intOrDefault(values.Get("size"), defaultSize),
		brand:        values.Get("brand"),
		model:        values.Get("model"),
		transmission: values.Get("transmission"),
		priceOp:      values.Get("price_operator"),
		price:        int64OrDefault(values.Get("price"), 0),
	}
	// price_max 未指定時は price+1 を上限とする
	q.priceMax = int64OrDefault(values.Get("price_max"), q.price+1)

	if sortBy := values.Get("sort_by"); sortBy != "" {
		fields := strings.Split(sortBy, ",")

		var directions []string
		if sd := values.Get("sort_direction"); sd != "" {
			directions = strings.Split(sd, ",")
		}
		// 方向リストが短い場合はascで埋める。長い場合の余剰は無視される。
		for len(directions) < len(fields) {
			directions = append(directions, "asc")
		}

		q.sort = make([]sortKey, 0, len(fields))
		for i, field := range fields {
			if _, ok := sortableColumns[field]; !ok {
				return nil, fmt.Errorf("%w: %s", errUnknownSortField, field)
			}
			direction := strings.ToLower(directions[i])
			if direction != "asc" && direction != "desc" {
				return nil, fmt.Errorf("%w: %s", errInvalidSortDirection, directions[i])
			}
			q.sort = append(q.sort, sortKey{column: field, direction: direction})
		}
	}

	return q, nil
}

// totalPages は総件数とページサイズから総ページ数を切り上げで計算する。
func totalPages(total int64, size int) int64 {
	if total == 0 {
		return 0
	}
	return (total + int64(size) - 1) / int64(size)
}

// intOrDefault は10進整数として解釈できない値と1未満の値をデフォルト値に倒す。
func intOrDefault(s string, defaultValue int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return defaultValue
	}
	return n
}

// int64OrDefault は10進整数として解釈できない値をデフォルト値に倒す。
func int64OrDefault(s string, defaultValue int64) int64 {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return defaultValue
	}
	return n
}
