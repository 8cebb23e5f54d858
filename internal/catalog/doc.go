// Package catalog は車両カタログ検索サービスの内部実装を提供する。
//
// 車両レコードのコレクションに対するフィルタ・複数キー整列・ページング付きの
// 検索と、2種類のゲートで保護されたアクセスを担当する:
//   - 読み取り（詳細取得）: 短命の署名付きトークン（api-jwtヘッダー）
//   - 書き込み（登録）: 共有秘密鍵によるリクエスト署名（api-signatureヘッダー）
//
// 整列に使用できるカラムは許可リストで閉じており、ユーザー入力のカラム名が
// SQLへそのまま展開されることはない。車両レコードは作成のみ可能で、
// 更新・削除のエンドポイントは存在しない。
package catalog
