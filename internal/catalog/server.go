package catalog

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/nao1215/carhub/pkg/middleware"
)

// rateLimitPerMinute は保護対象エンドポイントの1分あたりの許容リクエスト数。
const rateLimitPerMinute = 5

// Server はカタログ検索サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// cfg はサービス設定。秘密鍵を含み、初期化後は読み取り専用。
	cfg Config
	// queries はcarsコレクションへのクエリ実行オブジェクト。
	queries *Queries
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// NewServer は新しいカタログサーバーを生成する。
// SQLiteデータベースの初期化とスキーマ作成を行い、
// 設定で有効な場合はデモデータを投入する。
func NewServer(cfg Config) (*Server, error) {
	sqlDB, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := initSchema(sqlDB); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	queries := New(sqlDB)

	if cfg.SeedDemoData {
		if err := seedDemoData(context.Background(), queries); err != nil {
			return nil, fmt.Errorf("デモデータの投入に失敗: %w", err)
		}
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORS([]string{cfg.AllowedOrigin}))

	s := &Server{
		router:  router,
		cfg:     cfg,
		queries: queries,
		db:      sqlDB,
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.cfg.Port))
}

// Shutdown はデータベース接続をクローズする。
func (s *Server) Shutdown() {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.Printf("データベースのクローズに失敗: %v", err)
		}
	}
}

// setupRoutes はAPIルーティングを設定する。
// 保護が必要なエンドポイントには、レート制限→検証の順でミドルウェアを連ね、
// 検証に失敗したリクエストがストアへ到達する前に打ち切られるようにする。
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		// トークン発行
		api.POST("/auth", s.handleAuth())

		// 車両検索（認証不要）
		api.GET("/cars", s.handleListCars())

		// 車両詳細取得（レート制限＋トークン検証）
		api.GET("/car/:id",
			middleware.RateLimit(rateLimitPerMinute, time.Minute, time.Now),
			middleware.TokenAuth(s.cfg.JWTSecret),
			s.handleGetCar(),
		)

		// 車両登録（レート制限＋リクエスト署名検証）
		api.POST("/car",
			middleware.RateLimit(rateLimitPerMinute, time.Minute, time.Now),
			middleware.SignatureAuth(s.cfg.HMACSecret),
			s.handleCreateCar(),
		)
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "catalog"})
	})
}

// createCarRequest は車両登録リクエストのJSON構造。
// フィールドの存在検証は署名ミドルウェアが済ませている。
type createCarRequest struct {
	// Brand はメーカー名。
	Brand string `json:"brand"`
	// Model はモデル名。
	Model string `json:"model"`
	// Transmission は変速機の種別。
	Transmission string `json:"transmission"`
	// Price は価格。
	Price int64 `json:"price"`
	// ReleaseYear は発売年。
	ReleaseYear int64 `json:"release_year"`
}

// carResponse は車両レコードのJSONレスポンス構造。
type carResponse struct {
	// ID は車両レコードの一意識別子。
	ID string `json:"id"`
	// Brand はメーカー名。
	Brand string `json:"brand"`
	// Model はモデル名。
	Model string `json:"model"`
	// Transmission は変速機の種別。
	Transmission string `json:"transmission"`
	// Price は価格。
	Price int64 `json:"price"`
	// ReleaseYear は発売年。
	ReleaseYear int64 `json:"release_year"`
	// CreatedAt は作成日時。
	CreatedAt string `json:"created_at"`
}

// toCarResponse はDB行をJSONレスポンスに変換する。
func toCarResponse(c Car) carResponse {
	return carResponse{
		ID:           c.ID,
		Brand:        c.Brand,
		Model:        c.Model,
		Transmission: c.Transmission,
		Price:        c.Price,
		ReleaseYear:  c.ReleaseYear,
		CreatedAt:    c.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// handleAuth はオペレーター認証を行い、短命の認証トークンを発行するハンドラを返す。
// 認証情報はHTTP Basic認証で受け取り、タイミング攻撃を避けるため一定時間比較で照合する。
// 認証情報の欠落と不一致は同じ401で応答し、どちらが原因かを外部に漏らさない。
func (s *Server) handleAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		username, password, ok := c.Request.BasicAuth()
		if !ok || username == "" || password == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "認証情報がありません"})
			return
		}

		userMatch := subtle.ConstantTimeCompare([]byte(username), []byte(s.cfg.OperatorName))
		passMatch := subtle.ConstantTimeCompare([]byte(password), []byte(s.cfg.OperatorPassword))
		if userMatch&passMatch != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"message": "認証に失敗しました"})
			return
		}

		token, err := middleware.GenerateToken(s.cfg.JWTSecret, username)
		if err != nil {
			log.Printf("トークン生成エラー: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "トークンの生成に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

// handleListCars はフィルタ・複数キー整列・ページング付きの車両検索を処理するハンドラを返す。
// 許可リスト外の整列指定は400で拒否し、ストアへ到達させない。
func (s *Server) handleListCars() gin.HandlerFunc {
	return func(c *gin.Context) {
		plan, err := parseCarQuery(c.Request.URL.Query())
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}

		total, err := s.queries.CountCars(c.Request.Context(), plan)
		if err != nil {
			log.Printf("車両件数取得エラー: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "車両の検索に失敗しました"})
			return
		}

		cars, err := s.queries.ListCars(c.Request.Context(), plan)
		if err != nil {
			log.Printf("車両検索エラー: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "車両の検索に失敗しました"})
			return
		}

		responses := make([]carResponse, 0, len(cars))
		for _, car := range cars {
			responses = append(responses, toCarResponse(car))
		}

		c.JSON(http.StatusOK, gin.H{
			"data":          responses,
			"page":          plan.page,
			"size":          plan.size,
			"total_element": total,
			"total_page":    totalPages(total, plan.size),
		})
	}
}

// handleGetCar は車両詳細取得を処理するハンドラを返す。
// トークン検証はミドルウェアで完了しているため、ここでは取得と404判定のみを行う。
func (s *Server) handleGetCar() gin.HandlerFunc {
	return func(c *gin.Context) {
		carID := c.Param("id")

		car, err := s.queries.GetCarByID(c.Request.Context(), carID)
		if err == sql.ErrNoRows {
			c.JSON(http.StatusNotFound, gin.H{"message": "指定されたIDの車両が見つかりません"})
			return
		}
		if err != nil {
			log.Printf("車両取得エラー: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "車両の取得に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, toCarResponse(car))
	}
}

// handleCreateCar は車両登録を処理するハンドラを返す。
// 署名検証はミドルウェアで完了している。IDは署名対象データから導出せず、
// ここで新規に採番する。同一ボディの再登録も新しいIDを持つ別レコードになる。
func (s *Server) handleCreateCar() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createCarRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"message": "リクエストボディが不正です"})
			return
		}

		carID := uuid.New().String()
		if err := s.queries.CreateCar(c.Request.Context(), CreateCarParams{
			ID:           carID,
			Brand:        req.Brand,
			Model:        req.Model,
			Transmission: req.Transmission,
			Price:        req.Price,
			ReleaseYear:  req.ReleaseYear,
		}); err != nil {
			log.Printf("車両登録エラー: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "車両の登録に失敗しました"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{"car_id": carID})
	}
}
