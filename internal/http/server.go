package http

import (
	_ "embed"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xeipuuv/gojsonschema"

	"fuel-station-go/internal/bankbook"
	"fuel-station-go/internal/config"
)

//go:embed schemas/transfer_request.schema.json
var transferSchemaJSON string

type Server struct {
	cfg            *config.Config
	svc            *bankbook.Service
	users          UserStore
	transferSchema *gojsonschema.Schema
}

func NewServer(cfg *config.Config, store bankbook.Store, users UserStore) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors(cfg))
	r.Use(logging())

	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(transferSchemaJSON))
	if err != nil {
		panic(err)
	}

	s := &Server{
		cfg:            cfg,
		svc:            bankbook.NewService(store),
		users:          users,
		transferSchema: schema,
	}

	r.POST("/v1/auth/register", s.authRegister)
	r.POST("/v1/auth/login", s.authLogin)

	authorized := r.Group("/v1")
	authorized.Use(s.authMiddleware())
	{
		authorized.GET("/accounts", s.listAccounts)
		authorized.POST("/accounts", s.createAccount)
		authorized.GET("/accounts/:id", s.getAccount)
		authorized.PUT("/accounts/:id", s.updateAccount)
		authorized.DELETE("/accounts/:id", s.deleteAccount)
		authorized.GET("/accounts/:id/summary", s.accountSummary)
		authorized.POST("/accounts/:id/reconcile", s.reconcileAccount)
		authorized.GET("/transactions", s.listTransactions)
		authorized.POST("/transactions", s.createTransaction)
		authorized.POST("/transfer", s.transferFunds)
		authorized.GET("/dashboard", s.dashboard)
	}

	r.GET("/health", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })
	return r
}

func cors(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", cfg.AllowOrigins)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

func logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Printf("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
