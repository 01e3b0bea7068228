package api

import (
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/darkstar-labs/batchmix/internal/address"
	"github.com/darkstar-labs/batchmix/internal/coinjoin"
)

// APIHandler binds the engine's public surface to Gin routes.
type APIHandler struct {
	engine *coinjoin.Engine
	wsHub  *Hub
}

// RouterConfig carries the env-sourced settings SetupRouter needs for its
// auth and rate-limit middleware, so cmd/engine/main.go is the single place
// that reads them from the environment.
type RouterConfig struct {
	AuthToken          string
	RateLimitPerMinute int
	RateLimitBurst     int
}

// SetupRouter builds the Gin engine exactly the way the teacher's
// SetupRouter does: a manual CORS middleware, a public route group, and an
// auth+rate-limited group for everything that mutates state.
func SetupRouter(engine *coinjoin.Engine, wsHub *Hub, cfg RouterConfig) *gin.Engine {
	r := gin.Default()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	handler := &APIHandler{engine: engine, wsHub: wsHub}

	pub := r.Group("/api/v1")
	{
		pub.GET("/health", handler.handleHealth)
		pub.GET("/stream", wsHub.Subscribe)
		pub.GET("/pools/:symbol", handler.handleGetPoolStats)
		pub.GET("/pools/:symbol/deposits/:index", handler.handleGetDepositDetails)
	}

	auth := r.Group("/api/v1")
	auth.Use(AuthMiddleware(cfg.AuthToken))
	auth.Use(NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst).Middleware())
	{
		auth.POST("/swaps", handler.handlePrivateSwap)
		auth.POST("/mix/:symbol", handler.handleExecuteMixing)
	}

	return r
}

type privateSwapRequest struct {
	TokenIn        string `json:"tokenIn" binding:"required"`
	TokenOut       string `json:"tokenOut" binding:"required"`
	AmountIn       int64  `json:"amountIn" binding:"required"`
	MinAmountOut   int64  `json:"minAmountOut" binding:"required"`
	MaxSlippageBps uint32 `json:"maxSlippageBps"`
	User           string `json:"user" binding:"required"`
	Recipient      string `json:"recipient" binding:"required"`
}

// handlePrivateSwap is the HTTP binding for private_swap. Address format is
// validated here, at the system boundary, before the request ever reaches
// the chain-agnostic core (spec §4.H).
func (h *APIHandler) handlePrivateSwap(c *gin.Context) {
	var req privateSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	if err := address.Validate(req.User); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user is not a well-formed address", "details": err.Error()})
		return
	}
	if err := address.Validate(req.Recipient); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "recipient is not a well-formed address", "details": err.Error()})
		return
	}

	timestamp, err := h.engine.PrivateSwap(c.Request.Context(), coinjoin.PrivateSwapRequest{
		TokenIn:        req.TokenIn,
		TokenOut:       req.TokenOut,
		AmountIn:       req.AmountIn,
		MinAmountOut:   req.MinAmountOut,
		MaxSlippageBps: req.MaxSlippageBps,
		User:           req.User,
		Recipient:      req.Recipient,
		Authorized:     true, // caller already passed AuthMiddleware's bearer check
	})
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"timestamp": timestamp})
}

// handleExecuteMixing is the HTTP binding for execute_coinjoin_mixing.
func (h *APIHandler) handleExecuteMixing(c *gin.Context) {
	symbol := c.Param("symbol")

	var body struct {
		MaxDeposits *int `json:"maxDeposits"`
	}
	_ = c.ShouldBindJSON(&body) // an empty body is valid: no cap requested

	anonymitySetSize, err := h.engine.ExecuteCoinjoinMixing(c.Request.Context(), symbol, body.MaxDeposits)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"anonymitySetSize": anonymitySetSize})
}

// handleGetPoolStats is the HTTP binding for get_pool_stats.
func (h *APIHandler) handleGetPoolStats(c *gin.Context) {
	stats, err := h.engine.GetPoolStats(c.Param("symbol"))
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"currentPoolSize":   stats.CurrentPoolSize,
		"feeBasisPoints":    stats.FeeBasisPoints,
		"estimatedWaitTime": stats.EstimatedWaitTime,
	})
}

// handleGetDepositDetails is the HTTP binding for get_deposit_details.
func (h *APIHandler) handleGetDepositDetails(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be an integer"})
		return
	}

	details, err := h.engine.GetDepositDetails(c.Param("symbol"), index)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"minAmountOut":    details.MinAmountOut,
		"maxSlippageBps":  details.MaxSlippageBps,
		"expiryTimestamp": details.ExpiryTimestamp,
		"timestamp":       details.Timestamp,
		"feePaid":         details.FeePaid,
	})
}

// handleHealth returns engine status and capability flags for service
// discovery, in the shape of the teacher's handleHealth.
func (h *APIHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "operational",
		"engine": "batchmix",
		"capabilities": gin.H{
			"privateSwap":     true,
			"explicitMixing":  true,
			"refundExpired":   true,
			"websocketStream": true,
		},
	})
}

// statusForError maps a coinjoin.CoreError to an HTTP status, defaulting to
// 500 for anything the core didn't classify.
func statusForError(err error) int {
	var ce *coinjoin.CoreError
	if !errors.As(err, &ce) {
		return http.StatusInternalServerError
	}
	switch ce.Kind {
	case coinjoin.KindInvalidInput:
		return http.StatusBadRequest
	case coinjoin.KindInsufficientBalance:
		return http.StatusConflict
	case coinjoin.KindUnauthorized:
		return http.StatusUnauthorized
	case coinjoin.KindNotInitialized, coinjoin.KindAlreadyInitialized:
		return http.StatusServiceUnavailable
	case coinjoin.KindPairNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
