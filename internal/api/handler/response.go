// Package handler contains the HTTP handlers for the REST API.
// response.go defines the uniform JSON envelope all endpoints use.
package handler

import (
	"net/http"
	"strconv"

	"github.com/betfeed/betfeed/internal/domain"
	"github.com/gin-gonic/gin"
)

// Response is the envelope every endpoint returns.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *Meta       `json:"meta,omitempty"`
}

// APIError carries a machine-readable code plus a human message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Meta carries pagination info for list endpoints.
type Meta struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total,omitempty"`
}

// ──────────────────────────────────────────────────────────────────────────────
// Writers
// ──────────────────────────────────────────────────────────────────────────────

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

func respondList(c *gin.Context, data interface{}, meta Meta) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data, Meta: &meta})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.JSON(status, Response{Success: false, Error: &APIError{Code: code, Message: message}})
}

// respondDomainError maps the domain error taxonomy onto HTTP statuses:
// not-found → 404, invalid trade → 400, transient conflict → 409, the rest →
// 500 with the detail kept out of the body.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "NOT_FOUND", err.Error())
	case domain.IsInvalidTrade(err):
		respondError(c, http.StatusBadRequest, "INVALID_TRADE", err.Error())
	case domain.IsTransient(err):
		respondError(c, http.StatusConflict, "TRADE_CONFLICT",
			"market is busy, please retry")
	default:
		respondError(c, http.StatusInternalServerError, "INTERNAL", "internal server error")
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Query helpers
// ──────────────────────────────────────────────────────────────────────────────

// parsePagination reads ?limit= and ?offset= with sane fallbacks.
func parsePagination(c *gin.Context, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
