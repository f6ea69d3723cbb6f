package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4/middleware"
)

// AllowedMethods are the methods the frontend may call cross-origin
var AllowedMethods = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
}

// AllowedHeaders are the request headers accepted on cross-origin calls
var AllowedHeaders = []string{
	"Origin",
	"Content-Type",
	"Accept",
	"Authorization",
}

// CORSConfig returns the CORS configuration for the given frontend URLs.
// Trailing slashes are trimmed and empty entries dropped.
func CORSConfig(frontendURLs ...string) middleware.CORSConfig {
	origins := make([]string, 0, len(frontendURLs))
	for _, u := range frontendURLs {
		u = strings.TrimRight(strings.TrimSpace(u), "/")
		if u == "" || u == "*" {
			continue
		}
		origins = append(origins, u)
	}

	return middleware.CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     AllowedMethods,
		AllowCredentials: true,
		AllowHeaders:     AllowedHeaders,
	}
}
