package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jordanlanch/homeschoolhub/pkg/auth"
	"github.com/jordanlanch/homeschoolhub/pkg/models"
	"github.com/jordanlanch/homeschoolhub/pkg/store"
	"github.com/labstack/echo/v4"
)

// Context keys set by the auth middleware
const (
	KeyUserID    = "user_id"
	KeyUserEmail = "user_email"
	KeyClaims    = "claims"
	KeyAffiliate = "affiliate"
)

func bearerToken(c echo.Context) (string, *models.ErrorResponse) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		return "", &models.ErrorResponse{
			Error:   "missing_token",
			Message: "Authorization header is required",
		}
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", &models.ErrorResponse{
			Error:   "invalid_token_format",
			Message: "Authorization header must be 'Bearer {token}'",
		}
	}
	return parts[1], nil
}

// SupabaseAuth validates the Supabase access token and stores the user in the context
func SupabaseAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, resp := bearerToken(c)
			if resp != nil {
				return c.JSON(http.StatusUnauthorized, resp)
			}

			claims, err := auth.ValidateJWT(token, secret)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "invalid_token",
					Message: "Token is invalid or expired",
				})
			}

			c.Set(KeyClaims, claims)
			c.Set(KeyUserID, claims.UserID())
			c.Set(KeyUserEmail, claims.Email)

			return next(c)
		}
	}
}

// ClaimsFrom returns the claims stored by SupabaseAuth
func ClaimsFrom(c echo.Context) *auth.Claims {
	claims, _ := c.Get(KeyClaims).(*auth.Claims)
	return claims
}

// RequireAdmin allows users whose token carries the admin role or whose email
// is listed in adminEmails. Must run after SupabaseAuth.
func RequireAdmin(adminEmails []string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(adminEmails))
	for _, e := range adminEmails {
		if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
			allowed[e] = struct{}{}
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := ClaimsFrom(c)
			if claims == nil {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "unauthorized",
					Message: "Authentication required",
				})
			}

			_, listed := allowed[strings.ToLower(claims.Email)]
			if !claims.IsAdmin() && !listed {
				return c.JSON(http.StatusForbidden, models.ErrorResponse{
					Error:   "insufficient_permissions",
					Message: "Admin access required",
				})
			}
			return next(c)
		}
	}
}

// AffiliateLoader finds the affiliate owned by a user
type AffiliateLoader interface {
	AffiliateByUserID(ctx context.Context, userID string) (*models.Affiliate, error)
}

// RequireActiveAffiliate loads the caller's affiliate account and rejects
// users without one or whose account is not active. Must run after SupabaseAuth.
func RequireActiveAffiliate(affiliates AffiliateLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, _ := c.Get(KeyUserID).(string)
			if userID == "" {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "unauthorized",
					Message: "Authentication required",
				})
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
			defer cancel()

			aff, err := affiliates.AffiliateByUserID(ctx, userID)
			if errors.Is(err, store.ErrNotFound) {
				return c.JSON(http.StatusForbidden, models.ErrorResponse{
					Error:   "not_an_affiliate",
					Message: "No affiliate account for this user",
				})
			}
			if err != nil {
				c.Logger().Errorf("failed to load affiliate for user %s: %v", userID, err)
				return c.JSON(http.StatusInternalServerError, models.ErrorResponse{
					Error:   "internal_error",
					Message: "An internal error occurred. Please try again later.",
				})
			}
			if !aff.IsActive() {
				return c.JSON(http.StatusForbidden, models.ErrorResponse{
					Error:   "affiliate_inactive",
					Message: "Affiliate account is not active",
				})
			}

			c.Set(KeyAffiliate, aff)
			return next(c)
		}
	}
}

// AffiliateFrom returns the affiliate stored by RequireActiveAffiliate
func AffiliateFrom(c echo.Context) *models.Affiliate {
	aff, _ := c.Get(KeyAffiliate).(*models.Affiliate)
	return aff
}

// CronAuth protects scheduler endpoints with a shared bearer secret in
// production. Other environments skip the check so jobs can be triggered by hand.
func CronAuth(secret string, production bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !production {
				return next(c)
			}
			if secret == "" {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "unauthorized",
					Message: "Cron secret is not configured",
				})
			}

			token, resp := bearerToken(c)
			if resp != nil {
				return c.JSON(http.StatusUnauthorized, resp)
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
				return c.JSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "unauthorized",
					Message: "Invalid cron secret",
				})
			}
			return next(c)
		}
	}
}
