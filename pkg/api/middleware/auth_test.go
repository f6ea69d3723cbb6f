package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jordanlanch/homeschoolhub/pkg/auth"
	"github.com/jordanlanch/homeschoolhub/pkg/database/dbtest"
	"github.com/jordanlanch/homeschoolhub/pkg/models"
	"github.com/jordanlanch/homeschoolhub/pkg/store"
	"github.com/jordanlanch/homeschoolhub/pkg/testdata"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func okHandler(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func run(t *testing.T, h echo.HandlerFunc, authHeader string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec
}

func token(t *testing.T, userID, email, role string) string {
	t.Helper()
	tok, err := auth.GenerateJWT(userID, email, role, testSecret, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestSupabaseAuth(t *testing.T) {
	var gotUser, gotEmail string
	h := SupabaseAuth(testSecret)(func(c echo.Context) error {
		gotUser, _ = c.Get(KeyUserID).(string)
		gotEmail, _ = c.Get(KeyUserEmail).(string)
		return c.NoContent(http.StatusOK)
	})

	t.Run("Success", func(t *testing.T) {
		rec := run(t, h, token(t, "user-1", "maria@example.com", ""))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user-1", gotUser)
		assert.Equal(t, "maria@example.com", gotEmail)
	})

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"missing header", "", "missing_token"},
		{"wrong scheme", "Basic abc", "invalid_token_format"},
		{"garbage token", "Bearer not-a-jwt", "invalid_token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := run(t, h, tt.header)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.code)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	h := SupabaseAuth(testSecret)(RequireAdmin([]string{"Ops@HomeschoolHub.ph"})(okHandler))

	assert.Equal(t, http.StatusOK, run(t, h, token(t, "u1", "someone@example.com", auth.RoleAdmin)).Code)
	assert.Equal(t, http.StatusOK, run(t, h, token(t, "u2", "ops@homeschoolhub.ph", "")).Code)

	rec := run(t, h, token(t, "u3", "parent@example.com", ""))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient_permissions")

	assert.Equal(t, http.StatusUnauthorized, run(t, RequireAdmin(nil)(okHandler), "").Code)
}

func TestRequireActiveAffiliate(t *testing.T) {
	st := store.New(dbtest.Open(t))
	fx := testdata.New(t, st)

	active := fx.Affiliate()
	suspended := fx.Affiliate(testdata.WithStatus(models.AffiliateStatusSuspended))

	var loaded *models.Affiliate
	h := SupabaseAuth(testSecret)(RequireActiveAffiliate(st)(func(c echo.Context) error {
		loaded = AffiliateFrom(c)
		return c.NoContent(http.StatusOK)
	}))

	rec := run(t, h, token(t, active.UserID, active.Email, ""))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, loaded)
	assert.Equal(t, active.ID, loaded.ID)

	rec = run(t, h, token(t, suspended.UserID, suspended.Email, ""))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "affiliate_inactive")

	rec = run(t, h, token(t, "no-affiliate", "parent@example.com", ""))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "not_an_affiliate")
}

func TestCronAuth(t *testing.T) {
	h := CronAuth("cron-secret", true)(okHandler)
	assert.Equal(t, http.StatusOK, run(t, h, "Bearer cron-secret").Code)
	assert.Equal(t, http.StatusUnauthorized, run(t, h, "Bearer wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, run(t, h, "").Code)

	assert.Equal(t, http.StatusOK, run(t, CronAuth("", false)(okHandler), "").Code, "open in development")
	assert.Equal(t, http.StatusOK, run(t, CronAuth("cron-secret", false)(okHandler), "").Code, "secret not enforced in development")
	assert.Equal(t, http.StatusOK, run(t, CronAuth("cron-secret", false)(okHandler), "Bearer wrong").Code)
	assert.Equal(t, http.StatusUnauthorized, run(t, CronAuth("", true)(okHandler), "").Code, "closed in production")
}
