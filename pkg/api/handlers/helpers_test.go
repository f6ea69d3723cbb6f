package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jordanlanch/homeschoolhub/pkg/abandonment"
	"github.com/jordanlanch/homeschoolhub/pkg/affiliate"
	"github.com/jordanlanch/homeschoolhub/pkg/auth"
	"github.com/jordanlanch/homeschoolhub/pkg/cache"
	"github.com/jordanlanch/homeschoolhub/pkg/database/dbtest"
	"github.com/jordanlanch/homeschoolhub/pkg/logger"
	"github.com/jordanlanch/homeschoolhub/pkg/payout"
	"github.com/jordanlanch/homeschoolhub/pkg/programconfig"
	"github.com/jordanlanch/homeschoolhub/pkg/store"
	"github.com/jordanlanch/homeschoolhub/pkg/testdata"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
)

const (
	testJWTSecret     = "super-secret-jwt-token-with-at-least-32-characters"
	testCronSecret    = "cron-secret"
	testCallbackToken = "xendit-callback-token"
	testAdminEmail    = "admin@homeschoolhub.ph"
)

type testEnv struct {
	e      *echo.Echo
	st     *store.Store
	fx     *testdata.Fixtures
	config *programconfig.Service
}

// setupHandlerTest wires every handler over an in-memory database and Redis
func setupHandlerTest(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	cacheClient, err := cache.NewClient("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { cacheClient.Close() })

	st := store.New(dbtest.Open(t))
	log := logger.Discard()

	config := programconfig.NewService(st, cacheClient, log, nil)
	affiliates := affiliate.NewService(st, config, log, nil)
	validator := payout.NewValidator(st, config, log, nil)
	payouts := payout.NewService(st, validator)
	notifier := abandonment.NewNotifier(st, log, nil)

	e := echo.New()
	Register(e, Handlers{
		Affiliate:  NewAffiliateHandler(affiliates, config, st, false, log),
		Admin:      NewAdminHandler(payouts, affiliates, config, log),
		Cron:       NewCronHandler(notifier),
		Webhook:    NewXenditWebhookHandler(affiliates, testCallbackToken, log),
		Health:     NewHealthHandler(map[string]Pinger{"redis": cacheClient}),
		Affiliates: st,
	}, RouteConfig{
		JWTSecret:   testJWTSecret,
		AdminEmails: []string{testAdminEmail},
		CronSecret:  testCronSecret,
		Production:  true,
	})

	return &testEnv{e: e, st: st, fx: testdata.New(t, st), config: config}
}

func bearer(t *testing.T, userID, email string) string {
	t.Helper()
	tok, err := auth.GenerateJWT(userID, email, "", testJWTSecret, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func (env *testEnv) adminToken(t *testing.T) string {
	return bearer(t, "admin-user", testAdminEmail)
}

// do sends a request through the full router
func (env *testEnv) do(t *testing.T, method, target string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	env.e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), dest), rec.Body.String())
}

func withAuth(token string) map[string]string {
	return map[string]string{"Authorization": token}
}
