package middleware

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/apierror"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/infra"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
)

const testSecret = "test_jwt_secret_32_chars_minimum!"

func init() { gin.SetMode(gin.TestMode) }

func signToken(t *testing.T, userID, role, typ string, dur time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": userID, "email": "test@example.ro", "role": role, "typ": typ,
		"exp": time.Now().Add(dur).Unix(), "iat": time.Now().Unix(),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func do(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func ok(c *gin.Context) { c.Status(http.StatusOK) }

// ── JWT ───────────────────────────────────────────────────────────────────────

func TestJWTAuth(t *testing.T) {
	r := gin.New()
	r.GET("/p", JWTAuth(testSecret), func(c *gin.Context) {
		c.String(http.StatusOK, UserID(c).String())
	})
	uid := uuid.NewString()

	w := do(r, http.MethodGet, "/p", signToken(t, uid, "user", "access", time.Hour))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, uid, w.Body.String())

	cases := map[string]string{
		"missing":  "",
		"refresh":  signToken(t, uid, "user", "refresh", time.Hour),
		"expired":  signToken(t, uid, "user", "access", -time.Minute),
		"garbage":  "abc.def.ghi",
		"bad user": signToken(t, "not-a-uuid", "user", "access", time.Hour),
	}
	for name, tok := range cases {
		assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/p", tok).Code, name)
	}
}

func TestRequireRole(t *testing.T) {
	r := gin.New()
	r.GET("/admin", JWTAuth(testSecret), RequireRole("admin"), ok)
	uid := uuid.NewString()

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/admin", signToken(t, uid, "admin", "access", time.Hour)).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/admin", signToken(t, uid, "user", "access", time.Hour)).Code)
}

// ── Company access ────────────────────────────────────────────────────────────

type stubResolver struct {
	roles map[uuid.UUID]string
	err   error
	calls int
}

func (s *stubResolver) MemberRole(_ context.Context, _, userID uuid.UUID) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	role, ok := s.roles[userID]
	if !ok {
		return "", fmt.Errorf("not a member of this company: %w", apierror.ErrForbidden)
	}
	return role, nil
}

func companyRouter(res MembershipResolver) *gin.Engine {
	r := gin.New()
	g := r.Group("/v1/companies/:companyId", JWTAuth(testSecret), CompanyAccess(res))
	g.GET("/items", func(c *gin.Context) { c.String(http.StatusOK, CompanyID(c).String()) })
	g.POST("/items", ok)
	g.POST("/periods/close", RequireMemberRole(model.MemberOwner, model.MemberAdmin), ok)
	return r
}

func TestCompanyAccess(t *testing.T) {
	owner, viewer, stranger := uuid.New(), uuid.New(), uuid.New()
	res := &stubResolver{roles: map[uuid.UUID]string{owner: model.MemberOwner, viewer: model.MemberViewer}}
	r := companyRouter(res)
	company := uuid.NewString()
	base := "/v1/companies/" + company

	ownerTok := signToken(t, owner.String(), "user", "access", time.Hour)
	viewerTok := signToken(t, viewer.String(), "user", "access", time.Hour)
	strangerTok := signToken(t, stranger.String(), "user", "access", time.Hour)

	w := do(r, http.MethodGet, base+"/items", ownerTok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, company, w.Body.String())
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, base+"/items", ownerTok).Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodPost, base+"/periods/close", ownerTok).Code)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, base+"/items", viewerTok).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPost, base+"/items", viewerTok).Code)

	w = do(r, http.MethodGet, base+"/items", strangerTok)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "not a member")

	assert.Equal(t, http.StatusBadRequest, do(r, http.MethodGet, "/v1/companies/x/items", ownerTok).Code)
}

func TestCompanyAccess_AccountantCannotClosePeriods(t *testing.T) {
	accountant := uuid.New()
	r := companyRouter(&stubResolver{roles: map[uuid.UUID]string{accountant: model.MemberAccountant}})
	tok := signToken(t, accountant.String(), "user", "access", time.Hour)

	w := do(r, http.MethodPost, "/v1/companies/"+uuid.NewString()+"/periods/close", tok)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCompanyAccess_ResolverFailureIsGeneric500(t *testing.T) {
	r := companyRouter(&stubResolver{err: fmt.Errorf("dial tcp: connection refused")})
	tok := signToken(t, uuid.NewString(), "user", "access", time.Hour)

	w := do(r, http.MethodGet, "/v1/companies/"+uuid.NewString()+"/items", tok)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "dial tcp")
}

// ── Ambient middleware ────────────────────────────────────────────────────────

func TestRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })

	w := do(r, http.MethodGet, "/", "")
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/boom", func(*gin.Context) { panic("kaboom") })

	w := do(r, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"detail":"Internal server error"}`, w.Body.String())
}

func TestErrorHandler(t *testing.T) {
	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/err", func(c *gin.Context) { _ = c.Error(fmt.Errorf("pq: relation missing")) })

	w := do(r, http.MethodGet, "/err", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "pq:")
}

func TestCORS_Preflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS())
	r.GET("/", ok)

	w := do(r, http.MethodOptions, "/", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(3))
	r.GET("/", ok)

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, do(r, http.MethodGet, "/", "").Code, "request %d", i)
	}
	w := do(r, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestIPLimiters_Purge(t *testing.T) {
	l := &ipLimiters{entries: map[string]*ipLimiter{}, limit: 1, burst: 1, idleTTL: time.Minute}
	l.get("10.0.0.1")
	assert.Zero(t, l.purge(time.Now()))
	assert.Equal(t, 1, l.purge(time.Now().Add(2*time.Minute)))
	assert.Empty(t, l.entries)
}

func TestMetrics(t *testing.T) {
	m := infra.NewMetrics()
	r := gin.New()
	r.Use(Metrics(m))
	r.GET("/items/:id", ok)

	do(r, http.MethodGet, "/items/1", "")
	do(r, http.MethodGet, "/items/2", "")
	do(r, http.MethodGet, "/nowhere", "")

	assert.Equal(t, 2.0, promtest.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/items/:id", "200")))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "unmatched", "404")))
}
