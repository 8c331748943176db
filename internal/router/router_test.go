package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/apierror"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/config"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/infra"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/service"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/testutil"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/worker"
)

func init() { gin.SetMode(gin.TestMode) }

type memQueue struct {
	mu     sync.Mutex
	emails []worker.EmailPayload
}

func (q *memQueue) EnqueueEFactura(context.Context, worker.EFacturaPayload) error { return nil }

func (q *memQueue) EnqueueEmail(_ context.Context, p worker.EmailPayload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.emails = append(q.emails, p)
	return nil
}

type api struct {
	t      *testing.T
	engine *gin.Engine
	queue  *memQueue
	db     *gorm.DB
	rdb    *redis.Client
}

func newAPI(t *testing.T) *api {
	t.Helper()
	db := testutil.NewDB(t)
	rdb, _ := testutil.NewRedis(t)
	storage, err := infra.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	cfg := &config.Config{
		Env:                "test",
		JWTSecret:          "test-secret",
		JWTExpirationHours: 1,
		JWTRefreshHours:    24,
		RateLimitPerMinute: 1000,
	}
	q := &memQueue{}
	engine := New(cfg, db, rdb, Deps{Storage: storage, Metrics: infra.NewMetrics(), Jobs: q})
	return &api{t: t, engine: engine, queue: q, db: db, rdb: rdb}
}

func (a *api) do(method, path, token string, body any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// login registers a fresh account and returns its access token.
func (a *api) login(email string) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/v1/auth/register", "", dto.RegisterRequest{Email: email, Name: "Test User", Password: "parola-sigura"})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	w = a.do(http.MethodPost, "/v1/auth/login", "", dto.LoginRequest{Email: email, Password: "parola-sigura"})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	return decode[dto.LoginResponse](a.t, w).AccessToken
}

func (a *api) company(token string) string {
	a.t.Helper()
	w := a.do(http.MethodPost, "/v1/companies", token, map[string]any{
		"name":    "Exemplu SRL", "cui": "RO18547290", "reg_com": "J40/1234/2020",
		"address": "Str. Lunga 1", "city": "Bucuresti", "county": "B",
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[dto.CompanyResponse](a.t, w).ID
}

func TestHealthAndMetrics(t *testing.T) {
	a := newAPI(t)

	w := a.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "connected", body["db"])
	assert.Equal(t, "connected", body["redis"])
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	w = a.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `documentiulia_http_requests_total{method="GET",route="/health",status="200"} 1`)
}

func TestAuthFlow(t *testing.T) {
	a := newAPI(t)
	token := a.login("ana@example.ro")

	w := a.do(http.MethodGet, "/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ana@example.ro", decode[dto.UserResponse](t, w).Email)

	w = a.do(http.MethodGet, "/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodPost, "/v1/auth/register", "", dto.RegisterRequest{Email: "ana@example.ro", Name: "Ana", Password: "parola-sigura"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = a.do(http.MethodPost, "/v1/auth/login", "", dto.LoginRequest{Email: "ana@example.ro", Password: "gresit"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = a.do(http.MethodPost, "/v1/auth/register", "", map[string]string{"email": "nu-e-email", "name": "A", "password": "scurt"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	verr := decode[apierror.ValidationError](t, w)
	assert.Equal(t, "email", verr.Fields["email"])
	assert.Equal(t, "min", verr.Fields["password"])

	w = a.do(http.MethodPost, "/v1/auth/login", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "empty body")
}

func TestCompanyTenancy(t *testing.T) {
	a := newAPI(t)
	owner := a.login("owner@example.ro")

	w := a.do(http.MethodPost, "/v1/companies", owner, map[string]any{"name": "Gresit SRL", "cui": "18547291"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "cui", decode[apierror.ValidationError](t, w).Fields["cui"])

	id := a.company(owner)
	w = a.do(http.MethodGet, "/v1/companies/"+id, owner, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[dto.CompanyResponse](t, w).VATPayer)

	stranger := a.login("stranger@example.ro")
	w = a.do(http.MethodGet, "/v1/companies/"+id, stranger, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodGet, "/v1/companies/not-a-uuid", owner, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// a viewer reads but cannot write
	w = a.do(http.MethodPost, "/v1/companies/"+id+"/members", owner, dto.AddMemberRequest{Email: "stranger@example.ro", Role: "viewer"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = a.do(http.MethodGet, "/v1/companies/"+id+"/partners", stranger, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = a.do(http.MethodPost, "/v1/companies/"+id+"/partners", stranger, map[string]any{"type": "client", "name": "Client SA"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = a.do(http.MethodGet, "/v1/companies", stranger, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]dto.CompanyResponse](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "viewer", list[0].Role)
}

func TestInvoiceLifecycle(t *testing.T) {
	a := newAPI(t)
	token := a.login("owner@example.ro")
	base := "/v1/companies/" + a.company(token)

	w := a.do(http.MethodPost, base+"/partners", token, map[string]any{
		"type":    "client", "name": "Client SA", "cui": "RO14399840",
		"country": "RO", "email": "contabil@client.ro",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	partner := decode[dto.PartnerResponse](t, w)

	w = a.do(http.MethodPost, base+"/invoices", token, map[string]any{
		"number":     "0001", "series": "DI", "direction": "issued",
		"partner_id": partner.ID, "issue_date": "2025-09-01",
		"lines":      []map[string]any{{"description": "Servicii", "quantity": "1", "unit_price": "1000"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	inv := decode[dto.InvoiceResponse](t, w)
	assert.Equal(t, "1210.00", inv.Total.StringFixed(2))
	assert.Equal(t, "draft", inv.Status)

	w = a.do(http.MethodPost, base+"/invoices/"+inv.ID+"/issue", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "issued", decode[dto.InvoiceResponse](t, w).Status)

	w = a.do(http.MethodPut, base+"/invoices/"+inv.ID, token, map[string]any{"notes": "prea tarziu"})
	assert.Equal(t, http.StatusConflict, w.Code, "issued invoices are locked")

	w = a.do(http.MethodGet, base+"/invoices?status=issued", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[dto.ListResponse[dto.InvoiceResponse]](t, w).Total)

	w = a.do(http.MethodGet, base+"/invoices?status=unknown", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = a.do(http.MethodGet, base+"/invoices/"+inv.ID+"/pdf", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".pdf")
	assert.True(t, strings.HasPrefix(w.Body.String(), "%PDF"))

	w = a.do(http.MethodPost, base+"/invoices/"+inv.ID+"/send", token, map[string]any{})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	require.Len(t, a.queue.emails, 1)
	assert.Equal(t, "contabil@client.ro", a.queue.emails[0].To)

	w = a.do(http.MethodGet, base+"/invoices/"+inv.ID+"/pdf", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = a.do(http.MethodGet, base+"/invoices/00000000-0000-0000-0000-000000000000", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPeriodsAndReports(t *testing.T) {
	a := newAPI(t)
	token := a.login("owner@example.ro")
	base := "/v1/companies/" + a.company(token)

	w := a.do(http.MethodPost, base+"/periods/2025-09/close", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = a.do(http.MethodPost, base+"/expenses", token, map[string]any{
		"vendor_name": "Papetarie SRL", "category": "birotica",
		"amount":      "100", "vat_amount": "21", "expense_date": "2025-09-15",
	})
	assert.Equal(t, http.StatusConflict, w.Code, "closed period")

	w = a.do(http.MethodPost, base+"/periods/2025-09/reopen", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = a.do(http.MethodGet, base+"/reports/vat?period=2025-13", token, nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "period", decode[apierror.ValidationError](t, w).Fields["period"])

	w = a.do(http.MethodGet, base+"/reports/vat?period=2025-09", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "refundable", decode[dto.VATReport](t, w).Position)

	w = a.do(http.MethodGet, base+"/reports/monthly?year=2025", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[dto.MonthlyReport](t, w).Months, 12)
}

func TestTaxRoutes(t *testing.T) {
	a := newAPI(t)
	token := a.login("ana@example.ro")

	w := a.do(http.MethodGet, "/v1/tax/rates/RO?date=2025-09-01", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "21", decode[dto.CountryRatesResponse](t, w).Standard.String())

	w = a.do(http.MethodGet, "/v1/tax/rates/US", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodGet, "/v1/tax/rates?date=01.09.2025", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = a.do(http.MethodPost, "/v1/tax/calculate", token, map[string]any{"amount": "100", "date": "2025-09-01"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "121.00", decode[dto.CalculateTaxResponse](t, w).Gross.StringFixed(2))
}

func TestAdminDLQ(t *testing.T) {
	a := newAPI(t)
	ctx := context.Background()
	user := a.login("ion@example.ro")

	w := a.do(http.MethodGet, "/v1/admin/dlq/jobs:email", user, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	a.login("admin@example.ro")
	require.NoError(t, a.db.Model(&model.User{}).Where("email = ?", "admin@example.ro").Update("role", service.RoleAdmin).Error)
	w = a.do(http.MethodPost, "/v1/auth/login", "", dto.LoginRequest{Email: "admin@example.ro", Password: "parola-sigura"})
	require.Equal(t, http.StatusOK, w.Code)
	admin := decode[dto.LoginResponse](t, w).AccessToken

	worker.SendToDLQ(ctx, a.rdb, worker.QueueEmail, worker.JobInvoiceEmail, json.RawMessage(`{"invoice_id":"x"}`), "smtp disabled", 1)

	w = a.do(http.MethodGet, "/v1/admin/dlq/jobs:email?limit=5", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode[struct {
		Total   int64             `json:"total"`
		Entries []worker.DLQEntry `json:"entries"`
	}](t, w)
	assert.EqualValues(t, 1, body.Total)
	require.Len(t, body.Entries, 1)
	assert.Equal(t, "smtp disabled", body.Entries[0].Reason)

	w = a.do(http.MethodGet, "/v1/admin/dlq/jobs:fax", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = a.do(http.MethodPost, "/v1/admin/dlq/jobs:email/requeue", admin, map[string]int{"max": 10})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 1, decode[map[string]any](t, w)["requeued"])
	assert.EqualValues(t, 1, a.rdb.LLen(ctx, worker.QueueEmail).Val())
	assert.EqualValues(t, 0, a.rdb.LLen(ctx, worker.DLQPrefix+worker.QueueEmail).Val())
}
