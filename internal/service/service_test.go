package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/infra"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/repository"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/testutil"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/worker"
)

// ── Fakes ─────────────────────────────────────────────────────────────────────

type fakeQueue struct {
	mu       sync.Mutex
	err      error
	efactura []worker.EFacturaPayload
	emails   []worker.EmailPayload
}

var _ JobQueue = (*fakeQueue)(nil)

func (q *fakeQueue) EnqueueEFactura(_ context.Context, p worker.EFacturaPayload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.efactura = append(q.efactura, p)
	return nil
}

func (q *fakeQueue) EnqueueEmail(_ context.Context, p worker.EmailPayload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.emails = append(q.emails, p)
	return nil
}

type fakeSubmitter struct{ invoices []uuid.UUID }

func (f *fakeSubmitter) AutoSubmit(_ context.Context, _, invoiceID uuid.UUID) {
	f.invoices = append(f.invoices, invoiceID)
}

// ── Environment ───────────────────────────────────────────────────────────────

// env wires every service against an in-memory database, miniredis and a
// temporary local storage, with one owner, one company and one domestic
// client.
type env struct {
	ctx     context.Context
	db      *gorm.DB
	rdb     *redis.Client
	storage infra.Storage
	queue   *fakeQueue
	auto    *fakeSubmitter

	users     repository.UserRepository
	companies repository.CompanyRepository
	partnersR repository.PartnerRepository
	invoicesR repository.InvoiceRepository
	expensesR repository.ExpenseRepository
	bankR     repository.BankRepository
	efacturaR repository.EFacturaRepository

	periods  PeriodService
	company  CompanyService
	partner  PartnerService
	invoice  InvoiceService
	expense  ExpenseService
	bank     BankService
	report   ReportService
	efactura EFacturaService
	saft     SAFTService

	owner   *model.User
	co      *model.Company
	client  *model.Partner
	foreign *model.Partner
}

func newEnv(t *testing.T) *env {
	t.Helper()
	db := testutil.NewDB(t)
	rdb, _ := testutil.NewRedis(t)
	storage, err := infra.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	e := &env{
		ctx:       context.Background(),
		db:        db,
		rdb:       rdb,
		storage:   storage,
		queue:     &fakeQueue{},
		auto:      &fakeSubmitter{},
		users:     repository.NewUserRepository(db),
		companies: repository.NewCompanyRepository(db),
		partnersR: repository.NewPartnerRepository(db),
		invoicesR: repository.NewInvoiceRepository(db),
		expensesR: repository.NewExpenseRepository(db),
		bankR:     repository.NewBankRepository(db),
		efacturaR: repository.NewEFacturaRepository(db),
	}
	e.periods = NewPeriodService(repository.NewPeriodRepository(db))
	e.company = NewCompanyService(e.companies, e.users, rdb)
	e.partner = NewPartnerService(e.partnersR)
	e.invoice = NewInvoiceService(e.invoicesR, e.partnersR, e.companies, e.periods, e.auto, e.queue)
	e.expense = NewExpenseService(e.expensesR, e.periods, storage)
	e.bank = NewBankService(e.bankR, e.invoicesR)
	e.report = NewReportService(e.invoicesR, e.expensesR, e.bankR)
	e.efactura = NewEFacturaService(e.efacturaR, e.invoicesR, e.companies, storage, e.queue)
	e.saft = NewSAFTService(repository.NewSAFTRepository(db), e.users, e.companies, e.invoicesR, e.bankR, storage)

	e.owner = e.newUser(t, "owner@example.ro")
	e.co = &model.Company{
		Name:     "Exemplu SRL",
		CUI:      "18547290",
		RegCom:   "J40/1234/2020",
		Address:  "Str. Lunga 1",
		City:     "Bucuresti",
		County:   "B",
		Country:  "RO",
		IBAN:     "RO49AAAA1B31007593840000",
		VATPayer: true,
	}
	require.NoError(t, e.companies.Create(e.ctx, e.co, e.owner.ID))
	e.client = e.newPartner(t, "Client SA", "RO14399840", "RO")
	e.foreign = e.newPartner(t, "Kunde GmbH", "DE123456789", "DE")
	return e
}

func (e *env) newUser(t *testing.T, email string) *model.User {
	t.Helper()
	u := &model.User{Email: email, Name: "Test User", PasswordHash: "x", Role: RoleUser, Active: true}
	require.NoError(t, e.users.Create(e.ctx, u))
	return u
}

func (e *env) newPartner(t *testing.T, name, cui, country string) *model.Partner {
	t.Helper()
	p := &model.Partner{
		CompanyID:  e.co.ID,
		Type:       "both",
		Name:       name,
		CUI:        cui,
		Address:    "Str. Scurta 2",
		City:       "Cluj-Napoca",
		Country:    country,
		Email:      "contabilitate@example.ro",
		IsVATPayer: true,
		Active:     true,
	}
	require.NoError(t, e.partnersR.Create(e.ctx, p))
	return p
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func line(desc, qty, price string) dto.InvoiceLineRequest {
	return dto.InvoiceLineRequest{Description: desc, Quantity: dec(qty), UnitPrice: dec(price)}
}

// invoiceReq is a one-line issued invoice to the domestic client.
func (e *env) invoiceReq(number, issueDate string) dto.CreateInvoiceRequest {
	return dto.CreateInvoiceRequest{
		Number:    number,
		Series:    "DI",
		Direction: model.DirectionIssued,
		PartnerID: e.client.ID.String(),
		IssueDate: issueDate,
		Lines:     []dto.InvoiceLineRequest{line("Servicii consultanta", "1", "1000")},
	}
}

func (e *env) issuedInvoice(t *testing.T, number, issueDate string) *dto.InvoiceResponse {
	t.Helper()
	inv, err := e.invoice.Create(e.ctx, e.co.ID, e.invoiceReq(number, issueDate))
	require.NoError(t, err)
	inv, err = e.invoice.Issue(e.ctx, e.co.ID, uuid.MustParse(inv.ID))
	require.NoError(t, err)
	return inv
}

var errBroker = errors.New("redis: connection refused")

var firstPage = dto.Pagination{Page: 1, Limit: 50}

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(time.DateOnly, s)
	require.NoError(t, err)
	return d
}
