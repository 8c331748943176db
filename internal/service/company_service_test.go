package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/apierror"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
)

func TestCompanyCreate(t *testing.T) {
	e := newEnv(t)
	user := e.newUser(t, "nou@example.ro")

	resp, err := e.company.Create(e.ctx, user.ID, dto.CreateCompanyRequest{Name: "Alfa SRL", CUI: "RO 14399840"})
	require.NoError(t, err)
	assert.Equal(t, "14399840", resp.CUI)
	assert.Equal(t, "RO", resp.Country)
	assert.True(t, resp.VATPayer, "an RO-prefixed code marks a VAT payer")
	assert.Equal(t, model.MemberOwner, resp.Role)

	_, err = e.company.Create(e.ctx, user.ID, dto.CreateCompanyRequest{Name: "Alfa Bis", CUI: "14399840"})
	assert.ErrorIs(t, err, apierror.ErrConflict)

	_, err = e.company.Create(e.ctx, user.ID, dto.CreateCompanyRequest{Name: "Beta SRL", CUI: "12345678"})
	assert.ErrorIs(t, err, apierror.ErrUnprocessable)

	list, err := e.company.List(e.ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Alfa SRL", list[0].Name)
}

func TestCompanyMemberRole_CachesInRedis(t *testing.T) {
	e := newEnv(t)

	role, err := e.company.MemberRole(e.ctx, e.co.ID, e.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MemberOwner, role)

	cached, err := e.rdb.Get(e.ctx, memberKey(e.co.ID, e.owner.ID)).Result()
	require.NoError(t, err)
	assert.Equal(t, model.MemberOwner, cached)

	// the cached role wins until it expires or is invalidated
	require.NoError(t, e.companies.UpdateMemberRole(e.ctx, e.co.ID, e.owner.ID, model.MemberViewer))
	role, err = e.company.MemberRole(e.ctx, e.co.ID, e.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MemberOwner, role)

	ttl := e.rdb.TTL(e.ctx, memberKey(e.co.ID, e.owner.ID)).Val()
	assert.LessOrEqual(t, ttl, MembershipTTL)
}

func TestCompanyMemberRole_NonMember(t *testing.T) {
	e := newEnv(t)
	stranger := e.newUser(t, "strain@example.ro")

	_, err := e.company.MemberRole(e.ctx, e.co.ID, stranger.ID)
	assert.ErrorIs(t, err, apierror.ErrForbidden)
}

func TestCompanyAddMember_InvalidatesCache(t *testing.T) {
	e := newEnv(t)
	accountant := e.newUser(t, "contabil@example.ro")
	require.NoError(t, e.rdb.Set(e.ctx, memberKey(e.co.ID, accountant.ID), "stale", 0).Err())

	m, err := e.company.AddMember(e.ctx, e.co.ID, dto.AddMemberRequest{Email: accountant.Email, Role: model.MemberAccountant})
	require.NoError(t, err)
	assert.Equal(t, model.MemberAccountant, m.Role)

	role, err := e.company.MemberRole(e.ctx, e.co.ID, accountant.ID)
	require.NoError(t, err)
	assert.Equal(t, model.MemberAccountant, role)

	_, err = e.company.AddMember(e.ctx, e.co.ID, dto.AddMemberRequest{Email: accountant.Email, Role: model.MemberViewer})
	assert.ErrorIs(t, err, apierror.ErrConflict)

	_, err = e.company.AddMember(e.ctx, e.co.ID, dto.AddMemberRequest{Email: "nimeni@example.ro", Role: model.MemberViewer})
	assert.ErrorIs(t, err, apierror.ErrNotFound)

	members, err := e.company.ListMembers(e.ctx, e.co.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestCompanyUpdate_KeepsCUI(t *testing.T) {
	e := newEnv(t)
	name := "Exemplu Nou SRL"

	resp, err := e.company.Update(e.ctx, e.co.ID, dto.UpdateCompanyRequest{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, name, resp.Name)
	assert.Equal(t, e.co.CUI, resp.CUI)
}

func TestNormalizePartnerCUI(t *testing.T) {
	cases := []struct {
		raw, country, want string
		invalid            bool
	}{
		{raw: "", country: "RO", want: ""},
		{raw: "ro 14399840", country: "RO", want: "RO14399840"},
		{raw: "14399840", country: "RO", want: "14399840"},
		{raw: "de123456789", country: "DE", want: "DE123456789"},
		{raw: "ATU12345678", country: "", want: "ATU12345678"},
		{raw: "12345678", country: "RO", invalid: true},
	}
	for _, c := range cases {
		got, err := normalizePartnerCUI(c.raw, c.country)
		if c.invalid {
			assert.ErrorIs(t, err, apierror.ErrUnprocessable, c.raw)
			continue
		}
		require.NoError(t, err, c.raw)
		assert.Equal(t, c.want, got, c.raw)
	}
}

func TestPartnerLifecycle(t *testing.T) {
	e := newEnv(t)

	p, err := e.partner.Create(e.ctx, e.co.ID, dto.CreatePartnerRequest{Type: "client", Name: "Gamma SRL", CUI: "RO6859662"})
	require.NoError(t, err)
	assert.Equal(t, "RO6859662", p.CUI)
	assert.Equal(t, "RO", p.Country)
	assert.True(t, p.Active)

	id := mustUUID(t, p.ID)
	require.NoError(t, e.partner.Delete(e.ctx, e.co.ID, id))

	got, err := e.partner.Get(e.ctx, e.co.ID, id)
	require.NoError(t, err)
	assert.False(t, got.Active, "delete only deactivates")

	_, err = e.partner.Create(e.ctx, e.co.ID, dto.CreatePartnerRequest{Type: "client", Name: "Delta", CUI: "RO18547291"})
	assert.ErrorIs(t, err, apierror.ErrUnprocessable)
}

func TestPeriodCloseAndReopen(t *testing.T) {
	e := newEnv(t)
	march := mustDate(t, "2025-03-15")

	require.NoError(t, e.periods.EnsureOpen(e.ctx, e.co.ID, march), "a month without a row is open")

	closed, err := e.periods.Close(e.ctx, e.co.ID, "2025-03", e.owner.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PeriodClosed, closed.Status)
	require.NotNil(t, closed.ClosedBy)
	assert.Equal(t, e.owner.ID.String(), *closed.ClosedBy)

	assert.ErrorIs(t, e.periods.EnsureOpen(e.ctx, e.co.ID, march), apierror.ErrConflict)
	assert.NoError(t, e.periods.EnsureOpen(e.ctx, e.co.ID, mustDate(t, "2025-04-01")))

	_, err = e.periods.Reopen(e.ctx, e.co.ID, "2025-03")
	require.NoError(t, err)
	assert.NoError(t, e.periods.EnsureOpen(e.ctx, e.co.ID, march))

	list, err := e.periods.List(e.ctx, e.co.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, model.PeriodOpen, list[0].Status)

	_, err = e.periods.Close(e.ctx, e.co.ID, "2025-13", e.owner.ID)
	assert.ErrorIs(t, err, apierror.ErrInvalid)
}
