package service

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/apierror"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
)

func ptr[T any](v T) *T { return &v }

func (e *env) enableEFactura(t *testing.T, auto bool) {
	t.Helper()
	_, err := e.efactura.UpdateConfig(e.ctx, e.co.ID, dto.EFacturaConfigRequest{
		Enabled:    ptr(true),
		AutoSubmit: ptr(auto),
		ClientID:   ptr("client-anaf"),
	})
	require.NoError(t, err)
}

func TestEFacturaConfig(t *testing.T) {
	e := newEnv(t)

	cfg, err := e.efactura.GetConfig(e.ctx, e.co.ID)
	require.NoError(t, err)
	assert.False(t, cfg.Enabled)
	assert.True(t, cfg.UseTestEnvironment)
	assert.False(t, cfg.HasClientSecret)

	updated, err := e.efactura.UpdateConfig(e.ctx, e.co.ID, dto.EFacturaConfigRequest{
		Enabled:      ptr(true),
		ClientSecret: ptr("s3cret"),
		AccessToken:  ptr("token"),
	})
	require.NoError(t, err)
	assert.True(t, updated.Enabled)
	assert.True(t, updated.HasClientSecret)
	assert.True(t, updated.HasAccessToken)

	// a partial update keeps the stored secret
	again, err := e.efactura.UpdateConfig(e.ctx, e.co.ID, dto.EFacturaConfigRequest{AutoSubmit: ptr(true)})
	require.NoError(t, err)
	assert.True(t, again.HasClientSecret)
	assert.True(t, again.AutoSubmit)
	assert.True(t, again.Enabled)
}

func TestEFacturaValidateAndXML(t *testing.T) {
	e := newEnv(t)
	inv := e.issuedInvoice(t, "0001", "2025-09-01")
	id := mustUUID(t, inv.ID)

	res, err := e.efactura.Validate(e.ctx, e.co.ID, id)
	require.NoError(t, err)
	assert.True(t, res.Valid, res.Errors)

	xml, name, err := e.efactura.XML(e.ctx, e.co.ID, id)
	require.NoError(t, err)
	assert.Equal(t, "efactura-DI0001.xml", name)
	assert.Contains(t, string(xml), "DI0001")
	assert.Contains(t, string(xml), "RO18547290")
}

func TestEFacturaSubmit(t *testing.T) {
	e := newEnv(t)
	e.enableEFactura(t, false)
	inv := e.issuedInvoice(t, "0001", "2025-09-01")
	id := mustUUID(t, inv.ID)

	sub, err := e.efactura.Submit(e.ctx, e.co.ID, id)
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionPending, sub.Status)
	assert.True(t, sub.TestMode)
	require.Len(t, e.queue.efactura, 1)
	assert.Equal(t, sub.ID, e.queue.efactura[0].SubmissionID)

	stored, err := e.efacturaR.LatestForInvoice(e.ctx, e.co.ID, id)
	require.NoError(t, err)
	data, err := e.storage.Get(e.ctx, stored.XMLKey)
	require.NoError(t, err)
	sum := sha256.Sum256(data)
	assert.Equal(t, hex.EncodeToString(sum[:]), sub.XMLHash)
	assert.Contains(t, stored.XMLKey, "/2025/09/DI0001-")

	_, err = e.efactura.Submit(e.ctx, e.co.ID, id)
	assert.ErrorIs(t, err, apierror.ErrConflict, "a pending submission blocks a second one")

	status, err := e.efactura.Status(e.ctx, e.co.ID, id)
	require.NoError(t, err)
	assert.Equal(t, sub.ID, status.ID)

	logs, err := e.efactura.Logs(e.ctx, e.co.ID, dto.LogFilter{SubmissionID: sub.ID, Pagination: firstPage})
	require.NoError(t, err)
	require.Len(t, logs.Data, 1)
	assert.Equal(t, "submit", logs.Data[0].Action)

	list, err := e.efactura.Submissions(e.ctx, e.co.ID, model.SubmissionPending, firstPage)
	require.NoError(t, err)
	assert.EqualValues(t, 1, list.Total)
}

func TestEFacturaSubmit_AfterRejection(t *testing.T) {
	e := newEnv(t)
	e.enableEFactura(t, false)
	inv := e.issuedInvoice(t, "0001", "2025-09-01")
	id := mustUUID(t, inv.ID)

	_, err := e.efactura.Submit(e.ctx, e.co.ID, id)
	require.NoError(t, err)
	first, err := e.efacturaR.LatestForInvoice(e.ctx, e.co.ID, id)
	require.NoError(t, err)
	first.Status = model.SubmissionRejected
	require.NoError(t, e.efacturaR.UpdateSubmission(e.ctx, first))

	second, err := e.efactura.Submit(e.ctx, e.co.ID, id)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID.String(), second.ID)

	latest, err := e.efactura.Status(e.ctx, e.co.ID, id)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	accepted, err := e.efacturaR.LatestForInvoice(e.ctx, e.co.ID, id)
	require.NoError(t, err)
	accepted.Status = model.SubmissionAccepted
	require.NoError(t, e.efacturaR.UpdateSubmission(e.ctx, accepted))
	_, err = e.efactura.Submit(e.ctx, e.co.ID, id)
	assert.ErrorIs(t, err, apierror.ErrConflict)
}

func TestEFacturaSubmit_EnqueueFailure(t *testing.T) {
	e := newEnv(t)
	e.enableEFactura(t, false)
	inv := e.issuedInvoice(t, "0001", "2025-09-01")
	e.queue.err = errBroker

	sub, err := e.efactura.Submit(e.ctx, e.co.ID, mustUUID(t, inv.ID))
	require.NoError(t, err)
	assert.Equal(t, model.SubmissionError, sub.Status)
	require.NotNil(t, sub.LastError)
	assert.Contains(t, *sub.LastError, "enqueue failed")
}

func TestEFacturaSubmit_Refusals(t *testing.T) {
	e := newEnv(t)
	inv := e.issuedInvoice(t, "0001", "2025-09-01")

	_, err := e.efactura.Submit(e.ctx, e.co.ID, mustUUID(t, inv.ID))
	assert.ErrorIs(t, err, apierror.ErrConflict, "disabled")

	e.enableEFactura(t, false)
	draft, err := e.invoice.Create(e.ctx, e.co.ID, e.invoiceReq("0002", "2025-09-02"))
	require.NoError(t, err)
	_, err = e.efactura.Submit(e.ctx, e.co.ID, mustUUID(t, draft.ID))
	assert.ErrorIs(t, err, apierror.ErrConflict)

	req := e.invoiceReq("F7", "2025-09-03")
	req.Direction = model.DirectionReceived
	received, err := e.invoice.Create(e.ctx, e.co.ID, req)
	require.NoError(t, err)
	_, err = e.invoice.Issue(e.ctx, e.co.ID, mustUUID(t, received.ID))
	require.NoError(t, err)
	_, err = e.efactura.Submit(e.ctx, e.co.ID, mustUUID(t, received.ID))
	assert.ErrorIs(t, err, apierror.ErrUnprocessable)

	assert.Empty(t, e.queue.efactura)
}

func TestEFacturaAutoSubmit(t *testing.T) {
	e := newEnv(t)
	inv := e.issuedInvoice(t, "0001", "2025-09-01")
	id := mustUUID(t, inv.ID)

	e.efactura.AutoSubmit(e.ctx, e.co.ID, id)
	assert.Empty(t, e.queue.efactura, "no config row")

	e.enableEFactura(t, false)
	e.efactura.AutoSubmit(e.ctx, e.co.ID, id)
	assert.Empty(t, e.queue.efactura, "auto-submit off")

	e.enableEFactura(t, true)
	e.efactura.AutoSubmit(e.ctx, e.co.ID, id)
	assert.Len(t, e.queue.efactura, 1)

	// a second call is refused by the open submission and only logged
	e.efactura.AutoSubmit(e.ctx, e.co.ID, id)
	assert.Len(t, e.queue.efactura, 1)
}
