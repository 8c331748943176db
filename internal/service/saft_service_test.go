package service

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/apierror"
)

func TestSAFTGenerateAndDownload(t *testing.T) {
	e := september(t)

	export, err := e.saft.Generate(e.ctx, e.co.ID, e.owner.ID, "2025-09")
	require.NoError(t, err)
	assert.Equal(t, SAFTGenerated, export.Status, export.Errors)
	assert.Empty(t, export.Errors)
	assert.Equal(t, 2, export.InvoiceCount, "the cancelled sale is left out")
	assert.Equal(t, "1210.00", export.TotalSales.StringFixed(2))
	assert.Equal(t, "210.00", export.VATCollected.StringFixed(2))
	assert.Equal(t, "42.00", export.VATDeductible.StringFixed(2))
	assert.Equal(t, "168.00", export.VATBalance.StringFixed(2))
	assert.Len(t, export.Hash, 64)

	file, err := e.saft.Download(e.ctx, e.co.ID, mustUUID(t, export.ID))
	require.NoError(t, err)
	assert.Equal(t, "D406_18547290_2025-09.xml", file.Filename)
	assert.True(t, strings.HasPrefix(string(file.Data), "<?xml"))
	assert.Len(t, file.Data, export.Size)

	list, err := e.saft.List(e.ctx, e.co.ID, firstPage)
	require.NoError(t, err)
	assert.EqualValues(t, 1, list.Total)
}

func TestSAFTGenerate_UnknownUser(t *testing.T) {
	e := newEnv(t)

	export, err := e.saft.Generate(e.ctx, e.co.ID, uuid.New(), "2025-09")
	require.NoError(t, err)
	assert.Equal(t, SAFTFailed, export.Status)
	require.NotEmpty(t, export.Errors)
	assert.True(t, strings.HasPrefix(export.Errors[0], "E001"))

	_, err = e.saft.Download(e.ctx, e.co.ID, mustUUID(t, export.ID))
	assert.ErrorIs(t, err, apierror.ErrNotFound, "failed exports have no file")
}

func TestSAFTGenerate_BadPeriod(t *testing.T) {
	e := newEnv(t)

	_, err := e.saft.Generate(e.ctx, e.co.ID, e.owner.ID, "2025/09")
	assert.ErrorIs(t, err, apierror.ErrInvalid)

	_, err = e.saft.Download(e.ctx, e.co.ID, uuid.New())
	assert.ErrorIs(t, err, apierror.ErrNotFound)
}
