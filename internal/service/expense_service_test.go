package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/apierror"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/dto"
	"github.com/CMihai83/documentiulia.ro-sub050/internal/model"
)

func expenseReq(date, category, amount, vat string) dto.CreateExpenseRequest {
	return dto.CreateExpenseRequest{
		VendorName:  "Furnizor Birotica",
		Category:    category,
		Amount:      dec(amount),
		VATAmount:   dec(vat),
		ExpenseDate: date,
	}
}

func TestExpenseCreate(t *testing.T) {
	e := newEnv(t)

	exp, err := e.expense.Create(e.ctx, e.co.ID, expenseReq("2025-09-05", " Birotica ", "100", "21"), "")
	require.NoError(t, err)
	assert.Equal(t, "birotica", exp.Category)
	assert.Equal(t, "121.00", exp.Total.StringFixed(2))
	assert.Equal(t, model.ExpensePending, exp.Status)
	assert.Equal(t, model.SourceManual, exp.Source)
	assert.Equal(t, "RON", exp.Currency)
	assert.False(t, exp.HasDocument)

	bad := expenseReq("2025-09-05", "x", "100", "21")
	bad.VendorCUI = "12345678"
	_, err = e.expense.Create(e.ctx, e.co.ID, bad, "")
	assert.ErrorIs(t, err, apierror.ErrUnprocessable)
}

func TestExpenseReview(t *testing.T) {
	e := newEnv(t)
	exp, err := e.expense.Create(e.ctx, e.co.ID, expenseReq("2025-09-05", "transport", "50", "0"), "")
	require.NoError(t, err)
	id := mustUUID(t, exp.ID)

	approved, err := e.expense.Approve(e.ctx, e.co.ID, id)
	require.NoError(t, err)
	assert.Equal(t, model.ExpenseApproved, approved.Status)

	_, err = e.expense.Reject(e.ctx, e.co.ID, id)
	assert.ErrorIs(t, err, apierror.ErrConflict)

	amount := dec("60")
	_, err = e.expense.Update(e.ctx, e.co.ID, id, dto.UpdateExpenseRequest{Amount: &amount})
	assert.ErrorIs(t, err, apierror.ErrConflict, "approved expenses are locked")
}

func TestExpenseUpdate_RecomputesTotal(t *testing.T) {
	e := newEnv(t)
	exp, err := e.expense.Create(e.ctx, e.co.ID, expenseReq("2025-09-05", "transport", "50", "0"), "")
	require.NoError(t, err)

	amount, vat := dec("200"), dec("42")
	updated, err := e.expense.Update(e.ctx, e.co.ID, mustUUID(t, exp.ID), dto.UpdateExpenseRequest{Amount: &amount, VATAmount: &vat})
	require.NoError(t, err)
	assert.Equal(t, "242.00", updated.Total.StringFixed(2))
}

func TestExpenseClosedPeriod(t *testing.T) {
	e := newEnv(t)
	exp, err := e.expense.Create(e.ctx, e.co.ID, expenseReq("2025-09-05", "transport", "50", "0"), "")
	require.NoError(t, err)
	_, err = e.periods.Close(e.ctx, e.co.ID, "2025-09", e.owner.ID)
	require.NoError(t, err)

	_, err = e.expense.Create(e.ctx, e.co.ID, expenseReq("2025-09-06", "transport", "10", "0"), "")
	assert.ErrorIs(t, err, apierror.ErrConflict)
	_, err = e.expense.Approve(e.ctx, e.co.ID, mustUUID(t, exp.ID))
	assert.ErrorIs(t, err, apierror.ErrConflict)
	assert.ErrorIs(t, e.expense.Delete(e.ctx, e.co.ID, mustUUID(t, exp.ID)), apierror.ErrConflict)
}

func TestExpenseDocument(t *testing.T) {
	e := newEnv(t)
	exp, err := e.expense.Create(e.ctx, e.co.ID, expenseReq("2025-09-05", "transport", "50", "0"), "")
	require.NoError(t, err)
	id := mustUUID(t, exp.ID)

	_, err = e.expense.Document(e.ctx, e.co.ID, id)
	assert.ErrorIs(t, err, apierror.ErrNotFound)

	withDoc, err := e.expense.UploadDocument(e.ctx, e.co.ID, id, `C:\scans\bon.jpg`, "image/jpeg", []byte("jpeg-bytes"))
	require.NoError(t, err)
	assert.True(t, withDoc.HasDocument)

	doc, err := e.expense.Document(e.ctx, e.co.ID, id)
	require.NoError(t, err)
	assert.Equal(t, "bon.jpg", doc.Filename)
	assert.Equal(t, "image/jpeg", doc.ContentType)
	assert.Equal(t, []byte("jpeg-bytes"), doc.Data)

	// a replacement removes the previous object
	_, err = e.expense.UploadDocument(e.ctx, e.co.ID, id, "bon.pdf", "application/pdf", []byte("%PDF"))
	require.NoError(t, err)
	oldKey := e.co.ID.String() + "/expenses/" + id.String() + "/bon.jpg"
	_, err = e.storage.Get(e.ctx, oldKey)
	assert.Error(t, err)

	_, err = e.expense.UploadDocument(e.ctx, e.co.ID, id, "empty.pdf", "application/pdf", nil)
	assert.ErrorIs(t, err, apierror.ErrInvalid)

	require.NoError(t, e.expense.Delete(e.ctx, e.co.ID, id))
	_, err = e.expense.Get(e.ctx, e.co.ID, id)
	assert.ErrorIs(t, err, apierror.ErrNotFound)
}

const receiptText = `SC EXEMPLU COMERT SRL
C.I.F.: RO18547290
Str. Victoriei 10, Bucuresti
BON FISCAL 0042
PAINE ALBA    2,00 X 3,50    7,00
LAPTE         8,99
TOTAL         15,99
TVA A-11,00%  1,58
TOTAL DE PLATA 15,99 RON
CARD
Data: 07.11.2025 Ora: 14:32:10`

func TestOCRCreateExpense(t *testing.T) {
	e := newEnv(t)
	svc := NewOCRService(e.expense)

	resp, err := svc.CreateExpense(e.ctx, e.co.ID, dto.OCRExpenseRequest{Text: receiptText})
	require.NoError(t, err)
	exp := resp.Expense
	assert.Equal(t, model.SourceOCR, exp.Source)
	assert.Equal(t, model.ExpensePending, exp.Status)
	assert.Equal(t, "EXEMPLU COMERT SRL", exp.VendorName)
	assert.Equal(t, "18547290", exp.VendorCUI)
	assert.Equal(t, "2025-11-07", exp.ExpenseDate)
	assert.Equal(t, "14.41", exp.Amount.StringFixed(2))
	assert.Equal(t, "1.58", exp.VATAmount.StringFixed(2))
	assert.Equal(t, "15.99", exp.Total.StringFixed(2))
	assert.Equal(t, "card", exp.PaymentMethod)
	assert.Equal(t, "general", exp.Category)
	assert.Equal(t, "0042", resp.Extraction.ReceiptNumber)
}

func TestOCRCreateExpense_NoTotal(t *testing.T) {
	e := newEnv(t)
	svc := NewOCRService(e.expense)

	_, err := svc.CreateExpense(e.ctx, e.co.ID, dto.OCRExpenseRequest{Text: "text fara suma"})
	assert.ErrorIs(t, err, apierror.ErrUnprocessable)
}

func TestOCREnhance(t *testing.T) {
	res := NewOCRService(nil).Enhance(context.Background(), dto.EnhanceOCRRequest{Text: receiptText, Language: "ro"})
	require.True(t, res.Total.Valid)
	assert.Equal(t, "15.99", res.Total.Decimal.StringFixed(2))
}
