package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/CMihai83/documentiulia.ro-sub050/internal/worker"
)

// JobQueue is satisfied by *worker.Dispatcher.
type JobQueue interface {
	EnqueueEFactura(ctx context.Context, payload worker.EFacturaPayload) error
	EnqueueEmail(ctx context.Context, payload worker.EmailPayload) error
}

// AutoSubmitter pushes freshly issued invoices to e-Factura when the company
// opted in. Implemented by EFacturaService.
type AutoSubmitter interface {
	AutoSubmit(ctx context.Context, companyID, invoiceID uuid.UUID)
}
