package billing

import (
	"context"
	"log/slog"
	"net/url"

	"spacepurchase/internal/external"
	"spacepurchase/internal/types"

	"golang.org/x/sync/errgroup"
)

// API is the subset of the organization API client used by billing.
type API interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	GetRaw(ctx context.Context, path, accept string) ([]byte, error)
}

// InvoiceDocument is a downloadable invoice PDF.
type InvoiceDocument struct {
	Filename    string
	ContentType string
	Data        []byte
}

const pdfContentType = "application/pdf"

// Service wraps the organization-scoped billing endpoints.
type Service struct {
	api    API
	logger *slog.Logger
}

// NewService creates a billing Service.
func NewService(api API, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: api, logger: logger}
}

// GetBillingDetails fetches and flattens the organization's billing details.
func (s *Service) GetBillingDetails(ctx context.Context, orgID string) (types.BillingDetails, error) {
	var payload types.BillingDetailsPayload
	if err := s.api.Get(ctx, external.OrgPath(orgID, "billing_details"), nil, &payload); err != nil {
		return types.BillingDetails{}, err
	}
	return TransformBillingDetails(payload), nil
}

// CreateBillingDetails stores billing details for an organization that has none.
func (s *Service) CreateBillingDetails(ctx context.Context, orgID string, payload types.BillingDetailsPayload) error {
	return s.api.Post(ctx, external.OrgPath(orgID, "billing_details"), payload, nil)
}

// UpdateBillingDetails replaces existing billing details.
func (s *Service) UpdateBillingDetails(ctx context.Context, orgID string, payload types.BillingDetailsPayload) error {
	return s.api.Put(ctx, external.OrgPath(orgID, "billing_details"), payload, nil)
}

// GetInvoices lists the organization's invoices.
func (s *Service) GetInvoices(ctx context.Context, orgID string) ([]types.Invoice, error) {
	var out types.Collection[types.Invoice]
	if err := s.api.Get(ctx, external.OrgPath(orgID, "invoices"), nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// GetInvoiceDocument downloads one invoice as a PDF named after its invoice number.
func (s *Service) GetInvoiceDocument(ctx context.Context, orgID, invoiceID string) (InvoiceDocument, error) {
	invoices, err := s.GetInvoices(ctx, orgID)
	if err != nil {
		return InvoiceDocument{}, err
	}

	var number string
	for _, inv := range invoices {
		if inv.Sys.ID == invoiceID {
			number = inv.InvoiceNumber
			break
		}
	}
	if number == "" {
		return InvoiceDocument{}, types.NewAppErrorWithDetails(
			types.ErrCodeNotFoundInvoice,
			"invoice not found",
			nil,
			map[string]any{"invoice_id": invoiceID},
		)
	}

	data, err := s.api.GetRaw(ctx, external.OrgPath(orgID, "invoices", invoiceID), pdfContentType)
	if err != nil {
		return InvoiceDocument{}, err
	}
	return InvoiceDocument{
		Filename:    number + ".pdf",
		ContentType: pdfContentType,
		Data:        data,
	}, nil
}

// GetHostedPaymentParams fetches the signed iframe parameters. countryCode is
// optional.
func (s *Service) GetHostedPaymentParams(ctx context.Context, orgID, countryCode string) (types.HostedPaymentParams, error) {
	var query url.Values
	if countryCode != "" {
		query = url.Values{"country_code": {countryCode}}
	}

	var params types.HostedPaymentParams
	err := s.api.Get(ctx, external.OrgPath(orgID, "hosted_payment_params"), query, &params)
	return params, err
}

// GetDefaultPaymentMethod fetches the masked default card.
func (s *Service) GetDefaultPaymentMethod(ctx context.Context, orgID string) (types.PaymentDetails, error) {
	var details types.PaymentDetails
	err := s.api.Get(ctx, external.OrgPath(orgID, "default_payment_method"), nil, &details)
	return details, err
}

// SetDefaultPaymentMethod makes the card captured by the iframe the default.
func (s *Service) SetDefaultPaymentMethod(ctx context.Context, orgID, paymentMethodRefID string) error {
	body := map[string]string{"paymentMethodRefId": paymentMethodRefID}
	return s.api.Put(ctx, external.OrgPath(orgID, "default_payment_method"), body, nil)
}

// GetBillingAndPayment fetches billing details and the default payment method
// concurrently.
func (s *Service) GetBillingAndPayment(ctx context.Context, orgID string) (types.BillingDetails, types.PaymentDetails, error) {
	var billing types.BillingDetails
	var payment types.PaymentDetails

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		billing, err = s.GetBillingDetails(gctx, orgID)
		return err
	})
	g.Go(func() error {
		var err error
		payment, err = s.GetDefaultPaymentMethod(gctx, orgID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.WarnContext(ctx, "failed to fetch billing and payment details", "org_id", orgID, "error", err)
		return types.BillingDetails{}, types.PaymentDetails{}, err
	}
	return billing, payment, nil
}
