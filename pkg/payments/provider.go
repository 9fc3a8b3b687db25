package payments

import "context"

// SessionStatus is the provider's completion state for a checkout attempt.
type SessionStatus string

const (
	SessionStatusPending  SessionStatus = "pending"
	SessionStatusComplete SessionStatus = "complete"
	SessionStatusFailed   SessionStatus = "failed"
)

// Session is the provider-owned checkout record. It is fetched, never
// constructed, during reconciliation; the provider remains authoritative for
// status, captured amount, and the metadata echoed from session creation.
type Session struct {
	ID             string            `json:"id"`
	Status         SessionStatus     `json:"status"`
	TransactionRef string            `json:"transaction_ref,omitempty"`
	AmountCents    int               `json:"amount_cents"`
	Currency       string            `json:"currency"`
	BuyerEmail     string            `json:"buyer_email"`
	RedirectURL    string            `json:"redirect_url,omitempty"`
	Metadata       map[string]string `json:"metadata"`
}

// CreateSessionInput carries everything the provider needs to host a checkout.
type CreateSessionInput struct {
	AmountCents int               `json:"amount_cents"`
	Quantity    int               `json:"quantity"`
	Currency    string            `json:"currency"`
	BuyerEmail  string            `json:"buyer_email"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	ImageURL    string            `json:"image_url,omitempty"`
	SuccessURL  string            `json:"success_url"`
	CancelURL   string            `json:"cancel_url"`
	Metadata    map[string]string `json:"metadata"`
}

// Provider is the injected payment collaborator. Fakes implement it in tests.
type Provider interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (*Session, error)
	FetchSession(ctx context.Context, sessionID string) (*Session, error)
}

// Metadata keys echoed back by the provider on completion. These are the only
// channel by which reconciliation learns which book and buyer a payment
// belongs to.
const (
	MetadataBookID     = "book_id"
	MetadataBuyerEmail = "buyer_email"
)
