package domain

import "context"

// ClubStatusActive is the only membership status that grants access.
// The provider API is case sensitive here.
const ClubStatusActive = "ACTIVE"

type ClubUser struct {
	Status string `json:"status"`
}

// ClubLookup queries the provider's membership API by email. Implementations
// may be absent (nil) when no provider credentials are configured.
type ClubLookup interface {
	UsersByEmail(ctx context.Context, email string) ([]ClubUser, error)
}

type Service interface {
	// IsActiveMember reports whether the email belongs to an entitled user.
	// A locally stored subscriber is sufficient proof; only unknown emails
	// reach the remote lookup, whose failures propagate unmodified.
	IsActiveMember(ctx context.Context, email string) (bool, error)
}
