package domain

import (
	"net/http"
	"strings"

	subscriberdomain "github.com/coursegate/coursegate/internal/subscriber/domain"
)

// providerTokens is the detection priority order: first match wins.
var providerTokens = []struct {
	token    string
	provider subscriberdomain.Provider
}{
	{"hotmart", subscriberdomain.ProviderHotmart},
	{"eduzz", subscriberdomain.ProviderEduzz},
}

// DetectProvider infers the originating provider from request headers first,
// then from the raw payload text. Header names are matched case-insensitively
// by substring; the payload fallback scans its lowercase JSON text the same
// way. No match yields ProviderUnknown.
func DetectProvider(headers http.Header, payload []byte) subscriberdomain.Provider {
	for _, candidate := range providerTokens {
		for name := range headers {
			if strings.Contains(strings.ToLower(name), candidate.token) {
				return candidate.provider
			}
		}
	}

	body := strings.ToLower(string(payload))
	for _, candidate := range providerTokens {
		if strings.Contains(body, candidate.token) {
			return candidate.provider
		}
	}

	return subscriberdomain.ProviderUnknown
}
