package llm

import (
	"context"
	"net/http"
	"time"
)

// Adapter translates a RequestContext into one provider's wire format and
// pulls the reply text back out of the provider's response body.
//
// Adapters never perform I/O themselves; the shared call path in
// llm/providers sends the request and reads the body.
type Adapter interface {
	// ProviderID returns the registry id this adapter was built for.
	ProviderID() string

	// BuildRequest returns a ready-to-send request, or a CONFIG_ERROR when the
	// provider cannot be called as configured.
	BuildRequest(ctx context.Context, rc *RequestContext) (*http.Request, error)

	// ExtractRawText returns the model's reply text from a successful body.
	// A body lacking the expected field yields PARSE_ERROR.
	ExtractRawText(body []byte) (string, error)

	// Timeout bounds one call, including reading the body.
	Timeout() time.Duration
}
