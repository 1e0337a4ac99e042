package llm

import (
	"encoding/json"

	"github.com/BaSui01/actiongate/types"
)

// RequestContext is the per-request input handed to an Adapter.
type RequestContext struct {
	ProviderID string
	// Screenshot holds decoded image bytes. Empty means no image block is sent.
	Screenshot []byte
	MediaType  string
	// UITree is forwarded verbatim.
	UITree      json.RawMessage
	Instruction string
	History     []types.Turn
}

// HasImage reports whether a screenshot is attached.
func (rc *RequestContext) HasImage() bool {
	return len(rc.Screenshot) > 0
}

// MediaTypeOrDefault returns the sniffed media type, image/png if unknown.
func (rc *RequestContext) MediaTypeOrDefault() string {
	if rc.MediaType == "" {
		return "image/png"
	}
	return rc.MediaType
}
