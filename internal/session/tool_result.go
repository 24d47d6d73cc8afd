package session

import (
	"encoding/json"

	"github.com/Gahroot/the-tribunal-sub000/internal/tool"
)

// encodeResult marshals a tool result for the provider's function-call-
// output event payload.
func encodeResult(result tool.Result) ([]byte, error) {
	return json.Marshal(result)
}
