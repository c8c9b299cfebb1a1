package gateway

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// peerMessageSchema validates the two accepted wire shapes before dispatch:
// generic {"message": ...} or tool-share {"name": ..., "source": ...}.
const peerMessageSchema = `{
	"type": "object",
	"oneOf": [
		{
			"required": ["message"],
			"properties": {"message": {"type": "string"}}
		},
		{
			"required": ["name", "source"],
			"properties": {
				"name": {"type": "string", "minLength": 1},
				"source": {"type": "string", "minLength": 1}
			}
		}
	]
}`

var compiledPeerSchema = gojsonschema.NewStringLoader(peerMessageSchema)

// validatePeerMessage checks a raw JSON body against the wire contract.
func validatePeerMessage(body []byte) error {
	result, err := gojsonschema.Validate(compiledPeerSchema, gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("invalid message payload: %w", err)
	}
	if !result.Valid() {
		return fmt.Errorf("invalid message payload: %s", result.Errors()[0].String())
	}
	return nil
}
