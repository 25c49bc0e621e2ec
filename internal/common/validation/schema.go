// internal/common/validation/schema.go
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	apperrors "taskhub-notifier/internal/common/errors"
)

// customMessageSchema constrains the payload accepted by the operational
// custom-message trigger. Subject and body are required; an optional
// dedupKey opts the send into the per-day ledger.
const customMessageSchema = `{
	"type": "object",
	"properties": {
		"subject":  {"type": "string", "minLength": 1, "maxLength": 200},
		"body":     {"type": "string", "minLength": 1, "maxLength": 4000},
		"urgency":  {"type": "string", "enum": ["normal", "high", "critical"]},
		"dedupKey": {"type": "string", "maxLength": 100}
	},
	"required": ["subject", "body"],
	"additionalProperties": false
}`

var customMessageLoader = gojsonschema.NewStringLoader(customMessageSchema)

// ValidateCustomMessage validates a raw custom-message payload against the
// schema. Returns a PayloadInvalid error listing every violation.
func ValidateCustomMessage(payload []byte) error {
	result, err := gojsonschema.Validate(customMessageLoader, gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return apperrors.NewPayloadInvalidError(fmt.Sprintf("payload is not valid JSON: %v", err))
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return apperrors.NewPayloadInvalidError(strings.Join(msgs, "; "))
}
