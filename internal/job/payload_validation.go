package job

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/powermaps/contact/common"
	"github.com/powermaps/contact/internal/config"
	"github.com/powermaps/contact/internal/dto"
	"github.com/powermaps/contact/middleware"
)

var validate = middleware.NewValidator()

// ValidatePayload checks raw against the payload type registered for
// jobType. Jobs are only enqueued with payloads that pass.
func ValidatePayload(jobType string, raw json.RawMessage) error {
	switch jobType {
	case config.JobTypeSendEmail:
		return validatePayload[dto.SendEmailPayload](raw)
	case config.JobTypeSendWebhook:
		return validatePayload[dto.SendWebhookPayload](raw)
	default:
		return common.NewAPIError(
			http.StatusBadRequest,
			"invalid job type",
			map[string]any{
				"provided": jobType,
				"allowed":  config.AllowedJobTypes,
			},
		)
	}
}

func validatePayload[T any](raw json.RawMessage) error {
	var payload T

	if err := json.Unmarshal(raw, &payload); err != nil {
		return common.APIError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("invalid payload format: %v", err),
		}
	}

	if err := validate.Struct(payload); err != nil {
		return common.APIError{
			Status:  http.StatusBadRequest,
			Message: "payload validation failed",
			Fields:  middleware.FormatValidationErrors(err),
		}
	}

	return nil
}
