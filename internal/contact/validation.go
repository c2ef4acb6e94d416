package contact

import (
	"errors"
	"net/http"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/powermaps/contact/common"
	"github.com/powermaps/contact/internal/dto"
	"github.com/powermaps/contact/middleware"
)

const (
	MsgFieldsRequired = "All fields are required"
	MsgInvalidEmail   = "Invalid email format"
	MsgSendFailed     = "Failed to send message. Please try again."
	MsgSent           = "Message sent successfully! We'll get back to you soon."
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := middleware.NewValidator()
	if err := v.RegisterValidation("contactemail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// Validate checks req. Missing fields are reported before a bad email, so
// an empty email yields MsgFieldsRequired.
func Validate(req *dto.ContactRequest) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return common.Errf(http.StatusInternalServerError, "%s", MsgSendFailed)
	}

	missing := map[string]any{}
	invalid := map[string]any{}
	for _, e := range verrs {
		if e.Tag() == "required" {
			missing[e.Field()] = "failed required"
			continue
		}
		invalid[e.Field()] = "failed " + e.Tag()
	}

	if len(missing) > 0 {
		return common.NewAPIError(http.StatusBadRequest, MsgFieldsRequired, missing)
	}
	return common.NewAPIError(http.StatusBadRequest, MsgInvalidEmail, invalid)
}
