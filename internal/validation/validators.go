package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/benvon/video-tag-stats/internal/models"
	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a shared validator instance
	Validate *validator.Validate
)

func init() {
	Validate = validator.New()

	// Register custom validators for enums
	if err := Validate.RegisterValidation("project_type", validateProjectType); err != nil {
		panic(fmt.Sprintf("failed to register project_type validator: %v", err))
	}
	if err := Validate.RegisterValidation("failure_policy", validateFailurePolicy); err != nil {
		panic(fmt.Sprintf("failed to register failure_policy validator: %v", err))
	}
	if err := Validate.RegisterValidation("source_kind", validateSourceKind); err != nil {
		panic(fmt.Sprintf("failed to register source_kind validator: %v", err))
	}
}

// Failure policies for videos whose annotation cannot be fetched or counted
const (
	FailurePolicyAbort = "abort"
	FailurePolicySkip  = "skip"
)

// Annotation source kinds
const (
	SourceKindFile     = "file"
	SourceKindPostgres = "postgres"
)

func validateProjectType(fl validator.FieldLevel) bool {
	switch models.ProjectType(fl.Field().String()) {
	case models.ProjectTypeVideos, models.ProjectTypeImages, models.ProjectTypePointClouds:
		return true
	default:
		return false
	}
}

func validateFailurePolicy(fl validator.FieldLevel) bool {
	return ValidateFailurePolicy(fl.Field().String()) == nil
}

func validateSourceKind(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case SourceKindFile, SourceKindPostgres:
		return true
	default:
		return false
	}
}

// ValidateFailurePolicy validates a failure policy string value
func ValidateFailurePolicy(value string) error {
	switch value {
	case FailurePolicyAbort, FailurePolicySkip:
		return nil
	default:
		return fmt.Errorf("invalid failure_policy: %s (must be 'abort' or 'skip')", value)
	}
}

// SanitizeName trims whitespace and removes control characters from
// user-supplied names such as dataset filters
func SanitizeName(text string) string {
	text = strings.TrimSpace(text)

	var sanitized strings.Builder
	for _, r := range text {
		if unicode.IsControl(r) {
			continue
		}
		sanitized.WriteRune(r)
	}

	return sanitized.String()
}
