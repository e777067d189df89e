// ABOUTME: Tweet text and user handle validation using go-playground/validator struct tags.
// ABOUTME: Reports only the first failing rule, the way the compose box displays it.
package models

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

const (
	MinTweetLength = 10
	MaxTweetLength = 280
)

const MaxUserNameLength = 32

var handlePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("handle", func(fl validator.FieldLevel) bool {
		return handlePattern.MatchString(fl.Field().String())
	})
	return v
}

// tweetInput carries the validation rules for new tweet text.
type tweetInput struct {
	Text string `validate:"required,min=10,max=280"`
}

// ValidationError describes why tweet text was rejected.
type ValidationError struct {
	Field   string
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateTweetText checks text against the tweet length contract.
// Length is counted in runes.
func ValidateTweetText(text string) error {
	err := validate.Struct(tweetInput{Text: text})
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	first := verrs[0]
	ve := &ValidationError{Field: "text", Rule: first.Tag()}
	switch first.Tag() {
	case "required":
		ve.Message = "tweet text is required"
	case "min":
		ve.Message = fmt.Sprintf("tweet must contain at least %d characters", MinTweetLength)
	case "max":
		ve.Message = fmt.Sprintf("tweet must contain at most %d characters", MaxTweetLength)
	default:
		ve.Message = fmt.Sprintf("tweet text failed %q validation", first.Tag())
	}
	return ve
}

// userInput carries the rules for a sign-in handle.
type userInput struct {
	Name string `validate:"required,max=32,handle"`
}

// ValidateUserName checks a handle: letters, digits, and underscores, at most
// MaxUserNameLength characters.
func ValidateUserName(name string) error {
	err := validate.Struct(userInput{Name: name})
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}

	first := verrs[0]
	ve := &ValidationError{Field: "user_name", Rule: first.Tag()}
	switch first.Tag() {
	case "required":
		ve.Message = "a handle is required"
	case "max":
		ve.Message = fmt.Sprintf("handle must be at most %d characters", MaxUserNameLength)
	default:
		ve.Message = "handle may only contain letters, digits, and underscores"
	}
	return ve
}
