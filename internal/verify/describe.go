package verify

import "errors"

// Category groups verification failures for display.
type Category int

const (
	CategoryInvalid Category = iota
	CategoryAmbiguousKey
	CategoryUnknownKey
	CategoryBadSignature
	CategoryMalformed
)

// Categorize maps err to a Category and its code. Errors that are not a
// *VerifyError fall into CategoryInvalid with an empty code.
func Categorize(err error) (Category, string) {
	var ve *VerifyError
	if !errors.As(err, &ve) {
		return CategoryInvalid, ""
	}
	switch ve.Code {
	case CodeMultipleMatchingKeys:
		return CategoryAmbiguousKey, ve.Code
	case CodeNoMatchingKey:
		return CategoryUnknownKey, ve.Code
	case CodeSignatureFailed, CodeNoValidKey:
		return CategoryBadSignature, ve.Code
	case CodeInvalid, CodeInvalidPayload:
		return CategoryMalformed, ve.Code
	}
	return CategoryInvalid, ve.Code
}

// Describe returns a user-facing message for a verification failure.
func Describe(err error) string {
	if err == nil {
		return "The token is valid."
	}
	cat, code := Categorize(err)
	switch cat {
	case CategoryAmbiguousKey:
		return "The token matches several signing keys and none could be chosen."
	case CategoryUnknownKey:
		return "The token was signed with a key that is not published."
	case CategoryBadSignature:
		return "The token signature does not match any published key."
	case CategoryMalformed:
		return "The token is malformed."
	}
	if code == "" {
		return "Invalid token."
	}
	return "Invalid token (" + code + ")."
}
