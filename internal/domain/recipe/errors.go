package recipe

import "errors"

var (
	ErrMissingID           = errors.New("recipe identifier is required")
	ErrMissingTitle        = errors.New("recipe title is required")
	ErrUnsupportedLanguage = errors.New("unsupported language")
)
