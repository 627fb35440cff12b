package analyses

import "errors"

// EmptyInputMessage is the user-facing text for ErrEmptyInput.
const EmptyInputMessage = "No contract text provided for analysis."

// ErrEmptyInput is returned when analysis is requested without document text.
var ErrEmptyInput = errors.New("no contract text provided for analysis")
