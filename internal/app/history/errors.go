package history

import "errors"

var ErrRunNotFound = errors.New("build run not found")
var ErrRunIDRequired = errors.New("run id is required")
var ErrInvalidLimit = errors.New("limit must be positive")
var ErrJournalDisabled = errors.New("build journal is disabled")
