package extreposdk

import "errors"

var (
	ErrBaseDirRequired = errors.New("extrepo-sdk: base dir required")
	ErrClosed          = errors.New("extrepo-sdk: client is closed")
	ErrNotFound        = errors.New("extrepo-sdk: not found")
	ErrJournalDisabled = errors.New("extrepo-sdk: build journal is disabled")
)
