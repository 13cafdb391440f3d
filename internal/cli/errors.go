package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/osvaldoandrade/extrepo/internal/app/build"
	"github.com/osvaldoandrade/extrepo/internal/app/history"
	"github.com/osvaldoandrade/extrepo/internal/app/paths"
	"github.com/osvaldoandrade/extrepo/internal/config"
	"github.com/osvaldoandrade/extrepo/internal/domain"
	"github.com/osvaldoandrade/extrepo/internal/infra/manifestfs"
	"github.com/osvaldoandrade/extrepo/internal/infra/schema"
)

type ErrorKind string

const (
	KindInternal   ErrorKind = "internal"
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
)

const (
	ExitInternal = 1
	ExitInvalid  = 2
	ExitNotFound = 3
)

type ExitError struct {
	Code    int
	Kind    ErrorKind
	Message string
	Err     error
}

func (e ExitError) Error() string {
	return errorMessage(e)
}

func NormalizeError(err error) ExitError {
	if err == nil {
		return ExitError{Code: 0}
	}
	var exitErr ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Code == 0 {
			exitErr.Code = ExitInternal
		}
		return exitErr
	}

	switch {
	case errors.Is(err, domain.ErrReleaseNotFound),
		errors.Is(err, history.ErrRunNotFound):
		return ExitError{Code: ExitNotFound, Kind: KindNotFound, Err: err}
	case errors.Is(err, config.ErrConfigFileNotFound),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, config.ErrTokenRequired),
		errors.Is(err, config.ErrInvalidConcurrency),
		errors.Is(err, config.ErrInvalidTimeout),
		errors.Is(err, config.ErrInvalidDomain),
		errors.Is(err, config.ErrExtensionsDirMissing),
		errors.Is(err, manifestfs.ErrExtensionsDirMissing),
		errors.Is(err, schema.ErrSchemaFileNotFound),
		errors.Is(err, domain.ErrInvalidStrategy),
		errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrInvalidManifest),
		errors.Is(err, domain.ErrInvalidVersion),
		errors.Is(err, paths.ErrPathRequired),
		errors.Is(err, build.ErrPublicDirRequired),
		errors.Is(err, build.ErrExtensionsDirRequired),
		errors.Is(err, build.ErrInvalidConcurrency),
		errors.Is(err, build.ErrInvalidTimeout),
		errors.Is(err, build.ErrNoResolver),
		errors.Is(err, history.ErrRunIDRequired),
		errors.Is(err, history.ErrInvalidLimit),
		errors.Is(err, history.ErrJournalDisabled):
		return ExitError{Code: ExitInvalid, Kind: KindValidation, Err: err}
	default:
		return ExitError{Code: ExitInternal, Kind: KindInternal, Err: err}
	}
}

func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return NormalizeError(err).Code
}

func writeCLIError(w io.Writer, exitErr ExitError, asJSON bool) error {
	if exitErr.Code == 0 {
		return nil
	}
	message := errorMessage(exitErr)
	if asJSON {
		payload := struct {
			Code    int    `json:"code"`
			Kind    string `json:"kind"`
			Message string `json:"message"`
		}{
			Code:    exitErr.Code,
			Kind:    string(exitErr.Kind),
			Message: message,
		}
		return writeJSON(w, payload)
	}

	ui := newRenderer(w, false)
	prefix := "Error"
	if exitErr.Kind != "" {
		prefix = fmt.Sprintf("Error (%s)", exitErr.Kind)
	}
	prefix = ui.err(prefix)
	_, err := fmt.Fprintf(w, "%s: %s\n", prefix, message)
	return err
}

func errorMessage(exitErr ExitError) string {
	if exitErr.Message != "" {
		return exitErr.Message
	}
	if exitErr.Err != nil {
		return exitErr.Err.Error()
	}
	return "unknown error"
}
