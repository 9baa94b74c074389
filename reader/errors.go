package reader

import (
	"errors"
	"fmt"

	"github.com/tsawler/gdsii/core"
)

// Construction errors. Each wraps the core error class it belongs to, so
// errors.Is works against either.
var (
	ErrMissingHeader  = fmt.Errorf("missing HEADER record: %w", core.ErrUnexpectedRecordType)
	ErrMissingBgnlib  = fmt.Errorf("missing BGNLIB record: %w", core.ErrUnexpectedRecordType)
	ErrMissingLibname = fmt.Errorf("missing LIBNAME record: %w", core.ErrUnexpectedRecordType)
	ErrMissingUnits   = fmt.Errorf("no UNITS record before first structure: %w", core.ErrUnexpectedRecordType)
	ErrMalformedUnits = fmt.Errorf("UNITS payload is not 16 bytes: %w", core.ErrMalformedLength)
	ErrMissingStrname = fmt.Errorf("BGNSTR not followed by STRNAME: %w", core.ErrUnexpectedRecordType)
)

// ErrStructureNotFound is returned by StructureIndex for an unknown name.
var ErrStructureNotFound = errors.New("structure not found")

func indexError(what string, i, n int) error {
	return fmt.Errorf("%s index %d outside [0, %d): %w", what, i, n, core.ErrIndexOutOfRange)
}
