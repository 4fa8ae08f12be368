package parser

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is.
var (
	// ErrUnsupportedFormat reports a file name suffix with no registered parser.
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrMalformedJSON reports a JSON payload that does not parse.
	ErrMalformedJSON = errors.New("malformed json")
	// ErrUnrecognizedJSONStructure reports valid JSON of an unexpected shape.
	ErrUnrecognizedJSONStructure = errors.New("unrecognized json structure")
	// ErrReadFailure reports an I/O failure while reading the payload.
	ErrReadFailure = errors.New("read failure")
	// ErrCorruptDocument reports a binary container (xlsx, xls, pdf) that cannot be opened.
	ErrCorruptDocument = errors.New("corrupt document")
)

// Error is a terminal ingestion failure for one file.
type Error struct {
	Kind     error
	FileName string
	Err      error
}

// NewError wraps err as an ingestion failure of the given kind.
func NewError(kind error, fileName string, err error) *Error {
	return &Error{Kind: kind, FileName: fileName, Err: err}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := "ingestion failed"
	if e.Kind != nil {
		msg = e.Kind.Error()
	}
	if e.FileName != "" {
		msg = fmt.Sprintf("%s: %s", e.FileName, msg)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap exposes both the kind and the underlying cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	var errs []error
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf returns the ingestion error kind carried by err, or nil.
func KindOf(err error) error {
	for _, kind := range []error{
		ErrUnsupportedFormat,
		ErrMalformedJSON,
		ErrUnrecognizedJSONStructure,
		ErrReadFailure,
		ErrCorruptDocument,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
