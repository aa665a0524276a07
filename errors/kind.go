package errors

import (
	"errors"
	"fmt"
)

// Kind classifies failures of the engine. The set is closed.
type Kind int

const (
	KindNone Kind = iota
	KindBadFileFormat
	KindCorruptedFile
	KindNotImplemented
	KindInexistentTag
	KindInexistentItem
	KindAlreadyExistingTag
	KindParameterOutOfRange
	KindBadParameterType
	KindBadSequenceOfCalls
	KindBadRequest
	KindBadJson
	KindNullPointer
	KindInternalError
	KindNetworkProtocol
	KindNoPresentationContext
	KindDicomFindUnavailable
	KindDicomMoveUnavailable
	KindUnknownDicomTag
	KindNoSopClassOrInstance
	KindUnprocessableEntity
	KindPlugin
	KindNotAcceptableCharacter
	KindInexistentFile
	KindTimeout
)

var kindNames = map[Kind]string{
	KindNone:                   "Success",
	KindBadFileFormat:          "BadFileFormat",
	KindCorruptedFile:          "CorruptedFile",
	KindNotImplemented:         "NotImplemented",
	KindInexistentTag:          "InexistentTag",
	KindInexistentItem:         "InexistentItem",
	KindAlreadyExistingTag:     "AlreadyExistingTag",
	KindParameterOutOfRange:    "ParameterOutOfRange",
	KindBadParameterType:       "BadParameterType",
	KindBadSequenceOfCalls:     "BadSequenceOfCalls",
	KindBadRequest:             "BadRequest",
	KindBadJson:                "BadJson",
	KindNullPointer:            "NullPointer",
	KindInternalError:          "InternalError",
	KindNetworkProtocol:        "NetworkProtocol",
	KindNoPresentationContext:  "NoPresentationContext",
	KindDicomFindUnavailable:   "DicomFindUnavailable",
	KindDicomMoveUnavailable:   "DicomMoveUnavailable",
	KindUnknownDicomTag:        "UnknownDicomTag",
	KindNoSopClassOrInstance:   "NoSopClassOrInstance",
	KindUnprocessableEntity:    "UnprocessableEntity",
	KindPlugin:                 "Plugin",
	KindNotAcceptableCharacter: "NotAcceptableCharacter",
	KindInexistentFile:         "InexistentFile",
	KindTimeout:                "Timeout",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Error lets a Kind be used directly as an errors.Is target.
func (k Kind) Error() string {
	return k.String()
}

// Error is the engine error carrying a Kind. Detail holds the offending
// tag, path, token or remote AET when it is known.
type Error struct {
	Kind   Kind
	Msg    string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Detail != "" {
		msg += " [" + e.Detail + "]"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches a bare Kind or another *Error of the same kind.
func (e *Error) Is(target error) bool {
	switch t := target.(type) {
	case Kind:
		return e.Kind == t
	case *Error:
		return e.Kind == t.Kind
	}
	return false
}

// New builds an *Error with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// WithDetail returns a copy of e carrying the given detail.
func (e *Error) WithDetail(detail string) *Error {
	c := *e
	c.Detail = detail
	return &c
}

// KindOf returns the kind of the first *Error in the chain, then of the
// first protocol error, or KindInternalError for foreign errors. A nil
// error has KindNone.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindInternalError
}
