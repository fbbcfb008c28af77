// Package exception defines the error taxonomy shared by the codec core.
//
// Every failure raised by the quantum engine, the pixel stream layer and the
// dispatch layer is an *Exception. An Exception carries a Severity, which
// encodes both the kind of problem (resource, option, policy, stream, ...)
// and its level (warning, error, fatal), and wraps one of the sentinel
// errors below so callers can test for a condition with errors.Is.
//
// # Propagation
//
// Functions return errors in the usual Go way. Conditions that must not
// abort a pipeline (for example a corrupt colormap index that was clamped)
// are reported with a warning Severity; callers hand them to a Sink and keep
// going. Anything at error level or above ends the current operation.
package exception

import (
	"errors"
	"fmt"
)

// Severity classifies an exception. The hundreds digit is the level
// (3 warning, 4 error, 7 fatal) and the remainder is the kind.
type Severity int

// Severity values, grouped by level.
const (
	UndefinedSeverity Severity = 0

	WarningLevel           Severity = 300
	ResourceLimitWarning   Severity = 300
	TypeWarning            Severity = 305
	OptionWarning          Severity = 310
	DelegateWarning        Severity = 315
	MissingDelegateWarning Severity = 320
	CorruptImageWarning    Severity = 325
	FileOpenWarning        Severity = 330
	BlobWarning            Severity = 335
	StreamWarning          Severity = 340
	CacheWarning           Severity = 345
	CoderWarning           Severity = 350
	ImageWarning           Severity = 365
	ConfigureWarning       Severity = 395
	PolicyWarning          Severity = 399

	ErrorLevel           Severity = 400
	ResourceLimitError   Severity = 400
	TypeError            Severity = 405
	OptionError          Severity = 410
	DelegateError        Severity = 415
	MissingDelegateError Severity = 420
	CorruptImageError    Severity = 425
	FileOpenError        Severity = 430
	BlobError            Severity = 435
	StreamError          Severity = 440
	CacheError           Severity = 445
	CoderError           Severity = 450
	ImageError           Severity = 465
	ConfigureError       Severity = 495
	PolicyError          Severity = 499

	FatalLevel              Severity = 700
	ResourceLimitFatalError Severity = 700
	CacheFatalError         Severity = 745
)

var severityNames = map[Severity]string{
	ResourceLimitWarning:    "ResourceLimitWarning",
	TypeWarning:             "TypeWarning",
	OptionWarning:           "OptionWarning",
	DelegateWarning:         "DelegateWarning",
	MissingDelegateWarning:  "MissingDelegateWarning",
	CorruptImageWarning:     "CorruptImageWarning",
	FileOpenWarning:         "FileOpenWarning",
	BlobWarning:             "BlobWarning",
	StreamWarning:           "StreamWarning",
	CacheWarning:            "CacheWarning",
	CoderWarning:            "CoderWarning",
	ImageWarning:            "ImageWarning",
	ConfigureWarning:        "ConfigureWarning",
	PolicyWarning:           "PolicyWarning",
	ResourceLimitError:      "ResourceLimitError",
	TypeError:               "TypeError",
	OptionError:             "OptionError",
	DelegateError:           "DelegateError",
	MissingDelegateError:    "MissingDelegateError",
	CorruptImageError:       "CorruptImageError",
	FileOpenError:           "FileOpenError",
	BlobError:               "BlobError",
	StreamError:             "StreamError",
	CacheError:              "CacheError",
	CoderError:              "CoderError",
	ImageError:              "ImageError",
	ConfigureError:          "ConfigureError",
	PolicyError:             "PolicyError",
	ResourceLimitFatalError: "ResourceLimitFatalError",
	CacheFatalError:         "CacheFatalError",
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// IsWarning reports whether s is below the error level.
func (s Severity) IsWarning() bool { return s >= WarningLevel && s < ErrorLevel }

// IsError reports whether s is at error level or above.
func (s Severity) IsError() bool { return s >= ErrorLevel }

// Sentinel conditions. Exceptions wrap exactly one of these.
var (
	ErrColormappedImageRequired    = errors.New("colormapped image required")
	ErrColorSeparatedImageRequired = errors.New("color separated image required")
	ErrUnrecognizedQuantumType     = errors.New("unrecognized quantum type")
	ErrInvalidDepth                = errors.New("invalid quantum depth")
	ErrInvalidPad                  = errors.New("invalid quantum pad")
	ErrBufferTooSmall              = errors.New("pixel buffer too small")
	ErrInvalidColormapIndex        = errors.New("invalid colormap index")
	ErrUnrecognizedPixelMap        = errors.New("unrecognized pixel map")
	ErrMemoryAllocationFailed      = errors.New("memory allocation failed")
	ErrNotAuthorized               = errors.New("not authorized")
	ErrNoDecodeDelegate            = errors.New("no decode delegate for this image format")
	ErrNoEncodeDelegate            = errors.New("no encode delegate for this image format")
	ErrDelegateFailed              = errors.New("delegate failed")
	ErrNoStreamHandler             = errors.New("no stream handler is defined")
	ErrStreamGeometry              = errors.New("image does not contain the stream geometry")
	ErrShortWrite                  = errors.New("stream handler returned a short write")
	ErrStreamDestroyed             = errors.New("stream has been destroyed")
	ErrGeometryOutOfBounds         = errors.New("geometry does not contain image")
	ErrMustSpecifyImageSize        = errors.New("must specify image size")
	ErrUnableToOpenFile            = errors.New("unable to open image")
	ErrUnableToWriteFile           = errors.New("unable to write image")
	ErrUnexpectedEndOfFile         = errors.New("unexpected end of file")
	ErrImproperImageHeader         = errors.New("improper image header")
	ErrInvalidConfiguration        = errors.New("invalid configuration")
)

// Exception is a classified failure with an optional description, usually
// the offending filename or argument.
type Exception struct {
	Severity    Severity
	Description string
	Err         error
}

// New builds an Exception wrapping sentinel.
func New(severity Severity, sentinel error, description string) *Exception {
	return &Exception{Severity: severity, Description: description, Err: sentinel}
}

// Newf is New with a formatted description.
func Newf(severity Severity, sentinel error, format string, args ...any) *Exception {
	return New(severity, sentinel, fmt.Sprintf(format, args...))
}

func (e *Exception) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("%s: %v", e.Severity, e.Err)
	}
	return fmt.Sprintf("%s: %v `%s'", e.Severity, e.Err, e.Description)
}

func (e *Exception) Unwrap() error { return e.Err }

// SeverityOf returns the severity of err. Errors that are not Exceptions
// count as generic errors.
func SeverityOf(err error) Severity {
	if err == nil {
		return UndefinedSeverity
	}
	var e *Exception
	if errors.As(err, &e) {
		return e.Severity
	}
	return ErrorLevel
}

// IsWarning reports whether err is a warning-level Exception.
func IsWarning(err error) bool {
	return SeverityOf(err).IsWarning()
}
