package scraper

import "fmt"

// Kind classifies an Error.
type Kind int

const (
	KindGeneric Kind = iota
	KindBrowserNotLaunched
	KindDuringBrowserLaunch
	KindDuringBrowserClose
	KindDuringScraping
)

// String returns the error type name reported for the kind.
func (k Kind) String() string {
	switch k {
	case KindBrowserNotLaunched:
		return "VideoScraperCoreBrowserNotLaunchedError"
	case KindDuringBrowserLaunch:
		return "VideoScraperCoreDuringBrowserLaunchError"
	case KindDuringBrowserClose:
		return "VideoScraperCoreDuringBrowserCloseError"
	case KindDuringScraping:
		return "VideoScraperCoreDuringScrapingError"
	default:
		return "VideoScraperCoreError"
	}
}

// Default messages per kind.
const (
	MsgGeneric             = "There was a generic error with VideoScraperCore"
	MsgBrowserNotLaunched  = `You cannot scrape if a browser was not launched. Use "scraper.launch()" before calling this method`
	MsgDuringBrowserLaunch = "There was an error during the browser launch."
	MsgDuringBrowserClose  = "There was an error during the browser close."
	MsgDuringScraping      = "There was an error during the scraping."
)

func (k Kind) defaultMessage() string {
	switch k {
	case KindBrowserNotLaunched:
		return MsgBrowserNotLaunched
	case KindDuringBrowserLaunch:
		return MsgDuringBrowserLaunch
	case KindDuringBrowserClose:
		return MsgDuringBrowserClose
	case KindDuringScraping:
		return MsgDuringScraping
	default:
		return MsgGeneric
	}
}

// Sentinels for errors.Is. ErrVideoScraper matches every *Error.
var (
	ErrVideoScraper        = &Error{Kind: KindGeneric, Message: MsgGeneric}
	ErrBrowserNotLaunched  = &Error{Kind: KindBrowserNotLaunched, Message: MsgBrowserNotLaunched}
	ErrDuringBrowserLaunch = &Error{Kind: KindDuringBrowserLaunch, Message: MsgDuringBrowserLaunch}
	ErrDuringBrowserClose  = &Error{Kind: KindDuringBrowserClose, Message: MsgDuringBrowserClose}
	ErrDuringScraping      = &Error{Kind: KindDuringScraping, Message: MsgDuringScraping}
)

// Error is the failure type returned by the video scraper.
// It is never mutated after construction.
type Error struct {
	Kind    Kind
	Message string
	Cause   error          // wrapped original error
	Context map[string]any // free-form details
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrVideoScraper or a sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t == ErrVideoScraper {
		return true
	}
	return isSentinel(t) && t.Kind == e.Kind
}

func isSentinel(e *Error) bool {
	switch e {
	case ErrBrowserNotLaunched, ErrDuringBrowserLaunch, ErrDuringBrowserClose, ErrDuringScraping:
		return true
	}
	return false
}

func newError(kind Kind, message string, context map[string]any, cause error) *Error {
	if message == "" {
		message = kind.defaultMessage()
	}
	return &Error{Kind: kind, Message: message, Cause: cause, Context: context}
}

// wrapContext stores the cause and extra info the way every wrapping kind reports them.
func wrapContext(cause error, otherInfo any) map[string]any {
	return map[string]any{"error": cause, "otherInfo": otherInfo}
}

// NewError creates a generic error. An empty message selects the default.
func NewError(message string, context map[string]any) *Error {
	return newError(KindGeneric, message, context, nil)
}

// NewBrowserNotLaunchedError is returned when scraping without a launched browser.
func NewBrowserNotLaunchedError(message string) *Error {
	return newError(KindBrowserNotLaunched, message, nil, nil)
}

// NewDuringBrowserLaunchError wraps a failure of the engine's launch.
func NewDuringBrowserLaunchError(cause error, message string, otherInfo any) *Error {
	return newError(KindDuringBrowserLaunch, message, wrapContext(cause, otherInfo), cause)
}

// NewDuringBrowserCloseError wraps a failure of the engine's close.
func NewDuringBrowserCloseError(cause error, message string, otherInfo any) *Error {
	return newError(KindDuringBrowserClose, message, wrapContext(cause, otherInfo), cause)
}

// NewDuringScrapingError wraps any failure inside a scrape.
func NewDuringScrapingError(cause error, message string, otherInfo any) *Error {
	return newError(KindDuringScraping, message, wrapContext(cause, otherInfo), cause)
}
