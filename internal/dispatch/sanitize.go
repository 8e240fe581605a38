package dispatch

import "regexp"

// GenericErrorMessage replaces server messages that leak implementation
// detail (stack traces, SQL errors, framework text) before display.
const GenericErrorMessage = "We're sorry, something went wrong while handling your request. Please try again shortly."

// technicalPatterns match message fragments no driver should ever see.
var technicalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)cannot be null`),
	regexp.MustCompile(`(?i)(null|object) ?reference`),
	regexp.MustCompile(`(?i)\bexception\b`),
	regexp.MustCompile(`(?i)stack trace`),
	regexp.MustCompile(`\n\s+at \S+\(`),
	regexp.MustCompile(`(?i)\bsql\b`),
	regexp.MustCompile(`(?i)connection (refused|reset|failed|string|timed? ?out)`),
	regexp.MustCompile(`(?i)timeout expired`),
	regexp.MustCompile(`(?i)deadlock`),
	regexp.MustCompile(`(?i)(internal server error|bad gateway|service unavailable|gateway timeout|bad request|not found)`),
}

// Sanitize returns msg unchanged unless it looks like a technical error,
// in which case the generic message is substituted.
func Sanitize(msg string) string {
	for _, p := range technicalPatterns {
		if p.MatchString(msg) {
			return GenericErrorMessage
		}
	}
	return msg
}
