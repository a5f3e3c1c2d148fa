package core

// Error codes reference
//
// Support staff can look up the code a user quotes. Codes are grouped by
// category:
//
//	DB001-DB099   database constraints and connectivity
//	VAL001-VAL099 question validation
//	FILE001-FILE099 CSV file handling
//	IMP001-IMP099 import sessions and batches
//	AUTH001-AUTH099 authentication and permissions
//	RATE001       request throttling
//	ERR000        fallback; check the server log for the technical error
//
// Known sentinel errors are matched first with errors.Is / errors.As. Other
// errors fall back to case-insensitive substring patterns, first match wins.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/quizadmin/internal/auth"
	"github.com/JonMunkholm/quizadmin/internal/csvimport"
	"github.com/JonMunkholm/quizadmin/internal/question"
	"github.com/JonMunkholm/quizadmin/internal/store"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"`
	Action  string `json:"action"`
	Code    string `json:"code"`
}

var (
	msgTooLarge = UserMessage{
		Message: "File exceeds the maximum upload size",
		Action:  "Split the file into smaller CSVs",
		Code:    "FILE001",
	}
	msgMalformed = UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Download the template and check quoting and commas",
		Code:    "FILE002",
	}
	msgInvalidQuestion = UserMessage{
		Message: "The question has invalid fields",
		Action:  "Correct the highlighted fields and submit again",
		Code:    "VAL001",
	}
)

type sentinelMessage struct {
	err error
	msg UserMessage
}

var sentinelMessages = []sentinelMessage{
	{csvimport.ErrTooLarge, msgTooLarge},
	{ErrNotConfirmed, UserMessage{
		Message: "Import was not confirmed",
		Action:  "Review the preview and confirm to start the import",
		Code:    "IMP001",
	}},
	{ErrTooManyImports, UserMessage{
		Message: "System is busy processing other imports",
		Action:  "Please wait a moment and try again",
		Code:    "IMP002",
	}},
	{ErrSessionNotFound, UserMessage{
		Message: "Import session not found",
		Action:  "The preview may have expired. Upload the file again",
		Code:    "IMP003",
	}},
	{ErrImportStarted, UserMessage{
		Message: "This import has already been started",
		Action:  "Follow the running import or upload the file again",
		Code:    "IMP004",
	}},
	{ErrImportNotStarted, UserMessage{
		Message: "This import has not been confirmed yet",
		Action:  "Confirm the preview before asking for the result",
		Code:    "IMP005",
	}},
	{context.Canceled, UserMessage{
		Message: "Import was cancelled",
		Action:  "Rows created before cancelling were kept. Upload the rest when ready",
		Code:    "IMP006",
	}},
	{context.DeadlineExceeded, UserMessage{
		Message: "Import timed out",
		Action:  "Try a smaller file or try again later",
		Code:    "IMP007",
	}},
	{store.ErrNotFound, UserMessage{
		Message: "Record not found",
		Action:  "It may have been deleted. Refresh the page",
		Code:    "DB008",
	}},
	{store.ErrConflict, UserMessage{
		Message: "The change conflicts with existing data",
		Action:  "Check for duplicates or records that still reference this one",
		Code:    "DB009",
	}},
	{auth.ErrUnauthorized, UserMessage{
		Message: "You are not signed in",
		Action:  "Sign in again",
		Code:    "AUTH001",
	}},
	{auth.ErrForbidden, UserMessage{
		Message: "You do not have permission for this action",
		Action:  "Ask an administrator for access",
		Code:    "AUTH002",
	}},
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns covers errors that arrive as text from the driver or the
// network. Specific patterns come before general ones.
var errorPatterns = []errorPattern{
	{"duplicate key", UserMessage{
		Message: "A record with this value already exists",
		Action:  "Check for duplicate entries",
		Code:    "DB001",
	}},
	{"violates unique", UserMessage{
		Message: "A duplicate value was found",
		Action:  "Review your data for duplicate values",
		Code:    "DB002",
	}},
	{"violates foreign key", UserMessage{
		Message: "Referenced topic or record does not exist",
		Action:  "Create the topic first or fix the topic_id column",
		Code:    "DB003",
	}},
	{"connection refused", UserMessage{
		Message: "Unable to connect to database",
		Action:  "Please try again in a few moments",
		Code:    "DB004",
	}},
	{"connection reset", UserMessage{
		Message: "Database connection was interrupted",
		Action:  "Please try again",
		Code:    "DB005",
	}},
	{"timeout", UserMessage{
		Message: "Operation timed out",
		Action:  "Try again later",
		Code:    "DB006",
	}},
	{"deadlock", UserMessage{
		Message: "Database was busy with conflicting operations",
		Action:  "Please try again",
		Code:    "DB007",
	}},
	{"no file provided", UserMessage{
		Message: "No file was selected",
		Action:  "Please select a CSV file to upload",
		Code:    "FILE004",
	}},
	{"not a csv", UserMessage{
		Message: "Only .csv files are accepted",
		Action:  "Export the sheet as CSV (UTF-8)",
		Code:    "FILE006",
	}},
	{"rate limit", UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// parseMessages maps the parser's fixed reasons onto file codes.
var parseMessages = map[string]UserMessage{
	csvimport.ReasonEmptyInput: {
		Message: "The uploaded file is empty",
		Action:  "Upload a CSV with a header row and at least one question",
		Code:    "FILE005",
	},
	csvimport.ReasonNoDataRows: {
		Message: "The file has a header but no questions",
		Action:  "Add at least one question row below the header",
		Code:    "FILE007",
	},
}

// MapError converts a technical error to a user-friendly message. A nil
// error maps to the zero UserMessage.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var perr *csvimport.ParseError
	if errors.As(err, &perr) {
		if errors.Is(err, csvimport.ErrTooLarge) {
			return msgTooLarge
		}
		if m, ok := parseMessages[perr.Reason]; ok {
			return m
		}
		return msgMalformed
	}

	var ferrs question.FieldErrors
	if errors.As(err, &ferrs) {
		return msgInvalidQuestion
	}

	for _, sm := range sentinelMessages {
		if errors.Is(err, sm.err) {
			return sm.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
