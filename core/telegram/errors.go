package telegram

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/minerva/core/netutil"
)

// StatusFromError extracts the Bot API status carried by err, or 0.
func StatusFromError(err error) int {
	if err == nil {
		return 0
	}

	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var floodErr tele.FloodError
	if errors.As(err, &floodErr) {
		return http.StatusTooManyRequests
	}
	var groupErr tele.GroupError
	if errors.As(err, &groupErr) {
		return http.StatusBadRequest
	}

	// telebot formats unknown API errors as "telegram: <description> (<code>)".
	msg := err.Error()
	open, closing := strings.LastIndex(msg, "("), strings.LastIndex(msg, ")")
	if open >= 0 && closing > open+1 {
		if code, convErr := strconv.Atoi(strings.TrimSpace(msg[open+1 : closing])); convErr == nil {
			return code
		}
	}
	return 0
}

// ClassifyError maps send failures to err_code values, adding Bot API statuses to netutil.ClassifyError.
func ClassifyError(err error) string {
	switch status := StatusFromError(err); {
	case status == http.StatusTooManyRequests:
		return "http_429"
	case status >= 500:
		return "http_5xx"
	case status >= 400:
		return "http_4xx"
	}
	return netutil.ClassifyError(err)
}

// ShouldRetry reports whether a failed Bot API call is worth repeating.
// Flood control and server errors are retried; other API errors are final.
func ShouldRetry(err error) bool {
	switch status := StatusFromError(err); {
	case status == http.StatusTooManyRequests, status >= 500:
		return true
	case status >= 400:
		return false
	}
	return netutil.ShouldRetry(err)
}
