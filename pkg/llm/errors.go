package llm

import (
	"errors"
	"strings"
)

// Kind classifies a model call failure.
type Kind string

// Failure kinds, detected from provider error text.
const (
	KindUnknown       Kind = "unknown"
	KindAuth          Kind = "auth"
	KindRateLimit     Kind = "rate_limit"
	KindContextLength Kind = "context_length"
	KindNotFound      Kind = "not_found"
	KindConnection    Kind = "connection"
	KindMalformed     Kind = "malformed_reply"
)

// Classify inspects err and returns its kind. Provider SDKs do not share
// error types, so this matches on the message text.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	if errors.Is(err, ErrMalformedReply) {
		return KindMalformed
	}

	msg := strings.ToLower(err.Error())

	switch {
	case containsAny(msg, "401", "403", "unauthorized", "invalid api key", "api key", "forbidden"):
		return KindAuth
	case containsAny(msg, "429", "rate limit", "quota", "too many requests"):
		return KindRateLimit
	case containsAny(msg, "context length", "too many tokens", "max tokens", "token limit"):
		return KindContextLength
	case containsAny(msg, "model not found", "404", "not found"):
		return KindNotFound
	case containsAny(msg, "connection", "eof", "timeout", "dial", "refused"):
		return KindConnection
	default:
		return KindUnknown
	}
}

// Permanent reports whether retrying the same request cannot succeed.
func Permanent(err error) bool {
	switch Classify(err) {
	case KindAuth, KindContextLength, KindNotFound:
		return true
	default:
		return false
	}
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}

	return false
}
