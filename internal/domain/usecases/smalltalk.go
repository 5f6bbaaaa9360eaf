package usecases

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CannedReply maps a trigger phrase to a fixed answer.
type CannedReply struct {
	Trigger string
	Reply   string
}

// DefaultIdentityReplies answer questions about the assistant itself. They
// are matched case-insensitively as whole words anywhere in the query, in
// order.
var DefaultIdentityReplies = []CannedReply{
	{Trigger: "who are you", Reply: "I'm the FAQ assistant. I answer questions from our FAQ, and a human will step in when I can't help."},
	{Trigger: "what are you", Reply: "I'm an automated FAQ assistant. I answer questions from our FAQ."},
	{Trigger: "what can you do", Reply: "I can answer common questions using our FAQ. Just ask, and if I don't know, a human will reply."},
	{Trigger: "are you a bot", Reply: "Yes, I'm an automated FAQ assistant. If I can't answer, a human will reply."},
	{Trigger: "are you human", Reply: "No, I'm an automated FAQ assistant. If I can't answer, a human will reply."},
	{Trigger: "what is your name", Reply: "I'm the FAQ assistant."},
	{Trigger: "who made you", Reply: "I was set up by the support team to answer frequently asked questions."},
}

var (
	greetingTriggers = []string{"hi", "hello", "hey", "yo", "hola"}
	greetingReplies  = []string{
		"Hello! How can I assist you today?",
		"Hi there! 😊 What can I help you with?",
		"Hey! Ask me anything.",
	}

	ackTriggers = []string{"ok", "okay", "k", "thanks", "thank you"}
	ackReplies  = []string{"You're welcome! 😊", "Glad I could help!", "Anytime!"}

	// answerSuffixes are appended to grounded answers; "" keeps the answer as is.
	answerSuffixes = []string{"", " Let me know if you want to know more!", " Happy to help!"}
)

func matchIdentity(replies []CannedReply, query string) (string, bool) {
	lower := strings.ToLower(query)
	for _, r := range replies {
		if containsPhrase(lower, r.Trigger) {
			return r.Reply, true
		}
	}
	return "", false
}

// containsPhrase reports whether phrase occurs in text with no letter or
// digit directly before or after it, so "what are you" does not match
// "what are your hours".
func containsPhrase(text, phrase string) bool {
	if phrase == "" {
		return false
	}
	for offset := 0; ; {
		i := strings.Index(text[offset:], phrase)
		if i < 0 {
			return false
		}
		start := offset + i
		end := start + len(phrase)

		before, _ := utf8.DecodeLastRuneInString(text[:start])
		after, _ := utf8.DecodeRuneInString(text[end:])
		if !isWordRune(before) && !isWordRune(after) {
			return true
		}
		offset = start + 1
	}
}

func isWordRune(r rune) bool {
	return r != utf8.RuneError && (unicode.IsLetter(r) || unicode.IsDigit(r))
}

// matchExact reports whether message equals one of triggers, ignoring case
// and surrounding whitespace.
func matchExact(triggers []string, message string) bool {
	lower := strings.ToLower(strings.TrimSpace(message))
	for _, t := range triggers {
		if lower == t {
			return true
		}
	}
	return false
}
