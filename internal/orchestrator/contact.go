package orchestrator

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/lucinedinatale/chatbot-backend/internal/session"
)

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`(\+39\s?)?(\d{3}\s?\d{3}\s?\d{4}|\d{10})`)
)

// extractContact pulls an email address or Italian phone number out of the
// message. Email wins when both are present.
func extractContact(message string) (*session.Contact, bool) {
	if email := emailRe.FindString(message); email != "" {
		return &session.Contact{Method: session.ContactEmail, Value: email}, true
	}
	if phone := phoneRe.FindString(message); phone != "" {
		return &session.Contact{
			Method: session.ContactPhone,
			Value:  normalizeSpaces(phone),
		}, true
	}
	return nil, false
}

func normalizeSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// affirmationWords are the confirmations accepted anywhere in the message
// when the assistant has offered to call an operator.
var affirmationWords = map[string]bool{
	"sì":        true,
	"si":        true,
	"yes":       true,
	"ok":        true,
	"certo":     true,
	"operatore": true,
	"contatta":  true,
}

// affirmationPhrases are matched as substrings of the normalized message.
var affirmationPhrases = []string{"va bene"}

// operatorToken is the machine token the model emits for handover requests.
// The widget also sends it directly when its operator button is clicked.
const operatorToken = "request_operator"

// isAffirmation reports whether the message confirms an operator offer.
// Confirmations count wherever they appear, so "sì, contatta operatore"
// confirms just like a bare "sì".
func isAffirmation(message string) bool {
	normalized := strings.ToLower(strings.TrimSpace(message))
	if strings.Contains(normalized, operatorToken) {
		return true
	}
	for _, phrase := range affirmationPhrases {
		if strings.Contains(normalized, phrase) {
			return true
		}
	}
	for _, word := range strings.FieldsFunc(normalized, isWordSeparator) {
		if affirmationWords[word] {
			return true
		}
	}
	return false
}

func isWordSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// optOuts are the phrases that cancel WhatsApp notifications for a session.
var optOuts = map[string]bool{
	"stop":                true,
	"stop whatsapp":       true,
	"stop notifiche":      true,
	"disattiva notifiche": true,
}

// isOptOut reports whether the message asks to stop WhatsApp notifications.
func isOptOut(message string) bool {
	normalized := strings.ToLower(strings.TrimSpace(message))
	normalized = strings.Trim(normalized, "!.,?")
	return optOuts[normalized]
}

// wantsOperator reports whether the message itself asks for a human.
var operatorKeywordsRe = regexp.MustCompile(`(?i)(parlare con .{0,20}(operatore|persona|umano)|voglio un operatore|request_operator)`)

func wantsOperator(message string) bool {
	return operatorKeywordsRe.MatchString(message)
}
