// Package i18n provides internationalization support for notification text
package i18n

import (
	"fmt"

	"golang.org/x/text/language"
)

const (
	// DefaultLanguage is the fallback language when no translation is available
	DefaultLanguage = "en"
	// JapaneseMessages is the Japanese message catalog
	JapaneseMessages = "ja"
)

// Localizer provides translation functionality
type Localizer struct {
	language string
	messages map[string]string
}

// NewLocalizer creates a new localizer for the specified language.
// Regional tags such as "ja-JP" resolve to their base language.
func NewLocalizer(lang string) *Localizer {
	resolved, _ := Normalize(lang)
	return &Localizer{
		language: resolved,
		messages: getMessages(resolved),
	}
}

// Language returns the resolved language code
func (l *Localizer) Language() string {
	return l.language
}

// T translates a message key, with optional parameters for formatting
func (l *Localizer) T(key string, args ...interface{}) string {
	if message, exists := l.messages[key]; exists {
		if len(args) > 0 {
			return fmt.Sprintf(message, args...)
		}
		return message
	}

	// Fallback to English if key not found in current language
	if l.language != DefaultLanguage {
		if fallbackMessage, exists := getMessages(DefaultLanguage)[key]; exists {
			if len(args) > 0 {
				return fmt.Sprintf(fallbackMessage, args...)
			}
			return fallbackMessage
		}
	}

	// Ultimate fallback: return the key itself
	return key
}

// Normalize maps a BCP 47 tag onto a supported language code.
// The second result is false when the tag is invalid or unsupported, in which
// case DefaultLanguage is returned.
func Normalize(lang string) (string, bool) {
	if lang == "" {
		return DefaultLanguage, false
	}

	tag, err := language.Parse(lang)
	if err != nil {
		return DefaultLanguage, false
	}

	base, _ := tag.Base()
	for _, supported := range GetSupportedLanguages() {
		if base.String() == supported {
			return supported, true
		}
	}

	return DefaultLanguage, false
}

// GetSupportedLanguages returns list of supported language codes
func GetSupportedLanguages() []string {
	return []string{DefaultLanguage, JapaneseMessages}
}

// getMessages returns the message map for a given language
func getMessages(lang string) map[string]string {
	switch lang {
	case DefaultLanguage:
		return englishMessages
	case JapaneseMessages:
		return japaneseMessages
	default:
		return englishMessages // Default to English
	}
}
