package i18n

// englishMessages contains all English translations.
var englishMessages = map[string]string{
	// Notification titles
	"notify.title.added":   "Added new song",
	"notify.title.removed": "Removed the song",

	// Second description line, the argument is the rendered user link
	"notify.action.added":   "added by %s",
	"notify.action.removed": "removed by %s",

	"notify.unknown_user": "an unknown user",
}
