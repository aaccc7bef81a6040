package i18n

// japaneseMessages contains all Japanese translations.
var japaneseMessages = map[string]string{
	"notify.title.added":   "新しい曲が追加されました",
	"notify.title.removed": "曲が削除されました",

	"notify.action.added":   "%s が追加",
	"notify.action.removed": "%s が削除",

	"notify.unknown_user": "不明なユーザー",
}
