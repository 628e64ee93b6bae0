package enums

import "strings"

// EntityKind - вид живой сущности шарда.
type EntityKind uint8

const (
	EntityKindUnknown EntityKind = iota
	EntityKindCharacter
	EntityKindMob
)

var entityKindToString = map[EntityKind]string{
	EntityKindCharacter: "CHARACTER",
	EntityKindMob:       "MOB",
}

var entityKindStringToKind = map[string]EntityKind{
	"CHARACTER": EntityKindCharacter,
	"MOB":       EntityKindMob,
}

// String возвращает строковое представление (для логов и дебага)
func (k EntityKind) String() string {
	if val, ok := entityKindToString[k]; ok {
		return val
	}
	return "UNKNOWN"
}

// ParseEntityKind конвертирует строку в Enum (нужно для загрузки шаблонов)
func ParseEntityKind(s string) EntityKind {
	if val, ok := entityKindStringToKind[strings.ToUpper(s)]; ok {
		return val
	}
	return EntityKindUnknown
}
