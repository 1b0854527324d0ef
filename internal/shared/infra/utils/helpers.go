package utils

import "strings"

// Ternary es un operador ternario genérico
func Ternary[T any](condition bool, ifTrue, ifFalse T) T {
	if condition {
		return ifTrue
	}
	return ifFalse
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapa los metacaracteres de LIKE (%, _ y el propio \) para
// usar un valor no confiable como literal en un patrón. La consulta debe
// declarar ESCAPE '\'.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
