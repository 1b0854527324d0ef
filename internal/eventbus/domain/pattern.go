package domain

import (
	"regexp"
	"strings"
	"sync"
)

// MatchPattern decide si un tipo de evento casa con el patrón de una
// suscripción. Tres casos, en este orden: "*" casa con todo; una cadena
// sin comodines es comparación literal; cualquier otra cosa se traduce a
// una expresión anclada donde cada '*' es "cualquier secuencia de
// caracteres". La traducción escapa el resto del patrón, así que un
// patrón no confiable nunca se interpreta como regex general.
func MatchPattern(pattern, eventType string) bool {
	if pattern == "*" {
		return true
	}
	if !strings.Contains(pattern, "*") {
		return pattern == eventType
	}

	re, err := compilePattern(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(eventType)
}

var (
	patternMu    sync.RWMutex
	patternCache = make(map[string]*regexp.Regexp)
)

func compilePattern(pattern string) (*regexp.Regexp, error) {
	patternMu.RLock()
	re, ok := patternCache[pattern]
	patternMu.RUnlock()
	if ok {
		return re, nil
	}

	parts := strings.Split(pattern, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	re, err := regexp.Compile("^" + strings.Join(parts, ".*") + "$")
	if err != nil {
		return nil, err
	}

	patternMu.Lock()
	patternCache[pattern] = re
	patternMu.Unlock()
	return re, nil
}
