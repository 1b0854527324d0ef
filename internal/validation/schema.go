package validation

import "fmt"

// FieldKind enumera los tipos de campo que entiende el validador.
type FieldKind string

const (
	KindString    FieldKind = "string"
	KindNumber    FieldKind = "number"
	KindBool      FieldKind = "bool"
	KindObject    FieldKind = "object"
	KindArray     FieldKind = "array"
	KindTimestamp FieldKind = "timestamp"
	KindAny       FieldKind = "any"
)

// Constraint describe la regla de un único campo del payload.
type Constraint struct {
	Kind     FieldKind
	Required bool
	NonEmpty bool     // solo aplica a strings
	Enum     []string // valores permitidos, solo strings
}

// Schema es la descripción concreta de un tipo de evento: nombre de campo
// del payload -> restricción. Los campos no declarados se eliminan del
// evento normalizado.
type Schema struct {
	Fields map[string]Constraint
}

// validate comprueba que el esquema en sí está bien formado. Un esquema
// mal construido es un error de programación, no un fallo de validación.
func (s Schema) validate() error {
	if len(s.Fields) == 0 {
		return fmt.Errorf("schema has no fields")
	}
	for name, c := range s.Fields {
		if name == "" {
			return fmt.Errorf("schema has a field with empty name")
		}
		switch c.Kind {
		case KindString, KindNumber, KindBool, KindObject, KindArray, KindTimestamp, KindAny:
		default:
			return fmt.Errorf("field %q has unknown kind %q", name, c.Kind)
		}
		if len(c.Enum) > 0 && c.Kind != KindString {
			return fmt.Errorf("field %q declares enum values but is not a string", name)
		}
	}
	return nil
}
