package validation

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	sharedEvents "github.com/davicafu/eventlab/internal/shared/events"
	"go.uber.org/zap"
)

// FieldError describe una violación concreta de la validación.
type FieldError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// Result es el resultado completo de validar un evento. Nunca se devuelve
// un error de Go por un fallo de validación normal: todas las violaciones
// se acumulan en Errors.
type Result struct {
	Valid  bool
	Errors []FieldError
	Event  *sharedEvents.Event
}

// Validator valida eventos contra el esquema registrado para su tipo, o
// contra el esquema genérico cuando el tipo no está registrado.
type Validator struct {
	mu      sync.RWMutex
	schemas map[string]Schema
	log     *zap.Logger
}

// NewValidator crea el validador con el catálogo de dominio ya cargado.
func NewValidator(log *zap.Logger) *Validator {
	v := &Validator{
		schemas: make(map[string]Schema),
		log:     log,
	}
	for eventType, schema := range Catalog() {
		// El catálogo es fijo y correcto; un fallo aquí es un bug del propio catálogo.
		if err := v.RegisterSchema(eventType, schema); err != nil {
			panic(err)
		}
	}
	return v
}

// RegisterSchema registra o sustituye el esquema de un tipo de evento.
// Devuelve error solo si el esquema está mal construido.
func (v *Validator) RegisterSchema(eventType string, schema Schema) error {
	if strings.TrimSpace(eventType) == "" {
		return fmt.Errorf("event type must not be empty")
	}
	if err := schema.validate(); err != nil {
		return fmt.Errorf("invalid schema for %q: %w", eventType, err)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.schemas[eventType] = schema
	return nil
}

// RemoveSchema elimina el esquema de un tipo. Devuelve false si no existía.
func (v *Validator) RemoveSchema(eventType string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.schemas[eventType]; !ok {
		return false
	}
	delete(v.schemas, eventType)
	return true
}

// HasSchema indica si hay un esquema específico registrado para el tipo.
func (v *Validator) HasSchema(eventType string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	_, ok := v.schemas[eventType]
	return ok
}

// Validate valida (type, data, metadata) y, si todo es correcto, devuelve
// el evento canónico normalizado: campos desconocidos eliminados y
// coerciones seguras aplicadas (p. ej. "42" -> 42 en campos numéricos).
func (v *Validator) Validate(eventType string, data map[string]interface{}, meta map[string]interface{}) Result {
	v.mu.RLock()
	schema, ok := v.schemas[eventType]
	v.mu.RUnlock()

	var errs []FieldError
	if ok {
		data, errs = v.applySchema(schema, data)
	} else {
		errs = v.applyGeneric(eventType, data, meta)
	}

	// Las comprobaciones estructurales del sobre aplican siempre.
	if strings.TrimSpace(eventType) == "" {
		errs = append(errs, FieldError{Field: "type", Message: "must be a non-empty string", Value: eventType})
	}

	metadata, metaErrs := parseMetadata(meta)
	errs = append(errs, metaErrs...)

	if len(errs) > 0 {
		v.log.Warn("event failed validation",
			zap.String("event_type", eventType),
			zap.Int("violations", len(errs)),
		)
		return Result{Valid: false, Errors: errs}
	}

	evt := sharedEvents.NewEvent(eventType, data, metadata)
	return Result{Valid: true, Event: &evt}
}

// applySchema valida el payload contra el esquema registrado. Acumula
// todas las violaciones en vez de cortar en la primera.
func (v *Validator) applySchema(schema Schema, data map[string]interface{}) (map[string]interface{}, []FieldError) {
	var errs []FieldError
	normalized := make(map[string]interface{}, len(schema.Fields))

	for name, c := range schema.Fields {
		raw, present := data[name]
		if !present {
			if c.Required {
				errs = append(errs, FieldError{Field: name, Message: "required field is missing"})
			}
			continue
		}

		coerced, err := coerce(raw, c)
		if err != nil {
			errs = append(errs, FieldError{Field: name, Message: err.Error(), Value: raw})
			continue
		}
		normalized[name] = coerced
	}

	// Los campos no declarados en el esquema se descartan en silencio.
	return normalized, errs
}

// applyGeneric es el esquema de último recurso para tipos no registrados:
// type no vacío, data objeto y, si están presentes, metadata.timestamp
// válido y metadata.source no vacío.
func (v *Validator) applyGeneric(eventType string, data map[string]interface{}, meta map[string]interface{}) []FieldError {
	var errs []FieldError
	if data == nil {
		errs = append(errs, FieldError{Field: "data", Message: "must be an object"})
	}
	if meta != nil {
		// La validez de metadata.timestamp la comprueba parseMetadata, que
		// aplica a todos los eventos; aquí solo la exigencia extra de source.
		if rawSource, ok := meta["source"]; ok {
			s, isString := rawSource.(string)
			if !isString || strings.TrimSpace(s) == "" {
				errs = append(errs, FieldError{Field: "metadata.source", Message: "must be a non-empty string", Value: rawSource})
			}
		}
	}
	return errs
}

// coerce aplica la conversión segura de tipos y valida contra la restricción.
func coerce(raw interface{}, c Constraint) (interface{}, error) {
	switch c.Kind {
	case KindAny:
		return raw, nil

	case KindString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("must be a string")
		}
		if c.NonEmpty && strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("must not be empty")
		}
		if len(c.Enum) > 0 {
			for _, allowed := range c.Enum {
				if s == allowed {
					return s, nil
				}
			}
			return nil, fmt.Errorf("must be one of %s", strings.Join(c.Enum, ", "))
		}
		return s, nil

	case KindNumber:
		switch n := raw.(type) {
		case float64:
			return n, nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case string:
			// Coerción segura: strings numéricos se aceptan como números.
			f, err := strconv.ParseFloat(n, 64)
			if err != nil {
				return nil, fmt.Errorf("must be a number")
			}
			return f, nil
		default:
			return nil, fmt.Errorf("must be a number")
		}

	case KindBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("must be a boolean")
		}
		return b, nil

	case KindObject:
		o, ok := raw.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("must be an object")
		}
		return o, nil

	case KindArray:
		a, ok := raw.([]interface{})
		if !ok {
			return nil, fmt.Errorf("must be an array")
		}
		return a, nil

	case KindTimestamp:
		ts, err := parseTimestamp(raw)
		if err != nil {
			return nil, err
		}
		return ts, nil
	}
	return nil, fmt.Errorf("unsupported kind %q", c.Kind)
}

// parseTimestamp acepta time.Time, RFC3339 o epoch en milisegundos.
func parseTimestamp(raw interface{}) (time.Time, error) {
	switch t := raw.(type) {
	case time.Time:
		return t, nil
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, fmt.Errorf("must be a valid timestamp")
		}
		return parsed, nil
	case float64:
		return time.UnixMilli(int64(t)).UTC(), nil
	default:
		return time.Time{}, fmt.Errorf("must be a valid timestamp")
	}
}

// parseMetadata convierte la metadata cruda de la petición en la metadata
// canónica, validando los campos conocidos.
func parseMetadata(meta map[string]interface{}) (sharedEvents.Metadata, []FieldError) {
	var out sharedEvents.Metadata
	var errs []FieldError
	if meta == nil {
		return out, nil
	}

	if raw, ok := meta["timestamp"]; ok {
		ts, err := parseTimestamp(raw)
		if err != nil {
			errs = append(errs, FieldError{Field: "metadata.timestamp", Message: "must be a valid timestamp", Value: raw})
		} else {
			out.Timestamp = ts
		}
	}

	stringField := func(key string, dest *string) {
		if raw, ok := meta[key]; ok {
			if s, isString := raw.(string); isString {
				*dest = s
			} else {
				errs = append(errs, FieldError{Field: "metadata." + key, Message: "must be a string", Value: raw})
			}
		}
	}
	stringField("correlationId", &out.CorrelationID)
	stringField("causationId", &out.CausationID)
	stringField("source", &out.Source)
	stringField("version", &out.Version)
	stringField("userId", &out.UserID)
	stringField("aggregateId", &out.AggregateID)
	stringField("aggregateType", &out.AggregateType)

	return out, errs
}
