package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestValidate_RegisteredSchema_MissingRequiredField(t *testing.T) {
	v := NewValidator(zap.NewNop())

	result := v.Validate("community.post.created", map[string]interface{}{
		"postId": "p-1",
		"title":  "hola",
		// falta authorId
	}, nil)

	assert.False(t, result.Valid)
	assert.Nil(t, result.Event)

	var fields []string
	for _, fe := range result.Errors {
		fields = append(fields, fe.Field)
	}
	assert.Contains(t, fields, "authorId")
}

func TestValidate_RegisteredSchema_StripsUnknownFields(t *testing.T) {
	v := NewValidator(zap.NewNop())

	result := v.Validate("auth.user.logout", map[string]interface{}{
		"userId":  "u-1",
		"ignored": "should disappear",
	}, nil)

	assert.True(t, result.Valid)
	assert.Equal(t, "u-1", result.Event.Data["userId"])
	assert.NotContains(t, result.Event.Data, "ignored")
}

func TestValidate_NumericStringCoercion(t *testing.T) {
	v := NewValidator(zap.NewNop())

	result := v.Validate("link.analysis.requested", map[string]interface{}{
		"url":         "https://example.com",
		"requestedBy": "svc-links",
		"priority":    "5", // string numérico -> número
	}, nil)

	assert.True(t, result.Valid)
	assert.Equal(t, float64(5), result.Event.Data["priority"])
}

func TestValidate_EnumViolation(t *testing.T) {
	v := NewValidator(zap.NewNop())

	result := v.Validate("link.analysis.completed", map[string]interface{}{
		"url":     "https://example.com",
		"verdict": "fine", // no está en el enum
		"score":   0.9,
	}, nil)

	assert.False(t, result.Valid)
	assert.Equal(t, "verdict", result.Errors[0].Field)
}

func TestValidate_CollectsAllViolations(t *testing.T) {
	v := NewValidator(zap.NewNop())

	result := v.Validate("community.comment.created", map[string]interface{}{
		"body": 42, // tipo incorrecto; faltan además commentId, postId y authorId
	}, nil)

	assert.False(t, result.Valid)
	assert.Len(t, result.Errors, 4)
}

func TestValidate_GenericFallback_Passes(t *testing.T) {
	v := NewValidator(zap.NewNop())

	result := v.Validate("custom.thing.happened", map[string]interface{}{"anything": true}, map[string]interface{}{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"source":    "svc-custom",
	})

	assert.True(t, result.Valid)
	assert.Equal(t, "custom.thing.happened", result.Event.Type)
	assert.Equal(t, "svc-custom", result.Event.Metadata.Source)
}

func TestValidate_GenericFallback_EmptyType(t *testing.T) {
	v := NewValidator(zap.NewNop())

	result := v.Validate("", map[string]interface{}{}, nil)

	assert.False(t, result.Valid)
	assert.Equal(t, "type", result.Errors[0].Field)
}

func TestValidate_GenericFallback_BadTimestampAndSource(t *testing.T) {
	v := NewValidator(zap.NewNop())

	result := v.Validate("custom.thing.happened", map[string]interface{}{}, map[string]interface{}{
		"timestamp": "not-a-date",
		"source":    "",
	})

	assert.False(t, result.Valid)
	assert.Len(t, result.Errors, 2)
}

func TestValidate_AssignsIDAndTimestampOnce(t *testing.T) {
	v := NewValidator(zap.NewNop())

	result := v.Validate("auth.user.login", map[string]interface{}{"userId": "u-9"}, nil)

	assert.True(t, result.Valid)
	assert.NotEmpty(t, result.Event.ID)
	assert.False(t, result.Event.Metadata.Timestamp.IsZero())
	assert.NotEmpty(t, result.Event.Metadata.CorrelationID)
}

func TestRegisterSchema_Malformed(t *testing.T) {
	v := NewValidator(zap.NewNop())

	err := v.RegisterSchema("broken.event", Schema{})
	assert.Error(t, err)

	err = v.RegisterSchema("broken.event", Schema{Fields: map[string]Constraint{
		"x": {Kind: "nonsense"},
	}})
	assert.Error(t, err)
}

func TestRemoveSchema(t *testing.T) {
	v := NewValidator(zap.NewNop())

	assert.NoError(t, v.RegisterSchema("temp.event", Schema{Fields: map[string]Constraint{
		"x": {Kind: KindString},
	}}))
	assert.True(t, v.HasSchema("temp.event"))
	assert.True(t, v.RemoveSchema("temp.event"))
	assert.False(t, v.RemoveSchema("temp.event"))
}
