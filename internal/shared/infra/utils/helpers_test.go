package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTernary(t *testing.T) {
	assert.Equal(t, "ASC", Ternary(true, "ASC", "DESC"))
	assert.Equal(t, "DESC", Ternary(false, "ASC", "DESC"))
}

func TestEscapeLike(t *testing.T) {
	// Sin metacaracteres el valor pasa tal cual.
	assert.Equal(t, "orders-", EscapeLike("orders-"))

	// % y _ dejan de ser comodines.
	assert.Equal(t, `50\%`, EscapeLike("50%"))
	assert.Equal(t, `a\_b`, EscapeLike("a_b"))

	// La propia barra de escape también se escapa.
	assert.Equal(t, `c:\\tmp`, EscapeLike(`c:\tmp`))
}
