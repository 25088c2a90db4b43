package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributeValueInput_TypedValue_PriorityOrder(t *testing.T) {
	n := int64(5)
	s := "ignored"
	v := AttributeValueInput{Int: &n, Str: &s}
	raw, dt, ok := v.typedValue()
	require.True(t, ok)
	assert.Equal(t, DatatypeInt, dt)
	assert.Equal(t, int64(5), raw)
}

func TestAttributeValueInput_TypedValue_Empty(t *testing.T) {
	_, _, ok := AttributeValueInput{}.typedValue()
	assert.False(t, ok)
}

func TestAttributeValueInput_IdentifierValue_OnlyIntOrString(t *testing.T) {
	n := int64(42)
	v := AttributeValueInput{Int: &n}
	raw, ok := v.IdentifierValue()
	require.True(t, ok)
	assert.Equal(t, int64(42), raw)

	f := 1.5
	_, ok = AttributeValueInput{Float: &f}.IdentifierValue()
	assert.False(t, ok)
}
