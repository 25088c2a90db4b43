package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AdditiveLeftAssociative(t *testing.T) {
	node, err := Parse("1 - 2 - 3")
	require.NoError(t, err)
	require.Equal(t, NodeBinary, node.Kind)
	assert.Equal(t, "-", node.Op)
	// Outer node's left should itself be "1 - 2", confirming left-associativity.
	require.Equal(t, NodeBinary, node.Left.Kind)
	assert.Equal(t, "-", node.Left.Op)
	assert.Equal(t, 1.0, node.Left.Left.Number)
	assert.Equal(t, 2.0, node.Left.Right.Number)
	assert.Equal(t, 3.0, node.Right.Number)
}

func TestParse_MultiplicativeBindsTighterThanAdditive(t *testing.T) {
	node, err := Parse("1 + 2 * 3")
	require.NoError(t, err)
	require.Equal(t, NodeBinary, node.Kind)
	assert.Equal(t, "+", node.Op)
	assert.Equal(t, 1.0, node.Left.Number)
	require.Equal(t, NodeBinary, node.Right.Kind)
	assert.Equal(t, "*", node.Right.Op)
}

func TestParse_PowerIsLeftAssociative(t *testing.T) {
	// spec.md's Open Question 2 is resolved as left-associative, unlike
	// the conventional right-associative convention for exponentiation.
	node, err := Parse("2 ^ 3 ^ 2")
	require.NoError(t, err)
	require.Equal(t, NodeBinary, node.Kind)
	assert.Equal(t, "^", node.Op)
	require.Equal(t, NodeBinary, node.Left.Kind)
	assert.Equal(t, 2.0, node.Left.Left.Number)
	assert.Equal(t, 3.0, node.Left.Right.Number)
	assert.Equal(t, 2.0, node.Right.Number)
}

func TestParse_UnaryMinusBindsTighterThanPower(t *testing.T) {
	node, err := Parse("-2 ^ 2")
	require.NoError(t, err)
	require.Equal(t, NodeBinary, node.Kind)
	require.Equal(t, NodeUnaryMinus, node.Left.Kind)
	assert.Equal(t, 2.0, node.Left.Left.Number)
}

func TestParse_FieldAccessChain(t *testing.T) {
	node, err := Parse("self.revenue.amount")
	require.NoError(t, err)
	require.Equal(t, NodeFieldAccess, node.Kind)
	assert.Equal(t, "amount", node.Name)
	require.Equal(t, NodeFieldAccess, node.Left.Kind)
	assert.Equal(t, "revenue", node.Left.Name)
	require.Equal(t, NodeIdent, node.Left.Left.Kind)
	assert.Equal(t, "self", node.Left.Left.Name)
}

func TestParse_IndexExpression(t *testing.T) {
	node, err := Parse(`subdivision[0]`)
	require.NoError(t, err)
	require.Equal(t, NodeIndex, node.Kind)
	assert.Equal(t, "subdivision", node.Left.Name)
	assert.Equal(t, 0.0, node.Index.Number)
}

func TestParse_WhereCapturesPredicateVerbatim(t *testing.T) {
	node, err := Parse(`self.shifts.where(subdivision in "sales/east")`)
	require.NoError(t, err)
	require.Equal(t, NodeWhere, node.Kind)
	assert.Equal(t, `subdivision in "sales/east"`, node.Predicate)
}

func TestParse_MethodCallWithArgs(t *testing.T) {
	node, err := Parse(`self.time("t")`)
	require.NoError(t, err)
	require.Equal(t, NodeMethodCall, node.Kind)
	assert.Equal(t, "time", node.Name)
	require.Len(t, node.Args, 1)
	assert.Equal(t, "t", node.Args[0].Str)
}

func TestParse_ReservedAggregateFunctions(t *testing.T) {
	node, err := Parse("sum(self.shifts.hours)")
	require.NoError(t, err)
	require.Equal(t, NodeCall, node.Kind)
	assert.Equal(t, "sum", node.Name)
	require.Len(t, node.Args, 1)
}

func TestParse_Parenthesization(t *testing.T) {
	node, err := Parse("(1 + 2) * 3")
	require.NoError(t, err)
	require.Equal(t, NodeBinary, node.Kind)
	assert.Equal(t, "*", node.Op)
	require.Equal(t, NodeBinary, node.Left.Kind)
	assert.Equal(t, "+", node.Left.Op)
}

func TestParse_TrailingGarbageIsAnError(t *testing.T) {
	_, err := Parse("1 + 2 )")
	assert.Error(t, err)
}
