package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileAndEvalArithmetic(t *testing.T) {
	in0 := 2.0
	in1 := 3.0
	vars := Vars{"in0": &in0, "in1": &in1}

	node, err := Compile("in0 + in1 * 2", vars)
	require.NoError(t, err)
	assert.InDelta(t, 8.0, node.Eval(), 1e-9)

	in0 = 5
	assert.InDelta(t, 11.0, node.Eval(), 1e-9, "reevaluation must observe updated variable without recompiling")
}

func TestPrecedenceAndParens(t *testing.T) {
	node, err := Compile("(1 + 2) * 3 - 4 / 2", Vars{})
	require.NoError(t, err)
	assert.InDelta(t, 7.0, node.Eval(), 1e-9)
}

func TestUnaryMinus(t *testing.T) {
	node, err := Compile("-2 ^ 2", Vars{})
	require.NoError(t, err)
	// parseUnary wraps parsePow, so '^' binds tighter than unary minus:
	// -2 ^ 2 is -(2^2) = -4, not (-2)^2.
	assert.InDelta(t, -4.0, node.Eval(), 1e-9)
}

func TestFunctions(t *testing.T) {
	node, err := Compile("sqrt(abs(-9))", Vars{})
	require.NoError(t, err)
	assert.InDelta(t, 3.0, node.Eval(), 1e-9)
}

func TestDivisionByZeroIsZeroNotPanic(t *testing.T) {
	node, err := Compile("1 / 0", Vars{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, node.Eval())
}

func TestInvalidExpressionErrors(t *testing.T) {
	_, err := Compile("1 +", Vars{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidExpression)

	_, err = Compile("unknown_fn(1)", Vars{})
	require.Error(t, err)

	_, err = Compile("unbound_var", Vars{})
	require.Error(t, err)
}

func TestDefaultIdentityExpression(t *testing.T) {
	in0 := 42.0
	node, err := Compile("in0", Vars{"in0": &in0})
	require.NoError(t, err)
	assert.Equal(t, 42.0, node.Eval())
}
