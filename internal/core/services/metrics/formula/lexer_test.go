package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize_Basics(t *testing.T) {
	tokens := Tokenize(`self.time("t") / self.duration`)
	require.NotEmpty(t, tokens)
	assert.Equal(t, TokenEOF, tokens[len(tokens)-1].Type)

	var texts []string
	for _, tok := range tokens {
		if tok.Type != TokenEOF {
			texts = append(texts, tok.Text)
		}
	}
	assert.Equal(t, []string{"self", ".", "time", "(", `"t"`, ")", "/", "self", ".", "duration"}, texts)
}

func TestTokenize_TwoCharOperators(t *testing.T) {
	tokens := Tokenize("a // b == c")
	var ops []string
	for _, tok := range tokens {
		if tok.Type == TokenOp {
			ops = append(ops, tok.Text)
		}
	}
	assert.Equal(t, []string{"//", "=="}, ops)
}

func TestTokenize_StringPreservesQuotes(t *testing.T) {
	tokens := Tokenize(`subdivision in "sales/east"`)
	require.Len(t, tokens, 4) // subdivision, in, string, EOF
	assert.Equal(t, TokenString, tokens[2].Type)
	assert.Equal(t, `"sales/east"`, tokens[2].Text)
	assert.Equal(t, "sales/east", unquote(tokens[2].Text))
}

func TestTokenize_NegativeAndDecimalNumbers(t *testing.T) {
	tokens := Tokenize("-1.5 + 2")
	assert.Equal(t, TokenOp, tokens[0].Type)
	assert.Equal(t, "-", tokens[0].Text)
	assert.Equal(t, TokenNumber, tokens[1].Type)
	assert.Equal(t, "1.5", tokens[1].Text)
}

func TestTokenize_IndexBrackets(t *testing.T) {
	tokens := Tokenize(`subdivision[0]`)
	var types []TokenType
	for _, tok := range tokens {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []TokenType{TokenIdent, TokenPunct, TokenNumber, TokenPunct, TokenEOF}, types)
}
