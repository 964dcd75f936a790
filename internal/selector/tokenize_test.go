package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenize_LowercasesAndSplits(t *testing.T) {
	assert.Equal(t, []string{"job", "sheet", "acme", "corp"}, Tokenize("Job-Sheet: ACME Corp!"))
}

func TestTokenize_DropsShortTokens(t *testing.T) {
	assert.Equal(t, []string{"job"}, Tokenize("a job it"))
}

func TestTokenize_PreservesInsertionOrderUniqueness(t *testing.T) {
	assert.Equal(t, []string{"job", "sheet"}, Tokenize("job sheet job sheet job"))
}

func TestTokenize_EmptyText(t *testing.T) {
	assert.Empty(t, Tokenize(""))
}
