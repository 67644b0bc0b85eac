package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeGenerator(t *testing.T) {
	var g KeyGenerator = CodeGenerator{}

	counts := map[rune]int{}
	for range 2000 {
		code, err := g.Generate()
		require.NoError(t, err)
		require.Regexp(t, codePattern, code)
		for _, r := range code {
			counts[r]++
		}
	}

	// 12000 draws over 36 symbols; every symbol should show up.
	require.Len(t, counts, 36)
}

func TestNormalizeCode(t *testing.T) {
	require.Equal(t, "A1B2C3", NormalizeCode("  a1b2c3 "))
	require.Equal(t, "A1B2C3", NormalizeCode("A1B2C3"))
	require.Equal(t, "", NormalizeCode(" \t\n"))
	require.Equal(t, strings.ToUpper("zzzzzz"), NormalizeCode("zzzzzz"))
}
