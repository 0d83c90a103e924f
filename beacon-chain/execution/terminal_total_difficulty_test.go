package execution

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestParseTerminalTotalDifficulty(t *testing.T) {
	i, err := ParseTerminalTotalDifficulty("0x0")
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(0), i)

	i, err = ParseTerminalTotalDifficulty("0x10000")
	require.NoError(t, err)
	require.Equal(t, uint256.NewInt(65536), i)

	_, err = ParseTerminalTotalDifficulty("100")
	require.Error(t, err)
}
