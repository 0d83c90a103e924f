package execution

import (
	"strings"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// ParseTerminalTotalDifficulty decodes a TERMINAL_TOTAL_DIFFICULTY config
// value, a decimal-looking but actually 0x-prefixed hex string per the
// execution-layer config schema, grounded on the teacher's
// engine_client_test.go Test_tDStringToUint256 behavior.
func ParseTerminalTotalDifficulty(s string) (*uint256.Int, error) {
	if !strings.HasPrefix(s, "0x") {
		return nil, errors.New("terminal total difficulty is a hex string without 0x prefix")
	}
	i, err := uint256.FromHex(s)
	if err != nil {
		return nil, errors.Wrap(err, "invalid terminal total difficulty")
	}
	return i, nil
}
