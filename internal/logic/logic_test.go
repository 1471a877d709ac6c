package logic

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryWindow(t *testing.T) {
	tests := map[string]struct {
		from, to         int64
		wantFrom, wantTo int64
		wantErr          bool
	}{
		"open window":      {from: 0, to: 0, wantFrom: 0, wantTo: math.MaxInt64},
		"explicit":         {from: 100, to: 200, wantFrom: 100, wantTo: 200},
		"inverted":         {from: 200, to: 100, wantErr: true},
		"negative from":    {from: -1, to: 0, wantErr: true},
		"from without to":  {from: 50, to: 0, wantFrom: 50, wantTo: math.MaxInt64},
		"single timestamp": {from: 100, to: 100, wantFrom: 100, wantTo: 100},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			from, to, err := historyWindow(tc.from, tc.to)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantFrom, from)
			assert.Equal(t, tc.wantTo, to)
		})
	}
}

func TestParseAddressList(t *testing.T) {
	addrs, err := parseAddressList("")
	require.NoError(t, err)
	assert.Nil(t, addrs)

	addrs, err = parseAddressList("0x9531C059098e3d194fF87FebB587aB07B30B1306, 0xc37b40ABdB939635068d3c5f13E7faF686F03B65")
	require.NoError(t, err)
	require.Len(t, addrs, 2)
	assert.Equal(t, "0x9531C059098e3d194fF87FebB587aB07B30B1306", addrs[0].Hex())

	_, err = parseAddressList("0x9531C059098e3d194fF87FebB587aB07B30B1306,nonsense")
	require.Error(t, err)
}

func TestParseTxHash(t *testing.T) {
	h, err := parseTxHash("0x692442a20ae080e482e96fa68f56a0671ac3dd91adcd25a1f6a944a535c8b831")
	require.NoError(t, err)
	assert.Equal(t, "0x692442a20ae080e482e96fa68f56a0671ac3dd91adcd25a1f6a944a535c8b831", h.Hex())

	_, err = parseTxHash("692442a20ae080e482e96fa68f56a0671ac3dd91")
	require.Error(t, err)
	_, err = parseTxHash("0x1234")
	require.Error(t, err)
}

func TestBigToString(t *testing.T) {
	assert.Equal(t, "0", bigToString(nil))
	assert.Equal(t, "340282366920938463463374607431768211456", bigToString(new(big.Int).Lsh(big.NewInt(1), 128)))
}
