package coinbasepro

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	tests := map[string]struct {
		raw      string
		expected int64
	}{
		"rfc3339":                  {raw: "2019-08-21T17:19:32Z", expected: 1566407972},
		"rfc3339 with fraction":    {raw: "2019-08-21T17:19:32.21486Z", expected: 1566407972},
		"bare +00 zone suffix":     {raw: "2019-08-21T17:19:32.21486+00", expected: 1566407972},
		"space separator":          {raw: "2019-08-21 17:19:32.21486+00:00", expected: 1566407972},
		"space separator bare +00": {raw: "2019-08-21 17:19:32.21486+00", expected: 1566407972},
		"offset zone":              {raw: "2019-08-21T19:19:32+02:00", expected: 1566407972},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			ts, err := parseTimestamp(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, ts)
		})
	}
}

func TestParseTimestampRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"", "   ", "not-a-time", "1566407972"} {
		_, err := parseTimestamp(raw)
		assert.Error(t, err, "raw=%q", raw)
	}
}

func TestParseDecimal(t *testing.T) {
	value, err := parseDecimal("size", " 0.25 ")
	require.NoError(t, err)
	assert.Equal(t, "0.25", value.String())

	_, err = parseDecimal("size", "0,25")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "size")
}

func TestParseOptionalFee(t *testing.T) {
	fee, err := parseOptionalFee("")
	require.NoError(t, err)
	assert.True(t, fee.IsZero())

	fee, err = parseOptionalFee("0.0001")
	require.NoError(t, err)
	assert.Equal(t, "0.0001", fee.String())

	_, err = parseOptionalFee("banana")
	require.Error(t, err)
}
