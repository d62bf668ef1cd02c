package column_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jetaccess/jetdb/internal/column"
)

// TestGUIDRoundTrip is spec.md §8 scenario E: a GUID string survives
// encode/decode, and the on-disk bytes follow the documented swap
// pattern ([u32 LE][u16 LE][u16 LE][u16 BE][6 bytes BE]).
func TestGUIDRoundTrip(t *testing.T) {
	const s = "{3F2504E0-4F89-11D3-9A0C-0305E82C3301}"

	raw, err := column.EncodeGUIDString(s)
	require.NoError(t, err)
	require.Len(t, raw, 16)

	// The first field (u32) is little-endian on disk; its canonical
	// string form is big-endian, so the first and last bytes swap.
	require.Equal(t, byte(0xE0), raw[0])
	require.Equal(t, byte(0x3F), raw[3])

	v, err := column.DecodeFixed(column.TypeGUID, raw, false)
	require.NoError(t, err)
	require.Equal(t, column.KindGUID, v.Kind)
	require.Equal(t, s, v.GUID)
}

func TestGUIDRoundTripWithoutBraces(t *testing.T) {
	raw, err := column.EncodeGUIDString("3F2504E0-4F89-11D3-9A0C-0305E82C3301")
	require.NoError(t, err)
	v, err := column.DecodeFixed(column.TypeGUID, raw, false)
	require.NoError(t, err)
	require.Equal(t, "{3F2504E0-4F89-11D3-9A0C-0305E82C3301}", v.GUID)
}

// TestCurrencyRoundTripAndOverflow is spec.md §8 scenario F.
func TestCurrencyRoundTripAndOverflow(t *testing.T) {
	d, err := decimal.NewFromString("-12345.6789")
	require.NoError(t, err)

	money, err := column.DecimalToMoney(d)
	require.NoError(t, err)
	require.Equal(t, int64(-123456789), money)

	raw, err := column.EncodeFixed(column.TypeMoney, column.Value{Kind: column.KindMoney, Money: money})
	require.NoError(t, err)
	require.Len(t, raw, 8)

	v, err := column.DecodeFixed(column.TypeMoney, raw, false)
	require.NoError(t, err)
	require.Equal(t, money, v.Money)
	require.True(t, column.MoneyToDecimal(v.Money).Equal(d))

	tooManyDigits, err := decimal.NewFromString("0.12345")
	require.NoError(t, err)
	_, err = column.DecimalToMoney(tooManyDigits)
	require.Error(t, err)
}

// TestDateRoundTripThroughTimezone exercises the SHORT_DATE_TIME
// time.Time conversion (spec.md §4.4, §6.3's "timezone" knob): a wall
// clock time survives ValueFromTime/Value.Time in a fixed-offset zone,
// and the same day count read back in a different zone names the same
// wall-clock time in that zone (the day count is zone-relative).
func TestDateRoundTripThroughTimezone(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*3600)
	in := time.Date(2024, time.March, 15, 9, 30, 0, 0, loc)

	v := column.ValueFromTime(in, loc)
	require.Equal(t, column.KindDate, v.Kind)

	out := v.Time(loc)
	require.True(t, in.Equal(out), "want %v, got %v", in, out)

	otherLoc := time.FixedZone("UTC+2", 2*3600)
	viaOther := v.Time(otherLoc)
	wantOther := time.Date(2024, time.March, 15, 9, 30, 0, 0, otherLoc)
	require.True(t, wantOther.Equal(viaOther), "same wall clock should survive a different read-back zone, got %v", viaOther)
}
