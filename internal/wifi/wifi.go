// Package wifi holds band/channel/operating-class tables used by the
// hearing map (component F).
package wifi

// Names of the frequency bands.
const (
	LoBand = "2.4GHz"
	HiBand = "5GHz"
)

// Channels is a map of per-band 20MHz channel lists, legal in the US
// regulatory domain. The hearing map's report ingestion does not check
// reported channels against these lists.
var Channels = map[string][]int{
	LoBand: {1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11},
	HiBand: {36, 40, 44, 48, 52, 56, 60, 64, 100, 104, 108,
		112, 116, 120, 124, 128, 132, 136, 140, 144, 149, 153,
		157, 161, 165},
}

// Band returns the band name for an operating frequency in MHz, using the
// same 4000 MHz split the entity model uses for seen_2ghz/seen_5ghz.
func Band(freqMHz int) string {
	if freqMHz < 4000 {
		return LoBand
	}
	return HiBand
}

// ChannelFromFreq derives a channel number from an operating frequency in
// MHz, per IEEE 802.11-2007 section 17.3.8.3.2.
func ChannelFromFreq(freq int) int {
	switch {
	case freq == 2484:
		return 14
	case freq < 2484:
		return (freq - 2407) / 5
	case freq >= 4910 && freq <= 4980:
		return (freq - 4000) / 5
	case freq <= 45000:
		return (freq - 5000) / 5
	case freq >= 58320 && freq <= 64800:
		return (freq - 56160) / 2160
	default:
		return 0
	}
}

// OpClassFromChannel derives an operating class from a channel number. The
// source this is grounded on used a logical-OR across two of these ranges,
// which collapses channel 14 into the 1-13 case and yields a nonzero class;
// this implementation keeps the ranges mutually exclusive with ordinary
// comparisons, so channel 14 falls through to the zero default instead.
func OpClassFromChannel(channel int) int {
	switch {
	case channel >= 36 && channel <= 48:
		return 115
	case channel >= 52 && channel <= 64:
		return 118
	case channel >= 100 && channel <= 140:
		return 121
	case channel >= 1 && channel <= 13:
		return 81
	default:
		return 0
	}
}
