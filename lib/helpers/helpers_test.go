package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeMarkdownV2(t *testing.T) {
	assert.Equal(t, `SUI/USDC 0\.25%`, EscapeMarkdownV2("SUI/USDC 0.25%"))
	assert.Equal(t, `a\_b\-c`, EscapeMarkdownV2("a_b-c"))
}

func TestFormatPriceUS(t *testing.T) {
	assert.Equal(t, "1,250", FormatPriceUS(1250.4, false))
	assert.Equal(t, "2.35", FormatPriceUS(2.345678, false))
	assert.Equal(t, "0.123457", FormatPriceUS(0.123456789, false))
	assert.Equal(t, "0.00000100", FormatPriceUS(0.000001, false))
}

func TestFormatPriceUS_Escaped(t *testing.T) {
	assert.Equal(t, `2\.35`, FormatPriceUS(2.345678, true))
}

func TestFormatVolumeUS(t *testing.T) {
	assert.Equal(t, `1,234,567`, FormatVolumeUS(1234567.89))
}
