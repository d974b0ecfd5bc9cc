package monitor

import (
	"fmt"

	"cetus-alarm-bot/internal/types"
	"cetus-alarm-bot/lib/helpers"
	"cetus-alarm-bot/lib/translation"
)

// Evaluate decides whether an alarm fires at the given pair price and builds
// the notification text, appending the pool's 24h volume when known. A
// percentage alarm without a base price never fires; the caller records the
// base price first.
func Evaluate(alarm *types.Alarm, currentPrice, volume24h float64) (bool, string) {
	var message string

	switch alarm.AlarmType {
	case types.AlarmTypePercentage:
		if alarm.BasePrice == nil || *alarm.BasePrice == 0 {
			return false, ""
		}
		change := (currentPrice - *alarm.BasePrice) / *alarm.BasePrice * 100

		triggered := false
		if alarm.Condition == types.ConditionAbove && change >= alarm.Value {
			triggered = true
		}
		if alarm.Condition == types.ConditionBelow && change <= -alarm.Value {
			triggered = true
		}
		if !triggered {
			return false, ""
		}

		message = translation.Translate("🚨 *%s* triggered\n\n*%s* moved *%s%%* from the base price\nCurrent price: *%s*",
			helpers.EscapeMarkdownV2(alarm.Name),
			helpers.EscapeMarkdownV2(alarm.Pair),
			helpers.EscapeMarkdownV2(fmt.Sprintf("%+.2f", change)),
			helpers.FormatPriceUS(currentPrice, true),
		)

	case types.AlarmTypeAbsolute:
		triggered := false
		if alarm.Condition == types.ConditionAbove && currentPrice >= alarm.Value {
			triggered = true
		}
		if alarm.Condition == types.ConditionBelow && currentPrice <= alarm.Value {
			triggered = true
		}
		if !triggered {
			return false, ""
		}

		message = translation.Translate("🚨 *%s* triggered\n\n*%s* reached the target price of *%s*\nCurrent price: *%s*",
			helpers.EscapeMarkdownV2(alarm.Name),
			helpers.EscapeMarkdownV2(alarm.Pair),
			helpers.FormatPriceUS(alarm.Value, true),
			helpers.FormatPriceUS(currentPrice, true),
		)

	default:
		return false, ""
	}

	if volume24h > 0 {
		message += translation.Translate("\n24h volume: *$%s*", helpers.FormatVolumeUS(volume24h))
	}
	return true, message
}
