package mappers

import "strings"

// StripEmoji removes emoji glyphs and the joiners/modifiers that glue them
// together. Every other rune, whitespace included, is kept as is.
func StripEmoji(s string) string {
	if s == "" {
		return s
	}
	return strings.Map(func(r rune) rune {
		if isEmoji(r) {
			return -1
		}
		return r
	}, s)
}

func isEmoji(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF: // pictographs, emoticons, transport, flags, skin tones
		return true
	case r >= 0x2600 && r <= 0x27BF: // misc symbols, dingbats
		return true
	case r >= 0xE0020 && r <= 0xE007F: // tag sequences
		return true
	case r == 0x200D, r == 0x20E3, r == 0xFE0E, r == 0xFE0F:
		return true
	case r == 0x2B50, r == 0x2B55, r == 0x2B1B, r == 0x2B1C:
		return true
	case r == 0x231A, r == 0x231B, r == 0x23F0, r == 0x23F3:
		return true
	case r == 0x3030, r == 0x303D, r == 0x3297, r == 0x3299:
		return true
	}
	return false
}
