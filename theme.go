package concierge

// Theme defines semantic color mappings using ANSI color indices (0-15).
// The user's terminal theme determines the actual RGB values, so the app
// automatically matches any color scheme.
type Theme struct {
	UserMsg int // User message accent
	Status  int // Progress messages, placeholder spinner
	Error   int // Error and interrupt notices
	Success int // Prices, confirmations
	Muted   int // Status bar, placeholders
	Border  int // Card and table borders
	CodeBg  int // Code block background
	Accent  int // Headings, links, block titles
}

// DefaultTheme returns the default ANSI color mapping.
func DefaultTheme() Theme {
	return Theme{
		UserMsg: 4,
		Status:  3,
		Error:   1,
		Success: 2,
		Muted:   8,
		Border:  8,
		CodeBg:  0,
		Accent:  5,
	}
}
