package cli

import (
	"strings"
	"sync"
	"unicode"

	"github.com/caarlos0/env/v11"
)

const (
	boxTopLeft     = "╒"
	boxTopRight    = "╕"
	boxBottomLeft  = "└"
	boxBottomRight = "┘"
	boxSide        = "│"
	boxTop         = "═"
	boxBottom      = "─"
	dividerLeft    = "┠"
	dividerMiddle  = "─"
	dividerRight   = "┨"
	ellipsis       = "…"

	borderWidth = 2
)

// Alignment positions text inside a banner.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

// DefaultTerminalWidth is used when COLUMNS is unset.
const DefaultTerminalWidth = 80

type terminal struct {
	Columns  int  `env:"COLUMNS"       envDefault:"80"`
	NoBanner bool `env:"FSM_NO_BANNER"`
}

var readTerminal = sync.OnceValue(func() terminal {
	term := terminal{Columns: DefaultTerminalWidth}
	if err := env.Parse(&term); err != nil || term.Columns <= borderWidth {
		term.Columns = DefaultTerminalWidth
	}

	return term
})

// BannerAutoWidth is Banner sized to the terminal. With FSM_NO_BANNER set the
// text is returned without a box.
func BannerAutoWidth(s string, align Alignment) string {
	term := readTerminal()
	if term.NoBanner {
		return s + "\n"
	}

	return Banner(s, term.Columns, align)
}

// DividerAutoWidth is Divider sized to the terminal.
func DividerAutoWidth() string {
	return Divider(readTerminal().Columns)
}

func Divider(width int) string {
	if width < borderWidth {
		return ""
	}

	return dividerLeft + strings.Repeat(dividerMiddle, width-borderWidth) + dividerRight + "\n"
}

// Banner boxes each line of s in a frame width columns wide. Lines that do
// not fit are truncated with an ellipsis.
func Banner(s string, width int, align Alignment) string {
	if width <= borderWidth || s == "" {
		return ""
	}

	inner := width - borderWidth

	var sb strings.Builder

	sb.WriteString(boxTopLeft + strings.Repeat(boxTop, inner) + boxTopRight + "\n")

	for _, line := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		sb.WriteString(boxSide + pad(line, inner, align) + boxSide + "\n")
	}

	sb.WriteString(boxBottomLeft + strings.Repeat(boxBottom, inner) + boxBottomRight + "\n")

	return sb.String()
}

func pad(text string, width int, align Alignment) string {
	length := countGraphic(text)

	if length > width {
		text, length = truncateGraphic(text, width-1)
		text += ellipsis
		length++
	}

	space := width - length

	switch align {
	case AlignCenter:
		left := space / 2 //nolint:mnd

		return strings.Repeat(" ", left) + text + strings.Repeat(" ", space-left)
	case AlignRight:
		return strings.Repeat(" ", space) + text
	default:
		return text + strings.Repeat(" ", space)
	}
}

func countGraphic(s string) int {
	count := 0

	for _, r := range s {
		if unicode.IsGraphic(r) {
			count++
		}
	}

	return count
}

// truncateGraphic keeps the first n graphic runes of s.
func truncateGraphic(s string, n int) (string, int) {
	var sb strings.Builder

	count := 0

	for _, r := range s {
		if unicode.IsGraphic(r) {
			if count == n {
				break
			}

			count++
		}

		sb.WriteRune(r)
	}

	return sb.String(), count
}
