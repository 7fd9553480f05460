// Package format renders split results as plain or terminal-styled text.
package format

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mmynk/receiptsplit/internal/models"
	"github.com/mmynk/receiptsplit/internal/money"
)

const (
	labelWidth  = 28
	amountWidth = 12
)

var (
	nameStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#89b4fa")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#7f849c"))
	totalStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1")).Bold(true)
	creditStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
	grandStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#fab387")).Bold(true)
)

// Options control Summary output.
type Options struct {
	// Currency is the ISO 4217 code used for symbols; empty means USD.
	Currency string
	// Styled adds terminal colors.
	Styled bool
}

// Summary renders one block per person (items, subtotal, charge shares,
// total) followed by the grand total.
func Summary(splits []models.PersonSplit, opts Options) string {
	style := func(s lipgloss.Style, text string) string {
		if !opts.Styled {
			return text
		}
		return s.Render(text)
	}
	amount := func(m money.Money) string {
		return fmt.Sprintf("%*s", amountWidth, m.Display(opts.Currency))
	}
	line := func(label string, m money.Money) string {
		return "  " + padRight(truncate(label, labelWidth), labelWidth) + amount(m)
	}

	var (
		b     strings.Builder
		grand money.Money
	)
	for i, s := range splits {
		if i > 0 {
			b.WriteString("\n")
		}
		name := s.DisplayName
		if name == "" {
			name = s.ParticipantID
		}
		b.WriteString(style(nameStyle, name) + "\n")

		for _, item := range s.Items {
			label := item.Name
			if item.Shared {
				label = fmt.Sprintf("%s (%s%%)", item.Name, item.SharePercent.StringFixed(0))
			}
			b.WriteString(style(mutedStyle, line(label, item.Amount)) + "\n")
		}
		b.WriteString(line("Subtotal", s.Subtotal) + "\n")
		if s.TaxShare != 0 {
			b.WriteString(line("Tax", s.TaxShare) + "\n")
		}
		if s.ServiceShare != 0 {
			b.WriteString(line("Service", s.ServiceShare) + "\n")
		}
		if s.DiscountShare != 0 {
			b.WriteString(style(creditStyle, line("Discount", s.DiscountShare)) + "\n")
		}
		b.WriteString(style(totalStyle, line("Total", s.Total)) + "\n")
		grand += s.Total
	}
	b.WriteString("\n")
	b.WriteString(style(grandStyle, padRight("Grand total", labelWidth+2)+amount(grand)) + "\n")
	return b.String()
}

func padRight(s string, width int) string {
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) < width {
		return s
	}
	return string(r[:width-2]) + "… "
}
