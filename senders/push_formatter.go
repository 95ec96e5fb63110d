package senders

import (
	"fmt"
	"unicode/utf8"

	"github.com/fiffu/bonuswatch/lib/models"
)

const (
	maxPushTitle = 250
	maxPushBody  = 1024

	headingMarkup = len("<h2></h2>")
)

type pushFormat struct {
	*models.BonusAlert
}

func (f *pushFormat) Title() string {
	return truncate(fmt.Sprintf("Sazka: %s", f.Calendar.Title), maxPushTitle)
}

// Body truncates the heading and the text separately so the markup stays balanced.
func (f *pushFormat) Body() string {
	title := truncate(f.Bonus.Title, maxPushBody-headingMarkup)
	text := truncate(f.Bonus.Text, maxPushBody-headingMarkup-utf8.RuneCountInString(title))
	return fmt.Sprintf("<h2>%s</h2>%s", title, text)
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
