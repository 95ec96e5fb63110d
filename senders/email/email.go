package email

import (
	_ "embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/fiffu/bonuswatch/lib/models"
)

var (
	//go:embed bonus.html
	bonusHTML     string
	bonusTemplate = template.Must(template.New("bonus.html").Parse(bonusHTML))
)

func mustFillTemplate(tmpl *template.Template, values any) string {
	buf := new(strings.Builder)
	err := tmpl.Execute(buf, values)
	if err != nil {
		return ""
	}
	return buf.String()
}

type BonusEmailFormat struct {
	*models.BonusAlert
}

func (ef *BonusEmailFormat) Subject() string {
	return fmt.Sprintf("Sazka: new bonus in %s", ef.Calendar.Title)
}

func (ef *BonusEmailFormat) Body() string {
	return mustFillTemplate(bonusTemplate, ef)
}
