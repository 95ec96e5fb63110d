package sazka

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/antchfx/htmlquery"
	"github.com/fiffu/bonuswatch/lib/models"
	"golang.org/x/net/html"
)

// ErrNotCalendar is returned by Calendar for pages without a bonus calendar section.
var ErrNotCalendar = errors.New("page has no bonus calendar")

var bonusPathPattern = regexp.MustCompile(`/bonusy/`)

var (
	xpathLinks           = `//*[@href]`
	xpathCalendarSection = `//section[` + hasClass("bonuses-calendar") + `]`
	xpathCalendarHeader  = `.//h2[` + hasClass("bonuses-calendar__header") + `]//div`
	xpathSubtitle        = `//h2[` + hasClass("lp-cta-visual__header") + `]`
	xpathText            = `//div[` + hasClass("lp-cta-visual__text") + `]`
	xpathBonusesGrid     = `//div[@id='bonuses-grid']`
)

const bonusesAttr = "data-json-bonuses"

// Timestamp layouts tried in order. Layouts without an offset are read in the client's location.
var dateTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Calendars returns every bonus calendar linked from the bonuses landing page,
// in document order. Linked pages that are not calendars are skipped. A page
// linked more than once yields a single calendar, see BonusURLs.
func (c *Client) Calendars(ctx context.Context) ([]*models.Calendar, error) {
	urls, err := c.BonusURLs(ctx)
	if err != nil {
		return nil, err
	}

	calendars := make([]*models.Calendar, 0, len(urls))
	for _, u := range urls {
		calendar, err := c.Calendar(ctx, u)
		switch {
		case errors.Is(err, ErrNotCalendar):
			continue
		case err != nil:
			return nil, err
		}
		calendars = append(calendars, calendar)
	}
	return calendars, nil
}

// BonusURLs lists absolute URLs of bonus pages linked from the landing page.
// Repeated links are collapsed; the first occurrence fixes the order.
func (c *Client) BonusURLs(ctx context.Context) ([]string, error) {
	landing, err := url.Parse(c.endpoint(bonusesPath))
	if err != nil {
		return nil, err
	}
	content, err := c.fetch(ctx, landing.String())
	if err != nil {
		return nil, err
	}
	doc, err := htmlquery.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, dataErrorf(err, "could not parse the bonuses page")
	}

	seen := make(map[string]bool)
	urls := make([]string, 0)
	for _, n := range htmlquery.Find(doc, xpathLinks) {
		href, _ := attr(n, "href")
		if !bonusPathPattern.MatchString(href) {
			continue
		}
		ref, err := landing.Parse(strings.TrimSpace(href))
		if err != nil {
			continue
		}
		abs := ref.String()
		if seen[abs] {
			continue
		}
		seen[abs] = true
		urls = append(urls, abs)
	}
	return urls, nil
}

// Calendar extracts the bonus calendar found on pageURL.
func (c *Client) Calendar(ctx context.Context, pageURL string) (*models.Calendar, error) {
	content, err := c.fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := htmlquery.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, dataErrorf(err, "could not parse %s", pageURL)
	}

	section := htmlquery.FindOne(doc, xpathCalendarSection)
	if section == nil {
		return nil, ErrNotCalendar
	}

	bonuses, err := c.calendarBonuses(ctx, doc, pageURL)
	if err != nil {
		return nil, err
	}

	titleParts := make([]string, 0)
	for _, div := range htmlquery.Find(section, xpathCalendarHeader) {
		titleParts = append(titleParts, digForText(div))
	}

	calendar, err := models.NewCalendar(
		strings.Join(titleParts, " "),
		SelectText(doc, xpathSubtitle),
		SelectText(doc, xpathText),
		pageURL,
		bonuses,
	)
	if err != nil {
		return nil, dataErrorf(err, "invalid calendar on %s", pageURL)
	}
	return calendar, nil
}

type embeddedBonus struct {
	ID          *int    `json:"id"`
	Image       string  `json:"image"`
	State       *int    `json:"state"`
	EndDateTime *string `json:"endDateTime"`
}

type bonusPopup struct {
	ID               *int         `json:"id"`
	Title            string       `json:"title"`
	Text             string       `json:"text"`
	LeftButtonType   opaqueString `json:"leftButtonType"`
	LeftButtonText   opaqueString `json:"leftButtonText"`
	LeftButtonLink   opaqueString `json:"leftButtonLink"`
	LeftButtonBonus  opaqueString `json:"leftButtonBonus"`
	RightButtonType  opaqueString `json:"rightButtonType"`
	RightButtonText  opaqueString `json:"rightButtonText"`
	RightButtonLink  opaqueString `json:"rightButtonLink"`
	RightButtonBonus opaqueString `json:"rightButtonBonus"`
}

func (c *Client) calendarBonuses(ctx context.Context, doc *html.Node, pageURL string) ([]*models.Bonus, error) {
	embedded, err := embeddedBonuses(doc)
	if err != nil {
		return nil, err
	}

	popups, err := c.bonusPopups(ctx)
	if err != nil {
		return nil, err
	}

	bonuses := make([]*models.Bonus, 0, len(embedded))
	for _, data := range embedded {
		popup, ok := popups[*data.ID]
		if !ok {
			return nil, dataErrorf(nil, "could not find a matching bonus popup for bonus %d", *data.ID)
		}

		end, err := c.parseDateTime(*data.EndDateTime)
		if err != nil {
			return nil, dataErrorf(err, "invalid endDateTime for bonus %d", *data.ID)
		}

		bonus := models.NewBonus(*data.ID, end)
		bonus.Title = popup.Title
		bonus.Text = popup.Text
		bonus.ImageURL = resolveRef(pageURL, data.Image)
		bonus.State = *data.State
		bonus.LeftButton = button(popup.LeftButtonType, popup.LeftButtonText, popup.LeftButtonLink, popup.LeftButtonBonus)
		bonus.RightButton = button(popup.RightButtonType, popup.RightButtonText, popup.RightButtonLink, popup.RightButtonBonus)
		bonuses = append(bonuses, bonus)
	}
	return bonuses, nil
}

// resolveRef makes ref absolute against base. Unparseable input is returned unchanged.
func resolveRef(base, ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := b.Parse(ref)
	if err != nil {
		return ref
	}
	return r.String()
}

func embeddedBonuses(doc *html.Node) ([]embeddedBonus, error) {
	grid := htmlquery.FindOne(doc, xpathBonusesGrid)
	raw, ok := attr(grid, bonusesAttr)
	if !ok {
		return nil, &DataError{Message: "the calendar has no embedded bonus list"}
	}

	var embedded []embeddedBonus
	if err := json.Unmarshal([]byte(raw), &embedded); err != nil {
		return nil, dataErrorf(err, "could not decode the embedded bonus list")
	}
	for i, b := range embedded {
		switch {
		case b.ID == nil:
			return nil, dataErrorf(nil, "embedded bonus #%d has no id", i)
		case b.State == nil:
			return nil, dataErrorf(nil, "embedded bonus %d has no state", *b.ID)
		case b.EndDateTime == nil:
			return nil, dataErrorf(nil, "embedded bonus %d has no endDateTime", *b.ID)
		}
	}
	return embedded, nil
}

// bonusPopups fetches the popup feed, keyed by bonus id. It is fetched for every calendar.
func (c *Client) bonusPopups(ctx context.Context) (map[int]bonusPopup, error) {
	content, err := c.fetch(ctx, c.endpoint(bonusPopupsPath))
	if err != nil {
		return nil, err
	}

	var popups []bonusPopup
	if err := json.Unmarshal(content, &popups); err != nil {
		return nil, dataErrorf(err, "could not decode the bonus popups")
	}

	byID := make(map[int]bonusPopup, len(popups))
	for i, p := range popups {
		if p.ID == nil {
			return nil, dataErrorf(nil, "bonus popup #%d has no id", i)
		}
		if _, dup := byID[*p.ID]; !dup {
			byID[*p.ID] = p
		}
	}
	return byID, nil
}

func button(typ, text, link, bonus opaqueString) *models.Button {
	if typ == "" {
		return nil
	}
	return &models.Button{
		Type:  string(typ),
		Text:  string(text),
		Link:  string(link),
		Bonus: string(bonus),
	}
}

func (c *Client) parseDateTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	var lastErr error
	for _, layout := range dateTimeLayouts {
		t, err := time.ParseInLocation(layout, s, c.location)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
