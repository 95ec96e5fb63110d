package pushover

import (
	"net/url"
	"regexp"
	"strconv"
	"unicode/utf8"
)

type Priority int

const (
	PriorityLowest    Priority = -2
	PriorityLow       Priority = -1
	PriorityNormal    Priority = 0
	PriorityHigh      Priority = 1
	PriorityEmergency Priority = 2
)

type Sound string

const (
	SoundPushover     Sound = "pushover"
	SoundBike         Sound = "bike"
	SoundBugle        Sound = "bugle"
	SoundCashregister Sound = "cashregister"
	SoundClassical    Sound = "classical"
	SoundCosmic       Sound = "cosmic"
	SoundFalling      Sound = "falling"
	SoundGamelan      Sound = "gamelan"
	SoundIncoming     Sound = "incoming"
	SoundIntermission Sound = "intermission"
	SoundMagic        Sound = "magic"
	SoundMechanical   Sound = "mechanical"
	SoundPianobar     Sound = "pianobar"
	SoundSiren        Sound = "siren"
	SoundSpacealarm   Sound = "spacealarm"
	SoundTugboat      Sound = "tugboat"
	SoundAlien        Sound = "alien"
	SoundClimb        Sound = "climb"
	SoundPersistent   Sound = "persistent"
	SoundEcho         Sound = "echo"
	SoundUpdown       Sound = "updown"
	SoundVibrate      Sound = "vibrate"
	SoundNone         Sound = "none"
)

var sounds = map[Sound]bool{
	SoundPushover: true, SoundBike: true, SoundBugle: true, SoundCashregister: true,
	SoundClassical: true, SoundCosmic: true, SoundFalling: true, SoundGamelan: true,
	SoundIncoming: true, SoundIntermission: true, SoundMagic: true, SoundMechanical: true,
	SoundPianobar: true, SoundSiren: true, SoundSpacealarm: true, SoundTugboat: true,
	SoundAlien: true, SoundClimb: true, SoundPersistent: true, SoundEcho: true,
	SoundUpdown: true, SoundVibrate: true, SoundNone: true,
}

// ParseSound returns the named sound, or false if the API does not know it.
func ParseSound(s string) (Sound, bool) {
	sound := Sound(s)
	return sound, sounds[sound]
}

const (
	maxMessageLen  = 1024
	maxTitleLen    = 250
	maxURLLen      = 512
	maxURLTitleLen = 100
	minRetrySecs   = 30
	maxExpireSecs  = 10800
	credentialLen  = 30
)

const mimeToken = "[0-9A-Za-z!#$%&'*+.^_`|~-]+"

var mimeType = regexp.MustCompile(
	`^(application|audio|font|example|image|message|model|multipart|text|video|x-(?:` + mimeToken + `))/(` +
		mimeToken + `)((?:[ \t]*;[ \t]*` + mimeToken + `=(?:` + mimeToken + `|"(?:[^"\\]|\\.)*"))*)$`,
)

// Message is one notification. Token and User are replaced by the client on send.
// Zero Timestamp and TTL are left out of the request.
type Message struct {
	Token string
	User  string

	Message   string
	Title     string
	HTML      bool
	Monospace bool
	Priority  Priority
	Sound     Sound
	Device    string

	// Unix seconds to display instead of the time the API received the message.
	Timestamp int64
	// Seconds before the message is deleted from devices.
	TTL int

	URL      string
	URLTitle string

	// Required for PriorityEmergency, in seconds.
	Retry  int
	Expire int

	Attachment       []byte
	AttachmentBase64 string
	AttachmentType   string
}

func (m *Message) Validate() error {
	switch {
	case m.Message == "":
		return &ValidationError{Field: "message", Reason: "is required"}
	case utf8.RuneCountInString(m.Message) > maxMessageLen:
		return &ValidationError{Field: "message", Reason: "exceeds 1024 characters"}
	case utf8.RuneCountInString(m.Title) > maxTitleLen:
		return &ValidationError{Field: "title", Reason: "exceeds 250 characters"}
	case m.HTML && m.Monospace:
		return &ValidationError{Field: "html", Reason: "cannot be combined with monospace"}
	case m.Priority < PriorityLowest || m.Priority > PriorityEmergency:
		return &ValidationError{Field: "priority", Reason: "must be between -2 and 2"}
	case m.Sound != "" && !sounds[m.Sound]:
		return &ValidationError{Field: "sound", Reason: "is not a supported sound: " + string(m.Sound)}
	case m.Timestamp < 0:
		return &ValidationError{Field: "timestamp", Reason: "must not be negative"}
	case m.TTL < 0:
		return &ValidationError{Field: "ttl", Reason: "must be positive"}
	case utf8.RuneCountInString(m.URL) > maxURLLen:
		return &ValidationError{Field: "url", Reason: "exceeds 512 characters"}
	case utf8.RuneCountInString(m.URLTitle) > maxURLTitleLen:
		return &ValidationError{Field: "url_title", Reason: "exceeds 100 characters"}
	case len(m.Attachment) > 0 && m.AttachmentBase64 != "":
		return &ValidationError{Field: "attachment", Reason: "cannot be combined with attachment_base64"}
	case m.AttachmentType != "" && !mimeType.MatchString(m.AttachmentType):
		return &ValidationError{Field: "attachment_type", Reason: "is not a MIME type"}
	}

	if m.Priority == PriorityEmergency {
		switch {
		case m.Retry < minRetrySecs:
			return &ValidationError{Field: "retry", Reason: "must be at least 30 seconds for emergency priority"}
		case m.Expire <= 0 || m.Expire > maxExpireSecs:
			return &ValidationError{Field: "expire", Reason: "must be between 1 and 10800 seconds for emergency priority"}
		}
	}
	return nil
}

// values encodes the message as form fields. Booleans are sent as 1 or 0.
func (m *Message) values() url.Values {
	v := url.Values{}
	v.Set("token", m.Token)
	v.Set("user", m.User)
	v.Set("message", m.Message)
	v.Set("html", flag(m.HTML))
	v.Set("monospace", flag(m.Monospace))
	v.Set("priority", strconv.Itoa(int(m.Priority)))

	sound := m.Sound
	if sound == "" {
		sound = SoundPushover
	}
	v.Set("sound", string(sound))

	optional := map[string]string{
		"title":             m.Title,
		"device":            m.Device,
		"url":               m.URL,
		"url_title":         m.URLTitle,
		"attachment_base64": m.AttachmentBase64,
		"attachment_type":   m.AttachmentType,
	}
	for key, val := range optional {
		if val != "" {
			v.Set(key, val)
		}
	}
	if m.Timestamp > 0 {
		v.Set("timestamp", strconv.FormatInt(m.Timestamp, 10))
	}
	if m.TTL > 0 {
		v.Set("ttl", strconv.Itoa(m.TTL))
	}
	if m.Priority == PriorityEmergency {
		v.Set("retry", strconv.Itoa(m.Retry))
		v.Set("expire", strconv.Itoa(m.Expire))
	}
	return v
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
