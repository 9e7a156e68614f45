package database

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Message is a single observed chat message: a channel post, a reader comment,
// or an answer produced by the bot. Posts are written by the external posting
// pipeline; comments and answers are written by this bot.
type Message struct {
	ID         int64      `db:"id"`
	TelegramID ExternalID `db:"telegram_id"`
	Text       string     `db:"message_text"`
	UserID     *int64     `db:"user_id"`
	Username   *string    `db:"username"`
	ParentID   *int64     `db:"parent_id"`
	IsPost     bool       `db:"is_post"`
	URL        URLList    `db:"url"`
	CreatedAt  time.Time  `db:"created_at"`
}

// MessageUpdate describes a partial update. Nil fields are left untouched.
type MessageUpdate struct {
	Text     *string
	UserID   *int64
	Username *string
	ParentID *int64
	IsPost   *bool
	URL      URLList
}

// columns returns the non-absent fields keyed by column name.
func (u MessageUpdate) columns() map[string]any {
	cols := make(map[string]any)
	if u.Text != nil {
		cols["message_text"] = *u.Text
	}
	if u.UserID != nil {
		cols["user_id"] = *u.UserID
	}
	if u.Username != nil {
		cols["username"] = *u.Username
	}
	if u.ParentID != nil {
		cols["parent_id"] = *u.ParentID
	}
	if u.IsPost != nil {
		cols["is_post"] = *u.IsPost
	}
	if u.URL != nil {
		cols["url"] = u.URL
	}
	return cols
}

type externalIDKind uint8

const (
	kindNone externalIDKind = iota
	kindPlatform
	kindSynthetic
)

// answerPrefix marks identifiers of answers generated by the bot.
const answerPrefix = "answer_"

// ExternalID identifies a message on the chat platform side. It is either the
// platform's own numeric message id or a synthetic token for rows that have no
// platform counterpart (generated answers).
type ExternalID struct {
	kind      externalIDKind
	platform  int64
	synthetic string
}

// PlatformID wraps a Telegram message id.
func PlatformID(id int64) ExternalID {
	return ExternalID{kind: kindPlatform, platform: id}
}

// SyntheticID wraps a non-numeric token. Tokens made only of digits would be
// indistinguishable from platform ids and are rejected with a zero ExternalID.
func SyntheticID(token string) ExternalID {
	if token == "" {
		return ExternalID{}
	}
	if _, err := strconv.ParseInt(token, 10, 64); err == nil {
		return ExternalID{}
	}
	return ExternalID{kind: kindSynthetic, synthetic: token}
}

// AnswerID derives the synthetic id of the answer to the given message.
func AnswerID(question ExternalID) ExternalID {
	return ExternalID{kind: kindSynthetic, synthetic: answerPrefix + question.String()}
}

// IsZero reports whether the id is unset.
func (e ExternalID) IsZero() bool { return e.kind == kindNone }

// IsPlatform reports whether the id is a native platform message id.
func (e ExternalID) IsPlatform() bool { return e.kind == kindPlatform }

// IsSynthetic reports whether the id was generated by the bot.
func (e ExternalID) IsSynthetic() bool { return e.kind == kindSynthetic }

// Platform returns the numeric platform id and whether the id is one.
func (e ExternalID) Platform() (int64, bool) {
	return e.platform, e.kind == kindPlatform
}

func (e ExternalID) String() string {
	switch e.kind {
	case kindPlatform:
		return strconv.FormatInt(e.platform, 10)
	case kindSynthetic:
		return e.synthetic
	default:
		return ""
	}
}

// Value implements driver.Valuer. Ids are stored as text.
func (e ExternalID) Value() (driver.Value, error) {
	if e.IsZero() {
		return nil, nil
	}
	return e.String(), nil
}

// Scan implements sql.Scanner.
func (e *ExternalID) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*e = ExternalID{}
		return nil
	case int64:
		*e = PlatformID(v)
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into ExternalID", src)
	}

	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*e = PlatformID(id)
		return nil
	}
	*e = ExternalID{kind: kindSynthetic, synthetic: raw}
	return nil
}

// URLList holds the article links attached to a message. It is stored as a
// JSON array in a text column.
type URLList []string

// ParseURLs normalizes a raw url value: a serialized JSON array is decoded,
// a JSON string is unquoted into a single-element list, and anything else
// becomes a single-element list as is.
func ParseURLs(raw string) URLList {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(trimmed), &list); err == nil {
		return URLList(list)
	}
	var single string
	if err := json.Unmarshal([]byte(trimmed), &single); err == nil {
		if single == "" {
			return nil
		}
		return URLList{single}
	}
	return URLList{raw}
}

// Value implements driver.Valuer.
func (l URLList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, fmt.Errorf("failed to encode url list: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner. Values that are not a JSON array are kept as a
// single url.
func (l *URLList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = nil
	case string:
		*l = ParseURLs(v)
	case []byte:
		*l = ParseURLs(string(v))
	default:
		return fmt.Errorf("cannot scan %T into URLList", src)
	}
	return nil
}
