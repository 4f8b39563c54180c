package domain

import (
	"bytes"
	"encoding/json"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// DefaultLanguage is the output language used when neither the request nor
// the caller's locale names one.
const DefaultLanguage = "English"

// HistoryItem is one prior question/SQL exchange in the conversation.
type HistoryItem struct {
	SQL      string `json:"sql"`
	Question string `json:"question"`
}

// History is the prior conversation. A single JSON object is accepted as a
// one-item history.
type History []HistoryItem

func (h *History) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*h = nil
		return nil
	}
	if b[0] == '{' {
		var item HistoryItem
		if err := json.Unmarshal(b, &item); err != nil {
			return err
		}
		*h = History{item}
		return nil
	}
	var items []HistoryItem
	if err := json.Unmarshal(b, &items); err != nil {
		return err
	}
	*h = items
	return nil
}

// Timezone describes the caller's local time zone.
type Timezone struct {
	Name      string `json:"name"`
	UTCOffset string `json:"utc_offset"`
}

// Configuration carries per-request generation preferences.
type Configuration struct {
	Language string    `json:"language"`
	Timezone *Timezone `json:"timezone,omitempty"`
}

// Request is the input of one expansion job. It is never persisted.
type Request struct {
	QueryID       string        `json:"-"`
	Query         string        `json:"query"`
	History       History       `json:"history"`
	ProjectID     string        `json:"project_id"`
	MDLHash       string        `json:"mdl_hash,omitempty"`
	ThreadID      string        `json:"thread_id,omitempty"`
	Configuration Configuration `json:"configurations"`
}

// NormalizeLanguage turns a BCP 47 tag such as "id" or "zh-Hant" into its
// English display name. Free-form names are kept as given and an empty value
// yields DefaultLanguage.
func NormalizeLanguage(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return DefaultLanguage
	}
	tag, err := language.Parse(v)
	if err != nil {
		return v
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return v
}
