package models

import (
	"fmt"
	"strings"
	"time"
)

// Category is the shelf a book sits on
type Category int

const (
	CategoryUnknown Category = iota
	CategoryCurrentlyReading
	CategoryWantToRead
	CategoryFinishedReading
)

var categoryNames = map[Category]string{
	CategoryCurrentlyReading: "currentlyReading",
	CategoryWantToRead:       "wantToRead",
	CategoryFinishedReading:  "finishedReading",
}

// ParseCategory accepts the canonical camelCase names and their snake_case forms
func ParseCategory(s string) (Category, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "_", ""))
	for c, name := range categoryNames {
		if strings.ToLower(name) == key {
			return c, nil
		}
	}
	return CategoryUnknown, fmt.Errorf("unknown category %q", s)
}

func (c Category) String() string {
	if name, ok := categoryNames[c]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether c is one of the three shelves
func (c Category) Valid() bool {
	_, ok := categoryNames[c]
	return ok
}

func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid category %d", int(c))
	}
	return []byte(c.String()), nil
}

func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ProgressType tells how a progress value should be read
type ProgressType int

const (
	ProgressTypeUnknown ProgressType = iota
	ProgressTypePages
	ProgressTypePercentage
)

// ParseProgressType maps "pages" and "percentage" (or "percent") to a ProgressType
func ParseProgressType(s string) (ProgressType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pages":
		return ProgressTypePages, nil
	case "percentage", "percent":
		return ProgressTypePercentage, nil
	}
	return ProgressTypeUnknown, fmt.Errorf("unknown progress type %q", s)
}

func (p ProgressType) String() string {
	switch p {
	case ProgressTypePages:
		return "pages"
	case ProgressTypePercentage:
		return "percentage"
	}
	return "unknown"
}

func (p ProgressType) MarshalText() ([]byte, error) {
	if p != ProgressTypePages && p != ProgressTypePercentage {
		return nil, fmt.Errorf("invalid progress type %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *ProgressType) UnmarshalText(text []byte) error {
	parsed, err := ParseProgressType(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Book represents a book owned by a single user
type Book struct {
	ID           string       `json:"id"`
	OwnerID      string       `json:"owner_id"`
	Title        string       `json:"title"`
	PageCount    *int         `json:"page_count,omitempty"`
	PagesRead    int          `json:"pages_read"`
	Progress     float64      `json:"progress"`
	ProgressType ProgressType `json:"progress_type"`
	Category     Category     `json:"category"`
	LastReadAt   *time.Time   `json:"last_read_at,omitempty"`
}

// KnownPageCount returns the page count when it is set and positive
func (b Book) KnownPageCount() (int, bool) {
	if b.PageCount == nil || *b.PageCount <= 0 {
		return 0, false
	}
	return *b.PageCount, true
}

// ReadingLogEntry records pages read on one book during one UTC calendar day.
// Several entries may share a (Day, BookID) pair; the one with the latest LoggedAt wins.
type ReadingLogEntry struct {
	Day       time.Time `json:"day"`
	PagesRead int       `json:"pages_read"`
	BookID    string    `json:"book_id"`
	LoggedAt  time.Time `json:"logged_at"`
}

// User holds the reading log and the aggregates derived from it
type User struct {
	ID                  string            `json:"id"`
	ReadingLog          []ReadingLogEntry `json:"reading_log"`
	TotalPagesRead      int               `json:"total_pages_read"`
	CurrentStreak       int               `json:"current_streak"`
	MaxStreak           int               `json:"max_streak"`
	LastReadingUpdateAt *time.Time        `json:"last_reading_update_at,omitempty"`
}

// UserDelta is a partial update of a user record. Nil fields are left untouched.
type UserDelta struct {
	PushLogEntry      *ReadingLogEntry
	PruneBookID       string
	SetTotalPagesRead *int
	SetCurrentStreak  *int
	SetMaxStreak      *int
	SetLastUpdate     *time.Time
}

// ActivityDay is one point of the daily activity series
type ActivityDay struct {
	Day       time.Time `json:"day"`
	PagesRead int       `json:"pages_read"`
}

// Stats is the user's aggregate view
type Stats struct {
	TotalPagesRead      int        `json:"total_pages_read"`
	CurrentStreak       int        `json:"current_streak"`
	MaxStreak           int        `json:"max_streak"`
	LastReadingUpdateAt *time.Time `json:"last_reading_update_at,omitempty"`
}
