package models

import (
	"strings"
	"time"
)

// Capture timestamp layouts used in the DATE and TIME columns
const (
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04:05"
	CommittedLayout = "2006-01-02 15:04"
)

// Attributes are the scraped profile fields, in column order. Values are
// opaque strings compared only for equality.
type Attributes struct {
	City         string `json:"city"`
	Gender       string `json:"gender"`
	Married      string `json:"married"`
	Age          string `json:"age"`
	Joined       string `json:"joined"`
	Followers    string `json:"followers"`
	Posts        string `json:"posts"`
	LastPost     string `json:"last_post"`
	LastPostTime string `json:"last_post_time"`
	ProfileLink  string `json:"profile_link"`
	ImageURL     string `json:"image_url"`
	Bio          string `json:"bio"`
}

// AttributeCount is the number of fields in Attributes
const AttributeCount = 12

// Values returns the attributes in column order
func (a Attributes) Values() []string {
	return []string{
		a.City, a.Gender, a.Married, a.Age, a.Joined, a.Followers,
		a.Posts, a.LastPost, a.LastPostTime, a.ProfileLink, a.ImageURL, a.Bio,
	}
}

// AttributesFromValues is the inverse of Values; missing trailing values are empty
func AttributesFromValues(v []string) Attributes {
	at := func(i int) string {
		if i < len(v) {
			return v[i]
		}
		return ""
	}
	return Attributes{
		City: at(0), Gender: at(1), Married: at(2), Age: at(3), Joined: at(4), Followers: at(5),
		Posts: at(6), LastPost: at(7), LastPostTime: at(8), ProfileLink: at(9), ImageURL: at(10), Bio: at(11),
	}
}

// Record is one freshly scraped profile
type Record struct {
	Identifier string     `json:"identifier"`
	CapturedAt time.Time  `json:"captured_at"`
	Attributes Attributes `json:"attributes"`
}

// Cells renders the record as a profiles-table row with the given tag string
func (r Record) Cells(tags string) []string {
	row := make([]string, 0, len(Columns))
	row = append(row, r.CapturedAt.Format(DateLayout), r.CapturedAt.Format(TimeLayout), r.Identifier, tags)
	return append(row, r.Attributes.Values()...)
}

// RemoteRow is a row of the profiles table as read at the start of a batch.
// RowIndex is 1-based with the header on row 1.
type RemoteRow struct {
	RowIndex   int
	Identifier string
	Tags       string
	Attributes Attributes
	Cells      []string
}

// RemoteRowFromCells parses a raw row; the cell slice is padded to the schema width
func RemoteRowFromCells(rowIndex int, cells []string) RemoteRow {
	padded := make([]string, len(Columns))
	copy(padded, cells)
	return RemoteRow{
		RowIndex:   rowIndex,
		Identifier: strings.TrimSpace(padded[IdentifierColumn]),
		Tags:       padded[TagsColumn],
		Attributes: AttributesFromValues(padded[FirstAttributeColumn:]),
		Cells:      padded,
	}
}

// ColumnKind classifies how the reconciler treats a column
type ColumnKind int

const (
	// KindCapture columns hold the capture timestamp and are never diffed
	KindCapture ColumnKind = iota
	// KindIdentifier is the reconciliation key
	KindIdentifier
	// KindTags is derived from the tag index
	KindTags
	// KindMutable columns are diffed and highlighted when changed
	KindMutable
	// KindStatic columns are written but excluded from change detection
	KindStatic
)

// Column describes one column of the profiles table
type Column struct {
	Header string
	Kind   ColumnKind
}

// Columns is the fixed profiles-table layout
var Columns = []Column{
	{"DATE", KindCapture},
	{"TIME", KindCapture},
	{"NICKNAME", KindIdentifier},
	{"TAGS", KindTags},
	{"CITY", KindMutable},
	{"GENDER", KindMutable},
	{"MARRIED", KindMutable},
	{"AGE", KindMutable},
	{"JOINED", KindMutable},
	{"FOLLOWERS", KindMutable},
	{"POSTS", KindMutable},
	{"LPOST", KindMutable},
	{"LDATE-TIME", KindMutable},
	{"PLINK", KindStatic},
	{"PIMAGE", KindStatic},
	{"INTRO", KindStatic},
}

// Column positions (0-based)
const (
	IdentifierColumn     = 2
	TagsColumn           = 3
	FirstAttributeColumn = 4
)

// Headers returns the header row of the profiles table
func Headers() []string {
	h := make([]string, len(Columns))
	for i, c := range Columns {
		h[i] = c.Header
	}
	return h
}

// Status is the lifecycle state of a queue item
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// ParseStatus normalises a status cell; unknown values return false
func ParseStatus(s string) (Status, bool) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, true
	case StatusCompleted:
		return StatusCompleted, true
	case StatusFailed:
		return StatusFailed, true
	}
	return "", false
}

// Queue table headers
var QueueHeaders = []string{"USERNAME", "STATUS", "LAST_SCRAPED", "NOTES"}

// QueueItem is one target in the work queue
type QueueItem struct {
	Identifier  string
	RowIndex    int
	Status      Status
	LastNote    string
	CompletedAt *time.Time
}
