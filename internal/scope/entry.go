package scope

import "time"

// lastModifiedLayout is the timestamp format of Swift JSON listings (UTC, no zone).
const lastModifiedLayout = "2006-01-02T15:04:05.999999"

// Entry is one row of a Swift JSON container listing. Under delimiter
// listing a row is either a synthetic directory ({"subdir": ...}) or an
// object; the presence of Subdir decides which.
type Entry struct {
	Subdir       *string `json:"subdir,omitempty"`
	Name         string  `json:"name,omitempty"`
	ContentType  string  `json:"content_type,omitempty"`
	Bytes        int64   `json:"bytes,omitempty"`
	LastModified string  `json:"last_modified,omitempty"`
	Hash         string  `json:"hash,omitempty"`
}

// IsDir reports whether e is a synthetic directory marker.
func (e Entry) IsDir() bool { return e.Subdir != nil }

// Key is the absolute storage key of e, which is also the listing marker.
func (e Entry) Key() string {
	if e.Subdir != nil {
		return *e.Subdir
	}
	return e.Name
}

// Modified parses LastModified. It returns the zero time when the field is
// absent or malformed.
func (e Entry) Modified() time.Time {
	t, err := time.ParseInLocation(lastModifiedLayout, e.LastModified, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}
