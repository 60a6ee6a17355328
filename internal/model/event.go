package model

// Event is a single calendar entry on a given date.
//
// Date and Title identify the event within a schedule (Title is only unique
// per date, not globally). The remaining fields are descriptive payload and
// are carried through storage and export unmodified.
type Event struct {
	Date  Date   `yaml:"date" json:"date"`
	Title string `yaml:"title" json:"title"`

	// UID is an optional stable identifier, e.g. the iCalendar UID the
	// event was imported from.
	UID string `yaml:"uid,omitempty" json:"uid,omitempty"`

	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Location    string `yaml:"location,omitempty" json:"location,omitempty"`
}
