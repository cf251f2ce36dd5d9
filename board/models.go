// Package board holds the domain model of the collaborative board and the
// adapter that maps it onto the keyed store's path schema.
package board

// Item is a single card: text, color, a column, and a fractional position
// that orders it inside its (group, column) pair. Position uniqueness is not
// required; readers break ties by id.
type Item struct {
	ID          string   `json:"id"`
	Text        string   `json:"text"`
	ColumnIndex int      `json:"columnIndex"`
	ColorTag    ColorTag `json:"colorTag,omitempty"`
	Position    float64  `json:"position"`
}

// Group is a named row owning its items by containment in the store path.
type Group struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Items map[string]Item `json:"items,omitempty"`
}

// Category is a reusable batch of item texts insertable into a group/column.
// It is a creation template, not ordered board data.
type Category struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	ItemTexts []string `json:"itemTexts"`
	ColorTag  ColorTag `json:"colorTag,omitempty"`
}

// Presence is one connected user, removed automatically by the store's
// disconnect mechanism.
type Presence struct {
	UserID     string `json:"userId"`
	UserName   string `json:"userName"`
	AvatarRef  string `json:"avatarRef,omitempty"`
	LastActive int64  `json:"lastActive"`
	Online     bool   `json:"online"`
}

// Snapshot is an immutable, timestamped full-state copy retained for
// recovery and audit. Board and category state are kept as raw store values
// so a snapshot restores byte-for-byte what was captured.
type Snapshot struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	CreatedAt     int64  `json:"createdAt"`
	CreatedBy     string `json:"createdBy"`
	BoardState    any    `json:"boardState"`
	CategoryState any    `json:"categoryState"`
}

// Backup is the portable export file format.
type Backup struct {
	Version       int   `json:"version"`
	Timestamp     int64 `json:"timestamp"`
	BoardState    any   `json:"boardState,omitempty"`
	CategoryState any   `json:"categoryState,omitempty"`
}

// BackupVersion is the current export file version.
const BackupVersion = 1
