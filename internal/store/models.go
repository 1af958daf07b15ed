package store

import "time"

const (
	ThreadOpen     = "OPEN"
	ThreadLocked   = "LOCKED"
	ThreadArchived = "ARCHIVED"
)

type User struct {
	ID          string
	DisplayName string
	Role        string
	CreatedAt   time.Time
}

type Board struct {
	ID          string
	Slug        string
	Name        string
	Description string
	SortOrder   int
	CreatedAt   time.Time
}

type Thread struct {
	ID         string
	BoardID    string
	AuthorID   string
	AuthorName string
	Title      string
	Status     string
	IsPinned   bool
	IsLocked   bool
	CreatedAt  time.Time
	LastPostAt time.Time
	ReplyCount int
}

// Locked reports whether the thread refuses new replies.
func (t Thread) Locked() bool {
	return t.IsLocked || t.Status == ThreadLocked
}

func (t Thread) Archived() bool {
	return t.Status == ThreadArchived
}

type Post struct {
	ID            string
	ThreadID      string
	ParentPostID  *string
	AuthorID      string
	AuthorName    string
	Body          string
	IsDeleted     bool
	DeletedReason string
	CreatedAt     time.Time
	// Depth is filled in by InsertReply and is not persisted.
	Depth int
}

func (p Post) ParentID() string {
	if p.ParentPostID == nil {
		return ""
	}
	return *p.ParentPostID
}

// ThreadFilter narrows thread listings. Archived threads are always excluded.
type ThreadFilter struct {
	BoardID string
	// RestrictToIDs limits results to IDs, even when IDs is empty.
	RestrictToIDs bool
	IDs           []string
	CreatedAfter  time.Time
}
