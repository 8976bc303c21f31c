package api

import "time"

// Category classifies a title ("film", "book", ...). Slug is unique.
type Category struct {
	ID   int64  `json:"-"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Genre tags a title; a title may carry many genres. Slug is unique.
type Genre struct {
	ID   int64  `json:"-"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Title is a reviewable work. Rating is the arithmetic mean of all review
// scores, or nil when the title has no reviews; it is never zero for an
// unrated title.
type Title struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Year        int       `json:"year"`
	Description string    `json:"description,omitempty"`
	Category    *Category `json:"category"`
	Genres      []Genre   `json:"genre"`
	Rating      *float64  `json:"rating"`
}

// Review is a user's scored review of a title. The (author, title) pair is
// unique: one review per user per title.
type Review struct {
	ID       int64     `json:"id"`
	TitleID  int64     `json:"-"`
	AuthorID int64     `json:"-"`
	Author   string    `json:"author"`
	Text     string    `json:"text"`
	Score    int       `json:"score"`
	PubDate  time.Time `json:"pub_date"`
}

// Comment is a user's comment under a review. Unlike reviews there is no
// per-user uniqueness.
type Comment struct {
	ID       int64     `json:"id"`
	ReviewID int64     `json:"-"`
	AuthorID int64     `json:"-"`
	Author   string    `json:"author"`
	Text     string    `json:"text"`
	PubDate  time.Time `json:"pub_date"`
}

// TitleFilter restricts a title listing. Genre and Category match by slug,
// Name matches case-insensitively as a substring.
type TitleFilter struct {
	Genre    *string
	Category *string
	Name     *string
	Year     *int
	Limit    int
	Offset   int
}

// TitleWrite is the write projection of a title: linkage is expressed by
// slugs and resolved at write time. The read projection is Title itself,
// with category and genres expanded and the rating attached.
type TitleWrite struct {
	Name        string   `json:"name"`
	Year        int      `json:"year"`
	Description string   `json:"description"`
	Category    *string  `json:"category"`
	Genres      []string `json:"genre"`
}

// TitlePatch carries a partial title update; nil fields are left unchanged.
type TitlePatch struct {
	Name        *string  `json:"name"`
	Year        *int     `json:"year"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Genres      []string `json:"genre"`
}
