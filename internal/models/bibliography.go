package models

// BibliographyKind classifies a bibliography item's source.
type BibliographyKind string

const (
	BibliographyKindArticle BibliographyKind = "ARTICLE"
	BibliographyKindBook    BibliographyKind = "BOOK"
	BibliographyKindVideo   BibliographyKind = "VIDEO"
)

// BibliographyItem is an ordered reading within a chapter. Sequence is unique
// among live siblings; only a reorder transaction may collide transiently.
type BibliographyItem struct {
	ID               string           `db:"id" json:"id"`
	ChapterID        string           `db:"chapter_id" json:"chapter_id"`
	Title            string           `db:"title" json:"title"`
	SourceURL        string           `db:"source_url" json:"source_url"`
	Kind             BibliographyKind `db:"kind" json:"kind"`
	Sequence         int              `db:"sequence" json:"sequence"`
	DeclaresQuestion bool             `db:"declares_question" json:"declares_question"`
	QuestionText     string           `db:"question_text" json:"question_text,omitempty"`
	Audit
}

// SequenceMove asks for one item to take a new position in its chapter.
type SequenceMove struct {
	ItemID      string `json:"item_id" validate:"required"`
	NewSequence int    `json:"new_sequence" validate:"required,min=1"`
}
