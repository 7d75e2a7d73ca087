package models

// CourseModule is a unit of study students enroll into.
type CourseModule struct {
	ID           string `db:"id" json:"id"`
	Title        string `db:"title" json:"title"`
	AcademicYear string `db:"academic_year" json:"academic_year"`
	Published    bool   `db:"published" json:"published"`
	Audit
}

// Chapter subdivides a course module; bibliography items hang off chapters.
type Chapter struct {
	ID       string `db:"id" json:"id"`
	ModuleID string `db:"module_id" json:"module_id"`
	Title    string `db:"title" json:"title"`
	Sequence int    `db:"sequence" json:"sequence"`
	Audit
}
