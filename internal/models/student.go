package models

// Student lives in a tenant database.
type Student struct {
	ID           string `db:"id" json:"id"`
	FullName     string `db:"full_name" json:"full_name"`
	AcademicYear string `db:"academic_year" json:"academic_year"`
	Active       bool   `db:"active" json:"active"`
	Audit
}
