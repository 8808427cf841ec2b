package model

import "time"

// College represents an institution whose students are grouped into batches.
type College struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Subject is a top-level subject area (e.g. Mathematics).
type Subject struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Course is a concrete course under a subject; exams belong to courses.
type Course struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	SubjectID int       `json:"subject_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CreateCollegeRequest is the payload for creating a college.
type CreateCollegeRequest struct {
	Name string `json:"name" binding:"required,min=2,max=150"`
	Code string `json:"code" binding:"required,min=2,max=20"`
}

// CreateSubjectRequest is the payload for creating a subject.
type CreateSubjectRequest struct {
	Name string `json:"name" binding:"required,min=2,max=100"`
}

// CreateCourseRequest is the payload for creating a course.
type CreateCourseRequest struct {
	Name      string `json:"name" binding:"required,min=2,max=150"`
	SubjectID int    `json:"subject_id" binding:"required"`
}
