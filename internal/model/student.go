package model

import "time"

// Student represents a student user. Every student belongs to exactly one
// batch, which governs their exam visibility and proctoring limits.
type Student struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	RollNumber   string    `json:"roll_number"`
	PasswordHash string    `json:"-"`
	BatchID      int       `json:"batch_id"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// StudentLoginRequest is the payload for student authentication.
type StudentLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=4,max=128"`
}

// StudentLoginResponse is returned after successful student login.
type StudentLoginResponse struct {
	Token   string  `json:"token"`
	Student Student `json:"student"`
}

// CreateStudentRequest is the payload for creating a new student account.
type CreateStudentRequest struct {
	Name       string `json:"name" binding:"required,min=2,max=100"`
	Email      string `json:"email" binding:"required,email"`
	RollNumber string `json:"roll_number" binding:"required,min=2,max=30"`
	Password   string `json:"password" binding:"required,min=6,max=128"`
	BatchID    int    `json:"batch_id" binding:"required"`
}

// UpdateStudentRequest is the payload for updating an existing student.
type UpdateStudentRequest struct {
	Name       string `json:"name" binding:"required,min=2,max=100"`
	Email      string `json:"email" binding:"required,email"`
	RollNumber string `json:"roll_number" binding:"required,min=2,max=30"`
	Password   string `json:"password" binding:"omitempty,min=6,max=128"`
	BatchID    int    `json:"batch_id" binding:"required"`
	IsActive   *bool  `json:"is_active" binding:"omitempty"`
}
