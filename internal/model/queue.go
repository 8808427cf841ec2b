package model

// AutosaveRecord is one queued answer on the write-behind persistence queue.
type AutosaveRecord struct {
	AttemptID      string `json:"attempt_id"`
	QuestionID     string `json:"question_id"`
	SelectedOption int    `json:"selected_option"`
	SavedAt        int64  `json:"saved_at"`
}

// CertificateDispatch is one queued certificate issuance for a passed attempt.
type CertificateDispatch struct {
	AttemptID string `json:"attempt_id"`
	StudentID int    `json:"student_id"`
	ExamID    string `json:"exam_id"`
	QueuedAt  int64  `json:"queued_at"`
}
