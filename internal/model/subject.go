package model

type Subject struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Class struct {
	ID        int64  `json:"id"`
	SubjectID int64  `json:"subject_id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
}
