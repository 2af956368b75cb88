package medical

import "medichat/internal/domain"

type QueryRequest struct {
	Prompt    string `json:"prompt" binding:"required"`
	SessionID string `json:"sessionId"`
}

type QueryResponse struct {
	Text       string             `json:"text"`
	IsMedical  bool               `json:"isMedical"`
	SessionID  string             `json:"sessionId"`
	References []domain.Reference `json:"references"`
}
