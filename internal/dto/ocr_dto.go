package dto

import "github.com/CMihai83/documentiulia.ro-sub050/internal/ocr"

type EnhanceOCRRequest struct {
	Text     string `json:"text"     validate:"required,max=100000"`
	Language string `json:"language" validate:"omitempty,oneof=ro de en auto"`
}

// OCRExpenseRequest enhances the text and records a pending expense from it.
type OCRExpenseRequest struct {
	Text     string `json:"text"     validate:"required,max=100000"`
	Language string `json:"language" validate:"omitempty,oneof=ro de en auto"`
	Category string `json:"category" validate:"omitempty,max=40"`
}

// OCRExpenseResponse pairs the created expense with the extraction it came
// from, so the client can show what needs review.
type OCRExpenseResponse struct {
	Expense    ExpenseResponse `json:"expense"`
	Extraction ocr.Result      `json:"extraction"`
}
