package dto

import "time"

type PeriodResponse struct {
	Period   string     `json:"period"`
	Status   string     `json:"status"`
	ClosedAt *time.Time `json:"closed_at"`
	ClosedBy *string    `json:"closed_by"`
}
