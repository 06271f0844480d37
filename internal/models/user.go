package models

// UserRole represents the roles carried in portal access tokens.
type UserRole string

const (
	RoleAdmin     UserRole = "ADMIN"
	RoleAdvisor   UserRole = "ADVISOR"
	RoleEvaluator UserRole = "EVALUATOR"
	RoleStudent   UserRole = "STUDENT"
)

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	LastPage   int `json:"last_page"`
}
