package dto

import "anoa.com/clubportal/internal/entity"

type ProblemInput struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description" binding:"max=5000"`
	Severity    string `json:"severity" binding:"required,oneof=low medium high"`
}

func (in ProblemInput) Problem() entity.Problem {
	return entity.Problem{
		Title:       in.Title,
		Description: in.Description,
		Severity:    entity.Severity(in.Severity),
	}
}

type ProblemListQuery struct {
	Severity string `form:"severity" binding:"omitempty,oneof=low medium high"`
}
