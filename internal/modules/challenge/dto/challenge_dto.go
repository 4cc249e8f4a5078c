package dto

import "anoa.com/clubportal/internal/entity"

// ChallengeInput is the admin challenge editor form. The name doubles as
// the document key.
type ChallengeInput struct {
	Name        string            `json:"name" binding:"required,max=120"`
	Description string            `json:"description" binding:"max=5000"`
	Languages   []string          `json:"languages" binding:"required,min=1,dive,oneof=java C++ python"`
	Boilerplate map[string]string `json:"boilerplate"`
	TestCases   entity.TestCases  `json:"testCases"`
	Amount      int               `json:"amount" binding:"min=0"`
}

func (in ChallengeInput) Challenge() entity.Challenge {
	return entity.Challenge{
		ID:          in.Name,
		Name:        in.Name,
		Description: in.Description,
		Languages:   in.Languages,
		Boilerplate: in.Boilerplate,
		TestCases:   in.TestCases,
		Amount:      in.Amount,
	}
}

// SetCodeInput edits the active language buffer unless Language is set.
type SetCodeInput struct {
	Language string `json:"language" binding:"omitempty,oneof=java C++ python"`
	Code     string `json:"code" binding:"max=65536"`
}

type SwitchLanguageInput struct {
	Language string `json:"language" binding:"required"`
}

// WorkspaceResponse is what the editor renders.
type WorkspaceResponse struct {
	ChallengeID string                 `json:"challengeId"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Languages   []string               `json:"languages"`
	Language    string                 `json:"language"`
	Code        string                 `json:"code"`
	Status      entity.ChallengeStatus `json:"status"`
	Busy        bool                   `json:"busy"`
	Results     []entity.TestResult    `json:"results"`
}

type SaveResponse struct {
	Saved  bool                   `json:"saved"`
	Status entity.ChallengeStatus `json:"status"`
}

type SubmitResponse struct {
	Results   []entity.TestResult    `json:"results"`
	Passed    bool                   `json:"passed"`
	Status    entity.ChallengeStatus `json:"status"`
	Awarded   int                    `json:"awarded"`
	CodeSaved bool                   `json:"codeSaved"`
}
