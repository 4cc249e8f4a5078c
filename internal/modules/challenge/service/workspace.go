package service

import (
	"fmt"
	"sync"
	"time"

	"anoa.com/clubportal/internal/entity"
	"anoa.com/clubportal/internal/modules/challenge/dto"
	"anoa.com/clubportal/pkg/apperror"
)

var (
	ErrSubmissionInFlight = fmt.Errorf("a submission is already running: %w", apperror.ErrConflict)
	ErrLanguageNotOffered = fmt.Errorf("language not offered by this challenge: %w", apperror.ErrInvalidInput)
)

// Workspace is one user's editor state for one challenge. Code buffers
// hold unsaved edits for every language; nothing here is persisted until
// Save or Submit.
type Workspace struct {
	mu sync.Mutex

	uid       string
	challenge entity.Challenge
	status    entity.ChallengeStatus
	language  string
	code      map[string]string
	results   []entity.TestResult
	busy      bool
	lastUsed  time.Time
}

func newWorkspace(uid string, challenge entity.Challenge, progress entity.ChallengeProgress, now time.Time) *Workspace {
	code := make(map[string]string, len(progress.Code))
	for lang, src := range progress.Code {
		code[lang] = src
	}

	language := ""
	if len(challenge.Languages) > 0 {
		language = challenge.Languages[0]
	}

	return &Workspace{
		uid:       uid,
		challenge: challenge,
		status:    progress.Status,
		language:  language,
		code:      code,
		lastUsed:  now,
	}
}

// SetCode replaces the buffer of lang, or of the active language when lang
// is empty. Edits are accepted even after completion; they just never
// reach the store.
func (w *Workspace) SetCode(lang, code string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if lang == "" {
		lang = w.language
	}
	if !w.challenge.SupportsLanguage(lang) {
		return ErrLanguageNotOffered
	}
	w.code[lang] = code
	return nil
}

// SwitchLanguage changes the active language and keeps every buffer.
func (w *Workspace) SwitchLanguage(lang string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.challenge.SupportsLanguage(lang) {
		return ErrLanguageNotOffered
	}
	w.language = lang
	return nil
}

// activeCode shows the boilerplate while the active buffer is empty.
func (w *Workspace) activeCode() string {
	if src := w.code[w.language]; src != "" {
		return src
	}
	return w.challenge.BoilerplateFor(w.language)
}

func (w *Workspace) buffers() map[string]string {
	out := make(map[string]string, len(w.code))
	for lang, src := range w.code {
		out[lang] = src
	}
	return out
}

// submission is what a submit run works from, copied under the lock so
// edits made while the judge runs do not leak into it.
type submission struct {
	language string
	source   string
	buffers  map[string]string
}

func (w *Workspace) begin(challenge entity.Challenge) (submission, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.busy {
		return submission{}, ErrSubmissionInFlight
	}
	w.busy = true
	w.challenge = challenge
	if !challenge.SupportsLanguage(w.language) && len(challenge.Languages) > 0 {
		w.language = challenge.Languages[0]
	}

	return submission{
		language: w.language,
		source:   w.activeCode(),
		buffers:  w.buffers(),
	}, nil
}

func (w *Workspace) finish(results []entity.TestResult, status entity.ChallengeStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.busy = false
	w.results = results
	if status != "" {
		w.status = status
	}
}

func (w *Workspace) setStatus(status entity.ChallengeStatus) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = status
}

func (w *Workspace) touch(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastUsed = now
}

func (w *Workspace) idleSince(cutoff time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return !w.busy && w.lastUsed.Before(cutoff)
}

func (w *Workspace) view() *dto.WorkspaceResponse {
	w.mu.Lock()
	defer w.mu.Unlock()

	results := w.results
	if results == nil {
		results = []entity.TestResult{}
	}
	return &dto.WorkspaceResponse{
		ChallengeID: w.challenge.ID,
		Name:        w.challenge.Name,
		Description: w.challenge.Description,
		Languages:   w.challenge.Languages,
		Language:    w.language,
		Code:        w.activeCode(),
		Status:      w.status,
		Busy:        w.busy,
		Results:     results,
	}
}
