package service

import (
	"context"
	"errors"

	"anoa.com/clubportal/internal/entity"
	adminRepo "anoa.com/clubportal/internal/modules/admin/repository"
	"anoa.com/clubportal/internal/modules/admin/dto"
	liveService "anoa.com/clubportal/internal/modules/live/service"
	userRepo "anoa.com/clubportal/internal/modules/user/repository"
	"anoa.com/clubportal/pkg/docstore"
	"anoa.com/clubportal/pkg/logger"
)

var ErrRequestNotFound = adminRepo.ErrRequestNotFound

type AdminService interface {
	// RequestAdminPermissions files (or refreshes) the caller's request.
	RequestAdminPermissions(ctx context.Context, uid string) (dto.Outcome, error)
	// ApproveAdminRequest grows the id set, writes the profile and drops the
	// request in one transaction. Approving an existing admin only
	// re-asserts the profile.
	ApproveAdminRequest(ctx context.Context, uid string) (dto.Outcome, error)
	RejectAdminRequest(ctx context.Context, uid string) (dto.Outcome, error)
	// RemoveAdmin shrinks the id set and deletes the profile in one
	// transaction.
	RemoveAdmin(ctx context.Context, uid string) (dto.Outcome, error)
	PendingRequests(view *liveService.View) []entity.AdminProfile
	Admins(view *liveService.View) dto.AdminsResponse
}

type adminService struct {
	repo    adminRepo.AdminRepository
	users   userRepo.UserRepository
	live    liveService.Synchronizer
	overlay *liveService.Overlay
}

func NewAdminService(repo adminRepo.AdminRepository, users userRepo.UserRepository, live liveService.Synchronizer) AdminService {
	return &adminService{
		repo:    repo,
		users:   users,
		live:    live,
		overlay: liveService.NewOverlay(),
	}
}

func (s *adminService) RequestAdminPermissions(ctx context.Context, uid string) (dto.Outcome, error) {
	ids, err := s.repo.AdminIDs(ctx)
	if err != nil {
		return "", err
	}
	if ids.Contains(uid) {
		return dto.OutcomeAlreadyAdmin, nil
	}

	user, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return "", err
	}

	if err := s.repo.SaveRequest(ctx, user.Profile()); err != nil {
		logger.Error("admin: saving request for %s failed: %v", uid, err)
		return "", err
	}

	logger.Info("admin: %s requested admin permissions", uid)
	return dto.OutcomeRequested, nil
}

func (s *adminService) ApproveAdminRequest(ctx context.Context, uid string) (dto.Outcome, error) {
	s.overlay.Hide(uid, s.live.Current().Version(liveService.TopicAdminRequests))

	outcome, err := s.approve(ctx, uid)
	if err != nil {
		s.overlay.Restore(uid)
		logger.Error("admin: approving %s failed: %v", uid, err)
		return "", err
	}
	return outcome, nil
}

func (s *adminService) approve(ctx context.Context, uid string) (dto.Outcome, error) {
	profile, err := s.approvalProfile(ctx, uid)
	if err != nil {
		return "", err
	}

	// id set, profile and request move together so no profile outlives its id
	added := false
	err = s.repo.Transaction(ctx, func(tx adminRepo.AdminRepository) error {
		var err error
		if added, err = tx.AddAdminID(ctx, uid); err != nil {
			return err
		}
		if err := tx.SaveProfile(ctx, profile); err != nil {
			return err
		}
		return tx.DeleteRequest(ctx, uid)
	})
	if err != nil {
		return "", err
	}

	if !added {
		return dto.OutcomeAlreadyAdmin, nil
	}
	logger.Success("admin: %s is now an admin", uid)
	return dto.OutcomeApproved, nil
}

// approvalProfile prefers the pending request. Without one, only an
// existing admin can be re-asserted.
func (s *adminService) approvalProfile(ctx context.Context, uid string) (entity.AdminProfile, error) {
	profile, err := s.repo.FindRequest(ctx, uid)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, adminRepo.ErrRequestNotFound) {
		return entity.AdminProfile{}, err
	}

	ids, err := s.repo.AdminIDs(ctx)
	if err != nil {
		return entity.AdminProfile{}, err
	}
	if !ids.Contains(uid) {
		return entity.AdminProfile{}, ErrRequestNotFound
	}

	profile, err = s.repo.FindProfile(ctx, uid)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, docstore.ErrNotFound) {
		return entity.AdminProfile{}, err
	}
	user, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return entity.AdminProfile{}, err
	}
	return user.Profile(), nil
}

func (s *adminService) RejectAdminRequest(ctx context.Context, uid string) (dto.Outcome, error) {
	s.overlay.Hide(uid, s.live.Current().Version(liveService.TopicAdminRequests))

	if err := s.repo.DeleteRequest(ctx, uid); err != nil {
		s.overlay.Restore(uid)
		return "", err
	}

	logger.Info("admin: rejected request of %s", uid)
	return dto.OutcomeRejected, nil
}

func (s *adminService) RemoveAdmin(ctx context.Context, uid string) (dto.Outcome, error) {
	removed := false
	err := s.repo.Transaction(ctx, func(tx adminRepo.AdminRepository) error {
		var err error
		if removed, err = tx.RemoveAdminID(ctx, uid); err != nil {
			return err
		}
		return tx.DeleteProfile(ctx, uid)
	})
	if err != nil {
		logger.Error("admin: removing %s failed: %v", uid, err)
		return "", err
	}
	if !removed {
		return dto.OutcomeNotAdmin, nil
	}

	logger.Info("admin: %s is no longer an admin", uid)
	return dto.OutcomeRemoved, nil
}

func (s *adminService) PendingRequests(view *liveService.View) []entity.AdminProfile {
	version := view.Version(liveService.TopicAdminRequests)

	pending := make([]entity.AdminProfile, 0, len(view.AdminRequests))
	for _, request := range view.AdminRequests {
		if s.overlay.Hidden(request.UID, version) {
			continue
		}
		pending = append(pending, request)
	}
	return pending
}

func (s *adminService) Admins(view *liveService.View) dto.AdminsResponse {
	return dto.AdminsResponse{
		IDs:    view.AdminIDList,
		Admins: view.Admins,
	}
}
