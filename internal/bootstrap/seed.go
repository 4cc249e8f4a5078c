package bootstrap

import (
	"context"
	"errors"
	"log"

	"anoa.com/clubportal/internal/entity"
	adminRepo "anoa.com/clubportal/internal/modules/admin/repository"
	userRepo "anoa.com/clubportal/internal/modules/user/repository"
	"anoa.com/clubportal/pkg/docstore"
	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return docstore.Migrate(db)
}

// SeedAdmins makes sure every uid in uids is an admin. It only adds: ids
// already present are left alone and existing profiles are not rewritten,
// so running it on every start is safe.
func SeedAdmins(ctx context.Context, db *gorm.DB, uids []string) error {
	if len(uids) == 0 {
		return nil
	}
	store := docstore.NewGormStore(db, nil)

	missing := make(map[string]entity.AdminProfile, len(uids))
	for _, uid := range uids {
		var count int64
		if err := db.WithContext(ctx).Model(&docstore.Document{}).
			Where("path = ?", entity.AdminProfilePath(uid)).
			Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			missing[uid] = seedProfile(ctx, store, uid)
		}
	}

	// ids and profiles land together so neither exists without the other
	return adminRepo.NewAdminRepository(store).Transaction(ctx, func(admins adminRepo.AdminRepository) error {
		for _, uid := range uids {
			added, err := admins.AddAdminID(ctx, uid)
			if err != nil {
				return err
			}

			profile, ok := missing[uid]
			if !ok {
				if !added {
					log.Printf("Admin %s already exists, skipping seed", uid)
				}
				continue
			}
			if err := admins.SaveProfile(ctx, profile); err != nil {
				return err
			}
			log.Printf("Seeded admin %s", uid)
		}
		return nil
	})
}

// seedProfile copies the user's identity when they have signed in before.
func seedProfile(ctx context.Context, store docstore.Store, uid string) entity.AdminProfile {
	user, err := userRepo.NewUserRepository(store).FindByID(ctx, uid)
	if err != nil {
		if !errors.Is(err, userRepo.ErrUserNotFound) {
			log.Printf("seed: could not read user %s: %v", uid, err)
		}
		return entity.AdminProfile{UID: uid}
	}
	return user.Profile()
}
