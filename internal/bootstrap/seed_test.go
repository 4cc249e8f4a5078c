package bootstrap

import (
	"context"
	"testing"

	"anoa.com/clubportal/internal/entity"
	adminRepo "anoa.com/clubportal/internal/modules/admin/repository"
	"anoa.com/clubportal/pkg/docstore"
	"anoa.com/clubportal/pkg/docstore/docstoretest"
	"github.com/stretchr/testify/require"
)

func TestSeedAdmins(t *testing.T) {
	ctx := context.Background()
	db := docstoretest.OpenDB(t)
	store := docstore.NewGormStore(db, nil)
	admins := adminRepo.NewAdminRepository(store)

	user := entity.NewUser(entity.Profile{UID: "u1", Name: "Ana", Email: "ana@club.test"})
	require.NoError(t, store.Set(ctx, entity.UserPath("u1"), user))

	require.NoError(t, SeedAdmins(ctx, db, nil))
	ids, err := admins.AdminIDs(ctx)
	require.NoError(t, err)
	require.Empty(t, ids.IDs)

	require.NoError(t, SeedAdmins(ctx, db, []string{"u1", "g-9"}))

	ids, err = admins.AdminIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"u1", "g-9"}, ids.IDs)

	profile, err := admins.FindProfile(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "ana@club.test", profile.Email)

	// a uid that never signed in still gets a profile so the iff holds
	profile, err = admins.FindProfile(ctx, "g-9")
	require.NoError(t, err)
	require.Equal(t, "g-9", profile.UID)

	// a renamed profile survives the next start
	require.NoError(t, admins.SaveProfile(ctx, entity.AdminProfile{UID: "u1", Name: "Ana B"}))
	require.NoError(t, SeedAdmins(ctx, db, []string{"u1", "g-9"}))

	ids, err = admins.AdminIDs(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"u1", "g-9"}, ids.IDs)
	profile, err = admins.FindProfile(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "Ana B", profile.Name)

	profiles, err := store.List(ctx, entity.AdminProfilesCollection)
	require.NoError(t, err)
	require.Len(t, profiles, 2)
}

func TestSeedAdminsRestoresMissingID(t *testing.T) {
	ctx := context.Background()
	db := docstoretest.OpenDB(t)
	store := docstore.NewGormStore(db, nil)
	admins := adminRepo.NewAdminRepository(store)

	require.NoError(t, admins.SaveProfile(ctx, entity.AdminProfile{UID: "u1", Name: "Ana"}))
	require.NoError(t, SeedAdmins(ctx, db, []string{"u1"}))

	ids, err := admins.AdminIDs(ctx)
	require.NoError(t, err)
	require.True(t, ids.Contains("u1"))
}
