package registry

import (
	"context"
	"testing"

	"github.com/avergara/jobwatch/lib/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestRegistry(t *testing.T) *UserRegistry {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("fail to open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.UserSkill{}); err != nil {
		t.Fatalf("fail to migrate test db: %v", err)
	}
	return NewUserRegistry(zap.NewNop(), db)
}

func TestRegisterIsIdempotent(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	ok, err := r.Register(ctx, 1001, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	// Second registration while active is a no-op.
	ok, err = r.Register(ctx, 1001, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	users, err := r.ActiveUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestRegisterReactivatesSoftDeletedUser(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	_, err := r.Register(ctx, 1002, "bob")
	require.NoError(t, err)

	ok, err := r.Deactivate(ctx, 1002)
	require.NoError(t, err)
	assert.True(t, ok)

	users, err := r.ActiveUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)

	ok, err = r.Register(ctx, 1002, "bob-again")
	require.NoError(t, err)
	assert.True(t, ok)

	users, err = r.ActiveUsers(ctx)
	require.NoError(t, err)
	require.Contains(t, users, int64(1002))
	assert.Equal(t, "bob-again", users[1002].Username)
}

func TestAddSkillNormalizesAndDeduplicates(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	_, err := r.Register(ctx, 1003, "carol")
	require.NoError(t, err)

	slug, err := r.AddSkill(ctx, 1003, "  Adobe   Photoshop ")
	require.NoError(t, err)
	assert.Equal(t, "adobe-photoshop", slug)

	// Adding the same skill again succeeds without duplication.
	_, err = r.AddSkill(ctx, 1003, "adobe photoshop")
	require.NoError(t, err)

	skills, err := r.Skills(ctx, 1003)
	require.NoError(t, err)
	assert.Equal(t, []string{"adobe-photoshop"}, skills)

	has, err := r.HasSkill(ctx, 1003, "Adobe Photoshop")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestRemoveSkill(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	_, err := r.Register(ctx, 1004, "dave")
	require.NoError(t, err)
	_, err = r.AddSkill(ctx, 1004, "mysql")
	require.NoError(t, err)

	removed, err := r.RemoveSkill(ctx, 1004, "MySQL")
	require.NoError(t, err)
	assert.True(t, removed)

	// Removing a missing skill is a no-op success.
	removed, err = r.RemoveSkill(ctx, 1004, "mysql")
	require.NoError(t, err)
	assert.False(t, removed)

	// Removed skills can be re-added.
	_, err = r.AddSkill(ctx, 1004, "mysql")
	require.NoError(t, err)
	skills, err := r.Skills(ctx, 1004)
	require.NoError(t, err)
	assert.Equal(t, []string{"mysql"}, skills)
}

func TestClearSkills(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	_, err := r.Register(ctx, 1005, "erin")
	require.NoError(t, err)
	for _, skill := range []string{"python", "excel", "data science"} {
		_, err = r.AddSkill(ctx, 1005, skill)
		require.NoError(t, err)
	}

	n, err := r.ClearSkills(ctx, 1005)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	skills, err := r.Skills(ctx, 1005)
	require.NoError(t, err)
	assert.Empty(t, skills)
}

func TestActiveUserSkillMap(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	_, err := r.Register(ctx, 2001, "active-with-skills")
	require.NoError(t, err)
	_, err = r.AddSkill(ctx, 2001, "python")
	require.NoError(t, err)
	_, err = r.AddSkill(ctx, 2001, "mysql")
	require.NoError(t, err)

	_, err = r.Register(ctx, 2002, "active-no-skills")
	require.NoError(t, err)

	_, err = r.Register(ctx, 2003, "inactive")
	require.NoError(t, err)
	_, err = r.AddSkill(ctx, 2003, "php")
	require.NoError(t, err)
	_, err = r.Deactivate(ctx, 2003)
	require.NoError(t, err)

	m, err := r.ActiveUserSkillMap(ctx)
	require.NoError(t, err)
	require.Len(t, m, 1)
	assert.ElementsMatch(t, []string{"python", "mysql"}, m[2001])
}

func TestDeleteCascadesSkills(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	_, err := r.Register(ctx, 3001, "frank")
	require.NoError(t, err)
	_, err = r.AddSkill(ctx, 3001, "arduino")
	require.NoError(t, err)

	ok, err := r.Delete(ctx, 3001)
	require.NoError(t, err)
	assert.True(t, ok)

	m, err := r.ActiveUserSkillMap(ctx)
	require.NoError(t, err)
	assert.Empty(t, m)

	// A fresh registration starts with no skills.
	ok, err = r.Register(ctx, 3001, "frank")
	require.NoError(t, err)
	assert.True(t, ok)
	skills, err := r.Skills(ctx, 3001)
	require.NoError(t, err)
	assert.Empty(t, skills)
}
