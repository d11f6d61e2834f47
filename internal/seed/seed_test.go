package seed

import (
	"testing"

	"inkwell/internal/content"
	"inkwell/internal/models"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestKindPlan(t *testing.T) {
	plan := kindPlan(10)
	require.Len(t, plan, 10)

	counts := map[string]int{}
	for _, k := range plan {
		counts[k]++
	}
	assert.Equal(t, 4, counts[KindText])
	assert.Equal(t, 3, counts[KindCover])
	assert.Equal(t, 2, counts[KindMarkdown])
	assert.Equal(t, 1, counts[KindVideo])
	assert.Equal(t, KindText, plan[0])

	assert.Empty(t, kindPlan(0))
	assert.Equal(t, []string{KindText, KindText}, kindPlan(2))
}

func TestSeed_DryRun(t *testing.T) {
	s, err := NewSeeder(nil, Options{DryRun: true, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)

	res, err := s.Seed(3, 12)
	require.NoError(t, err)
	require.Len(t, res.Users, 3)
	require.Len(t, res.Posts, 12)

	seen := map[string]bool{}
	for _, u := range res.Users {
		assert.NotZero(t, u.ID)
		assert.False(t, seen[u.Email], "duplicate email %s", u.Email)
		seen[u.Email] = true
	}
	for i, p := range res.Posts {
		assert.Equal(t, res.Users[i%3].ID, p.UserID)
		assert.NotEmpty(t, p.Title)
		assert.NotEmpty(t, content.Excerpt(p.Content, 40))
	}
}

func TestNewSeeder_RequiresDB(t *testing.T) {
	_, err := NewSeeder(nil, Options{})
	assert.Error(t, err)
}

func TestSeed_RejectsNoUsers(t *testing.T) {
	s, err := NewSeeder(nil, Options{DryRun: true, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	_, err = s.Seed(0, 5)
	assert.Error(t, err)
}

func TestSeed_SQLite(t *testing.T) {
	db := testutil.OpenSQLite(t)
	s, err := NewSeeder(db, Options{BcryptCost: bcrypt.MinCost, MaxDays: 7})
	require.NoError(t, err)

	res, err := s.Seed(4, 10)
	require.NoError(t, err)

	var users, posts int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	assert.EqualValues(t, 4, users)
	assert.EqualValues(t, 10, posts)

	var stored models.User
	require.NoError(t, db.First(&stored, res.Users[0].ID).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte(DefaultPassword)))

	var withCover int64
	require.NoError(t, db.Model(&models.Post{}).Where("image_url <> ''").Count(&withCover).Error)
	assert.EqualValues(t, res.ByKind[KindCover], withCover)

	require.NoError(t, s.ClearAll())
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	assert.Zero(t, users)
	assert.Zero(t, posts)
}
