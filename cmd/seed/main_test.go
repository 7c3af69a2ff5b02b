package main

import (
	"testing"
	"time"

	"taskflow/pkg/database"
	"taskflow/pkg/logger"
	"taskflow/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDatabase_Idempotent(t *testing.T) {
	db, err := database.NewSQLiteDB(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	now := time.Date(2030, 3, 7, 10, 0, 0, 0, time.UTC)
	require.NoError(t, seedDatabase(db, now, logger.New()))
	require.NoError(t, seedDatabase(db, now, logger.New()))

	var users, projects, subProjects, tasks, members int64
	db.Model(&models.User{}).Count(&users)
	db.Model(&models.Project{}).Count(&projects)
	db.Model(&models.SubProject{}).Count(&subProjects)
	db.Model(&models.Task{}).Count(&tasks)
	db.Model(&models.Member{}).Count(&members)

	assert.Equal(t, int64(4), users)
	assert.Equal(t, int64(1), projects)
	assert.Equal(t, int64(2), subProjects)
	assert.Equal(t, int64(4), tasks)
	assert.Equal(t, int64(4), members)

	var charlie models.User
	require.NoError(t, db.Where("username = ?", "charlie").First(&charlie).Error)
	assert.False(t, charlie.WantsNotification("DUE_DATE_PROJECT"))
	assert.True(t, charlie.WantsNotification("OVERDUE_TASK"))
}
