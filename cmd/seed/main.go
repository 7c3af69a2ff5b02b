package main

import (
	"errors"
	"flag"
	"fmt"
	"time"

	"taskflow/pkg/config"
	"taskflow/pkg/database"
	"taskflow/pkg/logger"
	"taskflow/pkg/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	var migrate bool
	flag.BoolVar(&migrate, "migrate", true, "create the shared tables before seeding")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	log := logger.New()
	db, err := database.Open(cfg)
	if err != nil {
		log.Error("Failed to connect to database: %v", err)
		panic(err)
	}

	if migrate {
		if err := database.Migrate(db); err != nil {
			log.Error("Failed to migrate database: %v", err)
			panic(err)
		}
	}

	if err := seedDatabase(db, time.Now().In(cfg.Location), log); err != nil {
		log.Error("Failed to seed database: %v", err)
		panic(err)
	}

	log.Info("Database seeded successfully!")
}

// seedDatabase creates a small team whose work items land in every reminder
// bucket relative to now: due in two days, overdue, and far in the future.
func seedDatabase(db *gorm.DB, now time.Time, log *logger.Logger) error {
	testUsers := []struct {
		email    string
		username string
		password string
		role     models.UserRole
		prefs    map[string]interface{}
	}{
		{"alice@test.com", "alice", "password123", models.RoleAdmin, nil},
		{"bob@test.com", "bob", "password123", models.RoleMember, nil},
		{"charlie@test.com", "charlie", "password123", models.RoleMember, map[string]interface{}{"DUE_DATE_PROJECT": false}},
		{"diana@test.com", "diana", "password123", models.RoleMember, map[string]interface{}{"OVERDUE_SUBPROJECT": false}},
	}

	userIDs := make([]string, 0, len(testUsers))
	for _, userData := range testUsers {
		var existingUser models.User
		result := db.Where("email = ? OR username = ?", userData.email, userData.username).First(&existingUser)
		if result.Error == nil {
			log.Info("User %s already exists, skipping", existingUser.Username)
			userIDs = append(userIDs, existingUser.ID)
			continue
		}
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up user %s: %w", userData.username, result.Error)
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(userData.password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}

		user := &models.User{
			Email:                   userData.email,
			Username:                userData.username,
			Password:                string(hashedPassword),
			Role:                    userData.role,
			NotificationPreferences: userData.prefs,
		}
		if err := db.Create(user).Error; err != nil {
			return fmt.Errorf("failed to create user %s: %w", userData.username, err)
		}

		log.Info("Created user: %s (%s)", user.Username, user.Email)
		userIDs = append(userIDs, user.ID)
	}

	alice, bob, charlie, diana := userIDs[0], userIDs[1], userIDs[2], userIDs[3]
	day := func(offset int) *time.Time {
		d := time.Date(now.Year(), now.Month(), now.Day()+offset, 17, 0, 0, 0, now.Location())
		return &d
	}

	var existing int64
	if err := db.Model(&models.Project{}).Where("owner_id = ?", alice).Count(&existing).Error; err != nil {
		return fmt.Errorf("failed to count projects: %w", err)
	}
	if existing > 0 {
		log.Info("Work items already seeded, skipping")
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		project := &models.Project{
			OwnerID: alice,
			Title:   "Website relaunch",
			Status:  models.StatusInProgress,
			DueDate: day(2),
			Members: []models.Member{{UserID: bob}, {UserID: charlie}},
		}
		if err := tx.Create(project).Error; err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}

		subProjects := []*models.SubProject{
			{ProjectID: project.ID, OwnerID: bob, Title: "Content migration", Status: models.StatusToDo, DueDate: day(-1),
				Members: []models.Member{{UserID: diana}, {UserID: charlie}}},
			{ProjectID: project.ID, OwnerID: alice, Title: "Launch checklist", Status: models.StatusToDo, DueDate: day(30)},
		}
		for _, sp := range subProjects {
			if err := tx.Create(sp).Error; err != nil {
				return fmt.Errorf("failed to create subproject %q: %w", sp.Title, err)
			}
		}

		tasks := []*models.Task{
			{OwnerID: bob, ProjectID: &project.ID, Title: "Write release notes", Status: models.StatusToDo, DueDate: day(2)},
			{OwnerID: charlie, Title: "Renew TLS certificate", Status: models.StatusInProgress, DueDate: day(-3)},
			{OwnerID: diana, Title: "Archive old tickets", Status: models.StatusCompleted, DueDate: day(-5)},
			{OwnerID: alice, Title: "Plan Q3 roadmap", Status: models.StatusToDo},
		}
		for _, task := range tasks {
			if err := tx.Create(task).Error; err != nil {
				return fmt.Errorf("failed to create task %q: %w", task.Title, err)
			}
		}

		subTasks := []*models.SubTask{
			{TaskID: tasks[0].ID, OwnerID: bob, Title: "Collect changelog entries", Status: models.StatusToDo, DueDate: day(2)},
			{TaskID: tasks[1].ID, OwnerID: charlie, Title: "Order certificate", Status: models.StatusToDo, DueDate: day(-2)},
		}
		for _, st := range subTasks {
			if err := tx.Create(st).Error; err != nil {
				return fmt.Errorf("failed to create subtask %q: %w", st.Title, err)
			}
		}

		log.Info("Seeded 1 project, %d subprojects, %d tasks, %d subtasks", len(subProjects), len(tasks), len(subTasks))
		return nil
	})
}
