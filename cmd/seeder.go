package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf/internal/authz"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with roles, permissions and sample data",
	Long:  `Seed the database with the permission catalog, default roles and sample users for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		db, err := gorm.Open(postgres.Open(cfg.Database.Source), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to open db: %v", err)
		}

		if clearData {
			for _, table := range []string{"user_roles", "role_permissions", "audit_logs"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared role assignments and audit logs")
		}

		// Permission catalog.
		for _, p := range authz.Catalog() {
			var pid int64
			if err := db.Raw("SELECT id FROM permissions WHERE name = ?", p.Label).Row().Scan(&pid); err == nil {
				continue
			}
			if err := db.Exec("INSERT INTO permissions (name, description, created_at) VALUES (?, ?, now())", p.Label, p.Description).Error; err != nil {
				log.Fatalf("failed to insert permission %s: %v", p.Label, err)
			}
			fmt.Println("Seeded permission:", p.Label)
		}

		// Roles and their permission grants.
		rolePermissions := map[string][]string{
			"admin": {authz.PermAdmin},
			"librarian": {
				authz.PermCreateAuthor, authz.PermUpdateAuthor, authz.PermDeleteAuthor,
				authz.PermCreateBook, authz.PermUpdateBook, authz.PermDeleteBook,
				authz.PermCreateGenre, authz.PermUpdateGenre, authz.PermDeleteGenre,
				authz.PermManageNotices,
			},
			"member": {},
		}

		for roleName, perms := range rolePermissions {
			roleID := ensureRole(db, roleName)
			for _, permName := range perms {
				var pid int64
				if err := db.Raw("SELECT id FROM permissions WHERE name = ?", permName).Row().Scan(&pid); err != nil {
					log.Fatalf("permission not found after insert %s: %v", permName, err)
				}
				var exists int
				if err := db.Raw("SELECT 1 FROM role_permissions WHERE role_id = ? AND permission_id = ?", roleID, pid).Row().Scan(&exists); err == nil {
					continue
				}
				if err := db.Exec("INSERT INTO role_permissions (role_id, permission_id, created_at) VALUES (?, ?, now())", roleID, pid).Error; err != nil {
					log.Fatalf("failed to grant %s to role %s: %v", permName, roleName, err)
				}
			}
			fmt.Printf("Seeded role %s with %d permissions\n", roleName, len(perms))
		}

		// Sample users, one per role.
		password := "password"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		users := []struct {
			Email string
			Name  string
			Role  string
		}{
			{"admin@openshelf.dev", "Site Admin", "admin"},
			{"libby@openshelf.dev", "Libby Librarian", "librarian"},
			{"reader@openshelf.dev", "Randy Reader", "member"},
		}

		for _, u := range users {
			var uid int64
			if err := db.Raw("SELECT id FROM users WHERE email = ?", u.Email).Row().Scan(&uid); err != nil {
				if err := db.Exec("INSERT INTO users (email, name, password_hash, is_active, created_at, updated_at) VALUES (?, ?, ?, true, now(), now())", u.Email, u.Name, string(hash)).Error; err != nil {
					log.Fatalf("failed to insert user %s: %v", u.Email, err)
				}
				if err := db.Raw("SELECT id FROM users WHERE email = ?", u.Email).Row().Scan(&uid); err != nil {
					log.Fatalf("failed to lookup user %s: %v", u.Email, err)
				}
				fmt.Println("Seeded user:", u.Email)
			}

			roleID := ensureRole(db, u.Role)
			var exists int
			if err := db.Raw("SELECT 1 FROM user_roles WHERE user_id = ? AND role_id = ?", uid, roleID).Row().Scan(&exists); err == nil {
				continue
			}
			if err := db.Exec("INSERT INTO user_roles (user_id, role_id, created_at) VALUES (?, ?, now())", uid, roleID).Error; err != nil {
				log.Fatalf("failed to assign role %s to %s: %v", u.Role, u.Email, err)
			}
			fmt.Printf("Assigned role %s to %s\n", u.Role, u.Email)
		}

		// Starter genres.
		genres := []struct {
			Name string
			Desc string
		}{
			{"fiction", "Novels and short stories"},
			{"non-fiction", "Essays, history and biography"},
			{"science-fiction", "Speculative and science fiction"},
			{"fantasy", "Fantasy and mythology"},
			{"poetry", "Poetry collections"},
		}

		for _, g := range genres {
			var exists int
			if err := db.Raw("SELECT 1 FROM genres WHERE name = ?", g.Name).Row().Scan(&exists); err == nil {
				continue
			}
			if err := db.Exec("INSERT INTO genres (name, description, created_at, updated_at) VALUES (?, ?, now(), now())", g.Name, g.Desc).Error; err != nil {
				log.Fatalf("failed to insert genre %s: %v", g.Name, err)
			}
			fmt.Println("Seeded genre:", g.Name)
		}

		fmt.Println("Database seeded successfully")
	},
}

func ensureRole(db *gorm.DB, name string) int64 {
	var id int64
	if err := db.Raw("SELECT id FROM roles WHERE name = ?", name).Row().Scan(&id); err == nil {
		return id
	}
	if err := db.Exec("INSERT INTO roles (name, created_at) VALUES (?, now())", name).Error; err != nil {
		log.Fatalf("failed to insert role %s: %v", name, err)
	}
	if err := db.Raw("SELECT id FROM roles WHERE name = ?", name).Row().Scan(&id); err != nil {
		log.Fatalf("failed to lookup role %s: %v", name, err)
	}
	return id
}
