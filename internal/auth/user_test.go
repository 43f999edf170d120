package auth

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
)

func TestUserStore(t *testing.T) {
	usersFile := filepath.Join(t.TempDir(), "users.toml")

	store, err := NewUserStore(usersFile)
	if err != nil {
		t.Fatalf("Failed to create user store: %v", err)
	}

	t.Run("DefaultAdminCreated", func(t *testing.T) {
		admin := store.GetUser("admin")
		if admin == nil {
			t.Fatal("Expected default admin user")
		}
		if admin.Role != RoleAdmin {
			t.Errorf("Expected role admin, got %s", admin.Role)
		}
		if admin.Password != "" {
			t.Error("GetUser should not expose the password hash")
		}
	})

	t.Run("CreateAndAuthenticate", func(t *testing.T) {
		if err := store.CreateUser("operator", "secret-password", RoleEditor); err != nil {
			t.Fatalf("Failed to create user: %v", err)
		}

		if !store.Authenticate("operator", "secret-password") {
			t.Error("Expected authentication to succeed")
		}
		if store.Authenticate("operator", "wrong-password") {
			t.Error("Expected wrong password to fail")
		}
		if store.Authenticate("nobody", "secret-password") {
			t.Error("Expected unknown user to fail")
		}
	})

	t.Run("DuplicateUser", func(t *testing.T) {
		if err := store.CreateUser("operator", "another", RoleViewer); err == nil {
			t.Error("Expected error creating duplicate user")
		}
	})

	t.Run("InvalidRole", func(t *testing.T) {
		if err := store.CreateUser("weird", "password123", "superuser"); err == nil {
			t.Error("Expected error for unknown role")
		}
	})

	t.Run("SetPassword", func(t *testing.T) {
		if err := store.SetPassword("operator", "new-password"); err != nil {
			t.Fatalf("Failed to set password: %v", err)
		}
		if store.Authenticate("operator", "secret-password") {
			t.Error("Old password should no longer work")
		}
		if !store.Authenticate("operator", "new-password") {
			t.Error("New password should work")
		}
	})

	t.Run("DeleteUser", func(t *testing.T) {
		if err := store.DeleteUser("operator"); err != nil {
			t.Fatalf("Failed to delete user: %v", err)
		}
		if store.GetUser("operator") != nil {
			t.Error("Expected user to be gone")
		}
		if err := store.DeleteUser("operator"); err == nil {
			t.Error("Expected error deleting missing user")
		}
	})

	t.Run("PersistsAcrossReload", func(t *testing.T) {
		if err := store.CreateUser("viewer1", "view-password", RoleViewer); err != nil {
			t.Fatalf("Failed to create user: %v", err)
		}

		reloaded, err := NewUserStore(usersFile)
		if err != nil {
			t.Fatalf("Failed to reload user store: %v", err)
		}
		if !reloaded.Authenticate("viewer1", "view-password") {
			t.Error("Expected reloaded store to authenticate persisted user")
		}
		user := reloaded.GetUser("viewer1")
		if user == nil || user.Role != RoleViewer {
			t.Errorf("Unexpected reloaded user: %+v", user)
		}
	})
}

func TestUserStoreConcurrentAccess(t *testing.T) {
	usersFile := filepath.Join(t.TempDir(), "users.toml")

	store, err := NewUserStore(usersFile)
	if err != nil {
		t.Fatalf("Failed to create user store: %v", err)
	}
	if err := store.CreateUser("operator", "secret-password", RoleEditor); err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}

	// Logins and listings racing admin edits on the same store
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				store.Authenticate("operator", "secret-password")
				store.GetUser("operator")
				store.ListUsers()
			}
		}()
		go func(n int) {
			defer wg.Done()
			name := fmt.Sprintf("temp%d", n)
			if err := store.CreateUser(name, "temp-password", RoleViewer); err != nil {
				t.Errorf("Failed to create %s: %v", name, err)
				return
			}
			if err := store.DeleteUser(name); err != nil {
				t.Errorf("Failed to delete %s: %v", name, err)
			}
		}(i)
	}
	wg.Wait()

	if !store.Authenticate("operator", "secret-password") {
		t.Error("Expected surviving user to still authenticate")
	}
	for i := 0; i < 4; i++ {
		if store.GetUser(fmt.Sprintf("temp%d", i)) != nil {
			t.Errorf("Expected temp%d to be gone", i)
		}
	}
}

func TestPasswordHashing(t *testing.T) {
	t.Run("HashDetection", func(t *testing.T) {
		hash, err := hashPassword("hello")
		if err != nil {
			t.Fatalf("Failed to hash password: %v", err)
		}
		if !isHashedPassword(hash) {
			t.Error("Expected bcrypt output to be detected as hashed")
		}
		if isHashedPassword("plaintext") {
			t.Error("Plaintext should not look hashed")
		}
	})

	t.Run("RandomPasswordLength", func(t *testing.T) {
		password, err := generateRandomPassword(12)
		if err != nil {
			t.Fatalf("Failed to generate password: %v", err)
		}
		if len(password) != 12 {
			t.Errorf("Expected 12 characters, got %d", len(password))
		}
	})
}
