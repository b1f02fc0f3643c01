package repositories

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"bikeshop/internal/models"

	"github.com/google/uuid"
)

// MockUserRepository is an in-memory implementation of UserRepository.
type MockUserRepository struct {
	users map[string]models.User
	mu    sync.RWMutex
}

// NewMockUserRepository creates a new instance of MockUserRepository.
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		users: make(map[string]models.User),
	}
}

// Create adds a new user, enforcing unique usernames and emails.
func (r *MockUserRepository) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return fmt.Errorf("user %s: %w", user.Username, ErrDuplicate)
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	user.CreatedAt = time.Now()
	r.users[user.ID] = *user
	return nil
}

// GetByUsername returns a user by username.
func (r *MockUserRepository) GetByUsername(username string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Username == username }, "username", username)
}

// GetByEmail returns a user by email.
func (r *MockUserRepository) GetByEmail(email string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.Email == email }, "email", email)
}

// GetByID returns a user by ID.
func (r *MockUserRepository) GetByID(id string) (*models.User, error) {
	return r.find(func(u models.User) bool { return u.ID == id }, "id", id)
}

// GetAll returns all users ordered by username.
func (r *MockUserRepository) GetAll() ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userList := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		userList = append(userList, u)
	}
	sort.Slice(userList, func(i, j int) bool { return userList[i].Username < userList[j].Username })
	return userList, nil
}

// Count returns the number of stored users.
func (r *MockUserRepository) Count() (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.users)), nil
}

func (r *MockUserRepository) find(match func(models.User) bool, field, value string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			user := u
			return &user, nil
		}
	}
	return nil, fmt.Errorf("user with %s %s: %w", field, value, ErrNotFound)
}
