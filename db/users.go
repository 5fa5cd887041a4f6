package db

import (
	"fmt"
	"log"
	"strings"
	"time"

	"agripress/models"
	"agripress/utils"
)

// --- Registration & Login ---

// Register creates a credential record and a User profile for a new email.
// Fails with ErrEmailAlreadyInUse (case-insensitive) without touching
// either collection. Bootstrap admin emails from configuration get
// SUPER_ADMIN; everyone else starts as USER with zero usage counters and
// no permissions.
func (s *Store) Register(name, email, password string) (models.User, error) {
	hash, err := utils.HashPassword(password, s.cfg.BcryptCost)
	if err != nil {
		return models.User{}, err
	}

	now := time.Now().UTC()
	id := utils.GenerateDashlessUUID()

	cred := models.Credential{
		ID:           id,
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		CreationDate: now,
	}
	user := models.User{
		ID:               id,
		Email:            email,
		Name:             name,
		Role:             s.roleFor(email),
		CreationDate:     now,
		LastModifiedDate: now,
	}

	// Both collections are written under one lock hold so a duplicate-email
	// failure can never leave a partial credential/user pair behind.
	s.mu.Lock()
	creds, err := decodeLocked[models.Credential](s, models.ColCredentials)
	if err != nil {
		s.mu.Unlock()
		return models.User{}, err
	}
	for _, existing := range creds {
		if strings.EqualFold(existing.Email, email) {
			s.mu.Unlock()
			return models.User{}, fmt.Errorf("cannot register '%s': %w", email, ErrEmailAlreadyInUse)
		}
	}
	users, err := decodeLocked[models.User](s, models.ColUsers)
	if err != nil {
		s.mu.Unlock()
		return models.User{}, err
	}

	credSnapshot, err := storeLocked(s, models.ColCredentials, append(creds, cred))
	if err != nil {
		s.mu.Unlock()
		return models.User{}, err
	}
	userSnapshot, err := storeLocked(s, models.ColUsers, append(users, user))
	if err != nil {
		s.mu.Unlock()
		return models.User{}, err
	}
	s.mu.Unlock()

	s.bus.publish(models.ColCredentials, credSnapshot)
	s.bus.publish(models.ColUsers, userSnapshot)
	s.requestSave()

	log.Printf("INFO: Registered user ID: %s, Email: %s, Role: %s", id, email, user.Role)
	return user, nil
}

// Authenticate checks an email+password pair against the credentials
// collection. Unknown email and wrong password both return
// ErrInvalidCredential so the response cannot reveal which failed.
func (s *Store) Authenticate(email, password string) (models.Credential, error) {
	for _, cred := range Records[models.Credential](s, models.ColCredentials) {
		if strings.EqualFold(cred.Email, email) {
			if utils.CheckPasswordHash(password, cred.PasswordHash) {
				return cred, nil
			}
			return models.Credential{}, ErrInvalidCredential
		}
	}
	return models.Credential{}, ErrInvalidCredential
}

// SyncUser reconciles a session identity to a User record: the profile is
// created if missing, and bootstrap admin emails are promoted to
// SUPER_ADMIN. Called by the role middleware on every protected request,
// so the role is always read fresh from the users collection.
func (s *Store) SyncUser(id, email string) (models.User, error) {
	// Fast path: a profile that needs no promotion is a pure read.
	if u, ok := s.GetUserByID(id); ok {
		if !s.cfg.IsBootstrapAdmin(u.Email) || u.Role == models.RoleSuperAdmin {
			return u, nil
		}
	}

	var synced models.User
	err := mutate(s, models.ColUsers, func(users []models.User) ([]models.User, error) {
		for i, u := range users {
			if u.ID == id {
				if s.cfg.IsBootstrapAdmin(u.Email) && u.Role != models.RoleSuperAdmin {
					users[i].Role = models.RoleSuperAdmin
					users[i].LastModifiedDate = time.Now().UTC()
					log.Printf("INFO: Promoted bootstrap admin %s to SUPER_ADMIN", u.Email)
				}
				synced = users[i]
				return users, nil
			}
		}
		now := time.Now().UTC()
		synced = models.User{
			ID:               id,
			Email:            email,
			Role:             s.roleFor(email),
			CreationDate:     now,
			LastModifiedDate: now,
		}
		log.Printf("INFO: Created user profile for session identity %s (%s)", id, email)
		return append(users, synced), nil
	})
	if err != nil {
		return models.User{}, err
	}
	return synced, nil
}

// roleFor returns the initial role for an email, applying the bootstrap
// admin configuration.
func (s *Store) roleFor(email string) models.Role {
	if s.cfg.IsBootstrapAdmin(email) {
		return models.RoleSuperAdmin
	}
	return models.RoleUser
}

// --- User CRUD ---

// GetUserByID retrieves a user by id.
func (s *Store) GetUserByID(id string) (models.User, bool) {
	for _, u := range Records[models.User](s, models.ColUsers) {
		if u.ID == id {
			return u, true
		}
	}
	return models.User{}, false
}

// GetUserByEmail retrieves a user by email (case-insensitive).
func (s *Store) GetUserByEmail(email string) (models.User, bool) {
	for _, u := range Records[models.User](s, models.ColUsers) {
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return models.User{}, false
}

// GetAllUsers retrieves every user profile.
func (s *Store) GetAllUsers() []models.User {
	return Records[models.User](s, models.ColUsers)
}

// UpdateUser replaces the user with matching id, preserving id, email,
// role, and creation date. Returns ErrNotFound for an unknown id.
func (s *Store) UpdateUser(id string, updated models.User) (models.User, error) {
	var result models.User
	err := mutate(s, models.ColUsers, func(users []models.User) ([]models.User, error) {
		for i, u := range users {
			if u.ID == id {
				updated.ID = u.ID
				updated.Email = u.Email
				updated.Role = u.Role
				updated.CreationDate = u.CreationDate
				updated.LastModifiedDate = time.Now().UTC()
				users[i] = updated
				result = users[i]
				return users, nil
			}
		}
		return nil, fmt.Errorf("user '%s': %w", id, ErrNotFound)
	})
	if err != nil {
		return models.User{}, err
	}
	log.Printf("INFO: Updated user ID: %s", id)
	return result, nil
}

// UpdateUserRole sets a user's role. Returns ErrNotFound for an unknown id.
func (s *Store) UpdateUserRole(id string, role models.Role) (models.User, error) {
	var result models.User
	err := mutate(s, models.ColUsers, func(users []models.User) ([]models.User, error) {
		for i, u := range users {
			if u.ID == id {
				users[i].Role = role
				users[i].LastModifiedDate = time.Now().UTC()
				result = users[i]
				return users, nil
			}
		}
		return nil, fmt.Errorf("user '%s': %w", id, ErrNotFound)
	})
	if err != nil {
		return models.User{}, err
	}
	log.Printf("INFO: Set role %s on user ID: %s", role, id)
	return result, nil
}

// DeleteUser permanently removes a user and their credential. Removal is
// not recoverable. Returns ErrNotFound when neither record exists.
func (s *Store) DeleteUser(id string) error {
	s.mu.Lock()
	users, err := decodeLocked[models.User](s, models.ColUsers)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	creds, err := decodeLocked[models.Credential](s, models.ColCredentials)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	remainingUsers := make([]models.User, 0, len(users))
	found := false
	for _, u := range users {
		if u.ID == id {
			found = true
			continue
		}
		remainingUsers = append(remainingUsers, u)
	}
	remainingCreds := make([]models.Credential, 0, len(creds))
	for _, cr := range creds {
		if cr.ID == id {
			found = true
			continue
		}
		remainingCreds = append(remainingCreds, cr)
	}
	if !found {
		s.mu.Unlock()
		return fmt.Errorf("user '%s': %w", id, ErrNotFound)
	}

	userSnapshot, err := storeLocked(s, models.ColUsers, remainingUsers)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	credSnapshot, err := storeLocked(s, models.ColCredentials, remainingCreds)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.bus.publish(models.ColUsers, userSnapshot)
	s.bus.publish(models.ColCredentials, credSnapshot)
	s.requestSave()

	log.Printf("INFO: Deleted user ID: %s", id)
	return nil
}

// --- Download gating ---

// AuthorizeArticleDownload enforces the download gate for an article or
// blog post. FREE records always pass without touching counters.
// SUBSCRIBERS_ONLY records require an unexpired subscription with the
// matching download permission and an unexhausted per-type counter; on
// success the counter is incremented. A limit of zero or below means
// unlimited.
func (s *Store) AuthorizeArticleDownload(userID string, article models.Article) error {
	if article.DownloadAccess == models.AccessFree {
		return nil
	}

	return mutate(s, models.ColUsers, func(users []models.User) ([]models.User, error) {
		for i, u := range users {
			if u.ID != userID {
				continue
			}
			if !u.HasActiveSubscription() {
				return nil, ErrSubscriptionRequired
			}
			switch article.Type {
			case models.TypeBlog:
				if !u.Permissions.CanDownloadBlogs {
					return nil, ErrSubscriptionRequired
				}
				if u.BlogLimit > 0 && u.BlogUsage >= u.BlogLimit {
					return nil, ErrDownloadLimitReached
				}
				users[i].BlogUsage++
			default:
				if !u.Permissions.CanDownloadArticles {
					return nil, ErrSubscriptionRequired
				}
				if u.ArticleLimit > 0 && u.ArticleUsage >= u.ArticleLimit {
					return nil, ErrDownloadLimitReached
				}
				users[i].ArticleUsage++
			}
			users[i].LastModifiedDate = time.Now().UTC()
			return users, nil
		}
		return nil, fmt.Errorf("user '%s': %w", userID, ErrNotFound)
	})
}

// AuthorizeMagazineDownload enforces the download gate for a magazine
// issue. Magazines carry no usage counter; the gate is subscription plus
// the magazine permission.
func (s *Store) AuthorizeMagazineDownload(userID string, magazine models.Magazine) error {
	if magazine.DownloadAccess == models.AccessFree {
		return nil
	}

	user, found := s.GetUserByID(userID)
	if !found {
		return fmt.Errorf("user '%s': %w", userID, ErrNotFound)
	}
	if !user.HasActiveSubscription() || !user.Permissions.CanDownloadMagazines {
		return ErrSubscriptionRequired
	}
	return nil
}
