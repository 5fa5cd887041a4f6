package api

import (
	"errors"
	"fmt"
	"net/http"

	"agripress/config"
	"agripress/db"
	"agripress/utils"

	"github.com/gin-gonic/gin"
)

// --- Signup ---

// SignupRequest defines the expected body for account creation.
type SignupRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// SignupHandler creates a credential and its matching user profile.
// @Summary      Create a New Account
// @Description  Registers a new user with a name, email, and password (minimum 8 characters).
// @Description  The email must not already be in use; comparison is case-insensitive.
// @Description  Accounts whose email appears in the bootstrap admin list are created with the SUPER_ADMIN role.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        account body SignupRequest true "Name, email, and password for the new account."
// @Success      201  {object}  models.User "Account created. The response contains the new user profile."
// @Failure      400  {object}  utils.APIError "Bad Request: missing or malformed fields, or password shorter than 8 characters."
// @Failure      409  {object}  utils.APIError "Conflict: the email address is already registered."
// @Failure      500  {object}  utils.APIError "Internal Server Error."
// @Router       /auth/signup [post]
func SignupHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	user, err := store.Register(req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, db.ErrEmailAlreadyInUse) {
			utils.GinConflict(c, "An account with this email already exists.")
			return
		}
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to create account: %v", err))
		return
	}

	c.JSON(http.StatusCreated, user)
}

// --- Login ---

// LoginRequest defines the expected body for login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the access token and the resolved user profile.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"` // Always "Bearer"
	User        any    `json:"user"`
}

// LoginHandler verifies credentials and issues a JWT.
// @Summary      Log In
// @Description  Exchanges an email and password for a Bearer access token.
// @Description  The same error is returned whether the email is unknown or the password is wrong.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        credentials body LoginRequest true "Email and password."
// @Success      200  {object}  LoginResponse "Login succeeded. Use the access_token as 'Authorization: Bearer <token>'."
// @Failure      400  {object}  utils.APIError "Bad Request: missing or malformed fields."
// @Failure      401  {object}  utils.APIError "Unauthorized: invalid email or password."
// @Failure      500  {object}  utils.APIError "Internal Server Error."
// @Router       /auth/login [post]
func LoginHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	cred, err := store.Authenticate(req.Email, req.Password)
	if err != nil {
		if errors.Is(err, db.ErrInvalidCredential) {
			utils.GinUnauthorized(c, "Invalid email or password.")
			return
		}
		utils.GinInternalServerError(c, fmt.Sprintf("Login failed: %v", err))
		return
	}

	token, err := utils.GenerateJWT(&cred, cfg)
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to generate token: %v", err))
		return
	}

	user, err := store.SyncUser(cred.ID, cred.Email)
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to resolve profile: %v", err))
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		User:        user,
	})
}

// LogoutHandler acknowledges logout. Tokens are stateless, so the client
// discards its copy; nothing is invalidated server side.
// @Summary      Log Out
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string "Logout acknowledged."
// @Router       /auth/logout [post]
func LogoutHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	c.JSON(http.StatusOK, gin.H{"message": "Logged out."})
}

// --- Own profile ---

// GetMyProfileHandler returns the authenticated user's profile.
// @Summary      Get My Profile
// @Description  Returns the profile of the currently authenticated user, including role, subscription state, and download entitlements.
// @Tags         Profile
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.User
// @Failure      401  {object}  utils.APIError "Unauthorized: access token missing, invalid, or expired."
// @Failure      500  {object}  utils.APIError "Internal Server Error."
// @Router       /me [get]
func GetMyProfileHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	userID, email, ok := requireIdentity(c)
	if !ok {
		return
	}

	user, err := store.SyncUser(userID, email)
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to resolve profile: %v", err))
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateMyProfileRequest defines the editable profile fields. Role,
// subscription state, and usage counters are server managed and ignored.
type UpdateMyProfileRequest struct {
	Name      string `json:"name" binding:"required"`
	AvatarURL string `json:"avatar_url"`
}

// UpdateMyProfileHandler updates the caller's own profile.
// @Summary      Update My Profile
// @Description  Updates the caller's display name and avatar. Identity, role, and subscription fields cannot be changed here.
// @Tags         Profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        profile body UpdateMyProfileRequest true "New profile fields."
// @Success      200  {object}  models.User "The updated profile."
// @Failure      400  {object}  utils.APIError "Bad Request."
// @Failure      401  {object}  utils.APIError "Unauthorized."
// @Failure      500  {object}  utils.APIError "Internal Server Error."
// @Router       /me [put]
func UpdateMyProfileHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	userID, email, ok := requireIdentity(c)
	if !ok {
		return
	}

	var req UpdateMyProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	current, err := store.SyncUser(userID, email)
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to resolve profile: %v", err))
		return
	}

	current.Name = req.Name
	current.AvatarURL = req.AvatarURL
	updated, err := store.UpdateUser(userID, current)
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to update profile: %v", err))
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteMyProfileHandler deletes the caller's account.
// @Summary      Delete My Account
// @Description  Permanently removes the caller's credential and profile. This cannot be undone.
// @Tags         Profile
// @Security     BearerAuth
// @Success      204  "Account deleted."
// @Failure      401  {object}  utils.APIError "Unauthorized."
// @Failure      500  {object}  utils.APIError "Internal Server Error."
// @Router       /me [delete]
func DeleteMyProfileHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	userID, _, ok := requireIdentity(c)
	if !ok {
		return
	}

	if err := store.DeleteUser(userID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.Status(http.StatusNoContent)
			return
		}
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to delete account: %v", err))
		return
	}
	c.Status(http.StatusNoContent)
}

// requireIdentity pulls the user id and email set by the auth middleware,
// aborting with 500 if they are missing (a wiring bug, not a client error).
func requireIdentity(c *gin.Context) (userID, email string, ok bool) {
	id, exists := c.Get("userID")
	if !exists {
		utils.GinInternalServerError(c, "User ID not found in context.")
		return "", "", false
	}
	em, exists := c.Get("userEmail")
	if !exists {
		utils.GinInternalServerError(c, "User email not found in context.")
		return "", "", false
	}
	return id.(string), em.(string), true
}
