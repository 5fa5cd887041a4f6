package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"agripress/config"
	"agripress/db"
	"agripress/models"
	"agripress/utils"

	"github.com/gin-gonic/gin"
)

// --- User administration ---

// ListUsersHandler returns every user profile.
// @Summary      List Users (Admin)
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  models.User
// @Failure      403  {object}  utils.APIError "Forbidden: requires ADMIN role or above."
// @Router       /admin/users [get]
func ListUsersHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	c.JSON(http.StatusOK, store.GetAllUsers())
}

// UpdateUserRoleRequest carries the new role assignment.
type UpdateUserRoleRequest struct {
	Role models.Role `json:"role" binding:"required"`
}

// UpdateUserRoleHandler changes a user's role. Only a SUPER_ADMIN may do
// this, and may not demote themselves.
// @Summary      Change a User's Role (Super Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                true "User ID."
// @Param        role body UpdateUserRoleRequest true "New role: USER, EDITOR, ADMIN, or SUPER_ADMIN."
// @Success      200  {object}  models.User
// @Failure      400  {object}  utils.APIError "Bad Request: unknown role, or attempting to change your own role."
// @Failure      403  {object}  utils.APIError "Forbidden: requires SUPER_ADMIN role."
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /admin/users/{id}/role [patch]
func UpdateUserRoleHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	callerID, _, ok := requireIdentity(c)
	if !ok {
		return
	}
	targetID := c.Param("id")
	if targetID == callerID {
		utils.GinBadRequest(c, "You cannot change your own role.")
		return
	}

	var req UpdateUserRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	switch req.Role {
	case models.RoleUser, models.RoleEditor, models.RoleAdmin, models.RoleSuperAdmin:
	default:
		utils.GinBadRequest(c, fmt.Sprintf("Unknown role '%s'.", req.Role))
		return
	}

	updated, err := store.UpdateUserRole(targetID, req.Role)
	if err != nil {
		respondStoreError(c, err, "User", targetID)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// DeleteUserHandler removes a user's credential and profile.
// @Summary      Delete a User (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Param        id path string true "User ID."
// @Success      204  "Deleted."
// @Failure      400  {object}  utils.APIError "Bad Request: attempting to delete your own account here."
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /admin/users/{id} [delete]
func DeleteUserHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	callerID, _, ok := requireIdentity(c)
	if !ok {
		return
	}
	targetID := c.Param("id")
	if targetID == callerID {
		utils.GinBadRequest(c, "Use the profile endpoint to delete your own account.")
		return
	}

	if err := store.DeleteUser(targetID); err != nil {
		respondStoreError(c, err, "User", targetID)
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Record browser ---

// QueryRecordsResponse is the paginated payload of the record browser.
type QueryRecordsResponse struct {
	Data  []json.RawMessage `json:"data"`
	Total int               `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

// QueryRecordsHandler exposes raw collection records with filtering,
// sorting, and pagination for the admin console.
// @Summary      Browse Collection Records (Admin)
// @Description  Returns the raw records of one named collection. Supports a clause-based filter language via
// @Description  repeated `filter` parameters alternating clauses with `and`/`or`, for example:
// @Description  `?filter=status equals PUBLISHED&filter=and&filter=type equals BLOG`.
// @Description  Operators: equals, notequals, greaterthan, lessthan, greaterthanorequals, lessthanorequals,
// @Description  contains, startswith, endswith, each optionally suffixed `-insensitive` where it applies.
// @Tags         Admin
// @Produce      json
// @Security     BearerAuth
// @Param        collection path  string   true  "Collection name, e.g. 'articles'."
// @Param        filter     query []string false "Filter clauses." collectionFormat(multi)
// @Param        sort_by    query string   false "Field path to sort by."
// @Param        order      query string   false "Sort direction." Enums(asc, desc) default(asc)
// @Param        page       query int      false "Page number, starting at 1." default(1)
// @Param        limit      query int      false "Records per page, max 100." default(20)
// @Success      200  {object}  QueryRecordsResponse
// @Failure      400  {object}  utils.APIError "Bad Request: invalid filter syntax, sort, or pagination."
// @Failure      404  {object}  utils.APIError "Not Found: unknown collection."
// @Router       /admin/records/{collection} [get]
func QueryRecordsHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	page, errPage := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, errLimit := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if errPage != nil || errLimit != nil || page < 1 {
		utils.GinBadRequest(c, "Invalid 'page' or 'limit' query parameter. Must be positive integers.")
		return
	}

	params := db.QueryRecordsParams{
		Filter: c.QueryArray("filter"),
		SortBy: c.Query("sort_by"),
		Order:  c.DefaultQuery("order", "asc"),
		Page:   page,
		Limit:  limit,
	}

	records, total, err := store.QueryRecords(c.Param("collection"), params)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrNotFound):
			utils.GinNotFound(c, fmt.Sprintf("Collection '%s' not found.", c.Param("collection")))
		case strings.Contains(err.Error(), "invalid filter") ||
			strings.Contains(err.Error(), "invalid order value"):
			utils.GinBadRequest(c, err.Error())
		default:
			utils.GinInternalServerError(c, fmt.Sprintf("Failed to query records: %v", err))
		}
		return
	}

	c.JSON(http.StatusOK, QueryRecordsResponse{
		Data:  records,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// --- Inquiries ---

// ListInquiriesHandler returns every contact inquiry.
// @Summary      List Inquiries (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Success      200  {array}  models.Inquiry
// @Router       /admin/inquiries [get]
func ListInquiriesHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	c.JSON(http.StatusOK, store.GetAllInquiries())
}

// ResolveInquiryHandler marks an inquiry resolved.
// @Summary      Resolve an Inquiry (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Param        id path string true "Inquiry ID."
// @Success      200  {object}  models.Inquiry
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /admin/inquiries/{id}/resolve [post]
func ResolveInquiryHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	var target models.Inquiry
	found := false
	for _, i := range store.GetAllInquiries() {
		if i.ID == c.Param("id") {
			target = i
			found = true
			break
		}
	}
	if !found {
		utils.GinNotFound(c, fmt.Sprintf("Inquiry with ID '%s' not found.", c.Param("id")))
		return
	}

	target.Resolved = true
	if err := store.UpdateInquiry(target); err != nil {
		respondStoreError(c, err, "Inquiry", target.ID)
		return
	}
	c.JSON(http.StatusOK, target)
}

// DeleteInquiryHandler removes an inquiry.
// @Summary      Delete an Inquiry (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Param        id path string true "Inquiry ID."
// @Success      204  "Deleted."
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /admin/inquiries/{id} [delete]
func DeleteInquiryHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	if err := store.DeleteInquiry(c.Param("id")); err != nil {
		respondStoreError(c, err, "Inquiry", c.Param("id"))
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Notifications ---

// ListMyNotificationsHandler returns the caller's notifications. Admins
// also receive broadcast notifications (those without a user id).
// @Summary      List My Notifications
// @Tags         Profile
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}  models.Notification
// @Failure      401  {object}  utils.APIError "Unauthorized."
// @Router       /notifications [get]
func ListMyNotificationsHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	userID, email, ok := requireIdentity(c)
	if !ok {
		return
	}

	user, err := store.SyncUser(userID, email)
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to resolve profile: %v", err))
		return
	}
	includeBroadcast := user.Role.AtLeast(models.RoleAdmin)
	c.JSON(http.StatusOK, store.GetNotificationsForUser(userID, includeBroadcast))
}

// MarkNotificationReadHandler flags a notification as read.
// @Summary      Mark a Notification Read
// @Tags         Profile
// @Security     BearerAuth
// @Param        id path string true "Notification ID."
// @Success      204  "Marked read."
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /notifications/{id}/read [post]
func MarkNotificationReadHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	if err := store.MarkNotificationRead(c.Param("id")); err != nil {
		respondStoreError(c, err, "Notification", c.Param("id"))
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateNotificationHandler pushes a notification to one user, or to
// admins when user_id is omitted.
// @Summary      Send a Notification (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Param        notification body models.Notification true "The notification. Omit user_id for an admin broadcast."
// @Success      201  {object}  models.Notification
// @Failure      400  {object}  utils.APIError "Bad Request."
// @Router       /admin/notifications [post]
func CreateNotificationHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	var req models.Notification
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.Title == "" {
		utils.GinBadRequest(c, "Notification title is required.")
		return
	}
	created, err := store.AddNotification(req)
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to create notification: %v", err))
		return
	}
	c.JSON(http.StatusCreated, created)
}

// --- Email templates ---

// ListEmailTemplatesHandler returns every stored email template.
// @Summary      List Email Templates (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Success      200  {array}  models.EmailTemplate
// @Router       /admin/email-templates [get]
func ListEmailTemplatesHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	c.JSON(http.StatusOK, store.GetAllEmailTemplates())
}

// CreateEmailTemplateHandler adds a template keyed for dispatch lookup.
// @Summary      Create an Email Template (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Param        template body models.EmailTemplate true "The template. The key is used by dispatch, e.g. 'payment_confirmed'."
// @Success      201  {object}  models.EmailTemplate
// @Failure      400  {object}  utils.APIError "Bad Request."
// @Router       /admin/email-templates [post]
func CreateEmailTemplateHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	var req models.EmailTemplate
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if req.Key == "" {
		utils.GinBadRequest(c, "Template key is required.")
		return
	}
	created, err := store.AddEmailTemplate(req)
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to create template: %v", err))
		return
	}
	c.JSON(http.StatusCreated, created)
}

// UpdateEmailTemplateHandler replaces a template by id.
// @Summary      Update an Email Template (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Param        id       path string               true "Template ID."
// @Param        template body models.EmailTemplate true "Replacement fields."
// @Success      200  {object}  models.EmailTemplate
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /admin/email-templates/{id} [put]
func UpdateEmailTemplateHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	var req models.EmailTemplate
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	req.ID = c.Param("id")
	if err := store.UpdateEmailTemplate(req); err != nil {
		respondStoreError(c, err, "Template", req.ID)
		return
	}
	c.JSON(http.StatusOK, req)
}

// DeleteEmailTemplateHandler removes a template.
// @Summary      Delete an Email Template (Admin)
// @Tags         Admin
// @Security     BearerAuth
// @Param        id path string true "Template ID."
// @Success      204  "Deleted."
// @Failure      404  {object}  utils.APIError "Not Found."
// @Router       /admin/email-templates/{id} [delete]
func DeleteEmailTemplateHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	if err := store.DeleteEmailTemplate(c.Param("id")); err != nil {
		respondStoreError(c, err, "Template", c.Param("id"))
		return
	}
	c.Status(http.StatusNoContent)
}

// --- Site settings ---

// UpdateSettingsHandler replaces the site settings singleton.
// @Summary      Update Site Settings (Admin)
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        settings body models.SiteSettings true "The full settings record."
// @Success      200  {object}  models.SiteSettings
// @Failure      400  {object}  utils.APIError "Bad Request."
// @Router       /admin/settings [put]
func UpdateSettingsHandler(c *gin.Context, store *db.Store, cfg *config.Config) {
	var req models.SiteSettings
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.GinBadRequest(c, fmt.Sprintf("Invalid request body: %v", err))
		return
	}

	updated, err := store.UpdateSettings(req)
	if err != nil {
		utils.GinInternalServerError(c, fmt.Sprintf("Failed to update settings: %v", err))
		return
	}
	c.JSON(http.StatusOK, updated)
}
